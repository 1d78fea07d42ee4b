package catalog

import (
	"context"
	"fmt"

	"citaprevia/internal/citaprevia"
	"citaprevia/internal/components/assert"
	"citaprevia/internal/components/telemetry"
)

const report_catalog_build = "catalog.build"

// Source is the part of the live client a catalog can be built from.
type Source interface {
	ListOffices(ctx context.Context) ([]citaprevia.OfficeSummary, error)
	ListProcedures(ctx context.Context) ([]citaprevia.Procedure, error)
	OfficeDetail(ctx context.Context, id citaprevia.OfficeId) (*citaprevia.Office, error)
}

// Build downloads a fresh snapshot: every listed office with the procedures of its detail
// record and every listed procedure. Offices are fetched one after the other, the client
// rate limit applies anyway.
func Build(ctx context.Context, source Source, tel telemetry.API) (*Catalog, error) {
	assert.NotNil(source)
	assert.NotNil(tel)

	tel.ReportDebug("listing offices")
	offices, err := source.ListOffices(ctx)
	if err != nil {
		tel.ReportBroken(report_catalog_build, err)
		return nil, err
	}
	tel.ReportDebug("listing procedures")
	procedures, err := source.ListProcedures(ctx)
	if err != nil {
		tel.ReportBroken(report_catalog_build, err)
		return nil, err
	}

	snapshot := Snapshot{
		Offices:    make([]Office, 0, len(offices)),
		Procedures: make([]Procedure, len(procedures)),
	}
	for i, p := range procedures {
		snapshot.Procedures[i] = Procedure{
			Category: p.Category,
			Name:     p.Name,
			Id:       p.Id,
		}
	}

	for _, summary := range offices {
		tel.ReportDebug("downloading office info", "office", summary.Name)
		detail, err := source.OfficeDetail(ctx, summary.Id)
		if err != nil {
			tel.ReportBroken(report_catalog_build, err, summary.Id)
			return nil, err
		}
		if detail == nil {
			err := fmt.Errorf("office %d (%s) is listed but has no detail", summary.Id, summary.Name)
			tel.ReportBroken(report_catalog_build, err)
			return nil, err
		}

		office := Office{
			Name:       detail.Name,
			Group:      summary.Group,
			Id:         summary.Id,
			Procedures: make([]OfficeProcedure, len(detail.Procedures)),
		}
		for i, p := range detail.Procedures {
			office.Procedures[i] = OfficeProcedure{
				Name:              p.Name,
				Category:          p.Category,
				ProcedureOfficeId: p.ProcedureOfficeId,
				ProcedureId:       p.ProcedureId,
			}
		}
		snapshot.Offices = append(snapshot.Offices, office)
	}

	return New(snapshot)
}
