// Package finder searches every office offering a procedure for open appointment days.
package finder

import (
	"context"
	"errors"
	"iter"
	"time"

	"citaprevia/internal/catalog"
	"citaprevia/internal/citaprevia"
	"citaprevia/internal/components/assert"
	"citaprevia/internal/components/telemetry"

	"golang.org/x/sync/errgroup"
)

const (
	report_finder_office_days = "finder.office-days"
	report_finder_day_slots   = "finder.day-slots"
	report_finder_days_found  = "finder.days-found"
)

const DefaultConcurrency = 4

// ErrNoOffices is returned when no office of the catalog matches the query.
var ErrNoOffices = errors.New("no offices match the specified criteria")

// Client is the part of the live client the finder needs.
type Client interface {
	AppointmentDays(ctx context.Context, office citaprevia.OfficeId, procedure citaprevia.ProcedureOfficeId) ([]citaprevia.AppointmentDay, error)
	SlotsForDay(ctx context.Context, procedure citaprevia.ProcedureOfficeId, day citaprevia.AppointmentDay) iter.Seq2[time.Time, error]
}

type Query struct {
	ProcedureId citaprevia.ProcedureId
	// OfficeId and Group narrow the search, zero values search everywhere.
	OfficeId citaprevia.OfficeId
	Group    string
	// WithSlots fetches the slots of every day and drops the days that turn out to have none.
	WithSlots bool
	// Concurrency is the number of offices queried at once, defaults to DefaultConcurrency.
	Concurrency int
}

type DayAppointments struct {
	Day citaprevia.AppointmentDay
	// Slots is nil unless the query asked for slots.
	Slots []time.Time
}

type OfficeAppointments struct {
	Office    catalog.Office
	Procedure catalog.OfficeProcedure
	Days      []DayAppointments
}

type Result struct {
	// Offices is in catalog order and includes offices without days.
	Offices []OfficeAppointments
}

// Found is true if at least one office has a day with appointments.
func (r Result) Found() bool {
	for _, o := range r.Offices {
		if len(o.Days) > 0 {
			return true
		}
	}
	return false
}

type Finder struct {
	catalog *catalog.Catalog
	client  Client
	tel     telemetry.API
}

func New(c *catalog.Catalog, client Client, tel telemetry.API) Finder {
	assert.NotNil(c)
	assert.NotNil(client)
	assert.NotNil(tel)
	return Finder{
		catalog: c,
		client:  client,
		tel:     telemetry.NewScopedAPI("finder", tel),
	}
}

// Offices returns the offices a query would search along with how they offer the procedure.
func (f Finder) Offices(q Query) []catalog.Binding {
	offices := f.catalog.FilterOffices(catalog.Filter{
		OfficeId:    q.OfficeId,
		Group:       q.Group,
		ProcedureId: q.ProcedureId,
	})
	bindings := make([]catalog.Binding, 0, len(offices))
	for _, o := range offices {
		p, _ := o.Offers(q.ProcedureId)
		bindings = append(bindings, catalog.Binding{Office: o, Procedure: p})
	}
	return bindings
}

// Search queries every matching office. The first failure cancels the offices still in flight
// and is returned.
func (f Finder) Search(ctx context.Context, q Query) (Result, error) {
	bindings := f.Offices(q)
	if len(bindings) == 0 {
		return Result{}, ErrNoOffices
	}

	concurrency := q.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]OfficeAppointments, len(bindings))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i, b := range bindings {
		group.Go(func() error {
			days, err := f.searchOffice(groupCtx, b, q.WithSlots)
			if err != nil {
				return err
			}
			results[i] = OfficeAppointments{
				Office:    b.Office,
				Procedure: b.Procedure,
				Days:      days,
			}
			return nil
		})
	}
	err := group.Wait()
	if err != nil {
		return Result{}, err
	}

	total := 0
	for _, r := range results {
		total += len(r.Days)
	}
	f.tel.ReportCount(report_finder_days_found, int64(total))

	return Result{Offices: results}, nil
}

func (f Finder) searchOffice(ctx context.Context, b catalog.Binding, withSlots bool) ([]DayAppointments, error) {
	days, err := f.client.AppointmentDays(ctx, b.Office.Id, b.Procedure.ProcedureOfficeId)
	if err != nil {
		f.tel.ReportBroken(report_finder_office_days, err, b.Office.Id)
		return nil, err
	}
	f.tel.ReportDebug("office days", "office", b.Office.Name, "days", len(days))

	out := make([]DayAppointments, 0, len(days))
	for _, day := range days {
		if !withSlots {
			out = append(out, DayAppointments{Day: day})
			continue
		}

		// a day can be listed and still have every slot taken
		slots, err := citaprevia.CollectSlots(f.client.SlotsForDay(ctx, b.Procedure.ProcedureOfficeId, day))
		if err != nil {
			f.tel.ReportBroken(report_finder_day_slots, err, b.Office.Id, day)
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		out = append(out, DayAppointments{Day: day, Slots: slots})
	}
	return out, nil
}
