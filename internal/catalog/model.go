package catalog

import "citaprevia/internal/citaprevia"

// OfficeProcedure is a procedure as one office offers it.
type OfficeProcedure struct {
	Name              string                       `json:"procedure_name" validate:"required"`
	Category          string                       `json:"procedure_category"`
	ProcedureOfficeId citaprevia.ProcedureOfficeId `json:"procedure_office_id" validate:"required"`
	ProcedureId       citaprevia.ProcedureId       `json:"procedure_id" validate:"required"`
}

type Office struct {
	Name       string              `json:"name" validate:"required"`
	Group      string              `json:"group" validate:"required"`
	Id         citaprevia.OfficeId `json:"id" validate:"required"`
	Procedures []OfficeProcedure   `json:"procedures" validate:"dive"`
}

// Offers returns the binding of the given procedure family at this office.
func (o Office) Offers(id citaprevia.ProcedureId) (OfficeProcedure, bool) {
	for _, p := range o.Procedures {
		if p.ProcedureId == id {
			return p, true
		}
	}
	return OfficeProcedure{}, false
}

type Procedure struct {
	Category string                 `json:"procedure_category" validate:"required"`
	Name     string                 `json:"procedure_name" validate:"required"`
	Id       citaprevia.ProcedureId `json:"procedure_id" validate:"required"`
}

// Snapshot is the serialized form of a catalog.
type Snapshot struct {
	Offices    []Office    `json:"offices" validate:"dive"`
	Procedures []Procedure `json:"procedures" validate:"dive"`
}
