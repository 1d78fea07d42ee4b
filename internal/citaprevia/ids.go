package citaprevia

import "strconv"

// OfficeId identifies a physical office.
type OfficeId uint32

// ProcedureId identifies a procedure family across every office.
type ProcedureId uint32

// ProcedureOfficeId is the id a procedure has inside the catalog of one specific office, it is what the
// day and slot endpoints expect. It is a different namespace from ProcedureId.
type ProcedureOfficeId uint32

func (id OfficeId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ProcedureId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ProcedureOfficeId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseId(value string) (uint32, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}
