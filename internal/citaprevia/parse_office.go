package citaprevia

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

type netOfficeProcedure struct {
	Category          string `json:"categoria"`
	Name              string `json:"nombreTramite"`
	ProcedureOfficeId uint32 `json:"idTramite"`
	ProcedureId       uint32 `json:"idFamiliaCita"`
}

type netOffice struct {
	Id              uint32               `json:"idOficina"`
	IntegrationCode *string              `json:"codIntegracion"`
	Latitude        float64              `json:"latitud"`
	Longitude       float64              `json:"longitud"`
	Name            string               `json:"nombreOficina"`
	Address         string               `json:"direccion"`
	DistrictCode    string               `json:"codigoDistrito"`
	DistrictName    string               `json:"nombreDistrito"`
	InformationUrl  string               `json:"urlInformacion"`
	Procedures      []netOfficeProcedure `json:"tramites"`
}

var (
	requiredOfficeFields = []string{
		"latitud", "longitud", "nombreOficina", "direccion",
		"codigoDistrito", "nombreDistrito", "urlInformacion", "tramites",
	}
	requiredProcedureFields = []string{
		"categoria", "nombreTramite", "idTramite", "idFamiliaCita",
	}
)

func requireFields(object map[string]json.RawMessage, fields []string) error {
	for _, f := range fields {
		value, ok := object[f]
		if !ok || isNull(value) {
			return structureError("required field %s missing", f)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseOptionalOffice decodes the office envelope shared by the office detail and closest office
// endpoints. An idOficina of 0 is how the upstream says "no such office", it yields (nil, nil).
func parseOptionalOffice(body []byte) (*Office, error) {
	var envelope map[string]json.RawMessage
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, structureError("decode envelope: %v", err)
	}

	rawId, ok := envelope["idOficina"]
	if !ok || isNull(rawId) {
		return nil, structureError("required field idOficina missing")
	}
	var id uint64
	err = json.Unmarshal(rawId, &id)
	if err != nil {
		return nil, structureError("idOficina is not a non-negative integer: %s", rawId)
	}
	if id == 0 {
		return nil, nil
	}

	err = requireFields(envelope, requiredOfficeFields)
	if err != nil {
		return nil, err
	}
	var rawProcedures []map[string]json.RawMessage
	err = json.Unmarshal(envelope["tramites"], &rawProcedures)
	if err != nil {
		return nil, structureError("decode tramites: %v", err)
	}
	for i, p := range rawProcedures {
		err = requireFields(p, requiredProcedureFields)
		if err != nil {
			return nil, fmt.Errorf("tramites[%d]: %w", i, err)
		}
	}

	var decoded netOffice
	err = json.Unmarshal(body, &decoded)
	if err != nil {
		return nil, structureError("decode office: %v", err)
	}

	office := &Office{
		Id:             OfficeId(decoded.Id),
		Name:           decoded.Name,
		Latitude:       decoded.Latitude,
		Longitude:      decoded.Longitude,
		Address:        decoded.Address,
		DistrictCode:   decoded.DistrictCode,
		DistrictName:   decoded.DistrictName,
		InformationUrl: decoded.InformationUrl,
		Procedures:     make([]OfficeProcedure, len(decoded.Procedures)),
	}
	if decoded.IntegrationCode != nil {
		office.IntegrationCode = *decoded.IntegrationCode
	}
	for i, p := range decoded.Procedures {
		office.Procedures[i] = OfficeProcedure{
			Category:          p.Category,
			Name:              p.Name,
			ProcedureId:       ProcedureId(p.ProcedureId),
			ProcedureOfficeId: ProcedureOfficeId(p.ProcedureOfficeId),
		}
	}
	return office, nil
}
