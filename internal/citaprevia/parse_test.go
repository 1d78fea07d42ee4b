package citaprevia

import (
	_ "embed"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/office_detail.json
var officeDetailJson []byte

//go:embed testdata/offices.html
var officesHtml []byte

//go:embed testdata/procedures.html
var proceduresHtml []byte

//go:embed testdata/appointment_days.html
var appointmentDaysHtml string

//go:embed testdata/appointment_days_reserved.html
var appointmentDaysReservedHtml string

//go:embed testdata/day_slots.json
var daySlotsJson []byte

var fuencarral = &Office{
	Id:              128,
	Name:            "OAC Fuencarral",
	IntegrationCode: "OAC-FUENC",
	Address:         "Av. Monforte de Lemos, 40",
	DistrictCode:    "08",
	DistrictName:    "Fuencarral- el Pardo",
	InformationUrl:  "https://madrid.es/go/EEIV",
	Procedures: []OfficeProcedure{
		{
			Category:          "Padrón y censo",
			Name:              "Gestiones Padrón municipal",
			ProcedureId:       321,
			ProcedureOfficeId: 1009,
		},
		{
			Category:          "Identificación Electrónica",
			Name:              "Cl@ve",
			ProcedureId:       261,
			ProcedureOfficeId: 2290,
		},
	},
}

func TestParseOptionalOffice(t *testing.T) {
	office, err := parseOptionalOffice(officeDetailJson)
	require.NoError(t, err)
	if diff := cmp.Diff(fuencarral, office); diff != "" {
		t.Fatal("office mismatch (-want +got):\n", diff)
	}
}

func TestParseOptionalOfficeEnvelope(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		expectNil bool
		expectErr error
	}{
		{
			name:      "sentinel",
			body:      `{"idOficina":0}`,
			expectNil: true,
		},
		{
			name:      "sentinel ignores the other fields",
			body:      `{"idOficina":0,"nombreOficina":null,"tramites":"garbage"}`,
			expectNil: true,
		},
		{
			name:      "missing id",
			body:      `{"nombreOficina":"OAC Fuencarral"}`,
			expectErr: ErrStructure,
		},
		{
			name:      "null id",
			body:      `{"idOficina":null}`,
			expectErr: ErrStructure,
		},
		{
			name:      "negative id",
			body:      `{"idOficina":-3}`,
			expectErr: ErrStructure,
		},
		{
			name:      "fractional id",
			body:      `{"idOficina":1.5}`,
			expectErr: ErrStructure,
		},
		{
			name:      "string id",
			body:      `{"idOficina":"128"}`,
			expectErr: ErrStructure,
		},
		{
			name:      "not an object",
			body:      `<html>error</html>`,
			expectErr: ErrStructure,
		},
		{
			name:      "missing required field",
			body:      `{"idOficina":5,"latitud":0,"longitud":0,"nombreOficina":"x","direccion":"x","codigoDistrito":"01","nombreDistrito":"Centro","tramites":[]}`,
			expectErr: ErrStructure,
		},
		{
			name:      "missing procedure field",
			body:      `{"idOficina":5,"latitud":0,"longitud":0,"nombreOficina":"x","direccion":"x","codigoDistrito":"01","nombreDistrito":"Centro","urlInformacion":"","tramites":[{"categoria":"c","nombreTramite":"n","idTramite":1}]}`,
			expectErr: ErrStructure,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			office, err := parseOptionalOffice([]byte(test.body))
			if test.expectErr != nil {
				require.ErrorIs(t, err, test.expectErr)
				return
			}
			require.NoError(t, err)
			if test.expectNil {
				require.Nil(t, office)
			}
		})
	}
}

func TestParseOptionalOfficeNullIntegrationCode(t *testing.T) {
	body := `{"idOficina":7,"codIntegracion":null,"latitud":40.4,"longitud":-3.7,"nombreOficina":"OAC Centro","direccion":"C/ Mayor, 72","codigoDistrito":"01","nombreDistrito":"Centro","urlInformacion":"","tramites":[]}`
	office, err := parseOptionalOffice([]byte(body))
	require.NoError(t, err)
	require.Equal(t, &Office{
		Id:           7,
		Name:         "OAC Centro",
		Latitude:     40.4,
		Longitude:    -3.7,
		Address:      "C/ Mayor, 72",
		DistrictCode: "01",
		DistrictName: "Centro",
		Procedures:   []OfficeProcedure{},
	}, office)
}

func TestParseAppointmentDays(t *testing.T) {
	cases := []struct {
		name      string
		page      string
		expect    []AppointmentDay
		expectErr error
	}{
		{
			name: "embedded list in upstream order",
			page: appointmentDaysHtml,
			expect: []AppointmentDay{
				{Year: 2026, Month: time.November, Day: 3},
				{Year: 2028, Month: time.February, Day: 29},
				{Year: 2027, Month: time.January, Day: 7},
			},
		},
		{
			name:   "recently booked wins over the embedded list",
			page:   appointmentDaysReservedHtml,
			expect: []AppointmentDay{},
		},
		{
			name:   "single day",
			page:   `JSON.parse('[{"dia":5,"mes":6,"ano":2024}]')`,
			expect: []AppointmentDay{{Year: 2024, Month: time.June, Day: 5}},
		},
		{
			name:   "empty list",
			page:   `<script>x = JSON.parse('[]')</script>`,
			expect: []AppointmentDay{},
		},
		{
			name:   "first match only",
			page:   `JSON.parse('[{"dia":1,"mes":12,"ano":2026}]'); JSON.parse('garbage');`,
			expect: []AppointmentDay{{Year: 2026, Month: time.December, Day: 1}},
		},
		{
			name:      "no embedded list",
			page:      `<html><body>Sesión caducada</body></html>`,
			expectErr: ErrStructure,
		},
		{
			name:      "embedded payload is not json",
			page:      `JSON.parse('{dia:1')`,
			expectErr: ErrStructure,
		},
		{
			name:      "impossible date",
			page:      `JSON.parse('[{"dia":30,"mes":2,"ano":2026}]')`,
			expectErr: ErrInvalidDate,
		},
		{
			name:      "month out of range",
			page:      `JSON.parse('[{"dia":1,"mes":13,"ano":2026}]')`,
			expectErr: ErrInvalidDate,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			days, err := parseAppointmentDays(test.page, RegexDaysExtractor{})
			if test.expectErr != nil {
				require.ErrorIs(t, err, test.expectErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expect, days)
		})
	}
}

type fixedExtractor string

func (f fixedExtractor) ExtractDays(string) (string, bool) {
	return string(f), true
}

func TestParseAppointmentDaysCustomExtractor(t *testing.T) {
	days, err := parseAppointmentDays("<html></html>", fixedExtractor(`[{"dia":15,"mes":5,"ano":2027}]`))
	require.NoError(t, err)
	require.Equal(t, []AppointmentDay{{Year: 2027, Month: time.May, Day: 15}}, days)
}

func TestParseOptionTree(t *testing.T) {
	offices, err := parseOptionTree(officesHtml, selectOffices)
	require.NoError(t, err)
	require.Equal(t, []option{
		{Group: "Oficinas de Atención a la Ciudadanía", Name: "OAC Fuencarral", Id: 128},
		{Group: "Oficinas de Atención a la Ciudadanía", Name: "OAC Arganzuela", Id: 20},
		{Group: "Agencia Tributaria Madrid", Name: "ATM Sacramento", Id: 301},
	}, offices)

	procedures, err := parseOptionTree(proceduresHtml, selectProcedures)
	require.NoError(t, err)
	require.Equal(t, []option{
		{Group: "Padrón y censo", Name: "Altas, bajas y cambio de domicilio en Padrón", Id: 321},
		{Group: "Padrón y censo", Name: "Renovación o confirmación en Padrón de personas extranjeras", Id: 308},
		{Group: "Identificación Electrónica", Name: "Cl@ve", Id: 261},
	}, procedures)
}

func TestParseOptionTreeErrors(t *testing.T) {
	cases := []struct {
		name string
		html string
	}{
		{
			name: "missing select",
			html: `<select id="otro"><optgroup label="a"><option value="1">x</option></optgroup></select>`,
		},
		{
			name: "no optgroup",
			html: `<select id="selectOficinas"><option value="1">x</option></select>`,
		},
		{
			name: "optgroup without label",
			html: `<select id="selectOficinas"><optgroup><option value="1">x</option></optgroup></select>`,
		},
		{
			name: "option without value",
			html: `<select id="selectOficinas"><optgroup label="a"><option>x</option></optgroup></select>`,
		},
		{
			name: "non numeric value",
			html: `<select id="selectOficinas"><optgroup label="a"><option value="abc">x</option></optgroup></select>`,
		},
		{
			name: "value out of range",
			html: `<select id="selectOficinas"><optgroup label="a"><option value="4294967296">x</option></optgroup></select>`,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseOptionTree([]byte(test.html), selectOffices)
			require.ErrorIs(t, err, ErrStructure)
		})
	}
}

func TestParseDaySlots(t *testing.T) {
	groups, err := parseDaySlots(daySlotsJson)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Minutes, 3)

	day := AppointmentDay{Year: 2026, Month: time.March, Day: 29}
	instant, err := groups[1].Minutes[0].Slots[0].instant(day, time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 29, 13, 45, 0, 0, time.UTC), instant)

	for _, bad := range []string{"0930", "24:00", "09:60", "aa:00", ""} {
		_, err := netSlot{Time: bad, Available: true}.instant(day, time.UTC)
		require.ErrorIs(t, err, ErrStructure, bad)
	}

	_, err = parseDaySlots([]byte(`{"error":"sesion"}`))
	require.ErrorIs(t, err, ErrStructure)
}

func TestAppointmentDay(t *testing.T) {
	day, err := NewAppointmentDay(2028, 2, 29)
	require.NoError(t, err)
	require.Equal(t, "2028-02-29", day.String())
	require.Equal(t, "29/02/2028", day.upstreamFormat())

	var decoded AppointmentDay
	require.NoError(t, decoded.UnmarshalText([]byte("2026-11-03")))
	require.Equal(t, AppointmentDay{Year: 2026, Month: time.November, Day: 3}, decoded)

	for _, bad := range [][3]int{{2027, 2, 29}, {2026, 4, 31}, {2026, 0, 1}, {2026, 1, 0}} {
		_, err := NewAppointmentDay(bad[0], bad[1], bad[2])
		require.ErrorIs(t, err, ErrInvalidDate)
	}
}
