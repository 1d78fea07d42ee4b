package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"path/filepath"
	"testing"

	"citaprevia/internal/citaprevia"
	"citaprevia/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/catalog.json
var catalogJson []byte

func loadTestCatalog(t *testing.T) *Catalog {
	c, err := Decode(bytes.NewReader(catalogJson))
	require.NoError(t, err)
	return c
}

func TestLookups(t *testing.T) {
	c := loadTestCatalog(t)

	office, ok := c.Office(128)
	require.True(t, ok)
	require.Equal(t, "OAC Fuencarral", office.Name)
	_, ok = c.Office(999)
	require.False(t, ok)

	procedure, ok := c.Procedure(261)
	require.True(t, ok)
	require.Equal(t, "Cl@ve", procedure.Name)

	bindings := c.OfficesOffering(321)
	require.Len(t, bindings, 2)
	require.Equal(t, citaprevia.OfficeId(128), bindings[0].Office.Id)
	require.Equal(t, citaprevia.ProcedureOfficeId(1009), bindings[0].Procedure.ProcedureOfficeId)
	require.Equal(t, citaprevia.OfficeId(20), bindings[1].Office.Id)
	require.Equal(t, citaprevia.ProcedureOfficeId(1013), bindings[1].Procedure.ProcedureOfficeId)
	require.Empty(t, c.OfficesOffering(1))

	require.Len(t, c.ProceduresInCategory("padrón Y censo"), 1)
	require.Empty(t, c.ProceduresInCategory("Urbanismo"))

	offices := c.Offices()
	offices[0].Name = "changed"
	office, _ = c.Office(128)
	require.Equal(t, "OAC Fuencarral", office.Name)
}

func TestFilterOffices(t *testing.T) {
	c := loadTestCatalog(t)

	ids := func(offices []Office) []citaprevia.OfficeId {
		var out []citaprevia.OfficeId
		for _, o := range offices {
			out = append(out, o.Id)
		}
		return out
	}

	cases := []struct {
		name   string
		filter Filter
		expect []citaprevia.OfficeId
	}{
		{name: "everything", filter: Filter{}, expect: []citaprevia.OfficeId{128, 20, 301}},
		{name: "by id", filter: Filter{OfficeId: 20}, expect: []citaprevia.OfficeId{20}},
		{name: "by group ignoring case", filter: Filter{Group: "agencia tributaria MADRID"}, expect: []citaprevia.OfficeId{301}},
		{name: "by procedure", filter: Filter{ProcedureId: 261}, expect: []citaprevia.OfficeId{128}},
		{
			name:   "group and procedure",
			filter: Filter{Group: "Oficinas de Atención a la Ciudadanía", ProcedureId: 321},
			expect: []citaprevia.OfficeId{128, 20},
		},
		{name: "no match", filter: Filter{OfficeId: 301, ProcedureId: 321}, expect: nil},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expect, ids(c.FilterOffices(test.filter)))
		})
	}
}

func TestFindProcedure(t *testing.T) {
	c := loadTestCatalog(t)

	procedure, similarity, ok := c.FindProcedure("clave")
	require.True(t, ok)
	require.Equal(t, citaprevia.ProcedureId(261), procedure.Id)
	require.Greater(t, similarity, 0.5)

	procedure, _, ok = c.FindProcedure("altas bajas cambio domicilio padron")
	require.True(t, ok)
	require.Equal(t, citaprevia.ProcedureId(321), procedure.Id)

	empty, err := New(Snapshot{})
	require.NoError(t, err)
	_, _, ok = empty.FindProcedure("clave")
	require.False(t, ok)
}

func TestValidation(t *testing.T) {
	valid := func() Snapshot {
		return Snapshot{
			Offices: []Office{{
				Name:  "OAC Centro",
				Group: "OAC",
				Id:    1,
				Procedures: []OfficeProcedure{
					{Name: "Padrón", ProcedureOfficeId: 10, ProcedureId: 321},
				},
			}},
			Procedures: []Procedure{{Category: "Padrón y censo", Name: "Padrón", Id: 321}},
		}
	}

	cases := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{name: "zero office id", mutate: func(s *Snapshot) { s.Offices[0].Id = 0 }},
		{name: "empty office name", mutate: func(s *Snapshot) { s.Offices[0].Name = "" }},
		{name: "empty group", mutate: func(s *Snapshot) { s.Offices[0].Group = "" }},
		{name: "zero procedure office id", mutate: func(s *Snapshot) { s.Offices[0].Procedures[0].ProcedureOfficeId = 0 }},
		{name: "zero procedure id", mutate: func(s *Snapshot) { s.Procedures[0].Id = 0 }},
		{name: "duplicate office", mutate: func(s *Snapshot) { s.Offices = append(s.Offices, s.Offices[0]) }},
		{name: "duplicate procedure", mutate: func(s *Snapshot) { s.Procedures = append(s.Procedures, s.Procedures[0]) }},
		{
			name: "duplicate procedure office id",
			mutate: func(s *Snapshot) {
				s.Offices[0].Procedures = append(s.Offices[0].Procedures, OfficeProcedure{Name: "Otro", ProcedureOfficeId: 10, ProcedureId: 5})
			},
		},
	}

	_, err := New(valid())
	require.NoError(t, err)

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			s := valid()
			test.mutate(&s)
			_, err := New(s)
			require.Error(t, err)
		})
	}

	// unknown procedure families are allowed
	s := valid()
	s.Offices[0].Procedures[0].ProcedureId = 9999
	_, err = New(s)
	require.NoError(t, err)
}

func TestSaveLoad(t *testing.T) {
	c := loadTestCatalog(t)
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(c.Snapshot(), loaded.Snapshot()); diff != "" {
		t.Fatal("snapshot changed after save and load (-want +got):\n", diff)
	}
}

type fakeSource struct {
	offices    []citaprevia.OfficeSummary
	procedures []citaprevia.Procedure
	details    map[citaprevia.OfficeId]*citaprevia.Office
	err        error
}

func (f fakeSource) ListOffices(ctx context.Context) ([]citaprevia.OfficeSummary, error) {
	return f.offices, f.err
}

func (f fakeSource) ListProcedures(ctx context.Context) ([]citaprevia.Procedure, error) {
	return f.procedures, nil
}

func (f fakeSource) OfficeDetail(ctx context.Context, id citaprevia.OfficeId) (*citaprevia.Office, error) {
	return f.details[id], nil
}

func TestBuild(t *testing.T) {
	source := fakeSource{
		offices: []citaprevia.OfficeSummary{
			{Id: 128, Name: "OAC Fuencarral", Group: "Oficinas de Atención a la Ciudadanía"},
		},
		procedures: []citaprevia.Procedure{
			{Id: 261, Name: "Cl@ve", Category: "Identificación Electrónica"},
		},
		details: map[citaprevia.OfficeId]*citaprevia.Office{
			128: {
				Id:   128,
				Name: "OAC Fuencarral",
				Procedures: []citaprevia.OfficeProcedure{
					{Category: "Identificación Electrónica", Name: "Cl@ve", ProcedureId: 261, ProcedureOfficeId: 2290},
				},
			},
		},
	}

	rec := &telemetry.Recorder{}
	c, err := Build(context.Background(), source, rec)
	require.NoError(t, err)
	require.Equal(t, Snapshot{
		Offices: []Office{{
			Name:  "OAC Fuencarral",
			Group: "Oficinas de Atención a la Ciudadanía",
			Id:    128,
			Procedures: []OfficeProcedure{
				{Name: "Cl@ve", Category: "Identificación Electrónica", ProcedureOfficeId: 2290, ProcedureId: 261},
			},
		}},
		Procedures: []Procedure{{Category: "Identificación Electrónica", Name: "Cl@ve", Id: 261}},
	}, c.Snapshot())

	source.offices = append(source.offices, citaprevia.OfficeSummary{Id: 7, Name: "OAC Centro", Group: "OAC"})
	_, err = Build(context.Background(), source, rec)
	require.Error(t, err)
	require.True(t, rec.Broken(report_catalog_build))

	source.err = errors.New("offline")
	_, err = Build(context.Background(), source, rec)
	require.ErrorIs(t, err, source.err)
}
