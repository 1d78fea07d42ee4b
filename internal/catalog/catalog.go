// Package catalog holds a static snapshot of the offices and procedures of the appointment
// system so that lookups do not need a live session.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"citaprevia/internal/citaprevia"

	"github.com/antzucaro/matchr"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New()

// Catalog is immutable once created and safe for concurrent use.
type Catalog struct {
	offices    []Office
	procedures []Procedure

	officeIndex    map[citaprevia.OfficeId]int
	procedureIndex map[citaprevia.ProcedureId]int
}

// New validates the snapshot and indexes it.
func New(snapshot Snapshot) (*Catalog, error) {
	err := validate.Struct(snapshot)
	if err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	c := &Catalog{
		offices:        slices.Clone(snapshot.Offices),
		procedures:     slices.Clone(snapshot.Procedures),
		officeIndex:    make(map[citaprevia.OfficeId]int, len(snapshot.Offices)),
		procedureIndex: make(map[citaprevia.ProcedureId]int, len(snapshot.Procedures)),
	}

	var errs []error
	for i, o := range c.offices {
		if _, ok := c.officeIndex[o.Id]; ok {
			errs = append(errs, fmt.Errorf("duplicate office id %d", o.Id))
			continue
		}
		c.officeIndex[o.Id] = i

		seen := make(map[citaprevia.ProcedureOfficeId]struct{}, len(o.Procedures))
		for _, p := range o.Procedures {
			if _, ok := seen[p.ProcedureOfficeId]; ok {
				errs = append(errs, fmt.Errorf("office %d: duplicate procedure office id %d", o.Id, p.ProcedureOfficeId))
				continue
			}
			seen[p.ProcedureOfficeId] = struct{}{}
		}
		c.offices[i].Procedures = slices.Clone(o.Procedures)
	}
	for i, p := range c.procedures {
		if _, ok := c.procedureIndex[p.Id]; ok {
			errs = append(errs, fmt.Errorf("duplicate procedure id %d", p.Id))
			continue
		}
		c.procedureIndex[p.Id] = i
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("validate catalog: %w", errors.Join(errs...))
	}

	return c, nil
}

func Decode(r io.Reader) (*Catalog, error) {
	var snapshot Snapshot
	err := json.NewDecoder(r).Decode(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(snapshot)
}

func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func (c *Catalog) Snapshot() Snapshot {
	return Snapshot{
		Offices:    c.Offices(),
		Procedures: c.Procedures(),
	}
}

func (c *Catalog) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Snapshot())
}

// Save writes the catalog to path, creating parent directories as needed.
func (c *Catalog) Save(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = c.Encode(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Catalog) Office(id citaprevia.OfficeId) (Office, bool) {
	i, ok := c.officeIndex[id]
	if !ok {
		return Office{}, false
	}
	return c.offices[i], true
}

func (c *Catalog) Procedure(id citaprevia.ProcedureId) (Procedure, bool) {
	i, ok := c.procedureIndex[id]
	if !ok {
		return Procedure{}, false
	}
	return c.procedures[i], true
}

// Offices returns the offices in snapshot order. The slice is a copy, the procedure
// slices of each office must not be modified.
func (c *Catalog) Offices() []Office {
	return slices.Clone(c.offices)
}

func (c *Catalog) Procedures() []Procedure {
	return slices.Clone(c.procedures)
}

// Binding is an office together with the way it offers a procedure family.
type Binding struct {
	Office    Office
	Procedure OfficeProcedure
}

// OfficesOffering returns every office that offers the procedure family, in snapshot order.
func (c *Catalog) OfficesOffering(id citaprevia.ProcedureId) []Binding {
	var out []Binding
	for _, o := range c.offices {
		p, ok := o.Offers(id)
		if !ok {
			continue
		}
		out = append(out, Binding{Office: o, Procedure: p})
	}
	return out
}

// Filter selects offices, zero fields match everything.
type Filter struct {
	OfficeId citaprevia.OfficeId
	// Group is matched case-insensitively.
	Group       string
	ProcedureId citaprevia.ProcedureId
}

func (f Filter) matches(o Office) bool {
	if f.OfficeId != 0 && o.Id != f.OfficeId {
		return false
	}
	if f.Group != "" && !strings.EqualFold(o.Group, f.Group) {
		return false
	}
	if f.ProcedureId != 0 {
		if _, ok := o.Offers(f.ProcedureId); !ok {
			return false
		}
	}
	return true
}

func (c *Catalog) FilterOffices(f Filter) []Office {
	var out []Office
	for _, o := range c.offices {
		if f.matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// ProceduresInCategory matches the category case-insensitively.
func (c *Catalog) ProceduresInCategory(category string) []Procedure {
	var out []Procedure
	for _, p := range c.procedures {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// FindProcedure returns the procedure whose name is most similar to the given one along with
// the Jaro-Winkler similarity, false if the catalog has no procedures.
func (c *Catalog) FindProcedure(name string) (Procedure, float64, bool) {
	target := strings.ToLower(strings.TrimSpace(name))

	var best Procedure
	var bestSimilarity float64
	found := false
	for _, p := range c.procedures {
		similarity := matchr.JaroWinkler(target, strings.ToLower(p.Name), false)
		if !found || similarity > bestSimilarity {
			best = p
			bestSimilarity = similarity
			found = true
		}
	}
	return best, bestSimilarity, found
}
