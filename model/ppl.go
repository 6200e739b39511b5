package model

import (
	"fmt"
	"time"
)

// Metadata collects the single-valued header sections of a PPL file.
// Optional sections that are absent from the file are left at their zero
// value.
type Metadata struct {
	Version     string // numeric product version, e.g. "2017.1.0"
	InputFile   string
	PVTFile     string // optional
	RestartFile string // optional
	Date        time.Time
	Project     string
	Title       string
	Author      string
	Network     int // declared branch count

	LengthUnit string // from the GEOMETRY header, e.g. "M"
	TimeUnit   string // from the TIME SERIES header, e.g. "S"
}

// PPL is a fully parsed and validated PPL file. It is read-only: every
// accessor returns a copy.
type PPL struct {
	meta     Metadata
	order    []string
	branches map[string]Branch
	catalog  []CatalogEntry
	times    []float64
	tables   map[string]BranchTable
}

// NewPPL takes ownership of the supplied values. Callers are expected to
// have validated them; only the branch/table key sets are checked here.
func NewPPL(meta Metadata, branches []Branch, catalog []CatalogEntry, times []float64, tables map[string]BranchTable) (*PPL, error) {
	p := &PPL{
		meta:     meta,
		order:    make([]string, 0, len(branches)),
		branches: make(map[string]Branch, len(branches)),
		catalog:  catalog,
		times:    times,
		tables:   tables,
	}
	for _, b := range branches {
		if _, dup := p.branches[b.Name]; dup {
			return nil, fmt.Errorf("model: duplicate branch %q", b.Name)
		}
		if _, ok := tables[b.Name]; !ok {
			return nil, fmt.Errorf("model: branch %q has no table", b.Name)
		}
		p.branches[b.Name] = b
		p.order = append(p.order, b.Name)
	}
	if len(tables) != len(branches) {
		return nil, fmt.Errorf("model: %d tables for %d branches", len(tables), len(branches))
	}
	return p, nil
}

// Metadata returns the header values.
func (p *PPL) Metadata() Metadata { return p.meta }

// BranchNames returns branch names in file order.
func (p *PPL) BranchNames() []string { return append([]string(nil), p.order...) }

// Branch looks up a branch by name.
func (p *PPL) Branch(name string) (Branch, bool) {
	b, ok := p.branches[name]
	if !ok {
		return Branch{}, false
	}
	return b.clone(), true
}

// Branches returns every branch in file order.
func (p *PPL) Branches() []Branch {
	out := make([]Branch, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.branches[name].clone())
	}
	return out
}

// Catalog returns the catalog in file order, series included.
func (p *PPL) Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(p.catalog))
	for i, e := range p.catalog {
		out[i] = e.clone()
	}
	return out
}

// CatalogFor returns the entries owned by the named branch, in catalog order.
func (p *PPL) CatalogFor(branch string) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range p.catalog {
		if e.BranchName == branch {
			out = append(out, e.clone())
		}
	}
	return out
}

// Entry finds the entry with the given symbol on the given branch.
func (p *PPL) Entry(branch, symbol string) (CatalogEntry, bool) {
	for _, e := range p.catalog {
		if e.BranchName == branch && e.Symbol == symbol {
			return e.clone(), true
		}
	}
	return CatalogEntry{}, false
}

// TimeSteps returns the recorded time values.
func (p *PPL) TimeSteps() []float64 { return append([]float64(nil), p.times...) }

// Table returns the signal tables of the named branch. SeriesTable has no
// mutators, so the tables are shared rather than copied.
func (p *PPL) Table(branch string) (BranchTable, bool) {
	t, ok := p.tables[branch]
	return t, ok
}

// Summary is a count-only description of a model.
type Summary struct {
	Version        string
	Title          string
	Branches       int
	CatalogEntries int
	TimeSteps      int
	Nodes          map[string]int
}

// Summary reports the model's dimensions.
func (p *PPL) Summary() Summary {
	s := Summary{
		Version:        p.meta.Version,
		Title:          p.meta.Title,
		Branches:       len(p.order),
		CatalogEntries: len(p.catalog),
		TimeSteps:      len(p.times),
		Nodes:          make(map[string]int, len(p.order)),
	}
	for _, name := range p.order {
		s.Nodes[name] = p.branches[name].Nodes()
	}
	return s
}
