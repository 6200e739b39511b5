package core

import (
	"github.com/signalsfoundry/ppl-reader/model"
)

// assemble attaches series to catalog entries and builds the per-branch
// tables. Boundary entries need one value per node, section entries one per
// section (one fewer).
func assemble(meta model.Metadata, branches []model.Branch, catalog []model.CatalogEntry, series *Series) (*model.PPL, error) {
	byName := make(map[string]model.Branch, len(branches))
	for _, b := range branches {
		byName[b.Name] = b
	}

	// 1) Resolve owners and attach series.
	type owned struct{ sections, boundaries []int }
	members := make(map[string]*owned, len(branches))
	for _, b := range branches {
		members[b.Name] = &owned{}
	}
	for i := range catalog {
		e := &catalog[i]
		m, ok := members[e.BranchName]
		if !ok {
			return nil, newParseError(SectionCatalog, 0, ErrUnknownBranchReference,
				"entry %d (%s) references branch %q", i+1, e.Symbol, e.BranchName)
		}
		e.Series = series.Values[i]
		if e.Kind == model.KindSection {
			m.sections = append(m.sections, i)
		} else {
			m.boundaries = append(m.boundaries, i)
		}
	}

	// 2) Reshape each entry's [time][position] series into (position, time).
	tables := make(map[string]model.BranchTable, len(branches))
	for _, b := range branches {
		m := members[b.Name]
		lengths := b.Lengths()

		bounds, err := buildTable(b, catalog, m.boundaries, lengths, series.Times)
		if err != nil {
			return nil, err
		}
		sects, err := buildTable(b, catalog, m.sections, lengths[:b.NodeCount], series.Times)
		if err != nil {
			return nil, err
		}
		tables[b.Name] = model.BranchTable{Boundaries: bounds, Sections: sects}
	}

	p, err := model.NewPPL(meta, branches, catalog, series.Times, tables)
	if err != nil {
		return nil, newParseError(SectionBranch, 0, ErrMalformedSection, "%v", err)
	}
	return p, nil
}

func buildTable(b model.Branch, catalog []model.CatalogEntry, idx []int, positions, times []float64) (*model.SeriesTable, error) {
	cols := make([]string, len(idx))
	for k, i := range idx {
		cols[k] = catalog[i].Symbol
	}

	tb := model.NewSeriesTableBuilder(cols, positions, times)
	for k, i := range idx {
		e := catalog[i]
		if len(e.Series) != len(times) {
			return nil, newParseError(SectionTimeSeries, 0, ErrSeriesShapeMismatch,
				"%s on branch %q has %d time steps, want %d", e.Symbol, b.Name, len(e.Series), len(times))
		}
		for t, vec := range e.Series {
			if len(vec) != len(positions) {
				return nil, newParseError(SectionTimeSeries, 0, ErrSeriesShapeMismatch,
					"%s %s on branch %q at step %d has %d values, want %d",
					e.Kind, e.Symbol, b.Name, t, len(vec), len(positions))
			}
			for p, v := range vec {
				tb.Set(p, t, k, v)
			}
		}
	}
	return tb.Build(), nil
}
