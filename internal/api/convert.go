package api

import (
	"time"

	"github.com/signalsfoundry/ppl-reader/internal/export"
	"github.com/signalsfoundry/ppl-reader/model"
	"google.golang.org/protobuf/types/known/structpb"
)

// describeModel renders the model without its series data; clients that
// need values use Export.
func describeModel(p *model.PPL, parseID string) (*structpb.Struct, error) {
	meta := p.Metadata()
	date := ""
	if !meta.Date.IsZero() {
		date = meta.Date.Format(time.RFC3339)
	}

	branches := make([]any, 0, len(p.BranchNames()))
	for _, b := range p.Branches() {
		branches = append(branches, map[string]any{
			"name":       b.Name,
			"nodes":      b.Nodes(),
			"lengths":    floats(b.Lengths()),
			"elevations": floats(b.Elevations()),
		})
	}

	catalog := p.Catalog()
	entries := make([]any, 0, len(catalog))
	for _, e := range catalog {
		entries = append(entries, map[string]any{
			"symbol":      e.Symbol,
			"kind":        e.Kind.String(),
			"branch":      e.BranchName,
			"units":       e.Units,
			"description": e.Description,
		})
	}

	s := p.Summary()
	return structpb.NewStruct(map[string]any{
		"parse_id": parseID,
		"metadata": map[string]any{
			"version":      meta.Version,
			"input_file":   meta.InputFile,
			"pvt_file":     meta.PVTFile,
			"restart_file": meta.RestartFile,
			"date":         date,
			"project":      meta.Project,
			"title":        meta.Title,
			"author":       meta.Author,
			"network":      meta.Network,
			"length_unit":  meta.LengthUnit,
			"time_unit":    meta.TimeUnit,
		},
		"summary": map[string]any{
			"branches":        s.Branches,
			"catalog_entries": s.CatalogEntries,
			"time_steps":      s.TimeSteps,
		},
		"branches":   branches,
		"catalog":    entries,
		"time_steps": floats(p.TimeSteps()),
	})
}

func describeExport(stats export.Stats, sink, parseID string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"parse_id":   parseID,
		"sink":       sink,
		"attributes": stats.Attributes,
		"tables":     stats.Tables,
		"rows":       stats.Rows,
	})
}

func floats(vs []float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
