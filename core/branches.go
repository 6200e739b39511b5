package core

import (
	"strconv"
	"strings"

	"github.com/signalsfoundry/ppl-reader/model"
)

// decodeBranch turns one BRANCH payload into a geometry profile. The numeric
// run must hold exactly 2*(count+1) tokens: all lengths, then all elevations.
func decodeBranch(sec RawSection) (model.Branch, error) {
	name := strings.TrimSpace(sec.Captures[0])
	count, err := decodeCount(sec, sec.Captures[1])
	if err != nil {
		return model.Branch{}, err
	}

	fields := strings.Fields(sec.Captures[2])
	nodes := count + 1
	if len(fields) != 2*nodes {
		return model.Branch{}, newParseError(sec.Kind, sec.Line, ErrBranchSizeMismatch,
			"branch %q declares %d nodes: want %d geometry values, got %d", name, nodes, 2*nodes, len(fields))
	}

	values, err := parseFloats(fields)
	if err != nil {
		return model.Branch{}, newParseError(sec.Kind, sec.Line, ErrMalformedSection, "branch %q: %v", name, err)
	}

	geometry := make([]model.GeometryPoint, nodes)
	for i := range geometry {
		geometry[i] = model.GeometryPoint{
			Length:    values[i],
			Elevation: values[nodes+i],
		}
	}
	return model.Branch{Name: name, NodeCount: count, Geometry: geometry}, nil
}

// decodeBranches decodes every BRANCH section in file order.
func decodeBranches(secs *Sections) ([]model.Branch, error) {
	raw := secs.All(SectionBranch)
	branches := make([]model.Branch, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for _, sec := range raw {
		b, err := decodeBranch(sec)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[b.Name]; dup {
			return nil, newParseError(sec.Kind, sec.Line, ErrMalformedSection, "branch %q already defined on line %d", b.Name, first)
		}
		seen[b.Name] = sec.Line
		branches = append(branches, b)
	}
	return branches, nil
}

// checkBranchCount runs once all branches are decoded.
func checkBranchCount(branches []model.Branch, network int) error {
	if len(branches) != network {
		return newParseError(SectionNetwork, 0, ErrBranchCountMismatch,
			"NETWORK declares %d branches, found %d", network, len(branches))
	}
	return nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
