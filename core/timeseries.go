package core

import (
	"strconv"
	"strings"
)

// Series is the demultiplexed TIME SERIES stream.
type Series struct {
	Times []float64
	// Values[i][g] is the vector of catalog entry i at time step g.
	Values [][][]float64
}

// splitStream turns the captured TIME SERIES payload into an indexable
// slice of lines. Interior blank lines are kept: they are empty vectors.
func splitStream(payload string) []string {
	body := strings.TrimRight(strings.TrimPrefix(payload, "\n"), " \t\n")
	if strings.TrimSpace(body) == "" {
		return nil
	}
	return strings.Split(body, "\n")
}

// Redistribute demultiplexes the flat TIME SERIES stream for a catalog of
// n entries. The stream is a sequence of groups of n+1 lines: a time value
// followed by one vector per entry in catalog order. Line g*(n+1)+r of the
// stream is row r of group g.
func Redistribute(sec RawSection, n int) (*Series, error) {
	lines := splitStream(sec.Captures[1])
	stride := n + 1
	if len(lines)%stride != 0 {
		return nil, newParseError(sec.Kind, sec.Line, ErrTimeSeriesTruncated,
			"%d lines is not a whole number of %d-line groups (catalog has %d entries)", len(lines), stride, n)
	}
	groups := len(lines) / stride

	out := &Series{
		Times:  make([]float64, groups),
		Values: make([][][]float64, n),
	}
	for i := range out.Values {
		out.Values[i] = make([][]float64, groups)
	}

	for g := 0; g < groups; g++ {
		base := g * stride

		t, err := parseTime(lines[base])
		if err != nil {
			return nil, newParseError(sec.Kind, sec.Line, ErrTimeSeriesTruncated,
				"group %d: time value: %v", g, err)
		}
		out.Times[g] = t

		for r := 1; r < stride; r++ {
			vec, err := parseFloats(strings.Fields(lines[base+r]))
			if err != nil {
				return nil, newParseError(sec.Kind, sec.Line, ErrTimeSeriesTruncated,
					"group %d, entry %d: %v", g, r-1, err)
			}
			out.Values[r-1][g] = vec
		}
	}
	return out, nil
}

func parseTime(line string) (float64, error) {
	fields := strings.Fields(line)
	if len(fields) != 1 {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: strings.TrimSpace(line), Err: strconv.ErrSyntax}
	}
	return strconv.ParseFloat(fields[0], 64)
}
