// Package ppltest renders synthetic PPL files for tests.
package ppltest

import (
	"fmt"
	"strconv"
	"strings"
)

// Branch describes one generated branch. Lengths and Elevations must have
// NodeCount+1 values unless a test wants a size mismatch.
type Branch struct {
	Name       string
	NodeCount  int
	Lengths    []float64
	Elevations []float64
}

// Entry describes one generated catalog line.
type Entry struct {
	Symbol      string
	Kind        string // SECTION or BOUNDARY
	Branch      string
	Units       string
	Description string
}

// File is a synthetic PPL file. Zero-valued header strings are omitted.
type File struct {
	Version     string
	InputFile   string
	PVTFile     string
	RestartFile string
	Date        string
	Project     string
	Title       string
	Author      string
	// Network is the declared branch count; a negative value means
	// len(Branches).
	Network    int
	LengthUnit string
	TimeUnit   string
	Branches   []Branch
	Catalog    []Entry
	Times      []float64

	// Value supplies the sample of catalog entry e at step t and position p.
	// Defaults to Value.
	Value func(e, t, p int) float64
}

// Value is the default sample generator. Every cell gets a distinct value
// that encodes its coordinates.
func Value(e, t, p int) float64 {
	return float64(e*10000 + t*100 + p)
}

// Uniform returns a branch of n sections spaced step apart.
func Uniform(name string, n int, step float64) Branch {
	b := Branch{Name: name, NodeCount: n}
	for i := 0; i <= n; i++ {
		b.Lengths = append(b.Lengths, float64(i)*step)
		b.Elevations = append(b.Elevations, -float64(i))
	}
	return b
}

// Minimal is one branch of two sections, one boundary and one section
// entry, and two time steps.
func Minimal() File {
	return File{
		Version:    "OLGA 2017.1.0.107",
		InputFile:  "case.inp",
		PVTFile:    "fluid.tab",
		Date:       "17-05-04 10:21:33",
		Project:    "Demo",
		Title:      "Flowline",
		Author:     "ppl",
		Network:    -1,
		LengthUnit: "M",
		TimeUnit:   "S",
		Branches: []Branch{{
			Name:       "PIPE-1",
			NodeCount:  2,
			Lengths:    []float64{0, 50, 100},
			Elevations: []float64{0, -5, -10},
		}},
		Catalog: []Entry{
			{"PT", "BOUNDARY", "PIPE-1", "PA", "Pressure"},
			{"HOL", "SECTION", "PIPE-1", "-", "Holdup (liquid volume fraction)"},
		},
		Times: []float64{0, 10},
	}
}

// Positions returns the number of values an entry carries per time step.
func (f File) Positions(e Entry) int {
	for _, b := range f.Branches {
		if b.Name != e.Branch {
			continue
		}
		if e.Kind == "BOUNDARY" {
			return b.NodeCount + 1
		}
		return b.NodeCount
	}
	return 0
}

// Text renders the file.
func (f File) Text() string {
	var sb strings.Builder
	quoted := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "%s\n'%s'\n", label, v)
		}
	}
	if f.Version != "" {
		fmt.Fprintf(&sb, "'%s'\n", f.Version)
	}
	quoted("INPUT FILE", f.InputFile)
	quoted("PVT FILE", f.PVTFile)
	quoted("RESTART FILE", f.RestartFile)
	quoted("DATE", f.Date)
	quoted("PROJECT", f.Project)
	quoted("TITLE", f.Title)
	quoted("AUTHOR", f.Author)

	network := f.Network
	if network < 0 {
		network = len(f.Branches)
	}
	fmt.Fprintf(&sb, "NETWORK\n%d\n", network)
	if f.LengthUnit != "" {
		fmt.Fprintf(&sb, "GEOMETRY ' (%s) '\n", f.LengthUnit)
	}
	for _, b := range f.Branches {
		fmt.Fprintf(&sb, "BRANCH\n'%s'\n%d\n", b.Name, b.NodeCount)
		sb.WriteString(floats(b.Lengths))
		sb.WriteString(floats(b.Elevations))
	}

	fmt.Fprintf(&sb, "CATALOG\n%d\n", len(f.Catalog))
	for _, e := range f.Catalog {
		fmt.Fprintf(&sb, "%s '%s:' 'BRANCH:' '%s' '(%s)' '%s'\n", e.Symbol, e.Kind, e.Branch, e.Units, e.Description)
	}

	if f.TimeUnit != "" {
		fmt.Fprintf(&sb, "TIME SERIES ' (%s) '\n", f.TimeUnit)
	} else {
		sb.WriteString("TIME SERIES\n")
	}
	value := f.Value
	if value == nil {
		value = Value
	}
	for t, tm := range f.Times {
		sb.WriteString(floats([]float64{tm}))
		for e, entry := range f.Catalog {
			row := make([]float64, f.Positions(entry))
			for p := range row {
				row[p] = value(e, t, p)
			}
			sb.WriteString(floats(row))
		}
	}
	return sb.String()
}

func floats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ") + "\n"
}
