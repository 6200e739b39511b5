package model

import "fmt"

// Table is a dense 2-D table of float64 values. Each row is addressed by a
// tuple of index values (one per IndexNames entry) and each column by name.
// It is the shape handed to persistence sinks.
type Table struct {
	IndexNames []string
	Index      [][]float64
	Columns    []string
	Values     [][]float64 // Values[row][column]
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.Values)
}

// Validate checks that index and value rows agree with the declared
// index names and columns.
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("table is nil")
	}
	if len(t.Index) != len(t.Values) {
		return fmt.Errorf("table has %d index rows and %d value rows", len(t.Index), len(t.Values))
	}
	for i := range t.Values {
		if len(t.Index[i]) != len(t.IndexNames) {
			return fmt.Errorf("row %d: index has %d levels, want %d", i, len(t.Index[i]), len(t.IndexNames))
		}
		if len(t.Values[i]) != len(t.Columns) {
			return fmt.Errorf("row %d: %d values, want %d", i, len(t.Values[i]), len(t.Columns))
		}
	}
	return nil
}

// SeriesTable holds one signal column per catalog entry over a
// (position, time) grid. Rows are ordered position-major: all time steps of
// the first position come first.
type SeriesTable struct {
	columns   []string
	positions []float64
	times     []float64
	values    []float64 // [position][time][column], flattened
}

// SeriesTableBuilder fills a SeriesTable before it is handed out. The
// builder must not be used after Build.
type SeriesTableBuilder struct {
	t *SeriesTable
}

// NewSeriesTableBuilder allocates a zero-filled grid. The slices are copied.
func NewSeriesTableBuilder(columns []string, positions, times []float64) *SeriesTableBuilder {
	return &SeriesTableBuilder{t: &SeriesTable{
		columns:   append([]string(nil), columns...),
		positions: append([]float64(nil), positions...),
		times:     append([]float64(nil), times...),
		values:    make([]float64, len(positions)*len(times)*len(columns)),
	}}
}

// Set stores v at (pos, step, col). It panics when out of range, like a
// slice index.
func (b *SeriesTableBuilder) Set(pos, step, col int, v float64) {
	b.t.check(pos, step, col)
	b.t.values[b.t.offset(pos, step, col)] = v
}

// Build returns the finished table.
func (b *SeriesTableBuilder) Build() *SeriesTable {
	t := b.t
	b.t = nil
	return t
}

func (s *SeriesTable) offset(pos, step, col int) int {
	return (pos*len(s.times)+step)*len(s.columns) + col
}

// At returns the value at (pos, step, col).
func (s *SeriesTable) At(pos, step, col int) float64 {
	s.check(pos, step, col)
	return s.values[s.offset(pos, step, col)]
}

func (s *SeriesTable) check(pos, step, col int) {
	if pos < 0 || pos >= len(s.positions) || step < 0 || step >= len(s.times) || col < 0 || col >= len(s.columns) {
		panic(fmt.Sprintf("model: series index (%d, %d, %d) out of range %v", pos, step, col, s.Shape()))
	}
}

// Shape returns (positions, time steps, columns).
func (s *SeriesTable) Shape() [3]int {
	return [3]int{len(s.positions), len(s.times), len(s.columns)}
}

// Positions returns the spatial coordinate of each position row.
func (s *SeriesTable) Positions() []float64 { return append([]float64(nil), s.positions...) }

// Times returns the time coordinate of each step.
func (s *SeriesTable) Times() []float64 { return append([]float64(nil), s.times...) }

// Columns returns the column symbols in catalog order.
func (s *SeriesTable) Columns() []string { return append([]string(nil), s.columns...) }

// Rows returns positions × time steps.
func (s *SeriesTable) Rows() int { return len(s.positions) * len(s.times) }

// ColumnIndex returns the index of the named column.
func (s *SeriesTable) ColumnIndex(name string) (int, bool) {
	for i, c := range s.columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns the named column in row order (position-major).
func (s *SeriesTable) Column(name string) ([]float64, bool) {
	col, ok := s.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, s.Rows())
	for p := range s.positions {
		for t := range s.times {
			out = append(out, s.values[s.offset(p, t, col)])
		}
	}
	return out, true
}

// Table flattens the grid into a 2-D table indexed by (length, time).
func (s *SeriesTable) Table() *Table {
	out := &Table{
		IndexNames: []string{"length", "time"},
		Index:      make([][]float64, 0, s.Rows()),
		Columns:    s.Columns(),
		Values:     make([][]float64, 0, s.Rows()),
	}
	for p, pos := range s.positions {
		for t, tm := range s.times {
			start := s.offset(p, t, 0)
			out.Index = append(out.Index, []float64{pos, tm})
			out.Values = append(out.Values, append([]float64(nil), s.values[start:start+len(s.columns)]...))
		}
	}
	return out
}

// BranchTable groups the per-node and per-section signal tables of a branch.
type BranchTable struct {
	Boundaries *SeriesTable
	Sections   *SeriesTable
}
