package model

// GeometryPoint is one sample of a branch profile, in the file's length unit.
type GeometryPoint struct {
	Length    float64
	Elevation float64
}

// Branch is a named pipe segment of the simulated network.
type Branch struct {
	Name string
	// NodeCount is the count declared in the file: the number of geometry
	// samples minus one, which is also the number of pipe sections.
	NodeCount int
	Geometry  []GeometryPoint
}

// Nodes returns the number of boundary nodes (NodeCount+1).
func (b Branch) Nodes() int { return b.NodeCount + 1 }

// Lengths returns the length coordinate of every geometry sample.
func (b Branch) Lengths() []float64 {
	out := make([]float64, len(b.Geometry))
	for i, p := range b.Geometry {
		out[i] = p.Length
	}
	return out
}

// Elevations returns the elevation of every geometry sample.
func (b Branch) Elevations() []float64 {
	out := make([]float64, len(b.Geometry))
	for i, p := range b.Geometry {
		out[i] = p.Elevation
	}
	return out
}

// GeometryTable renders the profile as a table with one row per node.
func (b Branch) GeometryTable() *Table {
	rows := make([][]float64, len(b.Geometry))
	index := make([][]float64, len(b.Geometry))
	for i, p := range b.Geometry {
		rows[i] = []float64{p.Length, p.Elevation}
		index[i] = []float64{float64(i)}
	}
	return &Table{
		IndexNames: []string{"node"},
		Index:      index,
		Columns:    []string{"length", "elevation"},
		Values:     rows,
	}
}

func (b Branch) clone() Branch {
	out := b
	out.Geometry = append([]GeometryPoint(nil), b.Geometry...)
	return out
}
