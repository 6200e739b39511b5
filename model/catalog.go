package model

import "fmt"

// Kind says where along a branch a signal is sampled.
type Kind int

const (
	KindSection  Kind = iota // one value per pipe section (between two nodes)
	KindBoundary             // one value per node
)

func (k Kind) String() string {
	switch k {
	case KindSection:
		return "SECTION"
	case KindBoundary:
		return "BOUNDARY"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps the catalog tag text (without the trailing colon) to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "SECTION":
		return KindSection, true
	case "BOUNDARY":
		return KindBoundary, true
	default:
		return 0, false
	}
}

// CatalogEntry describes one recorded signal.
type CatalogEntry struct {
	Symbol      string
	Kind        Kind
	BranchName  string // name of the owning Branch
	Units       string
	Description string

	// Series holds one vector per time step, in time order.
	Series [][]float64
}

func (e CatalogEntry) clone() CatalogEntry {
	out := e
	out.Series = make([][]float64, len(e.Series))
	for i, v := range e.Series {
		out.Series[i] = append([]float64(nil), v...)
	}
	return out
}
