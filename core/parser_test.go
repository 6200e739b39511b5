package core

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/internal/ppltest"
	"github.com/signalsfoundry/ppl-reader/model"
)

const minimalPPL = `'OLGA 2017.1.0'
NETWORK
1
GEOMETRY ' (M) '
BRANCH
'A'
1
0.0 10.0
5.0 6.0
CATALOG
1
HOL 'SECTION:' 'BRANCH:' 'A' '(-)' 'Holdup'
TIME SERIES ' (S) '
0.0
0.25
1.0
0.5
`

func TestParseMinimalScenario(t *testing.T) {
	p, err := Parse(minimalPPL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	meta := p.Metadata()
	if meta.Version != "2017.1.0" {
		t.Fatalf("Version = %q, want 2017.1.0", meta.Version)
	}
	if meta.Network != 1 || meta.LengthUnit != "M" || meta.TimeUnit != "S" {
		t.Fatalf("metadata = %+v", meta)
	}
	if diff := cmp.Diff([]float64{0, 1}, p.TimeSteps()); diff != "" {
		t.Fatalf("TimeSteps mismatch (-want +got):\n%s", diff)
	}

	b, ok := p.Branch("A")
	if !ok {
		t.Fatalf("branch A missing")
	}
	if diff := cmp.Diff([]model.GeometryPoint{{Length: 0, Elevation: 5}, {Length: 10, Elevation: 6}}, b.Geometry); diff != "" {
		t.Fatalf("geometry mismatch (-want +got):\n%s", diff)
	}

	tbl, ok := p.Table("A")
	if !ok {
		t.Fatalf("table A missing")
	}
	if got := tbl.Boundaries.Shape(); got != [3]int{2, 2, 0} {
		t.Fatalf("boundaries shape = %v, want [2 2 0]", got)
	}
	if got := tbl.Sections.Shape(); got != [3]int{1, 2, 1} {
		t.Fatalf("sections shape = %v, want [1 2 1]", got)
	}
	col, ok := tbl.Sections.Column("HOL")
	if !ok {
		t.Fatalf("HOL column missing")
	}
	if diff := cmp.Diff([]float64{0.25, 0.5}, col); diff != "" {
		t.Fatalf("HOL column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0}, tbl.Sections.Positions()); diff != "" {
		t.Fatalf("section positions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGeneratedFile(t *testing.T) {
	f := ppltest.Minimal()
	p, err := Parse(f.Text())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	meta := p.Metadata()
	wantDate := time.Date(2017, 5, 4, 10, 21, 33, 0, time.UTC)
	if !meta.Date.Equal(wantDate) {
		t.Fatalf("Date = %v, want %v", meta.Date, wantDate)
	}
	if meta.InputFile != "case.inp" || meta.PVTFile != "fluid.tab" || meta.RestartFile != "" {
		t.Fatalf("file metadata = %+v", meta)
	}
	if meta.Project != "Demo" || meta.Title != "Flowline" || meta.Author != "ppl" {
		t.Fatalf("text metadata = %+v", meta)
	}

	pt, ok := p.Entry("PIPE-1", "PT")
	if !ok {
		t.Fatalf("PT entry missing")
	}
	want := [][]float64{{0, 1, 2}, {100, 101, 102}}
	if diff := cmp.Diff(want, pt.Series); diff != "" {
		t.Fatalf("PT series mismatch (-want +got):\n%s", diff)
	}

	tbl, _ := p.Table("PIPE-1")
	if got := tbl.Boundaries.At(2, 1, 0); got != 102 {
		t.Fatalf("boundaries(2,1,PT) = %v, want 102", got)
	}
	if got := tbl.Sections.At(1, 1, 0); got != 10101 {
		t.Fatalf("sections(1,1,HOL) = %v, want 10101", got)
	}
	if diff := cmp.Diff([]float64{0, 50}, tbl.Sections.Positions()); diff != "" {
		t.Fatalf("section positions mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogOrderSurvivesRedistribution(t *testing.T) {
	f := ppltest.Minimal()
	f.Catalog = []ppltest.Entry{
		{Symbol: "PT", Kind: "BOUNDARY", Branch: "PIPE-1", Units: "PA", Description: "Pressure"},
		{Symbol: "HOL", Kind: "SECTION", Branch: "PIPE-1", Units: "-", Description: "Holdup"},
		{Symbol: "TM", Kind: "BOUNDARY", Branch: "PIPE-1", Units: "C", Description: "Temperature"},
	}
	p, err := Parse(f.Text())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var symbols []string
	for _, e := range p.Catalog() {
		symbols = append(symbols, e.Symbol)
	}
	if diff := cmp.Diff([]string{"PT", "HOL", "TM"}, symbols); diff != "" {
		t.Fatalf("catalog order mismatch (-want +got):\n%s", diff)
	}
	for i, e := range p.Catalog() {
		for step, vec := range e.Series {
			for pos, v := range vec {
				if want := ppltest.Value(i, step, pos); v != want {
					t.Fatalf("%s[%d][%d] = %v, want %v", e.Symbol, step, pos, v, want)
				}
			}
		}
	}

	tbl, _ := p.Table("PIPE-1")
	if diff := cmp.Diff([]string{"PT", "TM"}, tbl.Boundaries.Columns()); diff != "" {
		t.Fatalf("boundary columns mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripTwoBranches(t *testing.T) {
	f := ppltest.File{
		Network: -1,
		Branches: []ppltest.Branch{
			ppltest.Uniform("RISER", 3, 25),
			ppltest.Uniform("FLOWLINE", 5, 100),
		},
		Catalog: []ppltest.Entry{
			{Symbol: "PT", Kind: "BOUNDARY", Branch: "FLOWLINE", Units: "PA", Description: "Pressure"},
			{Symbol: "HOL", Kind: "SECTION", Branch: "RISER", Units: "-", Description: "Holdup"},
			{Symbol: "PT", Kind: "BOUNDARY", Branch: "RISER", Units: "PA", Description: "Pressure"},
			{Symbol: "UL", Kind: "SECTION", Branch: "FLOWLINE", Units: "M/S", Description: "Liquid velocity"},
		},
		Times: []float64{0, 1, 2, 3},
	}
	p, err := Parse(f.Text())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff([]string{"RISER", "FLOWLINE"}, p.BranchNames()); diff != "" {
		t.Fatalf("branch order mismatch (-want +got):\n%s", diff)
	}
	if got := len(p.TimeSteps()); got != 4 {
		t.Fatalf("time steps = %d, want 4", got)
	}

	for i, e := range f.Catalog {
		got, ok := p.Entry(e.Branch, e.Symbol)
		if !ok {
			t.Fatalf("entry %s/%s missing", e.Branch, e.Symbol)
		}
		tbl, _ := p.Table(e.Branch)
		st := tbl.Sections
		if e.Kind == "BOUNDARY" {
			st = tbl.Boundaries
		}
		col, ok := st.ColumnIndex(e.Symbol)
		if !ok {
			t.Fatalf("column %s missing on %s", e.Symbol, e.Branch)
		}
		for step := range f.Times {
			if len(got.Series[step]) != f.Positions(e) {
				t.Fatalf("%s/%s step %d has %d values, want %d", e.Branch, e.Symbol, step, len(got.Series[step]), f.Positions(e))
			}
			for pos := 0; pos < f.Positions(e); pos++ {
				want := ppltest.Value(i, step, pos)
				if v := st.At(pos, step, col); v != want {
					t.Fatalf("%s/%s table(%d,%d) = %v, want %v", e.Branch, e.Symbol, pos, step, v, want)
				}
			}
		}
	}

	riser, _ := p.Table("RISER")
	if got := riser.Boundaries.Shape(); got != [3]int{4, 4, 1} {
		t.Fatalf("riser boundaries shape = %v, want [4 4 1]", got)
	}
	if got := riser.Sections.Shape(); got != [3]int{3, 4, 1} {
		t.Fatalf("riser sections shape = %v, want [3 4 1]", got)
	}

	s := p.Summary()
	if s.Branches != 2 || s.CatalogEntries != 4 || s.TimeSteps != 4 || s.Nodes["FLOWLINE"] != 6 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestParseFailures(t *testing.T) {
	minimal := ppltest.Minimal().Text()

	withBranches := func(edit func(*ppltest.File)) string {
		f := ppltest.Minimal()
		edit(&f)
		return f.Text()
	}

	tests := []struct {
		name    string
		text    string
		want    error
		section SectionKind
	}{
		{
			name: "off by one geometry",
			text: withBranches(func(f *ppltest.File) {
				f.Branches[0].Lengths = f.Branches[0].Lengths[:2]
			}),
			want:    ErrBranchSizeMismatch,
			section: SectionBranch,
		},
		{
			name: "network declares more branches",
			text: withBranches(func(f *ppltest.File) {
				f.Network = 3
				f.Branches = append(f.Branches, ppltest.Uniform("PIPE-2", 1, 10))
			}),
			want:    ErrBranchCountMismatch,
			section: SectionNetwork,
		},
		{
			name: "unknown branch",
			text: withBranches(func(f *ppltest.File) {
				f.Catalog = append([]ppltest.Entry{{Symbol: "PT", Kind: "BOUNDARY", Branch: "GHOST", Units: "PA", Description: "Pressure"}}, f.Catalog...)
			}),
			want:    ErrUnknownBranchReference,
			section: SectionCatalog,
		},
		{
			name:    "unquoted date",
			text:    strings.Replace(minimal, "'17-05-04 10:21:33'", "17-05-04", 1),
			want:    ErrMalformedSection,
			section: SectionDate,
		},
		{
			name:    "invalid date",
			text:    strings.Replace(minimal, "'17-05-04 10:21:33'", "'yesterday'", 1),
			want:    ErrInvalidDate,
			section: SectionDate,
		},
		{
			name:    "network not an integer",
			text:    strings.Replace(minimal, "NETWORK\n1\n", "NETWORK\none\n", 1),
			want:    ErrInvalidInteger,
			section: SectionNetwork,
		},
		{
			name:    "negative node count",
			text:    strings.Replace(minimal, "'PIPE-1'\n2\n", "'PIPE-1'\n-2\n", 1),
			want:    ErrInvalidInteger,
			section: SectionBranch,
		},
		{
			name:    "catalog declares too many",
			text:    strings.Replace(minimal, "CATALOG\n2\n", "CATALOG\n3\n", 1),
			want:    ErrCatalogCountMismatch,
			section: SectionCatalog,
		},
		{
			name:    "catalog units without parentheses",
			text:    strings.Replace(minimal, "'(PA)'", "'PA'", 1),
			want:    ErrCatalogEntryMalformed,
			section: SectionCatalog,
		},
		{
			name:    "catalog unknown kind",
			text:    strings.Replace(minimal, "'BOUNDARY:'", "'NODE:'", 1),
			want:    ErrCatalogEntryMalformed,
			section: SectionCatalog,
		},
		{
			name:    "time series truncated",
			text:    strings.TrimSuffix(minimal, "10100 10101\n"),
			want:    ErrTimeSeriesTruncated,
			section: SectionTimeSeries,
		},
		{
			name:    "time line with two values",
			text:    strings.Replace(minimal, "TIME SERIES ' (S) '\n0\n", "TIME SERIES ' (S) '\n0 1\n", 1),
			want:    ErrTimeSeriesTruncated,
			section: SectionTimeSeries,
		},
		{
			name:    "vector too long",
			text:    strings.TrimSuffix(minimal, "\n") + " 7\n",
			want:    ErrSeriesShapeMismatch,
			section: SectionTimeSeries,
		},
		{
			name:    "garbage between time groups",
			text:    strings.Replace(minimalPPL, "0.25\n1.0\n", "0.25\n**** corrupted ****\n1.0\n", 1) + "2.0\n0.75\n",
			want:    ErrTimeSeriesTruncated,
			section: SectionTimeSeries,
		},
		{
			name:    "garbage in place of a vector",
			text:    strings.Replace(minimalPPL, "0.5\n", "**** corrupted ****\n", 1),
			want:    ErrTimeSeriesTruncated,
			section: SectionTimeSeries,
		},
		{
			name:    "trailing text after time series",
			text:    minimalPPL + "END OF RUN\n",
			want:    ErrTimeSeriesTruncated,
			section: SectionTimeSeries,
		},
		{
			name:    "first catalog entry malformed",
			text:    strings.Replace(minimal, "PT 'BOUNDARY:' 'BRANCH:' 'PIPE-1' '(PA)' 'Pressure'", "BAD SECTION BRANCH 'PIPE-1' (-) 'x'", 1),
			want:    ErrCatalogEntryMalformed,
			section: SectionCatalog,
		},
		{
			name:    "duplicate title",
			text:    strings.Replace(minimal, "AUTHOR\n", "TITLE\n'Again'\nAUTHOR\n", 1),
			want:    ErrMalformedSection,
			section: SectionTitle,
		},
		{
			name:    "missing catalog",
			text:    minimal[:strings.Index(minimal, "CATALOG")],
			want:    ErrMalformedSection,
			section: SectionCatalog,
		},
		{
			name:    "missing network",
			text:    strings.Replace(minimal, "NETWORK\n1\n", "", 1),
			want:    ErrMalformedSection,
			section: SectionNetwork,
		},
		{
			name: "duplicate branch name",
			text: withBranches(func(f *ppltest.File) {
				f.Branches = append(f.Branches, f.Branches[0])
			}),
			want:    ErrMalformedSection,
			section: SectionBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse succeeded, want %v", tt.want)
			}
			if p != nil {
				t.Fatalf("Parse returned a model alongside error %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if pe.Section != tt.section {
				t.Fatalf("section = %v, want %v", pe.Section, tt.section)
			}
			if !IsParseError(err) {
				t.Fatalf("IsParseError(%v) = false", err)
			}
		})
	}
}

func TestParseErrorReportsLabelLine(t *testing.T) {
	f := ppltest.Minimal()
	f.Branches[0].Elevations = f.Branches[0].Elevations[:1]
	text := f.Text()

	_, err := Parse(text)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	lines := strings.Split(text, "\n")
	if pe.Line < 1 || strings.TrimSpace(lines[pe.Line-1]) != "BRANCH" {
		t.Fatalf("line %d does not point at the BRANCH label", pe.Line)
	}
	if !strings.Contains(err.Error(), "BRANCH (line ") {
		t.Fatalf("error text %q lacks section and line", err.Error())
	}
}

func TestDecodeErrorOrderIsDeterministic(t *testing.T) {
	text := ppltest.Minimal().Text()
	// A bad branch and a bad catalog at once: the branch failure wins.
	text = strings.Replace(text, "'PIPE-1'\n2\n", "'PIPE-1'\n3\n", 1)
	text = strings.Replace(text, "CATALOG\n2\n", "CATALOG\n5\n", 1)

	for i := 0; i < 20; i++ {
		_, err := NewParser().Parse(context.Background(), text)
		if !errors.Is(err, ErrBranchSizeMismatch) {
			t.Fatalf("run %d: error = %v, want %v", i, err, ErrBranchSizeMismatch)
		}
	}
}

func TestSequentialDecodeMatchesParallel(t *testing.T) {
	text := ppltest.Minimal().Text()
	par, err := NewParser().Parse(context.Background(), text)
	if err != nil {
		t.Fatalf("parallel Parse: %v", err)
	}
	seq, err := NewParser(WithSequentialDecode()).Parse(context.Background(), text)
	if err != nil {
		t.Fatalf("sequential Parse: %v", err)
	}
	if diff := cmp.Diff(par.Catalog(), seq.Catalog()); diff != "" {
		t.Fatalf("catalog differs (-parallel +sequential):\n%s", diff)
	}
	if diff := cmp.Diff(par.Metadata(), seq.Metadata()); diff != "" {
		t.Fatalf("metadata differs (-parallel +sequential):\n%s", diff)
	}
}

func TestParseAcceptsCRLF(t *testing.T) {
	text := ppltest.Minimal().Text()
	lf, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse LF: %v", err)
	}
	crlf, err := Parse(strings.ReplaceAll(text, "\n", "\r\n"))
	if err != nil {
		t.Fatalf("Parse CRLF: %v", err)
	}
	if diff := cmp.Diff(lf.Catalog(), crlf.Catalog()); diff != "" {
		t.Fatalf("catalog differs (-lf +crlf):\n%s", diff)
	}
}

func TestParseEmptyCatalogAndSeries(t *testing.T) {
	f := ppltest.Minimal()
	f.Catalog = nil
	f.Times = nil
	p, err := Parse(f.Text())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Catalog()) != 0 || len(p.TimeSteps()) != 0 {
		t.Fatalf("catalog=%d times=%d, want 0 and 0", len(p.Catalog()), len(p.TimeSteps()))
	}
	tbl, _ := p.Table("PIPE-1")
	if got := tbl.Boundaries.Shape(); got != [3]int{3, 0, 0} {
		t.Fatalf("boundaries shape = %v, want [3 0 0]", got)
	}
}

func TestModelAccessorsReturnCopies(t *testing.T) {
	p, err := Parse(ppltest.Minimal().Text())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cat := p.Catalog()
	cat[0].Series[0][0] = -1
	cat[0].Symbol = "XX"
	again := p.Catalog()
	if again[0].Symbol != "PT" || again[0].Series[0][0] != 0 {
		t.Fatalf("catalog mutated through accessor: %+v", again[0])
	}
	b, _ := p.Branch("PIPE-1")
	b.Geometry[0].Length = 99
	if b2, _ := p.Branch("PIPE-1"); b2.Geometry[0].Length != 0 {
		t.Fatalf("geometry mutated through accessor")
	}
}

type recordingMetrics struct {
	mu     sync.Mutex
	stages []string
	kinds  []string
	counts [3]int
}

func (r *recordingMetrics) ObserveStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingMetrics) ObserveParse(kind string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recordingMetrics) SetModelCounts(branches, entries, steps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = [3]int{branches, entries, steps}
}

func TestParserReportsMetrics(t *testing.T) {
	rec := &recordingMetrics{}
	p := NewParser(WithMetricsRecorder(rec))

	if _, err := p.Parse(context.Background(), ppltest.Minimal().Text()); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{StageExtract, StageDecode, StageRedistribute, StageAssemble}, rec.stages); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if rec.counts != [3]int{1, 2, 2} {
		t.Fatalf("model counts = %v, want [1 2 2]", rec.counts)
	}

	if _, err := p.Parse(context.Background(), "NETWORK\nx\n"); err == nil {
		t.Fatalf("Parse of bad input succeeded")
	}
	if diff := cmp.Diff([]string{"none", "invalid_integer"}, rec.kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestParserLogsParseID(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "debug", Format: "json", Output: &buf})
	p := NewParser(WithLogger(log))

	ctx := logging.ContextWithParseID(context.Background(), "parse-123")
	if _, err := p.Parse(ctx, ppltest.Minimal().Text()); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"parse_id":"parse-123"`) {
		t.Fatalf("log output missing parse_id: %s", out)
	}
	if !strings.Contains(out, `"msg":"parsed PPL file"`) || !strings.Contains(out, `"stage":"redistribute"`) {
		t.Fatalf("log output missing summary or stage lines: %s", out)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{errors.New("boom"), "internal"},
		{newParseError(SectionBranch, 3, ErrBranchSizeMismatch, "x"), "branch_size_mismatch"},
		{newParseError(SectionCatalog, 0, ErrCatalogEntryMalformed, "x"), "catalog_entry_malformed"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseReportsMalformedCatalogEntryPosition(t *testing.T) {
	text := strings.Replace(minimalPPL, "CATALOG\n1\n", "CATALOG\n2\nBAD SECTION BRANCH 'A' (-) 'x'\n", 1)
	_, err := Parse(text)
	if !errors.Is(err, ErrCatalogEntryMalformed) {
		t.Fatalf("error = %v, want %v", err, ErrCatalogEntryMalformed)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || !strings.Contains(pe.Detail, "entry 1") {
		t.Fatalf("error = %v, want detail naming entry 1", err)
	}
}

func TestParseCatalogSkipsBlankLines(t *testing.T) {
	text := strings.Replace(minimalPPL, "CATALOG\n1\n", "CATALOG\n1\n\n", 1)
	p, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := len(p.Catalog()); got != 1 {
		t.Fatalf("catalog entries = %d, want 1", got)
	}
}

func TestParseAcceptsNonFiniteValues(t *testing.T) {
	text := strings.Replace(minimalPPL, "0.25\n", "NaN\n", 1)
	text = strings.Replace(text, "0.5\n", "Inf\n", 1)
	p, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tbl, ok := p.Table("A")
	if !ok {
		t.Fatalf("branch A has no tables")
	}
	if v := tbl.Sections.At(0, 0, 0); !math.IsNaN(v) {
		t.Fatalf("value at t0 = %v, want NaN", v)
	}
	if v := tbl.Sections.At(0, 1, 0); !math.IsInf(v, 1) {
		t.Fatalf("value at t1 = %v, want +Inf", v)
	}
}
