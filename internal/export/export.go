// Package export writes a parsed PPL model to a columnar sink: named
// attributes plus tables addressed by slash-separated paths.
//
// Layout:
//
//	attributes                      version, input_file, pvt_file, restart_file,
//	                                date, project, title, author, network,
//	                                length_unit, time_unit
//	/branches/<name>/geometry       index node; columns length, elevation
//	/branches/<name>/boundaries     index (length, time); one column per entry
//	/branches/<name>/sections       index (length, time); one column per entry
//	/catalog                        symbol, kind, branch, units, description
//	/time                           index step; column time
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DateLayout is how the date attribute is rendered.
const DateLayout = "2006-01-02 15:04:05"

// CatalogColumns are the columns of the /catalog record table.
var CatalogColumns = []string{"symbol", "kind", "branch", "units", "description"}

var (
	// ErrNilModel is returned when Write is called without a model.
	ErrNilModel = errors.New("export: nil model")
	// ErrInvalidBranchName rejects branch names that cannot be a single path
	// element: empty names and names containing '/'.
	ErrInvalidBranchName = errors.New("export: invalid branch name")
)

// Sink receives the exported model. Implementations decide how values are
// stored; Write calls the methods from a single goroutine.
type Sink interface {
	// Name identifies the sink in metrics and logs.
	Name() string
	SetAttribute(ctx context.Context, name string, value any) error
	WriteTable(ctx context.Context, path string, table *model.Table) error
	WriteRecords(ctx context.Context, path string, columns []string, rows [][]string) error
}

// RowRecorder counts rows written per sink.
type RowRecorder interface {
	AddExportedRows(sink string, rows int)
}

// Stats describes what Write produced.
type Stats struct {
	Attributes int
	Tables     int
	Rows       int
}

// Option configures Write.
type Option func(*writer)

// WithLogger sets the logger used for progress messages.
func WithLogger(l logging.Logger) Option {
	return func(w *writer) {
		if l != nil {
			w.log = l
		}
	}
}

// WithRowRecorder attaches a metrics recorder.
func WithRowRecorder(r RowRecorder) Option {
	return func(w *writer) { w.rows = r }
}

type writer struct {
	log   logging.Logger
	rows  RowRecorder
	sink  Sink
	stats Stats
}

// ValidBranchName reports whether name can be used as one element of a
// /branches/<name>/... path.
func ValidBranchName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidBranchName, name)
	}
	return nil
}

// BranchPath returns the table path of a branch component. name must pass
// ValidBranchName.
func BranchPath(branch, component string) string {
	return "/branches/" + branch + "/" + component
}

// Write exports p to sink. It stops at the first sink error.
func Write(ctx context.Context, p *model.PPL, sink Sink, opts ...Option) (Stats, error) {
	if p == nil {
		return Stats{}, ErrNilModel
	}
	if sink == nil {
		return Stats{}, errors.New("export: nil sink")
	}
	w := &writer{log: logging.Noop(), sink: sink}
	for _, opt := range opts {
		opt(w)
	}
	if l := logging.LoggerFromContext(ctx); l != nil {
		w.log = l
	}

	ctx, span := otel.Tracer("github.com/signalsfoundry/ppl-reader/internal/export").Start(ctx, "ppl.Export")
	defer span.End()
	span.SetAttributes(attribute.String("ppl.sink", sink.Name()))

	start := time.Now()
	err := w.write(ctx, p)
	if w.rows != nil {
		w.rows.AddExportedRows(sink.Name(), w.stats.Rows)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		return w.stats, err
	}
	span.SetAttributes(
		attribute.Int("ppl.tables", w.stats.Tables),
		attribute.Int("ppl.rows", w.stats.Rows),
	)
	w.log.Info(ctx, "exported PPL model",
		logging.String("sink", sink.Name()),
		logging.Int("attributes", w.stats.Attributes),
		logging.Int("tables", w.stats.Tables),
		logging.Int("rows", w.stats.Rows),
		logging.Any("duration", time.Since(start)),
	)
	return w.stats, nil
}

func (w *writer) write(ctx context.Context, p *model.PPL) error {
	// Checked up front so that a rejected model leaves the sink untouched.
	for _, name := range p.BranchNames() {
		if err := ValidBranchName(name); err != nil {
			return err
		}
	}

	for _, a := range Attributes(p.Metadata()) {
		if err := w.sink.SetAttribute(ctx, a.Name, a.Value); err != nil {
			return fmt.Errorf("export: attribute %s: %w", a.Name, err)
		}
		w.stats.Attributes++
	}

	for _, b := range p.Branches() {
		if err := w.table(ctx, BranchPath(b.Name, "geometry"), b.GeometryTable()); err != nil {
			return err
		}
		tables, ok := p.Table(b.Name)
		if !ok {
			return fmt.Errorf("export: branch %q has no tables", b.Name)
		}
		if err := w.table(ctx, BranchPath(b.Name, "boundaries"), tables.Boundaries.Table()); err != nil {
			return err
		}
		if err := w.table(ctx, BranchPath(b.Name, "sections"), tables.Sections.Table()); err != nil {
			return err
		}
	}

	catalog := p.Catalog()
	records := make([][]string, len(catalog))
	for i, e := range catalog {
		records[i] = []string{e.Symbol, e.Kind.String(), e.BranchName, e.Units, e.Description}
	}
	if err := w.sink.WriteRecords(ctx, "/catalog", CatalogColumns, records); err != nil {
		return fmt.Errorf("export: /catalog: %w", err)
	}
	w.stats.Tables++
	w.stats.Rows += len(records)

	return w.table(ctx, "/time", TimeTable(p.TimeSteps()))
}

func (w *writer) table(ctx context.Context, path string, t *model.Table) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("export: %s: %w", path, err)
	}
	if err := w.sink.WriteTable(ctx, path, t); err != nil {
		return fmt.Errorf("export: %s: %w", path, err)
	}
	w.stats.Tables++
	w.stats.Rows += t.Rows()
	w.log.Debug(ctx, "wrote table", logging.String("path", path), logging.Int("rows", t.Rows()))
	return nil
}

// Attribute is one named metadata value.
type Attribute struct {
	Name  string
	Value any
}

// Attributes lists the metadata values in export order. A zero date is
// exported as an empty string.
func Attributes(m model.Metadata) []Attribute {
	date := ""
	if !m.Date.IsZero() {
		date = m.Date.Format(DateLayout)
	}
	return []Attribute{
		{"version", m.Version},
		{"input_file", m.InputFile},
		{"pvt_file", m.PVTFile},
		{"restart_file", m.RestartFile},
		{"date", date},
		{"project", m.Project},
		{"title", m.Title},
		{"author", m.Author},
		{"network", m.Network},
		{"length_unit", m.LengthUnit},
		{"time_unit", m.TimeUnit},
	}
}

// TimeTable renders time steps as a one-column table indexed by step.
func TimeTable(times []float64) *model.Table {
	t := &model.Table{
		IndexNames: []string{"step"},
		Index:      make([][]float64, len(times)),
		Columns:    []string{"time"},
		Values:     make([][]float64, len(times)),
	}
	for i, v := range times {
		t.Index[i] = []float64{float64(i)}
		t.Values[i] = []float64{v}
	}
	return t
}
