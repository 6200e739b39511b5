package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/signalsfoundry/ppl-reader/core"

// Pipeline stage names, used for spans, logs and metric labels.
const (
	StageExtract      = "extract"
	StageDecode       = "decode"
	StageRedistribute = "redistribute"
	StageAssemble     = "assemble"
)

// MetricsRecorder receives parse timings and outcomes.
type MetricsRecorder interface {
	ObserveStage(stage string, d time.Duration)
	ObserveParse(errorKind string, d time.Duration)
	SetModelCounts(branches, catalogEntries, timeSteps int)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the base logger. The parser adds a parse_id field.
func WithLogger(l logging.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(p *Parser) {
		p.metrics = m
	}
}

// WithSequentialDecode runs the header, branch and catalog decoders one
// after another instead of concurrently.
func WithSequentialDecode() Option {
	return func(p *Parser) {
		p.sequential = true
	}
}

// Parser turns PPL file text into a model. It holds no per-parse state and
// is safe for concurrent use.
type Parser struct {
	log        logging.Logger
	metrics    MetricsRecorder
	tracer     trace.Tracer
	sequential bool
}

// NewParser constructs a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses text with a default Parser.
func Parse(text string) (*model.PPL, error) {
	return NewParser().Parse(context.Background(), text)
}

// Parse runs the full pipeline. The returned model is complete and
// validated; on error no model is returned.
func (p *Parser) Parse(ctx context.Context, text string) (*model.PPL, error) {
	start := time.Now()
	ctx, log := logging.WithParseLogger(ctx, p.log)
	ctx, span := p.tracer.Start(ctx, "ppl.Parse", trace.WithAttributes(
		attribute.Int("ppl.input_bytes", len(text)),
		attribute.String("ppl.parse_id", logging.ParseIDFromContext(ctx)),
	))
	defer span.End()

	out, err := p.run(ctx, log, text)
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveParse(ErrorKind(err), elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return nil, err
	}

	s := out.Summary()
	if p.metrics != nil {
		p.metrics.SetModelCounts(s.Branches, s.CatalogEntries, s.TimeSteps)
	}
	span.SetAttributes(
		attribute.Int("ppl.branches", s.Branches),
		attribute.Int("ppl.catalog_entries", s.CatalogEntries),
		attribute.Int("ppl.time_steps", s.TimeSteps),
	)
	log.Info(ctx, "parsed PPL file",
		logging.String("version", s.Version),
		logging.Int("branches", s.Branches),
		logging.Int("catalog_entries", s.CatalogEntries),
		logging.Int("time_steps", s.TimeSteps),
		logging.Any("duration", elapsed),
	)
	return out, nil
}

func (p *Parser) run(ctx context.Context, log logging.Logger, text string) (*model.PPL, error) {
	var secs *Sections
	if err := p.stage(ctx, log, StageExtract, func() (err error) {
		secs, err = Extract(text)
		return err
	}); err != nil {
		return nil, err
	}

	var (
		meta     model.Metadata
		branches []model.Branch
		catalog  []model.CatalogEntry
	)
	if err := p.stage(ctx, log, StageDecode, func() error {
		var err error
		meta, branches, catalog, err = p.decode(secs)
		if err != nil {
			return err
		}
		return checkBranchCount(branches, meta.Network)
	}); err != nil {
		return nil, err
	}

	var series *Series
	if err := p.stage(ctx, log, StageRedistribute, func() error {
		sec, err := secs.require(SectionTimeSeries)
		if err != nil {
			return err
		}
		series, err = Redistribute(sec, len(catalog))
		return err
	}); err != nil {
		return nil, err
	}

	var out *model.PPL
	err := p.stage(ctx, log, StageAssemble, func() (err error) {
		out, err = assemble(meta, branches, catalog, series)
		return err
	})
	return out, err
}

// decode runs the three independent decoders. When several fail, the
// error reported is the first in header, branch, catalog order so that the
// result does not depend on scheduling; g.Wait only says whether any failed.
func (p *Parser) decode(secs *Sections) (model.Metadata, []model.Branch, []model.CatalogEntry, error) {
	var (
		meta     model.Metadata
		branches []model.Branch
		catalog  []model.CatalogEntry
	)
	var metaErr, branchErr, catErr error
	tasks := []func() error{
		func() error { meta, metaErr = decodeScalars(secs); return metaErr },
		func() error { branches, branchErr = decodeBranches(secs); return branchErr },
		func() error { catalog, catErr = decodeCatalog(secs); return catErr },
	}

	var failed error
	if p.sequential {
		for _, task := range tasks {
			if err := task(); err != nil && failed == nil {
				failed = err
			}
		}
	} else {
		var g errgroup.Group
		for _, task := range tasks {
			g.Go(task)
		}
		failed = g.Wait()
	}
	if failed == nil {
		return meta, branches, catalog, nil
	}

	for _, err := range []error{metaErr, branchErr, catErr} {
		if err != nil {
			return model.Metadata{}, nil, nil, err
		}
	}
	return model.Metadata{}, nil, nil, failed
}

func (p *Parser) stage(ctx context.Context, log logging.Logger, name string, fn func() error) error {
	_, span := p.tracer.Start(ctx, "ppl."+name)
	defer span.End()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.ObserveStage(name, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return err
	}
	log.Debug(ctx, "stage complete", logging.String("stage", name), logging.Any("duration", elapsed))
	return nil
}
