package api

import (
	"context"
	"strings"
	"sync"

	"github.com/signalsfoundry/ppl-reader/core"
	"github.com/signalsfoundry/ppl-reader/internal/export"
	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/internal/observability"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TxSink is an export sink that commits or discards its writes as a unit.
type TxSink interface {
	export.Sink
	Commit() error
	Close() error
}

// SinkOpener opens a fresh sink for one Export call.
type SinkOpener func(ctx context.Context) (TxSink, error)

// ModelService implements ppl.v1.ModelService on top of core.Parser.
//
// Export calls are serialised: every call writes the same destination.
type ModelService struct {
	parser  *core.Parser
	open    SinkOpener
	log     logging.Logger
	rpc     *observability.RPCCollector
	metrics *observability.ParseCollector

	exportMu sync.Mutex
}

var _ ModelServiceServer = (*ModelService)(nil)

// ServiceOption configures a ModelService.
type ServiceOption func(*ModelService)

// WithSinkOpener enables Export.
func WithSinkOpener(open SinkOpener) ServiceOption {
	return func(s *ModelService) { s.open = open }
}

// WithCollectors attaches RPC and parse metrics. Either may be nil.
func WithCollectors(rpc *observability.RPCCollector, parse *observability.ParseCollector) ServiceOption {
	return func(s *ModelService) {
		s.rpc = rpc
		s.metrics = parse
	}
}

// NewModelService constructs the service. A nil parser gets a default one.
func NewModelService(parser *core.Parser, log logging.Logger, opts ...ServiceOption) *ModelService {
	if parser == nil {
		parser = core.NewParser(core.WithLogger(log))
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &ModelService{parser: parser, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse implements ModelServiceServer.
func (s *ModelService) Parse(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text := req.GetValue()
	s.rpc.AddBytesIn("Parse", len(text))
	if strings.TrimSpace(text) == "" {
		return nil, ToStatusError(ErrEmptyInput)
	}

	ctx, _ = logging.EnsureParseID(ctx)
	p, err := s.parser.Parse(ctx, text)
	if err != nil {
		s.logger(ctx).Warn(ctx, "parse rejected", logging.String("kind", core.ErrorKind(err)), logging.Err(err))
		return nil, ToStatusError(err)
	}
	out, err := describeModel(p, logging.ParseIDFromContext(ctx))
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// Export implements ModelServiceServer.
func (s *ModelService) Export(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text := req.GetValue()
	s.rpc.AddBytesIn("Export", len(text))
	if s.open == nil {
		return nil, ToStatusError(ErrExportUnavailable)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ToStatusError(ErrEmptyInput)
	}

	ctx, _ = logging.EnsureParseID(ctx)
	log := s.logger(ctx)
	p, err := s.parser.Parse(ctx, text)
	if err != nil {
		log.Warn(ctx, "parse rejected", logging.String("kind", core.ErrorKind(err)), logging.Err(err))
		return nil, ToStatusError(err)
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()

	sink, err := s.open(ctx)
	if err != nil {
		log.Error(ctx, "failed to open export sink", logging.Err(err))
		return nil, ToStatusError(err)
	}
	defer sink.Close()

	var opts []export.Option
	if s.metrics != nil {
		opts = append(opts, export.WithRowRecorder(s.metrics))
	}
	stats, err := export.Write(ctx, p, sink, opts...)
	if err != nil {
		log.Error(ctx, "export failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	if err := sink.Commit(); err != nil {
		log.Error(ctx, "export commit failed", logging.Err(err))
		return nil, ToStatusError(err)
	}

	out, err := describeExport(stats, sink.Name(), logging.ParseIDFromContext(ctx))
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *ModelService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}
