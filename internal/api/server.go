package api

import (
	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// ServerConfig holds the knobs NewServer needs.
type ServerConfig struct {
	MaxMessageBytes int
	Log             logging.Logger
	Collector       *observability.RPCCollector
}

// NewServer builds a gRPC server with otel stats handling, parse_id
// logging, tracing and metrics interceptors, and registers svc on it.
func NewServer(cfg ServerConfig, svc ModelServiceServer) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		ParseIDUnaryServerInterceptor(cfg.Log),
		TracingUnaryServerInterceptor(),
	}
	if cfg.Collector != nil {
		interceptors = append(interceptors, cfg.Collector.UnaryServerInterceptor())
	}

	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	if cfg.MaxMessageBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.MaxMessageBytes))
	}

	server := grpc.NewServer(opts...)
	RegisterModelServiceServer(server, svc)
	return server
}
