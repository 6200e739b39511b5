package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalsfoundry/ppl-reader/core"
	"github.com/signalsfoundry/ppl-reader/internal/api"
	"github.com/signalsfoundry/ppl-reader/internal/config"
	"github.com/signalsfoundry/ppl-reader/internal/export/sqlite"
	"github.com/signalsfoundry/ppl-reader/internal/logging"
	"github.com/signalsfoundry/ppl-reader/internal/observability"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var grpcAddr, metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ppl.v1.ModelService gRPC server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if grpcAddr != "" {
				a.cfg.Server.GRPCAddr = grpcAddr
			}
			if metricsAddr != "" {
				a.cfg.Metrics.Addr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", a.cfg.Server.GRPCAddr)
			if err != nil {
				a.log.Error(ctx, "failed to listen for gRPC", logging.String("addr", a.cfg.Server.GRPCAddr), logging.Err(err))
				return err
			}
			return a.serve(ctx, lis)
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "TCP address the gRPC server listens on (overrides server.grpc_addr)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics (overrides metrics.addr)")
	return cmd
}

// serve runs until ctx is done, then stops gracefully.
func (a *app) serve(ctx context.Context, lis net.Listener) error {
	log := a.log
	cfg := a.cfg

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	rpc, err := observability.NewRPCCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		return err
	}
	parseMetrics, err := observability.NewParseCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		return err
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = serveMetrics(cfg.Metrics.Addr, rpc, log)
	}

	exportPath := cfg.Export.Path
	svc := api.NewModelService(
		a.parser(core.WithMetricsRecorder(parseMetrics)),
		log,
		api.WithCollectors(rpc, parseMetrics),
		api.WithSinkOpener(func(ctx context.Context) (api.TxSink, error) {
			return sqlite.Create(ctx, exportPath)
		}),
	)
	server := api.NewServer(api.ServerConfig{
		MaxMessageBytes: cfg.Server.MaxMessageBytes,
		Log:             log,
		Collector:       rpc,
	}, svc)

	log.Info(ctx, "starting PPL gRPC server", logging.String("addr", lis.Addr().String()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "gRPC server exited", logging.Err(err))
		}
		return err
	}

	log.Info(context.Background(), "shutting down PPL server")
	server.GracefulStop()
	shutdownMetrics(metricsSrv, cfg.Server, log)
	return nil
}

func serveMetrics(addr string, collector *observability.RPCCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func shutdownMetrics(srv *http.Server, cfg config.ServerConfig, log logging.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn(ctx, "metrics server shutdown failed", logging.Err(err))
	}
}
