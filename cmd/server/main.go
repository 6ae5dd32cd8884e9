// Command server exposes the pipeline over HTTP: start runs, poll their
// state, scrape metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"datapipe/internal/config"
	"datapipe/internal/dataprocessing"
	"datapipe/internal/extract"
	"datapipe/internal/infrastructure"
	"datapipe/internal/operations"
	"datapipe/internal/store"
	transport "datapipe/internal/transport/http"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", config.DefaultConfigFile, "configuration file")
	flag.Parse()

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("initialize otel: %w", err)
	}
	defer providers.Shutdown(context.Background())

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create pipeline metrics: %w", err)
	}

	paths := config.NewPaths(cfg.Paths, "")
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	st := store.NewFSStore(paths, logger)
	extractor := extract.New(cfg.Pipeline.SourceFile, cfg.Pipeline.SourceTimeout, logger)
	tracer := operations.NewRunTracer(providers.Tracer, metrics)

	registry := operations.NewRegistry()
	registry.MustRegister(
		operations.NewExtractStage(extractor, st),
		operations.NewCleanStage(dataprocessing.NewCleaner(logger), st, cfg.Pipeline.Cleaning, tracer),
		operations.NewFeatureStage(dataprocessing.NewBuilder(logger), st),
		operations.NewReportStage(st, cfg.Pipeline.ReportFormat, logger),
	)
	runner := operations.NewRunner(registry, tracer, logger)

	service := transport.NewPipelineService(runner, logger)
	router := transport.NewRouter(cfg.Server,
		transport.NewPipelineHandler(service, logger),
		transport.NewHealthHandler(version),
		providers.PrometheusHTTP)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
