// Package main is the entry point for the loadgen service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"loadgen/internal/config"
	"loadgen/internal/controller"
	"loadgen/internal/load"
	"loadgen/internal/logger"
	"loadgen/internal/observability"

	"go.opentelemetry.io/otel"
)

const serviceName = "loadgen"

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: loadgen.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)
	ctx := context.Background()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logr.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics(serviceName)
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logr.Error("failed to shutdown metrics", "error", err)
		}
	}()

	meter := otel.Meter(serviceName)
	loadMetrics, err := observability.NewLoadMetrics(meter)
	if err != nil {
		log.Fatalf("Failed to init load metrics: %v", err)
	}

	history, err := load.NewHistory(cfg.HistorySize)
	if err != nil {
		log.Fatalf("Failed to create job history: %v", err)
	}

	orch := load.New(cfg.Limits(),
		load.WithLogger(logr),
		load.WithMetrics(loadMetrics),
		load.WithHistory(history),
	)

	if err := observability.RegisterActiveJobsGauge(meter, orch.Active); err != nil {
		logr.Warn("failed to register active jobs metric", "error", err)
	}

	limits := orch.Limits()
	logr.Info("load limits",
		"max_cpu_threads", limits.MaxThreads,
		"max_memory_mb", limits.MaxMemoryMB,
		"max_duration", limits.MaxDuration,
	)

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, orch, cfg, metricsHandler, logr)

	go func() {
		logr.Info("loadgen starting", "addr", addr)
		if err := srv.Run(ctx); err != nil {
			logr.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down loadgen", "active_jobs", orch.Active())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", "error", err)
	}

	orch.StopAll()
	if err := orch.Wait(shutdownCtx); err != nil {
		logr.Warn("jobs still running at shutdown", "error", err, "active_jobs", orch.Active())
	}
	logr.Info("loadgen exited")
}
