// Command server runs the friendfeed web front end.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"friendfeed/internal/config"
	"friendfeed/internal/observability"
	"friendfeed/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetupLogging(cfg.Env)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "friendfeed-web",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	observability.GlobalLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.GlobalLogger.Error("server shutdown", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(ctx); err != nil {
		observability.GlobalLogger.Error("tracer shutdown", slog.String("error", err.Error()))
	}
}
