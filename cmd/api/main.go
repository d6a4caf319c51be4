package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-analyzer/internal/bootstrap"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/server"
	"cv-analyzer/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("config.load.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Configure(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetry.Error("server.shutdown.failed", map[string]any{"error": err.Error()})
		}
	}()

	telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env, "llm_provider": cfg.LLMProvider})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		telemetry.Error("server.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("server.stopped", nil)
}
