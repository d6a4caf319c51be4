package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/storage/db"
	"cv-analyzer/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("config.load.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Configure(cfg.LogLevel)
	ctx := context.Background()

	sqlDB, dialect, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
	if err != nil {
		telemetry.Error("migrate.connect.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"dialect": string(dialect)})
}
