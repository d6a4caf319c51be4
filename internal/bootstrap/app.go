package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/analyses"
	"cv-analyzer/internal/extract"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/llm/gemini"
	"cv-analyzer/internal/llm/openai"
	"cv-analyzer/internal/services/health"
	"cv-analyzer/internal/sessions"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/server"
	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/storage/db"
	"cv-analyzer/internal/shared/storage/object"
	localstore "cv-analyzer/internal/shared/storage/object/local"
	miniostore "cv-analyzer/internal/shared/storage/object/minio"
	s3store "cv-analyzer/internal/shared/storage/object/s3"
	"cv-analyzer/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Dialect         db.Dialect
	Repo            sessions.Repo
	Store           object.Store
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	app.Dialect = dialect
	if sqlDB != nil {
		app.Repo = sessions.NewSQLRepo(sqlDB, dialect)
	} else {
		app.Repo = sessions.NewMemoryRepo()
	}

	store, err := BuildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	client, err := buildLLM(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	ocr := extract.NewTesseract(cfg.OCRCommand, cfg.OCRLang, cfg.OCRMaxConcurrency)
	if !ocr.Available() {
		telemetry.Warn("bootstrap.ocr.unavailable", map[string]any{"command": cfg.OCRCommand})
	}

	app.AnalysesService = &analyses.Service{
		Repo:      app.Repo,
		Store:     store,
		Extractor: extract.New(ocr),
		Analyzer:  llm.NewAnalyzer(client, time.Duration(cfg.LLMTimeoutSeconds)*time.Second),
	}
	limiter := middleware.NewRateLimiter(middleware.RateLimitRule{
		Rate:  cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	}, nil)
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, middleware.RateLimit(limiter))

	deps := map[string]health.Pinger{}
	if sqlDB != nil {
		deps["database"] = sqlDB
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		AnalysisHandler: app.AnalysisHandler,
		Health:          health.NewService(deps),
	})
	return app, nil
}

// Close releases the database handle.
func (a *App) Close() {
	if a != nil && a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, "", nil
		}
		return nil, "", errors.New("DATABASE_URL is required")
	}

	sqlDB, dialect, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB, dialect)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": err.Error()})
			return nil, "", nil
		}
		return nil, "", err
	}
	return sqlDB, dialect, nil
}

// BuildStore opens the object store selected by OBJECT_STORE. It returns a
// nil store for "none".
func BuildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "none":
		return nil, nil
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	case "minio":
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
		key    string
	)
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	switch cfg.LLMProvider {
	case "gemini":
		key = cfg.GeminiAPIKey
		if strings.TrimSpace(key) != "" {
			client, err = gemini.NewClient(ctx, key, modelFor(cfg, "gemini"))
		}
	default:
		key = cfg.OpenAIAPIKey
		if strings.TrimSpace(key) != "" {
			client, err = openai.NewClient(key, modelFor(cfg, "gpt"), timeout)
		}
	}
	if err != nil {
		return nil, err
	}
	if client != nil {
		return client, nil
	}
	if !isDevLike(cfg.Env) {
		return nil, fmt.Errorf("API key for LLM_PROVIDER=%s is required", cfg.LLMProvider)
	}
	telemetry.Warn("bootstrap.llm.unconfigured", map[string]any{"provider": cfg.LLMProvider})
	return unconfiguredClient{provider: cfg.LLMProvider}, nil
}

// modelFor drops a configured model that belongs to another vendor.
func modelFor(cfg config.Config, family string) string {
	if strings.HasPrefix(strings.ToLower(cfg.LLMModel), family) {
		return cfg.LLMModel
	}
	return ""
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// unconfiguredClient lets the server start without credentials in development.
type unconfiguredClient struct {
	provider string
}

func (u unconfiguredClient) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	return "", fmt.Errorf("%s API key is not configured", u.provider)
}
