package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-analyzer/internal/sessions"
	"cv-analyzer/internal/shared/config"
)

func devConfig(t *testing.T) config.Config {
	cfg := config.Defaults()
	cfg.DatabaseURL = "sqlite::memory:"
	cfg.LocalStoreDir = t.TempDir()
	cfg.OCRCommand = "definitely-not-installed-ocr"
	return cfg
}

func TestBuildDevWithoutCredentials(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	require.NotNil(t, app.DB)
	assert.IsType(t, &sessions.SQLRepo{}, app.Repo)
	assert.NotNil(t, app.Store)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/sessions/stats", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBuildProductionRequiresAPIKey(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"

	_, err := Build(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestBuildWithoutObjectStore(t *testing.T) {
	cfg := devConfig(t)
	cfg.ObjectStoreType = "none"
	cfg.DatabaseURL = ""

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	assert.Nil(t, app.Store)
	assert.Nil(t, app.DB)
	assert.IsType(t, &sessions.MemoryRepo{}, app.Repo)
}

func TestModelFor(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, "gpt-4o-mini", modelFor(cfg, "gpt"))
	assert.Equal(t, "", modelFor(cfg, "gemini"))
}
