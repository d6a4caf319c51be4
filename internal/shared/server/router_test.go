package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-analyzer/internal/services/health"
	"cv-analyzer/internal/shared/config"
)

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8000", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	r := NewRouter(RouterDeps{Config: config.Defaults(), Health: health.NewService(nil)})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var st health.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &st))
	assert.Equal(t, "healthy", st.Status)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "http_requests_total")

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthDegraded(t *testing.T) {
	r := NewRouter(RouterDeps{
		Config: config.Defaults(),
		Health: health.NewService(map[string]health.Pinger{"database": failingPinger{}}),
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	r := NewRouter(RouterDeps{Config: config.Defaults()})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), `"code":"not_found"`)
}
