package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/analyses"
	"cv-analyzer/internal/services/health"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
	"cv-analyzer/internal/site"
)

// RouterDeps wires handlers into the router.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	site.RegisterRoutes(r)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"status": "healthy"})
			return
		}
		st := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if st.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Route not found.", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
