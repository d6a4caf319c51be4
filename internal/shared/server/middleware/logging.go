package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	SessionIDKey = "sessionId"
	StageKey     = "pipelineStage"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id := c.GetString(SessionIDKey); id != "" {
			fields["session_id"] = id
		}
		if stage := c.GetString(StageKey); stage != "" {
			fields["stage"] = stage
		}
		telemetry.Info("request.complete", fields)
	}
}
