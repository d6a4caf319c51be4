package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/server/respond"
	"cv-analyzer/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. The log line carries the
// pipeline stage and session the handler had reached, if it recorded them.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			metrics.IncPanic(c.FullPath())
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
				"panic":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
			}
			if stage := c.GetString(StageKey); stage != "" {
				fields["stage"] = stage
			}
			if id := c.Param("id"); id != "" {
				fields["session_id"] = id
			}
			telemetry.Error("http.panic", fields)

			// headers are gone once the body started streaming
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Internal error.", nil)
		}()
		c.Next()
	}
}
