package respond

import (
	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body. Detail repeats the message for clients
// that only read a flat detail string.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Detail  string    `json:"detail"`
	Error   ErrorBody `json:"error"`
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Detail: message,
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
