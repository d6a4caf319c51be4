package respond

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/telemetry"
)

// JSON writes payload with status. A second write on the same request is
// dropped and logged instead of corrupting the body.
func JSON(c *gin.Context, status int, payload any) {
	if c.Writer.Written() {
		telemetry.Warn("http.response.duplicate", map[string]any{
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString("requestId"),
		})
		return
	}
	c.JSON(status, payload)
}

// OK writes a 200 JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Attachment sends a generated or stored CV as a download. Non-ASCII names are
// encoded as RFC 2231 filename* parameters. CV files are personal data, so the
// response is marked uncacheable.
func Attachment(c *gin.Context, fileName, contentType string, data []byte) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	if disposition == "" {
		disposition = "attachment"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := c.Writer.Header()
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, data)
}
