package respond

import (
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	return resp
}

func TestAttachmentHeaders(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Attachment(c, "enhanced_cv_1234abcd.docx", "application/zip", []byte("PK\x03\x04"))
	})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "attachment; filename=enhanced_cv_1234abcd.docx", resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "4", resp.Header().Get("Content-Length"))
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "application/zip", resp.Header().Get("Content-Type"))
}

func TestAttachmentEncodesNonASCIIName(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Attachment(c, "José García CV.pdf", "", []byte("%PDF"))
	})

	_, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "José García CV.pdf", params["filename"])
	assert.Equal(t, "application/octet-stream", resp.Header().Get("Content-Type"))
}

func TestJSONIgnoresSecondWrite(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		OK(c, gin.H{"success": true})
		JSON(c, http.StatusInternalServerError, gin.H{"success": false})
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true}`, resp.Body.String())
}
