package site

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed index.html
var indexHTML []byte

// RegisterRoutes serves the browser client at the root path.
func RegisterRoutes(r gin.IRoutes) {
	r.GET("/", index)
	r.GET("/index.html", index)
}

func index(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
