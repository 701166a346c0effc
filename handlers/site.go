package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSite serves a generated app's own files for every GET that no
// route matched, so the app and its backend share one origin. "/" serves
// index.html. API paths keep returning JSON 404s.
func RegisterSite(r *gin.Engine, dir string) {
	files := http.FileServer(http.Dir(dir))
	r.NoRoute(func(c *gin.Context) {
		m := c.Request.Method
		if (m != http.MethodGet && m != http.MethodHead) || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
}
