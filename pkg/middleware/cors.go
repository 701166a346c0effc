package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS lets generated front-ends served from any origin call the backend.
// There is no auth, so no credentials are involved and "*" is sufficient.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		// any header the browser asks for is allowed
		if req := c.GetHeader("Access-Control-Request-Headers"); req != "" {
			c.Writer.Header().Set("Access-Control-Allow-Headers", req)
			c.Writer.Header().Add("Vary", "Access-Control-Request-Headers")
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		}
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// BodyLimit caps request bodies; reads past the limit fail and handlers
// report 413.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
