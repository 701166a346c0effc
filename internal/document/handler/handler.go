package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexabuild/go-services/internal/document/service"
	"github.com/nexabuild/go-services/pkg/logger"
	"github.com/nexabuild/go-services/pkg/metrics"
)

// saveResponse keeps the field order generated clients have always seen.
type saveResponse struct {
	Status string          `json:"status"`
	ID     json.RawMessage `json:"id"`
	Data   json.RawMessage `json:"data"`
}

// RegisterDocumentRoutes mounts the universal backend under /api/:collection.
func RegisterDocumentRoutes(r gin.IRouter, svc service.Service) {
	api := r.Group("/api")

	api.POST("/:collection", func(c *gin.Context) {
		start := time.Now()
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				observe("save", "too_large", start)
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": "error", "error": "payload too large"})
				return
			}
			observe("save", "invalid", start)
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid payload"})
			return
		}
		res, err := svc.Save(c.Request.Context(), c.Param("collection"), body)
		if err != nil {
			fail(c, "save", err, start)
			return
		}
		observe("save", "ok", start)
		c.PureJSON(http.StatusOK, saveResponse{Status: "success", ID: res.ID, Data: res.Document})
	})

	api.GET("/:collection", func(c *gin.Context) {
		start := time.Now()
		list, err := svc.List(c.Request.Context(), c.Param("collection"))
		if err != nil {
			fail(c, "list", err, start)
			return
		}
		observe("list", "ok", start)
		c.PureJSON(http.StatusOK, list)
	})

	api.DELETE("/:collection/:id", func(c *gin.Context) {
		start := time.Now()
		if err := svc.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
			fail(c, "delete", err, start)
			return
		}
		observe("delete", "ok", start)
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})
}

func fail(c *gin.Context, op string, err error, start time.Time) {
	switch {
	case errors.Is(err, service.ErrInvalidPayload):
		observe(op, "invalid", start)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid payload"})
	default:
		observe(op, "unavailable", start)
		logger.Errorf("docstore %s %s: %v", op, c.Param("collection"), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "storage unavailable"})
	}
}

func observe(op, result string, start time.Time) {
	metrics.DocumentOps.WithLabelValues(op, result).Inc()
	metrics.DocumentOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
