package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexabuild/go-services/internal/bundle"
	"github.com/nexabuild/go-services/internal/workspace"
	"github.com/nexabuild/go-services/pkg/logger"
	"github.com/tidwall/gjson"
)

// WorkspaceHandler exposes workspace state and its exports over HTTP.
type WorkspaceHandler struct {
	svc *workspace.Service
}

// RegisterWorkspaceRoutes registers the workspace endpoints used by the
// builder UI: create from generator output, edit, chat, preview, download
// and publish.
func RegisterWorkspaceRoutes(r gin.IRouter, svc *workspace.Service) {
	h := &WorkspaceHandler{svc: svc}
	g := r.Group("/workspaces")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id/files", h.Regenerate)
	g.PATCH("/:id/files", h.ApplyEdits)
	g.PUT("/:id/files/*path", h.PutFile)
	g.DELETE("/:id/files/*path", h.RemoveFile)
	g.POST("/:id/messages", h.AppendMessage)
	g.GET("/:id/preview", h.Preview)
	g.GET("/:id/archive", h.Archive)
	g.POST("/:id/publish", h.Publish)
}

// Create accepts { prompt, output } where output is the generator's JSON.
func (h *WorkspaceHandler) Create(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req := gjson.ParseBytes(body)
	w, err := h.svc.Create(req.Get("prompt").String(), []byte(req.Get("output").Raw))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	w, err := h.svc.Get(c.Param("id"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Regenerate replaces all files with the generator output in the body.
func (h *WorkspaceHandler) Regenerate(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	w, err := h.svc.Regenerate(c.Param("id"), body)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// ApplyEdits merges the file tree in the body into the workspace.
func (h *WorkspaceHandler) ApplyEdits(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	w, err := h.svc.ApplyEdits(c.Param("id"), body)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// PutFile stores the raw request body as the file's content.
func (h *WorkspaceHandler) PutFile(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	w, err := h.svc.PutFile(c.Param("id"), c.Param("path"), string(body))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WorkspaceHandler) RemoveFile(c *gin.Context) {
	w, err := h.svc.RemoveFile(c.Param("id"), c.Param("path"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WorkspaceHandler) AppendMessage(c *gin.Context) {
	var req struct {
		Role    string `json:"role" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.svc.AppendMessage(c.Param("id"), req.Role, req.Content)
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Preview returns the workspace combined into one HTML page.
func (h *WorkspaceHandler) Preview(c *gin.Context) {
	html, err := h.svc.Preview(c.Param("id"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// Archive downloads the workspace as site.zip.
func (h *WorkspaceHandler) Archive(c *gin.Context) {
	b, err := h.svc.Archive(c.Param("id"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="site.zip"`)
	c.Data(http.StatusOK, "application/zip", b)
}

func (h *WorkspaceHandler) Publish(c *gin.Context) {
	url, err := h.svc.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkspaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err == nil {
		return body, true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	}
	return nil, false
}

func writeWorkspaceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, workspace.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bundle.ErrNoEntryPoint):
		c.JSON(http.StatusNotFound, gin.H{"error": "nothing to preview"})
	case errors.Is(err, workspace.ErrPublishDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Errorf("workspace %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
