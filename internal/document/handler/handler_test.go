package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nexabuild/go-services/internal/document"
	"github.com/nexabuild/go-services/internal/document/service"
	"github.com/nexabuild/go-services/pkg/metrics"
	"github.com/nexabuild/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newRouter(svc service.Service) *gin.Engine {
	g := gin.New()
	g.Use(middleware.BodyLimit(1 << 10))
	RegisterDocumentRoutes(g, svc)
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func TestDocumentHandler_SaveListDelete(t *testing.T) {
	g := newRouter(service.NewMemoryService())

	// save with id
	w := do(g, http.MethodPost, "/api/todos", `{"id":"a1","title":"buy milk","done":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"status":"success","id":"a1","data":{"id":"a1","title":"buy milk","done":false}}`, strings.TrimSpace(w.Body.String()))

	// save without id
	w = do(g, http.MethodPost, "/api/todos", `{"title":"<b>bold</b> & more"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var saved struct {
		Status string         `json:"status"`
		ID     string         `json:"id"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.Equal(t, "success", saved.Status)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, saved.ID, saved.Data["id"])
	require.Contains(t, w.Body.String(), `"<b>bold</b> & more"`)

	// list, newest first
	w = do(g, http.MethodGet, "/api/todos", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	require.Equal(t, saved.ID, list[0]["id"])
	require.Equal(t, "a1", list[1]["id"])

	// delete, twice
	for i := 0; i < 2; i++ {
		w = do(g, http.MethodDelete, "/api/todos/a1", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"status":"deleted"}`, w.Body.String())
	}
	w = do(g, http.MethodGet, "/api/todos", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestDocumentHandler_EmptyCollectionIsEmptyArray(t *testing.T) {
	g := newRouter(service.NewMemoryService())
	do(g, http.MethodPost, "/api/todos", `{"id":1}`)

	w := do(g, http.MethodGet, "/api/notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestDocumentHandler_InvalidPayload(t *testing.T) {
	g := newRouter(service.NewMemoryService())
	before := testutil.ToFloat64(metrics.DocumentOps.WithLabelValues("save", "invalid"))

	for _, body := range []string{`nope`, `[1,2,3]`, `{"broken":`} {
		w := do(g, http.MethodPost, "/api/todos", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.JSONEq(t, `{"status":"error","error":"invalid payload"}`, w.Body.String())
	}
	require.Equal(t, before+3, testutil.ToFloat64(metrics.DocumentOps.WithLabelValues("save", "invalid")))
}

func TestDocumentHandler_BodyTooLarge(t *testing.T) {
	g := newRouter(service.NewMemoryService())
	big := `{"blob":"` + strings.Repeat("x", 2048) + `"}`
	w := do(g, http.MethodPost, "/api/files", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(g, http.MethodGet, "/api/files", "")
	require.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

type downRepo struct{}

func (downRepo) Upsert(context.Context, *document.Record) error { return errors.New("down") }
func (downRepo) List(context.Context, string) ([]*document.Record, error) {
	return nil, errors.New("down")
}
func (downRepo) Delete(context.Context, string, string) error { return errors.New("down") }
func (downRepo) Ping(context.Context) error { return errors.New("down") }

func TestDocumentHandler_StorageUnavailable(t *testing.T) {
	g := newRouter(service.New(downRepo{}))
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/todos", `{"id":"a"}`},
		{http.MethodGet, "/api/todos", ""},
		{http.MethodDelete, "/api/todos/a", ""},
	} {
		w := do(g, tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusServiceUnavailable, w.Code, tc.method)
		require.JSONEq(t, `{"status":"error","error":"storage unavailable"}`, w.Body.String())
	}
}
