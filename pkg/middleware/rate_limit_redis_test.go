package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nexabuild/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func hit(r *gin.Engine, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/todos", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRedisRateLimitMiddleware_WindowPerClient(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	r := gin.New()
	// windows long enough that the wall-clock bucket does not roll over mid-test
	r.Use(RedisRateLimitMiddleware(client, 0, 2, time.Hour))
	r.POST("/api/todos", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "success"}) })

	rejected := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("redis"))

	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1000").Code)
	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1001").Code)
	w := hit(r, "10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "3600", w.Header().Get("Retry-After"))
	require.JSONEq(t, `{"status":"error","error":"Rate limit exceeded"}`, w.Body.String())

	// a different client has its own window
	require.Equal(t, http.StatusOK, hit(r, "10.0.0.2:1000").Code)
	require.Equal(t, rejected+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("redis")))

	// keys expire after the window
	m.FastForward(2 * time.Hour)
	require.Equal(t, 0, len(m.Keys()))
}

func TestRedisRateLimitMiddleware_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 1, time.Second))
	r.POST("/api/todos", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := hit(r, "10.0.0.1:1000")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 0, 1, time.Second))
	r.POST("/api/todos", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, hit(r, "10.0.0.9:1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.9:2").Code)
}
