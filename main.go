package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexabuild/go-services/handlers"
	"github.com/nexabuild/go-services/internal/app"
	"github.com/nexabuild/go-services/internal/config"
	"github.com/nexabuild/go-services/internal/document/handler"
	"github.com/nexabuild/go-services/internal/document/service"
	"github.com/nexabuild/go-services/internal/storage"
	"github.com/nexabuild/go-services/internal/workspace"
	"github.com/nexabuild/go-services/pkg/logger"
	"github.com/nexabuild/go-services/pkg/metrics"
	"github.com/nexabuild/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s redis=%v minio=%v site=%q", cfg.Store.Driver, cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Server.SiteDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CORS(), gin.Logger(), gin.Recovery(), middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	rdb := app.ConnectRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}
	useRateLimit(r, cfg, rdb)

	store := app.OpenStore(ctx, cfg, rdb)
	defer store.Close()
	docs := service.New(store.Repo)

	wsStore, err := workspace.NewStore(cfg.Workspace.MaxEntries)
	if err != nil {
		logger.Fatalf("workspace store: %v", err)
	}
	workspaces := workspace.NewService(wsStore, newPublisher(ctx, cfg))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, store, docs, rdb))

	handler.RegisterDocumentRoutes(r, docs)
	handlers.RegisterWorkspaceRoutes(r, workspaces)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Server.SiteDir != "" {
		logger.Infof("serving generated site from %s", cfg.Server.SiteDir)
		handlers.RegisterSite(r, cfg.Server.SiteDir)
	}

	if err := app.Serve(ctx, app.NewServer(cfg.Server, r)); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

func useRateLimit(r *gin.Engine, cfg *config.Config, rdb *redis.Client) {
	if !cfg.RateLimit.Enabled {
		return
	}
	// use Redis-backed limiter when configured and Redis client is available
	if cfg.RateLimit.UseRedis && rdb != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		logger.Infof("rate limiter: redis (%v rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		return
	}
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	logger.Infof("rate limiter: in-process (%v rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// newPublisher returns nil when object storage is not configured or not
// reachable, which leaves publishing disabled.
func newPublisher(ctx context.Context, cfg *config.Config) workspace.Publisher {
	if cfg.MinIO.Endpoint == "" {
		return nil
	}
	s, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		logger.Warnf("minio: %v", err)
		return nil
	}
	bctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.EnsureBucket(bctx); err != nil {
		logger.Warnf("minio: %v; publishing disabled", err)
		return nil
	}
	return s
}

// readiness returns 200 only when the configured store answers; a memory
// fallback for a durable driver counts as not ready.
func readiness(cfg *config.Config, store *app.Store, docs service.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["storage"] = store.Driver == cfg.Store.Driver && docs.Ping(c.Request.Context()) == nil
		if !deps["storage"] {
			ready = false
		}

		// Redis readiness when used for the store or the rate limiter
		if cfg.Redis.Host != "" && (cfg.RateLimit.UseRedis || cfg.Store.Driver == "redis") {
			deps["redis"] = rdb != nil && rdb.Ping(c.Request.Context()).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "store": store.Driver, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
