// Command document runs the universal backend on its own: the
// /api/:collection document store that a generated app calls, plus the
// app's static files when SITE_DIR is set.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nexabuild/go-services/handlers"
	"github.com/nexabuild/go-services/internal/app"
	"github.com/nexabuild/go-services/internal/config"
	"github.com/nexabuild/go-services/internal/document/handler"
	"github.com/nexabuild/go-services/internal/document/service"
	"github.com/nexabuild/go-services/pkg/logger"
	"github.com/nexabuild/go-services/pkg/middleware"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(middleware.CORS(), gin.Recovery(), middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	rdb := app.ConnectRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}
	store := app.OpenStore(ctx, cfg, rdb)
	defer store.Close()
	svc := service.New(store.Repo)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	handler.RegisterDocumentRoutes(r, svc)
	if cfg.Server.SiteDir != "" {
		handlers.RegisterSite(r, cfg.Server.SiteDir)
	}

	logger.Infof("document service (%s store) starting", store.Driver)
	if err := app.Serve(ctx, app.NewServer(cfg.Server, r)); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
