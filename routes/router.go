package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/config"
	"github.com/pixelforge/pixelforge/controllers"
	"github.com/pixelforge/pixelforge/engine"
	"github.com/pixelforge/pixelforge/jobs"
	"github.com/pixelforge/pixelforge/locks"
	"github.com/pixelforge/pixelforge/middleware"
	"github.com/pixelforge/pixelforge/ratelimit"
	"github.com/pixelforge/pixelforge/session"
	"github.com/pixelforge/pixelforge/uploads"
	"github.com/pixelforge/pixelforge/utils"
)

// Deps are the stateful services the router composes. Limiter and Locks
// are interfaces so a shared-store deployment can swap implementations
// without touching handlers.
type Deps struct {
	Store   *session.Store
	Engine  engine.Engine
	Limiter ratelimit.Limiter
	Locks   locks.Registry
	Logger  *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "If-None-Match", "If-Modified-Since"},
		ExposeHeaders:    []string{"Content-Length", "ETag", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.GlobalRateLimit())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	limits := uploads.Limits{
		MaxFileBytes:  int64(cfg.MaxFileSizeMB) << 20,
		MaxTotalBytes: int64(cfg.MaxTotalUploadMB) << 20,
		MaxFiles:      cfg.MaxFilesPerBatch,
	}
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	processor := jobs.NewProcessor(deps.Engine, time.Duration(cfg.FileTimeoutSec)*time.Second, deps.Logger)
	ingestor := uploads.NewIngestor(deps.Store, deps.Logger)

	sessionController := controllers.NewSessionController(deps.Store, ingestor, limits, ttl, deps.Logger)
	jobController := controllers.NewJobController(deps.Store, processor, deps.Locks, deps.Logger)
	fileController := controllers.NewFileController(deps.Store, deps.Locks, deps.Logger)

	perRoute := func(route string) gin.HandlerFunc {
		return middleware.RouteRateLimit(deps.Limiter, route, cfg.RouteLimitPerMinute, time.Minute)
	}

	api := r.Group("/api/v1")

	api.POST("/sessions", perRoute("new-session"), sessionController.Create)
	api.POST("/uploads", perRoute("upload"), sessionController.UploadNew)

	sessions := api.Group("/sessions/:id")
	sessions.GET("", perRoute("session-info"), sessionController.Info)
	sessions.POST("/uploads", perRoute("upload"), sessionController.Upload)
	sessions.POST("/jobs", perRoute("start-job"), jobController.Start)
	sessions.GET("/progress", perRoute("get-progress"), jobController.Progress)
	sessions.POST("/archive", perRoute("build-archive"), fileController.BuildArchive)
	sessions.GET("/files/*filepath", fileController.Download)
	sessions.DELETE("", perRoute("cleanup"), sessionController.Cleanup)

	api.POST("/admin/sweep", perRoute("sweep"), sessionController.Sweep)

	return r
}
