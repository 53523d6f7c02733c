package main

import (
	"time"

	"github.com/pixelforge/pixelforge/config"
	"github.com/pixelforge/pixelforge/engine"
	"github.com/pixelforge/pixelforge/locks"
	"github.com/pixelforge/pixelforge/ratelimit"
	"github.com/pixelforge/pixelforge/routes"
	"github.com/pixelforge/pixelforge/session"
	"github.com/pixelforge/pixelforge/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	store, err := session.NewStore(cfg.DataDir,
		time.Duration(cfg.SweepMinIntervalMin)*time.Minute, utils.Logger)
	if err != nil {
		utils.Sugar.Fatalf("session store init failed: %v", err)
	}

	deps := routes.Deps{
		Store:   store,
		Engine:  engine.NewImagingEngine(),
		Limiter: ratelimit.NewMemoryLimiter(),
		Locks:   locks.NewMemoryRegistry(),
		Logger:  utils.Logger,
	}

	// With Redis configured, rate limiting and locking move to the shared
	// store so multiple processes agree on budgets and exclusivity.
	if rc := utils.GetRedis(); rc != nil {
		deps.Limiter = ratelimit.NewRedisLimiter(rc)
		deps.Locks = locks.NewRedisRegistry(rc, 30*time.Minute)
		utils.Sugar.Info("using Redis-backed rate limiter and lock registry")
	}

	r := routes.SetupRouter(deps)

	// Background sweep for expired session workspaces (best-effort)
	store.StartSweeper(time.Duration(cfg.SweeperIntervalMin) * time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
