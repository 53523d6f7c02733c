package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/config"
	"github.com/pixelforge/pixelforge/ratelimit"
	"github.com/pixelforge/pixelforge/utils"
)

type ipLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

var (
	ipLimiters   = map[string]*ipLimiter{}
	ipLimitersMu sync.Mutex
)

// GlobalRateLimit applies a coarse per-IP token bucket over the whole API
// surface. The per-route fixed-window limiter handles the finer budgets.
func GlobalRateLimit() gin.HandlerFunc {
	cfg := config.Get()
	perMin := cfg.RateLimitPerMinute
	if perMin < 1 {
		perMin = 1
	}
	r := rate.Every(time.Minute / time.Duration(perMin))
	burst := perMin/2 + 1

	return func(ctx *gin.Context) {
		if !getIPLimiter(ctx.ClientIP(), r, burst).Allow() {
			utils.Fail(ctx, apperr.ErrRateLimited)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func getIPLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	ipLimitersMu.Lock()
	defer ipLimitersMu.Unlock()

	now := time.Now()
	for k, l := range ipLimiters {
		if now.After(l.expires) {
			delete(ipLimiters, k)
		}
	}

	if l, ok := ipLimiters[key]; ok {
		l.expires = now.Add(5 * time.Minute)
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(limit, burst), expires: now.Add(5 * time.Minute)}
	ipLimiters[key] = l
	return l.limiter
}

// RouteRateLimit enforces the fixed-window budget for one named route.
// The window key is route + client identity, plus the session id when the
// route is session-scoped, so one noisy session cannot starve another.
func RouteRateLimit(limiter ratelimit.Limiter, route string, limit int, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := route + ":" + ctx.ClientIP()
		if sid := ctx.Param("id"); sid != "" {
			key += ":" + sid
		}
		if !limiter.Allow(key, limit, window) {
			utils.Fail(ctx, apperr.ErrRateLimited)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
