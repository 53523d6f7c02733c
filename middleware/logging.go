package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one structured line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Info("request",
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("client_ip", ctx.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Recovery turns panics into 500 responses instead of dropped connections.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("path", ctx.Request.URL.Path),
					zap.Any("panic", r),
				)
				ctx.AbortWithStatusJSON(500, gin.H{"code": 50000, "message": "internal server error"})
			}
		}()
		ctx.Next()
	}
}
