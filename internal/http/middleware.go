package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"backoffice/pkg/logger"
)

// requestLogger пишет каждый запрос в общий zap-логгер
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.Int("size", c.Writer.Size()),
		)
	}
}
