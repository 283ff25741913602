package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

// RequestLogger logs one line per request once the handler chain returns.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", c.GetString(common.RequestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if uid := c.GetString(UserIDKey); uid != "" {
			args = append(args, "user_id", uid)
		}

		switch {
		case status >= 500:
			log.Error("request", args...)
		case status >= 400:
			log.Warn("request", args...)
		default:
			log.Info("request", args...)
		}
	}
}
