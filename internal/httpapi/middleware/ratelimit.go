package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/config"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/store/redisstore"
)

type TokenTaker interface {
	TakeToken(ctx context.Context, key string, b redisstore.Bucket, now time.Time) (redisstore.Decision, error)
}

// RateLimit applies a per client IP and route token bucket. With no store or
// when disabled it passes everything; Redis errors also fail open.
func RateLimit(store TokenTaker, cfg config.RateLimit, log *logger.Logger) gin.HandlerFunc {
	if store == nil || !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	bucket := redisstore.Bucket{
		Capacity:       cfg.Capacity,
		RefillTokens:   cfg.RefillTokens,
		RefillInterval: cfg.RefillInterval,
		TTL:            cfg.TTL,
	}

	return func(c *gin.Context) {
		key := rateKey(cfg.Prefix, c)
		d, err := store.TakeToken(c.Request.Context(), key, bucket, time.Now())
		if err != nil {
			log.Warn("rate limit store error", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			common.Fail(c, http.StatusTooManyRequests, common.CodeTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func rateKey(prefix string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.Join([]string{prefix, "ip", ip, "route", c.Request.Method + " " + route}, ":")
}
