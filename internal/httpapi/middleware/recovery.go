package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					"request_id", c.GetString(common.RequestIDKey),
					"path", c.Request.URL.Path,
					"panic", r,
				)
				common.Fail(c, http.StatusInternalServerError, common.CodeInternal, "internal server error")
			}
		}()
		c.Next()
	}
}
