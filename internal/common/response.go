package common

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

func Message(c *gin.Context, httpStatus int, msg string, extra gin.H) {
	body := gin.H{"message": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(httpStatus, body)
}
