package common

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

// Sentinel errors shared by services. Wrap them with fmt.Errorf("%w: ...")
// and the HTTP layer maps them through Error.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUpstreamIdentity   = errors.New("identity provider rejected the assertion")
	ErrUpstreamProvider   = errors.New("completion provider failed")
	ErrNotFound           = errors.New("not found")
)

// business codes, status*100 + n like the rest of the platform
const (
	CodeInvalidJSON        = 40001
	CodeValidation         = 40002
	CodeUpstreamIdentity   = 40003
	CodeUnauthorized       = 40101
	CodeInvalidCredentials = 40102
	CodeForbidden          = 40301
	CodeNotFound           = 40401
	CodeRouteNotFound      = 40400
	CodeMethodNotAllowed   = 40500
	CodeConflict           = 40901
	CodeTooManyRequests    = 42901
	CodeInternal           = 50001
	CodeUpstreamProvider   = 50201
)

type mapping struct {
	target error
	status int
	code   int
}

var mappings = []mapping{
	{ErrValidation, http.StatusBadRequest, CodeValidation},
	{ErrConflict, http.StatusConflict, CodeConflict},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{ErrForbidden, http.StatusForbidden, CodeForbidden},
	{ErrUpstreamIdentity, http.StatusBadRequest, CodeUpstreamIdentity},
	{ErrUpstreamProvider, http.StatusBadGateway, CodeUpstreamProvider},
	{ErrNotFound, http.StatusNotFound, CodeNotFound},
}

// Error writes the envelope matching err. Unknown errors become a 500 with a
// generic message; the detail only goes to the log.
func Error(c *gin.Context, log *logger.Logger, err error) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			Fail(c, m.status, m.code, publicMessage(err, m.target))
			return
		}
	}

	if log != nil {
		log.Error("request failed",
			"request_id", c.GetString(RequestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	msg := "internal server error"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "storage timeout"
	}
	Fail(c, http.StatusInternalServerError, CodeInternal, msg)
}

// publicMessage drops the sentinel prefix so "conflict: username already taken"
// is shown as "username already taken".
func publicMessage(err, target error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, target.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}
