package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/admin"
	"github.com/suPer8Hu/chat-history/internal/auth"
	"github.com/suPer8Hu/chat-history/internal/chat"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/httpapi/middleware"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

const defaultStoreTimeout = 5 * time.Second

type Handler struct {
	AuthSvc  *auth.Service
	ChatSvc  *chat.Service
	AdminSvc *admin.Service
	Log      *logger.Logger

	// bounds storage work of a single request
	StoreTimeout time.Duration
}

func NewHandler(authSvc *auth.Service, chatSvc *chat.Service, adminSvc *admin.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Noop()
	}
	return &Handler{
		AuthSvc:      authSvc,
		ChatSvc:      chatSvc,
		AdminSvc:     adminSvc,
		Log:          log,
		StoreTimeout: defaultStoreTimeout,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (h *Handler) storeCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.StoreTimeout)
}

func (h *Handler) fail(c *gin.Context, err error) {
	common.Error(c, h.Log, err)
}

func invalidJSON(c *gin.Context) {
	common.Fail(c, http.StatusBadRequest, common.CodeInvalidJSON, "invalid json")
}

func userIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	return id, id != ""
}

func unauthorized(c *gin.Context) {
	common.Fail(c, http.StatusUnauthorized, common.CodeUnauthorized, "unauthorized")
}
