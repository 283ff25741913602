package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/common"
)

func (h *Handler) Dashboard(c *gin.Context) {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	d, err := h.AdminSvc.Dashboard(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) UserHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		common.Fail(c, http.StatusBadRequest, common.CodeValidation, "user id required")
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	msgs, err := h.AdminSvc.UserHistory(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
