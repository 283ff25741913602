package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/httpapi/middleware"
)

type googleReq struct {
	Token     string `json:"token"`
	Assertion string `json:"assertion"`
}

// Google handles POST /api/auth/google.
func (h *Handler) Google(c *gin.Context) {
	var req googleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}
	assertion := req.Token
	if assertion == "" {
		assertion = req.Assertion
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	res, err := h.AuthSvc.FederatedSignIn(ctx, assertion)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	res, err := h.AuthSvc.Signup(ctx, req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	res, err := h.AuthSvc.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Me echoes the identity carried by the token.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		unauthorized(c)
		return
	}
	user := gin.H{"id": claims.UserID, "role": claims.Role}
	if claims.DisplayName != "" {
		user["displayName"] = claims.DisplayName
	}
	if claims.ExpiresAt != nil {
		user["expiresAt"] = claims.ExpiresAt.Time.UTC()
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
