package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/auth"
	"github.com/suPer8Hu/chat-history/internal/common"
)

const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthRequired rejects requests without a valid bearer token and stores the
// decoded claims on the context.
func AuthRequired(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			common.Fail(c, http.StatusUnauthorized, common.CodeUnauthorized, "a token is required for authentication")
			return
		}

		claims, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, common.CodeUnauthorized, "invalid token")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// RequireRole must run after AuthRequired.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			common.Fail(c, http.StatusUnauthorized, common.CodeUnauthorized, "unauthorized")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		common.Fail(c, http.StatusForbidden, common.CodeForbidden, "access denied, requires "+strings.Join(roles, " or ")+" role")
	}
}

func CurrentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}
