package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/auth"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/config"
	"github.com/suPer8Hu/chat-history/internal/httpapi/handlers"
	"github.com/suPer8Hu/chat-history/internal/httpapi/middleware"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/users"
)

type Deps struct {
	Handler   *handlers.Handler
	Tokens    *auth.TokenIssuer
	Log       *logger.Logger
	RateLimit config.RateLimit
	// nil disables rate limiting
	Limiter middleware.TokenTaker
	// empty or containing "*" allows every origin
	CORSOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, common.CodeRouteNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, common.CodeMethodNotAllowed, "method not allowed")
	})

	h := d.Handler
	r.GET("/ping", h.Ping)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(d.Limiter, d.RateLimit, d.Log))
	authGroup.POST("/google", h.Google)
	authGroup.POST("/federated", h.Google)
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)

	authed := api.Group("/")
	authed.Use(middleware.AuthRequired(d.Tokens))
	authed.GET("/auth/me", h.Me)
	authed.POST("/chats", h.AppendMessages)
	authed.GET("/chats", h.OwnHistory)
	authed.DELETE("/chats", h.ClearHistory)
	authed.POST("/chat/completions", h.Completions)

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AuthRequired(d.Tokens), middleware.RequireRole(string(users.RoleAdmin)))
	adminGroup.GET("/dashboard", h.Dashboard)
	adminGroup.GET("/chats/:userId", h.UserHistory)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
