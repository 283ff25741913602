package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/suPer8Hu/chat-history/internal/admin"
	"github.com/suPer8Hu/chat-history/internal/ai"
	"github.com/suPer8Hu/chat-history/internal/auth"
	"github.com/suPer8Hu/chat-history/internal/chat"
	"github.com/suPer8Hu/chat-history/internal/config"
	"github.com/suPer8Hu/chat-history/internal/db"
	"github.com/suPer8Hu/chat-history/internal/events"
	"github.com/suPer8Hu/chat-history/internal/httpapi"
	"github.com/suPer8Hu/chat-history/internal/httpapi/handlers"
	"github.com/suPer8Hu/chat-history/internal/httpapi/middleware"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/store/rabbitmq"
	"github.com/suPer8Hu/chat-history/internal/store/redisstore"
	"github.com/suPer8Hu/chat-history/internal/users"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("api stopped", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "dev-secret-change-me" {
		log.Warn("JWT_SECRET not set, using the development secret")
	}
	if cfg.GoogleClientID == "" {
		log.Warn("GOOGLE_CLIENT_ID not set, Google sign-in will reject every token")
	}

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()
	if err := db.AutoMigrate(gdb, &users.User{}, &chat.Message{}); err != nil {
		return err
	}

	var pub events.Publisher = events.Nop{}
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			defer p.Close()
			pub = p
		}
	}

	var limiter middleware.TokenTaker
	if cfg.RedisAddr != "" {
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, rate limiting disabled", "addr", cfg.RedisAddr, "error", err)
			_ = rs.Close()
		} else {
			defer rs.Close()
			limiter = rs
		}
	}

	userRepo := users.NewRepo(gdb)
	msgRepo := chat.NewRepo(gdb)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	verifier := auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleTokenInfoURL)

	authSvc, err := auth.NewService(userRepo, tokens, verifier, pub, log, auth.ServiceConfig{
		AdminEmail: cfg.AdminEmail,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return err
	}

	registry := ai.NewDefaultRegistry(ai.Options{
		Default:           cfg.AIProvider,
		OllamaBaseURL:     cfg.OllamaBaseURL,
		OllamaModel:       cfg.OllamaModel,
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
		OpenRouterModel:   cfg.OpenRouterModel,
		OpenRouterSiteURL: cfg.OpenRouterSiteURL,
		OpenRouterAppName: cfg.OpenRouterAppName,
	})

	h := handlers.NewHandler(authSvc, chat.NewService(msgRepo, registry, pub, log), admin.NewService(userRepo, msgRepo), log)
	router := httpapi.NewRouter(httpapi.Deps{
		Handler:   h,
		Tokens:    tokens,
		Log:       log,
		RateLimit: cfg.RateLimit,
		Limiter:   limiter,

		CORSOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is running", "port", cfg.Port, "db", cfg.DBDriver, "ai_provider", cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
