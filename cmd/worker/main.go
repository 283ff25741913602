package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/suPer8Hu/chat-history/internal/audit"
	"github.com/suPer8Hu/chat-history/internal/config"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/store/rabbitmq"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for the worker")
	}

	if dir := filepath.Dir(cfg.AuditLogPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("create audit log dir", "error", err)
		}
	}
	f, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatal("open audit log", "path", cfg.AuditLogPath, "error", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := audit.NewSink(f)
	err = rabbitmq.Consume(ctx, rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitURL,
		Queue:       cfg.RabbitQueue,
		Concurrency: cfg.WorkerConcurrency,
	}, sink.Handle, log)
	if err != nil {
		log.Error("worker stopped", "error", err)
		_ = f.Close()
		os.Exit(1)
	}
}
