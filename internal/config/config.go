package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	// DBDriver selects the gorm dialector: "sqlite" (default) or "mysql".
	// DSN demo for mysql:
	// app:apppass@tcp(127.0.0.1:3306)/chat_history?charset=utf8mb4&parseTime=true&loc=UTC
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"chat_app.db"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleTokenInfoURL string `env:"GOOGLE_TOKENINFO_URL" envDefault:"https://oauth2.googleapis.com/tokeninfo"`
	AdminEmail         string `env:"ADMIN_EMAIL"`

	// comma separated; "*" allows any origin
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`

	// rabbitMQ; empty URL disables event publishing
	RabbitURL         string `env:"RABBIT_URL"`
	RabbitQueue       string `env:"RABBIT_QUEUE" envDefault:"chat_events"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"2"`
	AuditLogPath      string `env:"AUDIT_LOG_PATH" envDefault:"logs/audit.log"`

	// AI provider
	AIProvider        string `env:"AI_PROVIDER" envDefault:"ollama"`
	OllamaBaseURL     string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel       string `env:"OLLAMA_MODEL" envDefault:"llama3:latest"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel   string `env:"OPENROUTER_MODEL" envDefault:"openrouter/auto"`
	OpenRouterSiteURL string `env:"OPENROUTER_SITE_URL"`
	OpenRouterAppName string `env:"OPENROUTER_APP_NAME"`
}

// RateLimit configures the token bucket in front of the auth routes.
type RateLimit struct {
	Enabled        bool          `env:"ENABLED" envDefault:"true"`
	Capacity       int           `env:"CAPACITY" envDefault:"20"`
	RefillTokens   int           `env:"REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"3s"`
	TTL            time.Duration `env:"TTL" envDefault:"10m"`
	Prefix         string        `env:"PREFIX" envDefault:"rl"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.AdminEmail = strings.ToLower(strings.TrimSpace(c.AdminEmail))
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))

	origins := c.CORSAllowOrigins[:0]
	for _, o := range c.CORSAllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowOrigins = origins

	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		c.BcryptCost = 10
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 2
	}
	if c.WorkerConcurrency > 50 {
		c.WorkerConcurrency = 50
	}

	rl := &c.RateLimit
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
}
