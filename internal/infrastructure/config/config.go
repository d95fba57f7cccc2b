package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string `env:"PORT,            default=8080"`
	Env           string `env:"ENV,             default=development"`
	JWTSecret     string `env:"JWT_SECRET"`
	LogLevel      string `env:"LOG_LEVEL,       default=info"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL, default=http://localhost:8080"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Messaging MessagingConfig
	SMTP      SMTPConfig
	Admin     AdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=sie_api"`
}

type RedisConfig struct {
	Addr          string        `env:"REDIS_ADDR,       default=localhost:6379"`
	Password      string        `env:"REDIS_PASSWORD"`
	DB            int           `env:"REDIS_DB,         default=0"`
	KeyPrefix     string        `env:"REDIS_KEY_PREFIX, default=sie"`
	ResetThrottle time.Duration `env:"RESET_THROTTLE,   default=1m"`
}

type MessagingConfig struct {
	URL     string        `env:"MESSAGING_URL,     default=http://localhost:3000/api"`
	Timeout time.Duration `env:"MESSAGING_TIMEOUT, default=15s"`
}

// SMTPConfig is optional: an empty Host selects the log-only mailer.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,     default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM,     default=noreply@sieapi.com"`
}

// AdminConfig seeds the bootstrap admin. Nothing is created while Password is empty.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL, default=admin@sieapi.com"`
	Name     string `env:"ADMIN_NAME,  default=Administrador"`
	Password string `env:"ADMIN_PASSWORD"`
}

// ErrMissingJWTSecret is returned by Load when JWT_SECRET is unset.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	return &cfg, nil
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
