package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Port != "8080" || !cfg.IsDevelopment() {
		t.Fatalf("unexpected server defaults: port=%s env=%s", cfg.Port, cfg.Env)
	}
	if cfg.Mongo.Database != "sie_api" {
		t.Fatalf("unexpected mongo database %q", cfg.Mongo.Database)
	}
	if cfg.Messaging.URL != "http://localhost:3000/api" || cfg.Messaging.Timeout != 15*time.Second {
		t.Fatalf("unexpected messaging defaults: %+v", cfg.Messaging)
	}
	if cfg.Redis.ResetThrottle != time.Minute {
		t.Fatalf("unexpected throttle %v", cfg.Redis.ResetThrottle)
	}
	if cfg.SMTP.Host != "" || cfg.SMTP.Port != 587 || cfg.SMTP.From != "noreply@sieapi.com" {
		t.Fatalf("unexpected smtp defaults: %+v", cfg.SMTP)
	}
	if cfg.Admin.Email != "admin@sieapi.com" || cfg.Admin.Password != "" {
		t.Fatalf("unexpected admin defaults: %+v", cfg.Admin)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        "secret",
		"ENV":               "production",
		"MESSAGING_TIMEOUT": "3s",
		"SMTP_HOST":         "smtp.example.com",
		"SMTP_PORT":         "2525",
		"REDIS_DB":          "2",
		"REDIS_KEY_PREFIX":  "staging",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production env")
	}
	if cfg.Messaging.Timeout != 3*time.Second || cfg.SMTP.Host != "smtp.example.com" || cfg.SMTP.Port != 2525 || cfg.Redis.DB != 2 || cfg.Redis.KeyPrefix != "staging" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if !errors.Is(err, ErrMissingJWTSecret) {
		t.Fatalf("expected ErrMissingJWTSecret, got %v", err)
	}
}
