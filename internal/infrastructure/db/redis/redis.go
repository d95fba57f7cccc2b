package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultKeyPrefix   = "sie"
	defaultResetWindow = time.Minute
)

// Config describes the gateway's Redis: where it lives and how its keys are
// namespaced. ResetWindow is how long one password reset email blocks the next
// for the same address.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Timeout     time.Duration
	KeyPrefix   string
	ResetWindow time.Duration
}

// Store is the connected Redis client plus the gateway's key namespace.
type Store struct {
	client      *redis.Client
	prefix      string
	resetWindow time.Duration
}

// Connect opens the client and pings it once, closing it again when the ping
// fails.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	s := newStore(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(pingCtx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newStore(client *redis.Client, cfg Config) *Store {
	prefix := strings.Trim(cfg.KeyPrefix, ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	window := cfg.ResetWindow
	if window <= 0 {
		window = defaultResetWindow
	}
	return &Store{client: client, prefix: prefix, resetWindow: window}
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

// ResetThrottle returns the password reset throttle bound to this store.
func (s *Store) ResetThrottle() *ResetThrottle {
	return &ResetThrottle{client: s.client, prefix: s.key("reset"), window: s.resetWindow}
}

// key joins parts under the store prefix: <prefix>:<part>:<part>.
func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}
