package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetThrottle limits password reset emails to one per address per window.
// Key format: <prefix>:reset:<email>
type ResetThrottle struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// Allow claims the window for email. It returns false while a previous claim
// is still alive.
func (t *ResetThrottle) Allow(ctx context.Context, email string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.key(email), "1", t.window).Result()
	if err != nil {
		return false, fmt.Errorf("reset throttle: %w", err)
	}
	return ok, nil
}

func (t *ResetThrottle) key(email string) string {
	return t.prefix + ":" + strings.ToLower(strings.TrimSpace(email))
}
