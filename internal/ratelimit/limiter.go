// Package ratelimit throttles login attempts per email using Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("too many attempts")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

type Config struct {
	MaxAttempts int
	Lockout     time.Duration
}

// Limiter counts login attempts in a fixed window that starts at the first
// attempt. A successful login clears the window.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// AttemptLogin reserves one attempt for email before the password is checked.
// The increment is atomic, so concurrent attempts cannot all slip under the
// limit. Attempts beyond MaxAttempts return ErrRateLimited.
func (l *Limiter) AttemptLogin(ctx context.Context, email string) error {
	key := loginKey(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Lockout).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, loginKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginKey(email string) string {
	return "supermart:login:" + strings.ToLower(strings.TrimSpace(email))
}
