package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config bounds the counters kept by Limiter
type Config struct {
	IPLimit        int
	IPWindow       time.Duration
	EmailCooldown  time.Duration
	VerifyAttempts int
	VerifyWindow   time.Duration
}

// Limiter keeps fixed-window request counters and cooldown markers in Redis
type Limiter struct {
	client *redis.Client
	cfg    Config
}

func NewLimiter(client *redis.Client, cfg Config) *Limiter {
	return &Limiter{client: client, cfg: cfg}
}

func ipKey(ip, purpose string) string {
	if purpose == "" {
		return fmt.Sprintf("ratelimit:ip:%s", ip)
	}
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func cooldownKey(email string) string {
	return fmt.Sprintf("ratelimit:cooldown:%s", normalizeEmail(email))
}

func attemptsKey(email string) string {
	return fmt.Sprintf("ratelimit:verify:%s", normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckIPRateLimitWithPurpose reports whether ip has used up its request
// budget for purpose. Each purpose is counted separately.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	return l.exceeded(ctx, ipKey(ip, purpose), l.cfg.IPLimit)
}

// RecordIPRequestWithPurpose counts one request from ip for purpose
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	return l.incr(ctx, ipKey(ip, purpose), l.cfg.IPWindow)
}

// CheckEmailCooldown reports whether an email was sent to this address recently
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

// SetEmailCooldown starts the cooldown for email
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, cooldownKey(email), "1", l.cfg.EmailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}

// CheckVerifyAttempts reports whether email has exhausted its code guesses
func (l *Limiter) CheckVerifyAttempts(ctx context.Context, email string) (bool, error) {
	return l.exceeded(ctx, attemptsKey(email), l.cfg.VerifyAttempts)
}

// RecordVerifyAttempt counts one failed code guess for email
func (l *Limiter) RecordVerifyAttempt(ctx context.Context, email string) error {
	return l.incr(ctx, attemptsKey(email), l.cfg.VerifyWindow)
}

// ResetVerifyAttempts clears the guess counter. Called whenever a new code is
// issued and after a successful verification.
func (l *Limiter) ResetVerifyAttempts(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset verify attempts: %w", err)
	}
	return nil
}

func (l *Limiter) exceeded(ctx context.Context, key string, limit int) (bool, error) {
	count, err := l.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return count >= limit, nil
}

func (l *Limiter) incr(ctx context.Context, key string, window time.Duration) error {
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	// Only the first hit in a window sets the expiry
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return nil
}
