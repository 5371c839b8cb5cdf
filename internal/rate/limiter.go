package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avoronkov/authcore/internal/model"
)

// Config tunes the login and renewal throttles. A zero attempt budget
// disables the corresponding check.
type Config struct {
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	MaxRenewAttempts int
	RenewCooldown    time.Duration
}

// Limiter throttles failed login attempts per username and per client IP,
// and refresh-driven renewals per client IP, using fixed-window Redis
// counters. A nil *Limiter performs no throttling, so callers need no guard
// when Redis is not configured.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func loginUserKey(username string) string {
	return "authcore:login:user:" + username
}

func loginIPKey(ip string) string {
	return "authcore:login:ip:" + ip
}

func renewIPKey(ip string) string {
	return "authcore:renew:ip:" + ip
}

// CheckLogin reports whether the username+IP pair is still within the
// attempt budget. Returns model.ErrRateLimited when the budget is spent.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	if err := l.checkCounter(ctx, loginUserKey(username)); err != nil {
		return err
	}
	if ip != "" {
		return l.checkCounter(ctx, loginIPKey(ip))
	}
	return nil
}

// RecordFailure counts a failed login attempt for the username+IP pair.
func (l *Limiter) RecordFailure(ctx context.Context, username, ip string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	if _, err := l.incrementWithTTL(ctx, loginUserKey(username), l.config.LoginCooldown); err != nil {
		return err
	}
	if ip != "" {
		if _, err := l.incrementWithTTL(ctx, loginIPKey(ip), l.config.LoginCooldown); err != nil {
			return err
		}
	}
	return nil
}

// CheckRenewal counts a refresh-driven renewal attempt for the client IP and
// reports whether it is still within budget. Unlike login, every attempt
// counts regardless of outcome: a rejected refresh token still costs store
// round-trips, so the window must close on replay storms too.
func (l *Limiter) CheckRenewal(ctx context.Context, ip string) error {
	if l == nil || l.config.MaxRenewAttempts <= 0 || ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, renewIPKey(ip), l.config.RenewCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRenewAttempts) {
		return model.ErrRateLimited
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, username, ip string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}

	keys := []string{loginUserKey(username)}
	if ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset login counters: %w", err)
	}
	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to read login counter: %w", err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return model.ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, cooldown time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	// Fixed window: only the first hit arms the cooldown timer.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, cooldown).Err(); err != nil {
			return 0, fmt.Errorf("failed to set counter TTL: %w", err)
		}
	}

	return count, nil
}
