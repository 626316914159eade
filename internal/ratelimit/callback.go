package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campushq/pulse/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyCallback = "callback:%s:%s"

// CallbackLimiter throttles the gateway webhook and redirect endpoints
// per provider and caller address. A nil limiter means rate limiting is
// disabled and everything is allowed.
type CallbackLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCallbackLimiter(cfg config.Config) (*CallbackLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.CallbackRate <= 0 || limitCfg.CallbackBurst <= 0 {
		return nil, errors.New("callback rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &CallbackLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.CallbackRate,
		burst:   limitCfg.CallbackBurst,
	}, nil
}

func (l *CallbackLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CallbackLimiter) Allow(ctx context.Context, provider, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyCallback, strings.TrimSpace(provider), strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
