package server

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/jathurchan/rtiexec/logger"
)

// RateLimiter limits the request rate of one session.
type RateLimiter interface {
	Allow() bool
	Wait(ctx context.Context) error
}

// TokenBucketRateLimiter implements rate limiting using a token bucket algorithm.
type TokenBucketRateLimiter struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewTokenBucketRateLimiter allows maxRequests per window with the given burst.
// A non-positive window disables limiting.
func NewTokenBucketRateLimiter(maxRequests, burst int, window time.Duration, logger logger.Logger) *TokenBucketRateLimiter {
	var rps rate.Limit
	if window.Seconds() > 0 {
		rps = rate.Limit(float64(maxRequests) / window.Seconds())
	} else {
		rps = rate.Inf
		logger.Warnw("Rate limit window is zero or negative, disabling rate limiter.", "window", window)
	}
	if burst <= 0 {
		burst = 1
		if rps != rate.Inf {
			logger.Warnw("Rate limit burst is zero or negative, setting to 1.", "burst", burst)
		}
	}

	return &TokenBucketRateLimiter{
		limiter: rate.NewLimiter(rps, burst),
		logger:  logger,
	}
}

func (rl *TokenBucketRateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

func (rl *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// unlimited is used when rate limiting is disabled.
type unlimited struct{}

func (unlimited) Allow() bool                { return true }
func (unlimited) Wait(context.Context) error { return nil }

// newSessionLimiter returns the limiter for a new session under cfg.
func newSessionLimiter(cfg *ExecutorServerConfig, log logger.Logger) RateLimiter {
	if !cfg.EnableRateLimit {
		return unlimited{}
	}
	return NewTokenBucketRateLimiter(cfg.RateLimit, cfg.RateLimitBurst, cfg.RateLimitWindow, log)
}
