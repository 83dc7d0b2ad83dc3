package limiter

import (
	"errors"
	"fmt"

	"github.com/sweetpotato0/echoflow/middleware"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimitExceeded indicates rate limit has been exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// RateLimiter admits runs through a token bucket
type RateLimiter struct {
	limiter *rate.Limiter
	wait    bool
}

// Option configures a RateLimiter
type Option func(*RateLimiter)

// WithWait blocks until a token is available instead of failing fast.
// The wait is bounded by the run context.
func WithWait() Option {
	return func(m *RateLimiter) {
		m.wait = true
	}
}

// NewRateLimiter allows perSecond runs per second with bursts of up to burst runs
func NewRateLimiter(perSecond float64, burst int, opts ...Option) *RateLimiter {
	m := &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute checks rate limit
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.wait {
		if err := m.limiter.Wait(ctx.Context()); err != nil {
			return fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
		}
		return next(ctx)
	}
	if !m.limiter.Allow() {
		return ErrRateLimitExceeded
	}
	return next(ctx)
}

// Tokens returns the number of runs that could start now
func (m *RateLimiter) Tokens() float64 {
	return m.limiter.Tokens()
}
