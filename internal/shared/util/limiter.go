package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles repeated work such as autoload refreshes triggered by
// file events. A nil Limiter never throttles.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket limiter allowing r events per second
// with bursts of b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// NewPerSecondLimiter returns nil when perSecond is not positive.
func NewPerSecondLimiter(perSecond int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return NewLimiter(float64(perSecond), 1)
}

// Allow reports whether n events may happen now.
func (l *Limiter) Allow(n int) bool {
	if l == nil {
		return true
	}
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil {
		return ctx.Err()
	}
	return l.inner.WaitN(ctx, n)
}
