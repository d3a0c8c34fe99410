// Package ratelimit paces outgoing Census API requests.
//
// The Census API does not publish rate-limit headers, so pacing is purely
// client side: a token bucket sized by requests per second and burst.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	acsRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acs_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the request limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})

	acsRateLimitDelaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acs_rate_limit_delays_total",
		Help: "Total number of requests delayed by the limiter",
	})
)

// ErrDeadlineTooSoon is returned by Wait when the context deadline falls
// before the next request slot. Waiting again cannot succeed.
var ErrDeadlineTooSoon = errors.New("rate limiter: next slot is past the context deadline")

// Limiter gates requests to a fixed rate.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a limiter allowing rps requests per second with the given
// burst. rps <= 0 disables pacing.
func NewLimiter(rps float64, burst int, logger zerolog.Logger) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("rate limiter: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrDeadlineTooSoon, err)
	}

	waited := time.Since(start)
	acsRateLimitWaitSeconds.Observe(waited.Seconds())
	if waited > time.Millisecond {
		acsRateLimitDelaysTotal.Inc()
		l.logger.Debug().Dur("wait", waited).Msg("Request delayed by rate limiter")
	}
	return nil
}

// Limit returns the configured requests per second, rate.Inf when unpaced.
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}
