// Package resilience provides transport middlewares that protect the
// backoffice and the pipeline from each other: retries with exponential
// backoff, local rate limiting, per-operation timeouts and request logging.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/transport"
)

var (
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")

	// ErrRetriesExhausted wraps the last error once every attempt failed.
	ErrRetriesExhausted = errors.New("all retries exhausted")
)

// RetryStats counts retry outcomes.
type RetryStats struct {
	TotalAttempts     atomic.Int64
	SuccessfulRetries atomic.Int64
	FailedRetries     atomic.Int64
	SkippedMutations  atomic.Int64
}

type retryMiddleware struct {
	config config.RetryConfig
	logger *slog.Logger
	stats  *RetryStats
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryMiddleware retries transient failures with exponential backoff
// and full jitter. Mutating operations are retried only when the request
// carries an idempotency key. stats may be nil.
func NewRetryMiddleware(cfg config.RetryConfig, stats *RetryStats) (transport.Middleware, error) {
	switch {
	case cfg.MaxAttempts <= 0:
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	case cfg.InitialInterval <= 0:
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval.Std())
	case cfg.MaxInterval < cfg.InitialInterval:
		return nil, fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v",
			errMaxIntervalInvalid, cfg.MaxInterval.Std(), cfg.InitialInterval.Std())
	case cfg.Multiplier < 1.0:
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}
	if stats == nil {
		stats = &RetryStats{}
	}

	rm := &retryMiddleware{
		config: cfg,
		logger: slog.Default().With("component", "retry"),
		stats:  stats,
		sleep:  sleepCtx,
	}
	return rm.middleware, nil
}

func (r *retryMiddleware) middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		maxAttempts := r.config.MaxAttempts
		if req.Operation.Mutating() && req.IdempotencyKey == "" {
			maxAttempts = 1
			r.stats.SkippedMutations.Add(1)
		}

		start := time.Now()
		var lastErr error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			resp, err := next.Handle(ctx, req)
			r.stats.TotalAttempts.Add(1)
			if err == nil {
				if attempt > 1 {
					r.stats.SuccessfulRetries.Add(1)
					r.logger.Info("request succeeded after retry",
						"operation", req.Operation, "attempt", attempt)
				}
				return resp, nil
			}

			// The caller's context ending is never transient.
			if ctx.Err() != nil || !transport.IsRetryable(err) {
				return nil, err
			}
			lastErr = err
			if attempt == maxAttempts {
				break
			}

			backoff := r.backoff(attempt, err)
			if limit := r.config.MaxElapsedTime.Std(); limit > 0 && time.Since(start)+backoff > limit {
				r.logger.Warn("max elapsed time exceeded",
					"operation", req.Operation, "attempts", attempt, "last_error", err)
				break
			}

			r.logger.Debug("retrying after backoff",
				"operation", req.Operation, "attempt", attempt, "backoff", backoff, "error", err)
			if err := r.sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("cancelled during retry: %w", err)
			}
		}

		r.stats.FailedRetries.Add(1)
		if maxAttempts == 1 {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
	})
}

// backoff computes the wait before attempt+1. A Retry-After hint from the
// backoffice takes precedence over the exponential schedule.
func (r *retryMiddleware) backoff(attempt int, err error) time.Duration {
	var se *transport.ServiceError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return time.Duration(se.RetryAfter) * time.Second
	}
	return ExponentialBackoff(r.config, attempt)
}

// ExponentialBackoff returns InitialInterval * Multiplier^(attempt-1),
// capped at MaxInterval, with full jitter when enabled.
func ExponentialBackoff(cfg config.RetryConfig, attempt int) time.Duration {
	d := cfg.InitialInterval.Std()
	if d <= 0 {
		d = time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * max(cfg.Multiplier, 1.0))
		if d >= cfg.MaxInterval.Std() {
			d = cfg.MaxInterval.Std()
			break
		}
	}
	if cfg.UseJitter {
		return time.Duration(rand.Int64N(int64(d) + 1)) // #nosec G404 -- non-cryptographic jitter
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
