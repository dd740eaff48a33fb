package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/transport"
)

// rateLimitMiddleware keeps one token bucket per operation so a burst of
// fetches cannot starve envelope creation.
type rateLimitMiddleware struct {
	cfg      config.RateLimitConfig
	logger   *slog.Logger
	mu       sync.Mutex
	limiters map[transport.Operation]*rate.Limiter
}

// NewRateLimitMiddleware waits for a token before each call. Waiting
// honors the context; a deadline reached while waiting is reported as
// transport.ErrRateLimitExceeded. A disabled config yields a pass-through.
func NewRateLimitMiddleware(cfg config.RateLimitConfig) transport.Middleware {
	if !cfg.Enabled {
		return func(next transport.Handler) transport.Handler { return next }
	}
	rl := &rateLimitMiddleware{
		cfg:      cfg,
		logger:   slog.Default().With("component", "ratelimit"),
		limiters: make(map[transport.Operation]*rate.Limiter),
	}
	return rl.middleware
}

func (r *rateLimitMiddleware) limiter(op transport.Operation) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[op]
	if !ok {
		burst := max(r.cfg.BurstSize, 1)
		l = rate.NewLimiter(rate.Limit(r.cfg.TokensPerSecond), burst)
		r.limiters[op] = l
	}
	return l
}

func (r *rateLimitMiddleware) middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if err := r.limiter(req.Operation).Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			r.logger.Warn("rate limit wait failed", "operation", req.Operation, "error", err)
			return nil, fmt.Errorf("%w: %s: %w", transport.ErrRateLimitExceeded, req.Operation, err)
		}
		return next.Handle(ctx, req)
	})
}
