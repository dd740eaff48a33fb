package resilience

import (
	"log/slog"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/transport"
)

// NewPipeline wraps core with the standard middleware stack, outermost
// first: logging, rate limiting, circuit breaking, retry, per-attempt
// timeout. The breaker sees one outcome per call, after retries.
func NewPipeline(core transport.Handler, cfg *config.Config, logger *slog.Logger, stats *RetryStats) (transport.Handler, error) {
	retry, err := NewRetryMiddleware(cfg.Retry, stats)
	if err != nil {
		return nil, err
	}
	return transport.Chain(core,
		NewLoggingMiddleware(logger),
		NewRateLimitMiddleware(cfg.RateLimit),
		NewCircuitBreakerMiddleware(cfg.CircuitBreaker, logger),
		retry,
		NewTimeoutMiddleware(TimeoutsFromConfig(cfg.Timeouts)),
	), nil
}
