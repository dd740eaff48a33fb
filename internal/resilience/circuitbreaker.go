package resilience

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/transport"
)

// CircuitState is the state of one operation's breaker.
type CircuitState int32

const (
	// StateClosed lets calls through.
	StateClosed CircuitState = iota
	// StateOpen rejects calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets a bounded number of probes through.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker trips after FailureThreshold consecutive transient failures and
// closes again after SuccessThreshold successful probes.
type breaker struct {
	state       atomic.Int32
	failures    atomic.Int32
	successes   atomic.Int32
	probes      atomic.Int32
	lastFailure atomic.Int64

	cfg    config.CircuitBreakerConfig
	op     transport.Operation
	logger *slog.Logger
	now    func() time.Time
}

func (b *breaker) openFor() time.Duration {
	timeout := b.cfg.OpenTimeout.Std()
	if jit := timeout / 10; jit > 0 {
		timeout += rand.N(jit)
	}
	return timeout
}

// allow reports whether a call may proceed. The returned release must be
// called once the call completes.
func (b *breaker) allow() (release func(), ok bool) {
	noop := func() {}
	switch CircuitState(b.state.Load()) {
	case StateClosed:
		return noop, true
	case StateOpen:
		since := b.now().Sub(time.Unix(0, b.lastFailure.Load()))
		if since <= b.openFor() {
			return noop, false
		}
		b.transition(StateOpen, StateHalfOpen)
	}

	for {
		cur := b.probes.Load()
		if int(cur) >= b.cfg.HalfOpenProbes {
			return noop, false
		}
		if b.probes.CompareAndSwap(cur, cur+1) {
			return func() {
				for {
					n := b.probes.Load()
					if n == 0 || b.probes.CompareAndSwap(n, n-1) {
						return
					}
				}
			}, true
		}
	}
}

func (b *breaker) success() {
	switch CircuitState(b.state.Load()) {
	case StateClosed:
		b.failures.Store(0)
	case StateHalfOpen:
		if int(b.successes.Add(1)) >= b.cfg.SuccessThreshold {
			b.transition(StateHalfOpen, StateClosed)
		}
	}
}

func (b *breaker) failure() {
	b.lastFailure.Store(b.now().UnixNano())
	switch CircuitState(b.state.Load()) {
	case StateClosed:
		if int(b.failures.Add(1)) >= b.cfg.FailureThreshold {
			b.transition(StateClosed, StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateHalfOpen, StateOpen)
	}
}

// transition moves from -> to if no other goroutine got there first.
func (b *breaker) transition(from, to CircuitState) {
	if !b.state.CompareAndSwap(int32(from), int32(to)) {
		return
	}
	b.failures.Store(0)
	b.successes.Store(0)
	b.probes.Store(0)
	b.logger.Info("circuit breaker state transition",
		"operation", b.op, "from", from.String(), "to", to.String())
}

type circuitBreakerMiddleware struct {
	cfg    config.CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	breakers map[transport.Operation]*breaker
}

// NewCircuitBreakerMiddleware keeps one breaker per operation. Only
// transient failures count against a breaker: a rejected input proves
// the backoffice is up. A rejected call fails with an
// ErrorTypeCircuitOpen ServiceError. A disabled config yields a
// pass-through.
func NewCircuitBreakerMiddleware(cfg config.CircuitBreakerConfig, logger *slog.Logger) transport.Middleware {
	if !cfg.Enabled {
		return func(next transport.Handler) transport.Handler { return next }
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &circuitBreakerMiddleware{
		cfg:      cfg,
		logger:   logger.With("component", "circuitbreaker"),
		now:      time.Now,
		breakers: make(map[transport.Operation]*breaker),
	}
	return m.middleware
}

func (m *circuitBreakerMiddleware) breaker(op transport.Operation) *breaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[op]
	if !ok {
		b = &breaker{cfg: m.cfg, op: op, logger: m.logger, now: m.now}
		m.breakers[op] = b
	}
	return b
}

func (m *circuitBreakerMiddleware) middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		b := m.breaker(req.Operation)
		release, ok := b.allow()
		if !ok {
			return nil, &transport.ServiceError{
				Operation: req.Operation,
				Type:      transport.ErrorTypeCircuitOpen,
				Message:   "circuit breaker is open",
			}
		}
		defer release()

		resp, err := next.Handle(ctx, req)
		switch {
		case err == nil:
			b.success()
		case ctx.Err() != nil:
		case transport.IsRetryable(err):
			b.failure()
		default:
			b.success()
		}
		return resp, err
	})
}
