package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliassehm/conformity/internal/transport"
)

// NewLoggingMiddleware logs the outcome of each backoffice call. Variables
// are never logged: they carry customer data.
func NewLoggingMiddleware(logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "backoffice")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.TraceID == "" {
				req.TraceID = uuid.NewString()
			}
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.WarnContext(ctx, "backoffice call failed",
					"operation", req.Operation,
					"trace_id", req.TraceID,
					"elapsed", elapsed,
					"error_type", transport.ClassifyError(err),
					"error", err)
				return nil, err
			}
			logger.DebugContext(ctx, "backoffice call completed",
				"operation", req.Operation,
				"trace_id", req.TraceID,
				"elapsed", elapsed,
				"status", resp.StatusCode)
			return resp, nil
		})
	}
}
