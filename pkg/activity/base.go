// Package activity provides common infrastructure for the pipeline's
// Temporal activities: session context extraction, safe logging and
// best-effort event emission shared by every stage package.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/iliassehm/conformity/pkg/events"
)

// SessionContext identifies the run an activity belongs to. SessionID is
// the workflow ID, which is also the envelope creation idempotency scope.
type SessionContext struct {
	SessionID  string
	RunID      string
	ActivityID string
	Attempt    int32
}

type sessionKey struct{}

// WithSession attaches a session to ctx for code running outside a
// Temporal activity, such as the interactive wizard.
func WithSession(ctx context.Context, sc SessionContext) context.Context {
	return context.WithValue(ctx, sessionKey{}, sc)
}

// BaseActivities is embedded by every stage's Activities type.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a BaseActivities. sink may be nil.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// Session returns the session of ctx. Inside an activity it reads the
// workflow execution; otherwise it falls back to WithSession, then to a
// fixed test session.
func (b *BaseActivities) Session(ctx context.Context) SessionContext {
	return Session(ctx)
}

// Session is the package-level form of BaseActivities.Session.
func Session(ctx context.Context) SessionContext {
	if sc, ok := ctx.Value(sessionKey{}).(SessionContext); ok {
		return sc
	}

	sc := SessionContext{
		SessionID:  "00000000-0000-4000-8000-000000000000",
		RunID:      "local",
		ActivityID: "local",
	}
	func() {
		defer func() { _ = recover() }()
		info := activity.GetInfo(ctx)
		sc.SessionID = info.WorkflowExecution.ID
		sc.RunID = info.WorkflowExecution.RunID
		sc.ActivityID = info.ActivityID
		sc.Attempt = info.Attempt
	}()
	return sc
}

// EmitEventSafe appends event with one retry. Failures are logged, never
// returned.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, event events.Event, description string) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", event.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, event); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", event.Type,
			"idempotency_key", event.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", event.Type,
		"error", lastErr)
}

// Emit builds and emits an event for the current session. Build errors
// are logged like sink errors.
func (b *BaseActivities) Emit(ctx context.Context, eventType, source, customerID, discriminator string, payload any) {
	if b.eventSink == nil {
		return
	}
	sc := Session(ctx)
	ev, err := events.New(eventType, source, sc.SessionID, customerID, discriminator, payload)
	if err != nil {
		SafeLogError(ctx, "Failed to build event", "event_type", eventType, "error", err)
		return
	}
	b.EmitEventSafe(ctx, ev, eventType)
}

// RecordHeartbeat records a heartbeat; it is a no-op outside activities.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs through the activity logger and is silent outside an
// activity context.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat is safe to call outside activity contexts.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}

// NonRetryable wraps cause as a Temporal application error the server
// will not retry. tag becomes the error type callers match on.
func NonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// Retryable wraps cause as a Temporal application error subject to the
// activity retry policy.
func Retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
