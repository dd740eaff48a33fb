// Package events provides the domain event infrastructure of the envelope
// pipeline. It defines the Event wrapper with consistent metadata and the
// EventSink interface events are appended to.
package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the pipeline stages.
const (
	TypeDocumentsSourced    = "stage.sourced"
	TypeDocumentsNormalized = "stage.normalized"
	TypeEnvelopeCreated     = "envelope.created"
	TypeCampaignLinkFailed  = "envelope.campaign_link_failed"
	TypeCachesInvalidated   = "envelope.caches_invalidated"
)

// SchemaVersion is stamped on every event the pipeline emits.
const SchemaVersion = "1.0.0"

// Event wraps a stage payload with routing and deduplication metadata.
type Event struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing, e.g. "envelope.created".
	Type string `json:"type"`

	// Source is the emitting component, e.g. "submission".
	Source string `json:"source"`

	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey lets consumers drop duplicates caused by retries.
	IdempotencyKey string `json:"idempotency_key"`

	// CustomerID scopes the event to the customer the envelope targets.
	CustomerID string `json:"customer_id,omitempty"`

	// SessionID correlates every event of one wizard session or workflow run.
	SessionID string `json:"session_id"`

	Payload json.RawMessage `json:"payload"`
}

// EventSink receives events. Append should return quickly and treat
// duplicate idempotency keys as no-ops. Callers never fail their primary
// operation because a sink failed.
type EventSink interface {
	Append(ctx context.Context, event Event) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Event) error {
	return nil
}

// NewNoOpEventSink creates a sink for tests or disabled emission.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}

// New builds an event for sessionID. The idempotency key is derived from
// the session, the event type and discriminator so that a retried
// emission of the same fact produces the same key.
func New(eventType, source, sessionID, customerID, discriminator string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	sum := sha256.Sum256([]byte(sessionID + "|" + eventType + "|" + discriminator))
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		Source:         source,
		Version:        SchemaVersion,
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: hex.EncodeToString(sum[:]),
		CustomerID:     customerID,
		SessionID:      sessionID,
		Payload:        body,
	}, nil
}
