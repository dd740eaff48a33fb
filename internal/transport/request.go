// Package transport carries typed backoffice RPCs over GraphQL-on-HTTP
// through a composable middleware pipeline.
package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Operation names a backoffice RPC. It keys per-operation timeouts, rate
// limits and log records.
type Operation string

// Backoffice operations.
const (
	OpMaterializeTemplate Operation = "materializeFromTemplate"
	OpMaterializeGed      Operation = "materializeFromGed"
	OpConvertToPdf        Operation = "convertToPdf"
	OpIssueUploadTargets  Operation = "issueUploadTargets"
	OpCreateEnvelope      Operation = "createEnvelope"
	OpLinkCampaign        Operation = "linkCampaign"
	OpNotifyStatus        Operation = "notifyDocumentStatus"
	OpUploadDocument      Operation = "uploadDocument"
)

// Mutating reports whether op changes backoffice state. Mutations are
// only retried when they carry an idempotency key.
func (op Operation) Mutating() bool {
	switch op {
	case OpMaterializeTemplate, OpMaterializeGed, OpIssueUploadTargets:
		return false
	default:
		return true
	}
}

// Request is one GraphQL call.
type Request struct {
	Operation Operation      `json:"operation"`
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`

	// Control fields for resilience and observability.
	Timeout        time.Duration `json:"-"`
	IdempotencyKey string        `json:"-"`
	TraceID        string        `json:"-"`
}

// Response carries the raw "data" member of a GraphQL reply.
type Response struct {
	Data       json.RawMessage `json:"data"`
	StatusCode int             `json:"status_code"`
	LatencyMs  int64           `json:"latency_ms"`
}

// Decode unmarshals the field named field of the data object into v.
func (r *Response) Decode(field string, v any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &envelope); err != nil {
		return &ServiceError{Type: ErrorTypeInvalidResponse, Message: "decode data: " + err.Error()}
	}
	raw, ok := envelope[field]
	if !ok {
		return &ServiceError{Type: ErrorTypeInvalidResponse, Message: "missing field " + field}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ServiceError{Type: ErrorTypeInvalidResponse, Message: "decode " + field + ": " + err.Error()}
	}
	return nil
}

// IdempotencyKey derives a stable key from a scope (typically the
// session ID) and the parts that identify the mutation.
func IdempotencyKey(scope string, op Operation, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(op))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
