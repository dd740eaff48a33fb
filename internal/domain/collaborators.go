package domain

import "time"

// Payloads exchanged with the backoffice collaborators. They mirror the
// remote contracts and carry no behavior.

// TemplateRef selects a compliance template to instantiate.
type TemplateRef struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
}

// GedRef selects an existing document of the customer's GED.
type GedRef struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
}

// MaterializedDocument is one item returned by template or GED
// materialization. A nil pointer in a result slice marks a failed item.
type MaterializedDocument struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Category  string `json:"category"`
}

// FileDescriptor asks for one presigned upload target.
type FileDescriptor struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
}

// UploadTarget is a presigned PUT destination and the URL the stored
// object will be reachable at.
type UploadTarget struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Name      string `json:"name"`
}

// UploadedDocument records where a document binary landed.
type UploadedDocument struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	URL        string `json:"url"`
}

// EnvelopeDocument is the per-document metadata of an envelope creation.
type EnvelopeDocument struct {
	Name          string       `json:"name"`
	Extension     string       `json:"extension"`
	URL           string       `json:"url"`
	Category      string       `json:"category"`
	DigitalAction bool         `json:"digital_action"`
	SignerRoles   []SignerRole `json:"signer_roles,omitempty"`
}

// ReminderRequest is the resolved reminder sent with an envelope.
type ReminderRequest struct {
	Times        int `json:"times"`
	IntervalDays int `json:"interval_days"`
}

// NotificationRequest asks the backoffice to notify through one transport.
type NotificationRequest struct {
	Transport  Transport  `json:"transport"`
	DelayUntil *time.Time `json:"delay_until,omitempty"`
}

// EnvelopeRequest is the full createEnvelope payload.
type EnvelopeRequest struct {
	Name            string                `json:"name"`
	ExpirationDate  time.Time             `json:"expiration_date"`
	RepeatEveryDays *int                  `json:"repeat_every_days,omitempty"`
	Owner           Owner                 `json:"owner"`
	Documents       []EnvelopeDocument    `json:"documents"`
	Reminder        *ReminderRequest      `json:"reminder,omitempty"`
	Notifications   []NotificationRequest `json:"notifications"`
	IdempotencyKey  string                `json:"idempotency_key,omitempty"`
}
