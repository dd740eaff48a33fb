package domain

// ArtifactKind represents the type of binary stored in an artifact.
// Using typed constants instead of raw strings provides compile-time safety
// and prevents typos that could bypass validation.
type ArtifactKind string

const (
	// ArtifactSourced is a document binary as fetched during sourcing.
	ArtifactSourced ArtifactKind = "sourced"

	// ArtifactStyledExport is a word-processor export with the signature
	// zone hidden, awaiting conversion.
	ArtifactStyledExport ArtifactKind = "styled_export"

	// ArtifactNormalized is the final PDF binary.
	ArtifactNormalized ArtifactKind = "normalized"
)

// ArtifactRef references a binary kept in the artifact store.
// Workflow payloads carry references instead of document bytes so that
// history stays small.
type ArtifactRef struct {
	// Key is the storage key (e.g., "documents/<session>/<doc>/normalized.bin").
	// Can be empty when the ArtifactRef is not used (i.e., when IsZero() returns true).
	Key string `json:"key" validate:"required_with=Kind"`

	// Size is the size of the stored content in bytes.
	Size int64 `json:"size" validate:"min=0"`

	// Kind categorizes the stored binary.
	// Can be empty when the ArtifactRef is not used (i.e., when IsZero() returns true).
	Kind ArtifactKind `json:"kind" validate:"required_with=Key,omitempty,oneof=sourced styled_export normalized"`
}

// Validate checks if the artifact reference meets all requirements.
// Returns nil if valid, or a validation error describing the first constraint violation.
func (a ArtifactRef) Validate() error { return validate.Struct(a) }

// IsZero reports whether the artifact reference has no meaningful value set.
// encoding/json's omitzero relies on it.
func (a ArtifactRef) IsZero() bool { return a.Key == "" && a.Size == 0 && a.Kind == "" }
