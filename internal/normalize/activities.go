package normalize

import (
	"context"
	"errors"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/transport"
	"github.com/iliassehm/conformity/pkg/activity"
	"github.com/iliassehm/conformity/pkg/events"
)

// Application error types returned by NormalizeDocuments.
const (
	ErrTypeInvalidDocuments  = "InvalidDocuments"
	ErrTypeUnsupportedFormat = "UnsupportedFormat"
	ErrTypeConversion        = "ConversionFailed"
	ErrTypeStorage           = "NormalizationStorage"
)

// NormalizeInput carries content-free documents.
type NormalizeInput struct {
	CustomerID string       `json:"customer_id"`
	Documents  domain.Batch `json:"documents"`
}

// NormalizeOutput carries the normalized documents by reference.
type NormalizeOutput struct {
	Documents        domain.Batch `json:"documents"`
	Converted        []string     `json:"converted,omitempty"`
	SignatureVisible []string     `json:"signature_visible,omitempty"`
}

type normalizedEvent struct {
	Documents        []string `json:"documents"`
	Converted        []string `json:"converted"`
	SignatureVisible []string `json:"signature_visible,omitempty"`
}

// Activities exposes normalization to Temporal workflows.
type Activities struct {
	activity.BaseActivities
	normalizer *Normalizer
	store      artifact.Store
}

// NewActivities creates normalization activities.
func NewActivities(base activity.BaseActivities, n *Normalizer, store artifact.Store) *Activities {
	return &Activities{BaseActivities: base, normalizer: n, store: store}
}

// NormalizeDocuments hydrates the batch, normalizes it and offloads the
// resulting PDFs.
func (a *Activities) NormalizeDocuments(ctx context.Context, in NormalizeInput) (*NormalizeOutput, error) {
	sc := a.Session(ctx)
	activity.SafeLog(ctx, "Starting NormalizeDocuments activity",
		"session_id", sc.SessionID,
		"documents", len(in.Documents))

	for _, d := range in.Documents {
		if err := d.Origin.Validate(); err != nil {
			return nil, activity.NonRetryable(ErrTypeInvalidDocuments, err, "invalid document provenance")
		}
	}

	batch, err := artifact.Hydrate(ctx, a.store, in.Documents)
	if err != nil {
		return nil, activity.Retryable(ErrTypeStorage, err, "failed to load documents")
	}

	report, err := a.normalizer.NormalizeWithReport(ctx, batch)
	if err != nil {
		var conv *domain.ConversionError
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			return nil, activity.NonRetryable(ErrTypeUnsupportedFormat, err, "document cannot be normalized")
		case errors.As(err, &conv) && transport.IsRetryable(conv.Cause):
			return nil, activity.Retryable(ErrTypeConversion, err, "conversion interrupted")
		case ctx.Err() != nil:
			return nil, activity.Retryable(ErrTypeConversion, err, "normalization cancelled")
		default:
			return nil, activity.NonRetryable(ErrTypeConversion, err, "normalization failed")
		}
	}

	docs, err := artifact.Offload(ctx, a.store, sc.SessionID, report.Documents, domain.ArtifactNormalized)
	if err != nil {
		return nil, activity.Retryable(ErrTypeStorage, err, "failed to store normalized documents")
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.FileName()
	}
	a.Emit(ctx, events.TypeDocumentsNormalized, "normalize", in.CustomerID, "",
		normalizedEvent{Documents: names, Converted: report.Converted, SignatureVisible: report.SignatureVisible})

	return &NormalizeOutput{
		Documents:        docs,
		Converted:        report.Converted,
		SignatureVisible: report.SignatureVisible,
	}, nil
}
