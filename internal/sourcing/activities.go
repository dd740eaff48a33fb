package sourcing

import (
	"context"
	"errors"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/transport"
	"github.com/iliassehm/conformity/pkg/activity"
	"github.com/iliassehm/conformity/pkg/events"
)

// Application error types returned by SourceDocuments.
const (
	ErrTypeInvalidInput        = "InvalidSourcingInput"
	ErrTypeNoDocumentsProduced = "NoDocumentsProduced"
	ErrTypeSourcing            = "SourcingFailed"
)

// UploadRef is an operator upload already placed in the artifact store.
type UploadRef struct {
	FileName string             `json:"file_name"`
	Ref      domain.ArtifactRef `json:"ref"`
}

// SourceInput is the activity form of Request. Upload bytes travel by
// reference.
type SourceInput struct {
	CustomerID      string               `json:"customer_id"`
	Templates       []domain.TemplateRef `json:"templates"`
	Ged             []domain.GedRef      `json:"ged"`
	Uploads         []UploadRef          `json:"uploads"`
	DefaultCategory string               `json:"default_category"`
}

// SourceOutput carries content-free documents; binaries are in the
// artifact store.
type SourceOutput struct {
	Documents domain.Batch           `json:"documents"`
	Errors    []domain.SourcingError `json:"errors,omitempty"`
	Rejected  []string               `json:"rejected,omitempty"`
}

// sourcedEvent is the payload of events.TypeDocumentsSourced.
type sourcedEvent struct {
	Documents []string               `json:"documents"`
	Errors    []domain.SourcingError `json:"errors,omitempty"`
	Rejected  []string               `json:"rejected,omitempty"`
}

// Activities exposes sourcing to Temporal workflows.
type Activities struct {
	activity.BaseActivities
	aggregator *Aggregator
	store      artifact.Store
}

// NewActivities creates sourcing activities.
func NewActivities(base activity.BaseActivities, agg *Aggregator, store artifact.Store) *Activities {
	return &Activities{BaseActivities: base, aggregator: agg, store: store}
}

// SourceDocuments runs the aggregator and offloads every fetched binary.
// A partial result is returned as is; deciding whether to proceed belongs
// to the caller.
func (a *Activities) SourceDocuments(ctx context.Context, in SourceInput) (*SourceOutput, error) {
	sc := a.Session(ctx)
	activity.SafeLog(ctx, "Starting SourceDocuments activity",
		"session_id", sc.SessionID,
		"templates", len(in.Templates),
		"ged", len(in.Ged),
		"uploads", len(in.Uploads))

	req := Request{
		CustomerID:      in.CustomerID,
		Templates:       in.Templates,
		Ged:             in.Ged,
		DefaultCategory: in.DefaultCategory,
	}
	for _, u := range in.Uploads {
		content, err := a.store.Get(ctx, u.Ref)
		if err != nil {
			return nil, activity.NonRetryable(ErrTypeInvalidInput, err, "upload content unavailable")
		}
		req.Uploads = append(req.Uploads, Upload{FileName: u.FileName, Content: content})
	}

	res, err := a.aggregator.Source(ctx, req)
	if err != nil {
		var none *domain.NoDocumentsProducedError
		switch {
		case errors.As(err, &none):
			return nil, activity.NonRetryable(ErrTypeNoDocumentsProduced, err, "no document could be sourced")
		case ctx.Err() != nil, transport.IsRetryable(err):
			return nil, activity.Retryable(ErrTypeSourcing, err, "sourcing interrupted")
		default:
			return nil, activity.NonRetryable(ErrTypeInvalidInput, err, "sourcing rejected")
		}
	}

	docs, err := artifact.Offload(ctx, a.store, sc.SessionID, res.Documents, domain.ArtifactSourced)
	if err != nil {
		return nil, activity.Retryable(ErrTypeSourcing, err, "failed to store sourced documents")
	}

	out := &SourceOutput{Documents: docs, Errors: res.Errors}
	for _, r := range res.Rejected {
		out.Rejected = append(out.Rejected, r.FileName)
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.FileName()
	}
	a.Emit(ctx, events.TypeDocumentsSourced, "sourcing", in.CustomerID, "",
		sourcedEvent{Documents: names, Errors: res.Errors, Rejected: out.Rejected})

	return out, nil
}
