package submission

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
	"github.com/iliassehm/conformity/internal/transport"
	"github.com/iliassehm/conformity/pkg/activity"
	"github.com/iliassehm/conformity/pkg/events"
)

// Application error types returned by SubmitEnvelope.
const (
	ErrTypeInvalid          = "InvalidSubmission"
	ErrTypeUpload           = "UploadFailed"
	ErrTypeEnvelopeCreation = "EnvelopeCreationFailed"
	ErrTypeCampaignLink     = "CampaignLinkFailed"
	ErrTypeStorage          = "SubmissionStorage"
)

// SubmitInput carries normalized documents by reference.
type SubmitInput struct {
	Draft     domain.EnvelopeDraft `json:"draft"`
	Owner     domain.Owner         `json:"owner"`
	Documents domain.Batch         `json:"documents"`
	Settings  recap.Settings       `json:"settings"`
}

type envelopeEvent struct {
	Envelope   domain.EnvelopeRef `json:"envelope"`
	Documents  int                `json:"documents"`
	CampaignID string             `json:"campaign_id,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Activities exposes submission to Temporal workflows.
type Activities struct {
	activity.BaseActivities
	tx    *Transaction
	store artifact.Store
}

// NewActivities creates submission activities.
func NewActivities(base activity.BaseActivities, tx *Transaction, store artifact.Store) *Activities {
	return &Activities{BaseActivities: base, tx: tx, store: store}
}

// SubmitEnvelope hydrates the batch and submits it. The workflow ID is
// the idempotency scope, so a retried activity cannot create a second
// envelope. A campaign link failure is not retried; its error details
// hold the created domain.EnvelopeRef.
func (a *Activities) SubmitEnvelope(ctx context.Context, in SubmitInput) (*Result, error) {
	sc := a.Session(ctx)
	activity.SafeLog(ctx, "Starting SubmitEnvelope activity",
		"session_id", sc.SessionID,
		"documents", len(in.Documents),
		"attempt", sc.Attempt)

	batch, err := artifact.Hydrate(ctx, a.store, in.Documents)
	if err != nil {
		return nil, activity.Retryable(ErrTypeStorage, err, "failed to load documents")
	}

	res, err := a.tx.Submit(ctx, Request{
		SessionID: sc.SessionID,
		Draft:     in.Draft,
		Owner:     in.Owner,
		Documents: batch,
		Settings:  in.Settings,
	})
	customerID := in.Owner.CustomerID
	if err != nil {
		var linkErr *domain.CampaignLinkError
		if errors.As(err, &linkErr) {
			a.Emit(ctx, events.TypeCampaignLinkFailed, "submission", customerID, linkErr.Envelope.ID,
				envelopeEvent{Envelope: linkErr.Envelope, Documents: len(batch), CampaignID: linkErr.CampaignID, Error: linkErr.Cause.Error()})
			return nil, temporal.NewNonRetryableApplicationError(
				"envelope created but not linked to its campaign", ErrTypeCampaignLink, err, linkErr.Envelope)
		}
		return nil, classify(ctx, err)
	}

	ev := envelopeEvent{Envelope: res.Envelope, Documents: len(res.Uploaded)}
	if in.Draft.HasCampaign() {
		ev.CampaignID = *in.Draft.CampaignID
	}
	a.Emit(ctx, events.TypeEnvelopeCreated, "submission", customerID, res.Envelope.ID, ev)
	if res.CachesInvalidated {
		a.Emit(ctx, events.TypeCachesInvalidated, "submission", customerID, res.Envelope.ID, in.Owner)
	}
	return &res, nil
}

func classify(ctx context.Context, err error) error {
	retryable := ctx.Err() != nil || transport.IsRetryable(err)
	tag := ErrTypeInvalid
	switch {
	case errors.Is(err, domain.ErrUpload):
		tag = ErrTypeUpload
	case errors.Is(err, domain.ErrEnvelopeCreation):
		tag = ErrTypeEnvelopeCreation
	default:
		retryable = false
	}
	if retryable {
		return activity.Retryable(tag, err, "submission interrupted")
	}
	return activity.NonRetryable(tag, err, "submission failed")
}
