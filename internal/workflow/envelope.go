package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/iliassehm/conformity/internal/assignment"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/normalize"
	"github.com/iliassehm/conformity/internal/recap"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/submission"
)

// Activity names as registered by the worker.
const (
	ActivitySourceDocuments    = "SourceDocuments"
	ActivityNormalizeDocuments = "NormalizeDocuments"
	ActivitySubmitEnvelope     = "SubmitEnvelope"
)

// Application error types raised by the workflow itself.
const (
	ErrTypeValidation      = "Validation"
	ErrTypePartialSourcing = "PartialSourcing"
)

// DefaultStageTimeout bounds each activity when the request sets none.
const DefaultStageTimeout = 10 * time.Minute

// EnvelopeRequest starts a headless envelope creation. It enters the
// pipeline at sourcing with a complete draft.
type EnvelopeRequest struct {
	Owner           domain.Owner         `json:"owner"`
	Draft           domain.EnvelopeDraft `json:"draft"`
	Templates       []domain.TemplateRef `json:"templates"`
	Ged             []domain.GedRef      `json:"ged"`
	Uploads         []sourcing.UploadRef `json:"uploads"`
	DefaultCategory string               `json:"default_category"`
	Settings        recap.Settings       `json:"settings"`

	// AcceptPartial proceeds when some templates or GED documents could
	// not be sourced; otherwise the workflow fails on the first one.
	AcceptPartial bool `json:"accept_partial"`

	// SignByCustomer asks the customer to sign every document.
	SignByCustomer bool `json:"sign_by_customer"`

	StageTimeout time.Duration `json:"stage_timeout,omitempty"`
}

// Validate checks the request before any activity runs.
func (r EnvelopeRequest) Validate() error {
	if err := r.Draft.Validate(); err != nil {
		return err
	}
	if err := domain.ValidateStruct(r.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if len(r.Templates)+len(r.Ged)+len(r.Uploads) == 0 {
		return errors.New("nothing to source")
	}
	if r.StageTimeout < 0 {
		return errors.New("stage timeout cannot be negative")
	}
	return nil
}

// EnvelopeResult summarizes a created envelope.
type EnvelopeResult struct {
	Envelope         domain.EnvelopeRef     `json:"envelope"`
	Documents        []string               `json:"documents"`
	SourcingErrors   []domain.SourcingError `json:"sourcing_errors,omitempty"`
	Rejected         []string               `json:"rejected,omitempty"`
	Converted        []string               `json:"converted,omitempty"`
	SignatureVisible []string               `json:"signature_visible,omitempty"`
	CampaignLinked   bool                   `json:"campaign_linked"`
}

// EnvelopeCreationWorkflow sources, normalizes and submits one envelope.
// The workflow ID scopes envelope creation idempotency.
func EnvelopeCreationWorkflow(ctx workflow.Context, req EnvelopeRequest) (*EnvelopeResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "envelope.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid envelope request", ErrTypeValidation, err)
	}

	timeout := req.StageTimeout
	if timeout == 0 {
		timeout = DefaultStageTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})
	logger := workflow.GetLogger(ctx)

	var sourced sourcing.SourceOutput
	if err := workflow.ExecuteActivity(ctx, ActivitySourceDocuments, sourcing.SourceInput{
		CustomerID:      customerID(req.Owner),
		Templates:       req.Templates,
		Ged:             req.Ged,
		Uploads:         req.Uploads,
		DefaultCategory: req.DefaultCategory,
	}).Get(ctx, &sourced); err != nil {
		return nil, err
	}
	if len(sourced.Errors) > 0 {
		if !req.AcceptPartial {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("could not source %s", labels(sourced.Errors)), ErrTypePartialSourcing, nil, sourced.Errors)
		}
		logger.Warn("Proceeding with partial sourcing", "failed", len(sourced.Errors), "documents", len(sourced.Documents))
	}

	var normalized normalize.NormalizeOutput
	if err := workflow.ExecuteActivity(ctx, ActivityNormalizeDocuments, normalize.NormalizeInput{
		CustomerID: customerID(req.Owner),
		Documents:  sourced.Documents,
	}).Get(ctx, &normalized); err != nil {
		return nil, err
	}

	batch := normalized.Documents
	if req.SignByCustomer {
		signed, err := assignment.SignAll(batch, domain.DefaultSigner())
		if err != nil {
			return nil, temporal.NewNonRetryableApplicationError("default assignment failed", ErrTypeValidation, err)
		}
		batch = signed
	}

	var submitted submission.Result
	if err := workflow.ExecuteActivity(ctx, ActivitySubmitEnvelope, submission.SubmitInput{
		Draft:     req.Draft,
		Owner:     req.Owner,
		Documents: batch,
		Settings:  req.Settings,
	}).Get(ctx, &submitted); err != nil {
		return nil, err
	}

	res := &EnvelopeResult{
		Envelope:         submitted.Envelope,
		SourcingErrors:   sourced.Errors,
		Rejected:         sourced.Rejected,
		Converted:        normalized.Converted,
		SignatureVisible: normalized.SignatureVisible,
		CampaignLinked:   submitted.CampaignLinked,
	}
	for _, d := range batch {
		res.Documents = append(res.Documents, d.FileName())
	}
	logger.Info("Envelope created", "envelope_id", res.Envelope.ID, "documents", len(res.Documents))
	return res, nil
}

func customerID(o domain.Owner) string {
	if o.CustomerID != "" {
		return o.CustomerID
	}
	return o.CompanyID
}

func labels(errs []domain.SourcingError) string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.DocumentLabel
	}
	return strings.Join(out, ", ")
}
