// Package submission sends a finished envelope to the backoffice.
//
// It runs in two phases that are not atomic together. First every PDF is
// PUT to a presigned target; if any upload fails nothing else happens.
// Then the envelope record is created and, separately, linked to its
// campaign. A failed link leaves a created envelope behind and is
// reported as a *domain.CampaignLinkError carrying it.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
	"github.com/iliassehm/conformity/internal/transport"
)

// ErrNotNormalized indicates a document that is not a PDF reached submission.
var ErrNotNormalized = errors.New("document is not normalized")

// TargetIssuer hands out presigned upload targets for a whole batch.
type TargetIssuer interface {
	IssueUploadTargets(ctx context.Context, files []domain.FileDescriptor) ([]domain.UploadTarget, error)
}

// Putter uploads one binary to a presigned URL.
type Putter interface {
	Put(ctx context.Context, url, contentType string, body []byte) error
}

// EnvelopeService creates envelopes and links them to campaigns.
type EnvelopeService interface {
	CreateEnvelope(ctx context.Context, req domain.EnvelopeRequest) (domain.EnvelopeRef, error)
	LinkCampaign(ctx context.Context, envelopeID, campaignID string) error
}

// Invalidator drops read caches that list an owner's documents,
// envelopes and campaigns.
type Invalidator interface {
	Invalidate(ctx context.Context, owner domain.Owner) error
}

// Request is everything one submission needs.
type Request struct {
	// SessionID scopes the idempotency key of envelope creation: the same
	// session never creates two envelopes.
	SessionID string               `json:"session_id"`
	Draft     domain.EnvelopeDraft `json:"draft"`
	Owner     domain.Owner         `json:"owner"`
	Documents domain.Batch         `json:"documents"`
	Settings  recap.Settings       `json:"settings"`
}

// Result describes a submitted envelope.
type Result struct {
	Envelope          domain.EnvelopeRef        `json:"envelope"`
	Uploaded          []domain.UploadedDocument `json:"uploaded"`
	CampaignLinked    bool                      `json:"campaign_linked"`
	CachesInvalidated bool                      `json:"caches_invalidated"`
}

// Transaction submits envelopes.
type Transaction struct {
	targets     TargetIssuer
	putter      Putter
	envelopes   EnvelopeService
	invalidator Invalidator

	uploadConcurrency int
	logger            *slog.Logger
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithUploadConcurrency bounds parallel PUTs. Zero means unbounded.
func WithUploadConcurrency(n int) Option {
	return func(t *Transaction) { t.uploadConcurrency = n }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transaction) { t.logger = l.With("component", "submission") }
}

// New creates a Transaction. inv may be nil.
func New(targets TargetIssuer, putter Putter, envelopes EnvelopeService, inv Invalidator, opts ...Option) *Transaction {
	t := &Transaction{
		targets:     targets,
		putter:      putter,
		envelopes:   envelopes,
		invalidator: inv,
		logger:      slog.Default().With("component", "submission"),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Submit uploads every document, creates the envelope, links its campaign
// and invalidates the owner's caches. On a *domain.CampaignLinkError the
// returned Result still names the created envelope.
func (t *Transaction) Submit(ctx context.Context, req Request) (Result, error) {
	if req.SessionID == "" {
		return Result{}, fmt.Errorf("%w: session id is required", domain.ErrInvalidDraft)
	}
	payload, err := recap.EnvelopeRequest(req.Draft, req.Owner, req.Documents, req.Settings)
	if err != nil {
		return Result{}, err
	}
	for _, d := range req.Documents {
		if !d.IsPDF() {
			return Result{}, fmt.Errorf("%w: %q", ErrNotNormalized, d.FileName())
		}
	}

	uploaded, err := t.upload(ctx, req.Documents)
	if err != nil {
		t.logger.ErrorContext(ctx, "upload phase failed, no envelope created",
			"session_id", req.SessionID, "error", err)
		return Result{}, err
	}
	for i := range payload.Documents {
		payload.Documents[i].URL = uploaded[i].URL
	}
	payload.IdempotencyKey = transport.IdempotencyKey(req.SessionID, transport.OpCreateEnvelope, req.Draft.Name)

	envelope, err := t.envelopes.CreateEnvelope(ctx, payload)
	if err != nil {
		return Result{}, &domain.EnvelopeCreationError{Cause: err}
	}
	res := Result{Envelope: envelope, Uploaded: uploaded}
	t.logger.InfoContext(ctx, "envelope created",
		"session_id", req.SessionID, "envelope_id", envelope.ID, "documents", len(uploaded))

	if req.Draft.HasCampaign() {
		campaignID := *req.Draft.CampaignID
		if err := t.envelopes.LinkCampaign(ctx, envelope.ID, campaignID); err != nil {
			t.logger.ErrorContext(ctx, "envelope created without its campaign",
				"envelope_id", envelope.ID, "campaign_id", campaignID, "error", err)
			return res, &domain.CampaignLinkError{Envelope: envelope, CampaignID: campaignID, Cause: err}
		}
		res.CampaignLinked = true
	}

	if t.invalidator != nil {
		if err := t.invalidator.Invalidate(ctx, req.Owner); err != nil {
			t.logger.WarnContext(ctx, "cache invalidation failed", "envelope_id", envelope.ID, "error", err)
		} else {
			res.CachesInvalidated = true
		}
	}
	return res, nil
}

// upload issues one target request for the batch and PUTs every document
// in parallel. Results are in batch order.
func (t *Transaction) upload(ctx context.Context, batch domain.Batch) ([]domain.UploadedDocument, error) {
	files := make([]domain.FileDescriptor, len(batch))
	for i, d := range batch {
		if len(d.Content) == 0 {
			return nil, &domain.UploadError{DocumentName: d.FileName(), Cause: errors.New("no content")}
		}
		files[i] = domain.FileDescriptor{Name: d.FileName(), MIMEType: domain.MIMEPDF}
	}

	targets, err := t.targets.IssueUploadTargets(ctx, files)
	if err != nil {
		return nil, &domain.UploadError{Cause: fmt.Errorf("issue upload targets: %w", err)}
	}
	byName := make(map[string]domain.UploadTarget, len(targets))
	for _, tg := range targets {
		byName[tg.Name] = tg
	}

	out := make([]domain.UploadedDocument, len(batch))
	for i, d := range batch {
		tg, ok := byName[files[i].Name]
		if !ok {
			return nil, &domain.UploadError{DocumentName: files[i].Name, Cause: errors.New("no upload target issued")}
		}
		out[i] = domain.UploadedDocument{DocumentID: d.ID, FileName: files[i].Name, URL: tg.PublicURL}
	}

	g, gctx := errgroup.WithContext(ctx)
	if t.uploadConcurrency > 0 {
		g.SetLimit(t.uploadConcurrency)
	}
	for i, d := range batch {
		target := byName[files[i].Name]
		g.Go(func() error {
			if err := t.putter.Put(gctx, target.UploadURL, domain.MIMEPDF, d.Content); err != nil {
				return &domain.UploadError{DocumentName: files[i].Name, Cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
