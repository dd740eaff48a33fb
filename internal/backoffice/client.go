// Package backoffice is the typed client of the wealth-management
// backoffice. Each method is one GraphQL operation sent through a
// transport.Handler, so retries, timeouts, rate limiting and logging are
// decided by the middleware chain the client is built with.
package backoffice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/transport"
)

// ErrMismatchedReply indicates the backoffice answered with a different
// number of items than were requested.
var ErrMismatchedReply = errors.New("backoffice reply does not match request")

// Client calls backoffice operations.
type Client struct {
	h transport.Handler
}

// New creates a Client over h.
func New(h transport.Handler) *Client {
	return &Client{h: h}
}

func (c *Client) call(ctx context.Context, req *transport.Request, field string, out any) error {
	resp, err := c.h.Handle(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(field, out)
}

type materializeInput struct {
	ID string `json:"id"`
}

// MaterializeFromTemplate instantiates templates for customerID. The
// result has one entry per template in request order; a nil entry means
// that template could not be produced.
func (c *Client) MaterializeFromTemplate(
	ctx context.Context, customerID string, templates []domain.TemplateRef,
) ([]*domain.MaterializedDocument, error) {
	in := make([]materializeInput, len(templates))
	for i, t := range templates {
		in[i] = materializeInput{ID: t.ID}
	}
	var out []*domain.MaterializedDocument
	err := c.call(ctx, &transport.Request{
		Operation: transport.OpMaterializeTemplate,
		Query:     materializeFromTemplateQuery,
		Variables: map[string]any{"customerId": customerID, "templates": in},
	}, string(transport.OpMaterializeTemplate), &out)
	if err != nil {
		return nil, err
	}
	if len(out) != len(templates) {
		return nil, fmt.Errorf("%w: %d templates, %d results", ErrMismatchedReply, len(templates), len(out))
	}
	return out, nil
}

// MaterializeFromGed exports GED documents for customerID with the same
// result contract as MaterializeFromTemplate.
func (c *Client) MaterializeFromGed(
	ctx context.Context, customerID string, docs []domain.GedRef,
) ([]*domain.MaterializedDocument, error) {
	in := make([]materializeInput, len(docs))
	for i, d := range docs {
		in[i] = materializeInput{ID: d.ID}
	}
	var out []*domain.MaterializedDocument
	err := c.call(ctx, &transport.Request{
		Operation: transport.OpMaterializeGed,
		Query:     materializeFromGedQuery,
		Variables: map[string]any{"customerId": customerID, "documents": in},
	}, string(transport.OpMaterializeGed), &out)
	if err != nil {
		return nil, err
	}
	if len(out) != len(docs) {
		return nil, fmt.Errorf("%w: %d documents, %d results", ErrMismatchedReply, len(docs), len(out))
	}
	return out, nil
}

// ConvertToPdf renders the document at sourceURL and returns the URL of
// the PDF.
func (c *Client) ConvertToPdf(ctx context.Context, sourceURL, name string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.call(ctx, &transport.Request{
		Operation:      transport.OpConvertToPdf,
		Query:          convertToPdfQuery,
		Variables:      map[string]any{"url": sourceURL, "name": name},
		IdempotencyKey: transport.IdempotencyKey(sourceURL, transport.OpConvertToPdf, name),
	}, string(transport.OpConvertToPdf), &out)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty pdf url for %q", ErrMismatchedReply, name)
	}
	return out.URL, nil
}

// IssueUploadTargets returns one presigned target per file, matched by
// name.
func (c *Client) IssueUploadTargets(ctx context.Context, files []domain.FileDescriptor) ([]domain.UploadTarget, error) {
	var out []domain.UploadTarget
	err := c.call(ctx, &transport.Request{
		Operation: transport.OpIssueUploadTargets,
		Query:     issueUploadTargetsQuery,
		Variables: map[string]any{"files": files},
	}, string(transport.OpIssueUploadTargets), &out)
	if err != nil {
		return nil, err
	}
	if len(out) != len(files) {
		return nil, fmt.Errorf("%w: %d files, %d targets", ErrMismatchedReply, len(files), len(out))
	}
	return out, nil
}

// CreateEnvelope creates the envelope record. req.IdempotencyKey is sent
// as a header so that a retried creation returns the first envelope.
func (c *Client) CreateEnvelope(ctx context.Context, req domain.EnvelopeRequest) (domain.EnvelopeRef, error) {
	var out domain.EnvelopeRef
	err := c.call(ctx, &transport.Request{
		Operation:      transport.OpCreateEnvelope,
		Query:          createEnvelopeQuery,
		Variables:      map[string]any{"input": req},
		IdempotencyKey: req.IdempotencyKey,
	}, string(transport.OpCreateEnvelope), &out)
	if err != nil {
		return domain.EnvelopeRef{}, err
	}
	if out.ID == "" {
		return domain.EnvelopeRef{}, fmt.Errorf("%w: envelope without id", ErrMismatchedReply)
	}
	return out, nil
}

// LinkCampaign attaches an existing envelope to a campaign. Linking twice
// is a no-op on the backoffice side.
func (c *Client) LinkCampaign(ctx context.Context, envelopeID, campaignID string) error {
	return c.call(ctx, &transport.Request{
		Operation:      transport.OpLinkCampaign,
		Query:          linkCampaignQuery,
		Variables:      map[string]any{"envelopeId": envelopeID, "campaignId": campaignID},
		IdempotencyKey: transport.IdempotencyKey(envelopeID, transport.OpLinkCampaign, campaignID),
	}, "", nil)
}

// NotifyDocumentStatus asks the backoffice to (re)notify the signatories
// of one document. All transport requests travel in a single call.
func (c *Client) NotifyDocumentStatus(ctx context.Context, documentID string, reqs []domain.NotificationRequest) error {
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = string(r.Transport)
		if r.DelayUntil != nil {
			parts[i] += "@" + r.DelayUntil.UTC().Format(time.RFC3339)
		}
	}
	return c.call(ctx, &transport.Request{
		Operation:      transport.OpNotifyStatus,
		Query:          notifyDocumentStatusQuery,
		Variables:      map[string]any{"documentId": documentID, "transports": reqs},
		IdempotencyKey: transport.IdempotencyKey(documentID, transport.OpNotifyStatus, parts...),
	}, "", nil)
}

// UploadDocument stores a blob and returns a durable URL for it.
func (c *Client) UploadDocument(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.call(ctx, &transport.Request{
		Operation: transport.OpUploadDocument,
		Query:     uploadDocumentQuery,
		Variables: map[string]any{
			"name":     name,
			"mimeType": mimeType,
			"content":  base64.StdEncoding.EncodeToString(content),
		},
	}, string(transport.OpUploadDocument), &out)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty url for %q", ErrMismatchedReply, name)
	}
	return out.URL, nil
}
