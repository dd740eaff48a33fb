// Package sourcing gathers the documents of an envelope from three
// origins: compliance templates instantiated for the customer, documents
// selected from the customer's GED, and files uploaded by the operator.
//
// Template and GED failures are per document: they are collected next to
// the documents that succeeded and the operator decides whether to go on
// without them. Only an empty outcome is fatal.
package sourcing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/iliassehm/conformity/internal/domain"
)

// ErrUnaccounted reports a sourcing outcome that lost or duplicated a
// requested item.
var ErrUnaccounted = errors.New("sourcing result does not account for every requested item")

// Materializer produces template and GED documents. A nil entry in the
// result marks an item that could not be produced.
type Materializer interface {
	MaterializeFromTemplate(ctx context.Context, customerID string, templates []domain.TemplateRef) ([]*domain.MaterializedDocument, error)
	MaterializeFromGed(ctx context.Context, customerID string, docs []domain.GedRef) ([]*domain.MaterializedDocument, error)
}

// Fetcher downloads a materialized document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Upload is a file picked by the operator.
type Upload struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

// Request lists everything to source for one envelope.
type Request struct {
	CustomerID      string               `json:"customer_id" validate:"required"`
	Templates       []domain.TemplateRef `json:"templates" validate:"dive"`
	Ged             []domain.GedRef      `json:"ged" validate:"dive"`
	Uploads         []Upload             `json:"uploads"`
	DefaultCategory string               `json:"default_category"`
}

// Requested is the number of items sourcing answers for once uploads
// have been screened.
func (r Request) Requested(acceptedUploads int) int {
	return len(r.Templates) + len(r.Ged) + acceptedUploads
}

// Result is the outcome of sourcing. Every accepted item appears exactly
// once, either as a document or as an error.
type Result struct {
	Documents domain.Batch           `json:"documents"`
	Errors    []domain.SourcingError `json:"errors,omitempty"`

	// Rejected uploads never reach the network and are not part of the
	// count above.
	Rejected []*domain.UploadFormatError `json:"rejected,omitempty"`
}

// NeedsConfirmation reports whether the operator must accept or abort a
// partial result.
func (r Result) NeedsConfirmation() bool { return len(r.Errors) > 0 }

// accountsFor checks that every one of want items is either a document or
// an error.
func (r Result) accountsFor(want int) error {
	if got := len(r.Documents) + len(r.Errors); got != want {
		return fmt.Errorf("%w: %d items for %d requested", ErrUnaccounted, got, want)
	}
	return nil
}

// Aggregator runs sourcing.
type Aggregator struct {
	materializer     Materializer
	fetcher          Fetcher
	fetchConcurrency int
	logger           *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithFetchConcurrency bounds parallel binary downloads.
func WithFetchConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.fetchConcurrency = n
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l.With("component", "sourcing") }
}

// NewAggregator creates an Aggregator.
func NewAggregator(m Materializer, f Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		materializer:     m,
		fetcher:          f,
		fetchConcurrency: 4,
		logger:           slog.Default().With("component", "sourcing"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ScreenUploads splits uploads into accepted files and format rejections.
// Only pdf, docx and doc are accepted.
func ScreenUploads(uploads []Upload) (accepted []Upload, rejected []*domain.UploadFormatError) {
	for _, u := range uploads {
		if err := CheckUpload(u.FileName); err != nil {
			rejected = append(rejected, err)
			continue
		}
		accepted = append(accepted, u)
	}
	return accepted, rejected
}

// CheckUpload rejects a file name whose extension is not allowed. It is
// meant to run as soon as a file is picked.
func CheckUpload(fileName string) *domain.UploadFormatError {
	_, ext := domain.SplitFileName(fileName)
	if !domain.IsSupportedExtension(ext) {
		return &domain.UploadFormatError{FileName: fileName, Extension: ext}
	}
	return nil
}

// Source materializes and fetches everything req asks for. Rejected
// uploads are screened out before any network call. A result without any
// document is a *domain.NoDocumentsProducedError.
func (a *Aggregator) Source(ctx context.Context, req Request) (Result, error) {
	if err := domain.ValidateStruct(req); err != nil {
		return Result{}, fmt.Errorf("invalid sourcing request: %w", err)
	}
	accepted, rejected := ScreenUploads(req.Uploads)
	for _, r := range rejected {
		a.logger.InfoContext(ctx, "upload rejected", "file_name", r.FileName, "extension", r.Extension)
	}

	var templates, ged []outcome
	g, gctx := errgroup.WithContext(ctx)
	if len(req.Templates) > 0 {
		g.Go(func() error {
			var err error
			templates, err = a.materializeTemplates(gctx, req)
			return err
		})
	}
	if len(req.Ged) > 0 {
		g.Go(func() error {
			var err error
			ged, err = a.materializeGed(gctx, req)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	all := append(templates, ged...)
	if err := a.fetchAll(ctx, all); err != nil {
		return Result{}, err
	}

	res := Result{Rejected: rejected}
	names := newNameSet()
	for _, o := range all {
		if o.err != nil {
			res.Errors = append(res.Errors, *o.err)
			continue
		}
		o.doc.Name = names.claim(o.doc.Name)
		res.Documents = append(res.Documents, o.doc)
	}
	for _, u := range accepted {
		doc := domain.NewDocument(domain.UploadedFrom(u.FileName), u.FileName, req.DefaultCategory, u.Content)
		doc.Name = names.claim(doc.Name)
		res.Documents = append(res.Documents, doc)
	}

	if err := res.accountsFor(req.Requested(len(accepted))); err != nil {
		a.logger.ErrorContext(ctx, "sourcing result is inconsistent", "error", err)
		return Result{}, err
	}

	a.logger.InfoContext(ctx, "sourcing completed",
		"documents", len(res.Documents),
		"errors", len(res.Errors),
		"rejected", len(rejected))

	if len(res.Documents) == 0 {
		return res, &domain.NoDocumentsProducedError{Errors: res.Errors}
	}
	return res, nil
}

// outcome is one template or GED item on its way through sourcing.
type outcome struct {
	origin domain.Origin
	item   *domain.MaterializedDocument
	doc    domain.Document
	err    *domain.SourcingError
}

func (o *outcome) fail() {
	o.err = &domain.SourcingError{DocumentLabel: o.origin.DisplayLabel(), OriginKind: o.origin.Kind}
}

func (a *Aggregator) materializeTemplates(ctx context.Context, req Request) ([]outcome, error) {
	out := make([]outcome, len(req.Templates))
	for i, t := range req.Templates {
		out[i].origin = domain.FromTemplate(t.ID, t.Label)
	}
	items, err := a.materializer.MaterializeFromTemplate(ctx, req.CustomerID, req.Templates)
	return a.settle(ctx, out, items, err, req.DefaultCategory)
}

func (a *Aggregator) materializeGed(ctx context.Context, req Request) ([]outcome, error) {
	out := make([]outcome, len(req.Ged))
	for i, d := range req.Ged {
		out[i].origin = domain.FromGed(d.ID, d.Label)
	}
	items, err := a.materializer.MaterializeFromGed(ctx, req.CustomerID, req.Ged)
	return a.settle(ctx, out, items, err, req.DefaultCategory)
}

// settle pairs a batch reply with its requests. A failed batch call turns
// every item of the batch into an error; only cancellation of the parent
// context is fatal.
func (a *Aggregator) settle(
	ctx context.Context, out []outcome, items []*domain.MaterializedDocument, err error, defaultCategory string,
) ([]outcome, error) {
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.WarnContext(ctx, "materialization batch failed", "items", len(out), "error", err)
		for i := range out {
			out[i].fail()
		}
		return out, nil
	}
	for i := range out {
		if i >= len(items) || items[i] == nil {
			out[i].fail()
			continue
		}
		out[i].item = items[i]
		out[i].doc = documentFrom(out[i].origin, items[i], defaultCategory)
	}
	return out, nil
}

func documentFrom(origin domain.Origin, m *domain.MaterializedDocument, defaultCategory string) domain.Document {
	name, ext := m.Name, strings.ToLower(strings.TrimPrefix(m.Extension, "."))
	if ext == "" {
		name, ext = domain.SplitFileName(m.Name)
	} else if n, e := domain.SplitFileName(m.Name); e == ext {
		name = n
	}
	category := m.Category
	if category == "" {
		category = defaultCategory
	}
	doc := domain.NewDocument(origin, name, category, nil)
	doc.Name, doc.Extension = name, ext
	return doc
}

// fetchAll downloads every materialized item with bounded concurrency.
// A failed download becomes a SourcingError for that item.
func (a *Aggregator) fetchAll(ctx context.Context, all []outcome) error {
	var g errgroup.Group
	g.SetLimit(a.fetchConcurrency)
	for i := range all {
		if all[i].err != nil {
			continue
		}
		o := &all[i]
		g.Go(func() error {
			content, err := a.fetcher.Fetch(ctx, o.item.URL)
			if err != nil {
				a.logger.WarnContext(ctx, "document fetch failed",
					"origin", o.origin.Kind, "label", o.origin.DisplayLabel(), "error", err)
				o.fail()
				return nil
			}
			o.doc.Content = content
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
