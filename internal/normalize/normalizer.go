// Package normalize turns every document of a batch into a PDF.
//
// Word processor documents get their signature zone hidden, are exported,
// uploaded and converted remotely; the resulting PDF replaces their
// content. Documents are processed one at a time in batch order and the
// first failure aborts the whole stage: a batch is either fully
// normalized or left as it was.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliassehm/conformity/internal/domain"
)

// ErrStyleUnsupported is returned by editors that cannot restyle their
// format. The document is still converted, with its signature zone visible.
var ErrStyleUnsupported = errors.New("format does not support character styles")

// Editor is a per-document handle on an editable copy of the document.
type Editor interface {
	// ApplyCharacterStyle applies style to every run containing marker
	// and returns how many runs were restyled.
	ApplyCharacterStyle(style, marker string) (int, error)
	Export() ([]byte, error)
}

// EditorFactory opens an isolated Editor for one document.
type EditorFactory interface {
	Open(ctx context.Context, doc domain.Document) (Editor, error)
}

// EditorFactoryFunc adapts a function to EditorFactory.
type EditorFactoryFunc func(ctx context.Context, doc domain.Document) (Editor, error)

// Open implements EditorFactory.
func (f EditorFactoryFunc) Open(ctx context.Context, doc domain.Document) (Editor, error) {
	return f(ctx, doc)
}

// Uploader stores an exported document and returns a durable URL.
type Uploader interface {
	UploadDocument(ctx context.Context, name, mimeType string, content []byte) (string, error)
}

// Converter turns the document at sourceURL into a PDF and returns its URL.
type Converter interface {
	ConvertToPdf(ctx context.Context, sourceURL, name string) (string, error)
}

// Fetcher downloads a converted PDF.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ProgressFunc is called after each converted document.
type ProgressFunc func(ctx context.Context, doc domain.Document, done, total int)

// Default signature zone settings.
const (
	DefaultSignatureMarker = "{{signature}}"
	DefaultSignatureStyle  = "SignatureZone"
)

// Normalizer converts batches to PDF.
type Normalizer struct {
	editors   EditorFactory
	uploader  Uploader
	converter Converter
	fetcher   Fetcher

	marker   string
	style    string
	progress ProgressFunc
	logger   *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSignatureZone overrides the marker token and the style hiding it.
func WithSignatureZone(marker, style string) Option {
	return func(n *Normalizer) {
		if marker != "" {
			n.marker = marker
		}
		if style != "" {
			n.style = style
		}
	}
}

// WithProgress registers a callback invoked after each conversion.
func WithProgress(fn ProgressFunc) Option {
	return func(n *Normalizer) { n.progress = fn }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l.With("component", "normalize") }
}

// New creates a Normalizer.
func New(editors EditorFactory, uploader Uploader, converter Converter, fetcher Fetcher, opts ...Option) *Normalizer {
	n := &Normalizer{
		editors:   editors,
		uploader:  uploader,
		converter: converter,
		fetcher:   fetcher,
		marker:    DefaultSignatureMarker,
		style:     DefaultSignatureStyle,
		logger:    slog.Default().With("component", "normalize"),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Report describes a normalized batch.
type Report struct {
	Documents domain.Batch

	// Converted lists the file names of converted documents, as PDFs.
	Converted []string

	// SignatureVisible lists converted documents whose signature zone
	// could not be hidden.
	SignatureVisible []string
}

// Normalize returns a copy of batch where every document is a PDF. The
// input is never modified. An unsupported extension anywhere in the batch
// fails with *domain.UnsupportedFormatError before any document is
// touched; any later failure is a *domain.ConversionError.
func (n *Normalizer) Normalize(ctx context.Context, batch domain.Batch) (domain.Batch, error) {
	r, err := n.NormalizeWithReport(ctx, batch)
	if err != nil {
		return nil, err
	}
	return r.Documents, nil
}

// NormalizeWithReport is Normalize, also reporting what was converted.
func (n *Normalizer) NormalizeWithReport(ctx context.Context, batch domain.Batch) (Report, error) {
	pending := 0
	for _, d := range batch {
		switch {
		case d.IsPDF():
		case domain.NeedsConversion(d.Extension):
			pending++
		default:
			return Report{}, &domain.UnsupportedFormatError{DocumentID: d.ID, Name: d.Name, Extension: d.Extension}
		}
	}

	out := batch.Clone()
	if pending == 0 {
		return Report{Documents: out}, nil
	}

	var report Report
	done := 0
	for i := range out {
		if out[i].IsPDF() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		converted, visible, err := n.convert(ctx, out[i])
		if err != nil {
			n.logger.ErrorContext(ctx, "normalization aborted",
				"document", out[i].FileName(), "converted", done, "pending", pending, "error", err)
			return Report{}, err
		}
		out[i] = converted
		report.Converted = append(report.Converted, converted.FileName())
		if visible {
			report.SignatureVisible = append(report.SignatureVisible, converted.FileName())
		}
		done++
		n.logger.InfoContext(ctx, "document normalized", "document", converted.Name, "done", done, "total", pending)
		if n.progress != nil {
			n.progress(ctx, converted, done, pending)
		}
	}
	report.Documents = out
	return report, nil
}

// convert runs one document through conversion. visible reports that its
// signature zone could not be hidden.
func (n *Normalizer) convert(ctx context.Context, doc domain.Document) (_ domain.Document, visible bool, _ error) {
	fail := func(step domain.ConversionStep, err error) (domain.Document, bool, error) {
		return domain.Document{}, false, &domain.ConversionError{DocumentID: doc.ID, Name: doc.FileName(), Step: step, Cause: err}
	}

	editor, err := n.editors.Open(ctx, doc)
	if err != nil {
		return fail(domain.StepOpenEditor, err)
	}
	hidden, err := editor.ApplyCharacterStyle(n.style, n.marker)
	switch {
	case errors.Is(err, ErrStyleUnsupported):
		visible = true
		n.logger.WarnContext(ctx, "signature zone stays visible", "document", doc.FileName(), "reason", err)
	case err != nil:
		return fail(domain.StepApplyStyle, err)
	case hidden == 0:
		n.logger.DebugContext(ctx, "no signature zone found", "document", doc.FileName())
	}
	exported, err := editor.Export()
	if err != nil {
		return fail(domain.StepExport, err)
	}

	sourceURL, err := n.uploader.UploadDocument(ctx, doc.FileName(), mimeType(doc.Extension), exported)
	if err != nil {
		return fail(domain.StepUpload, err)
	}
	pdfURL, err := n.converter.ConvertToPdf(ctx, sourceURL, doc.Name+"."+domain.ExtPDF)
	if err != nil {
		return fail(domain.StepConvert, err)
	}
	pdf, err := n.fetcher.Fetch(ctx, pdfURL)
	if err != nil {
		return fail(domain.StepFetchPDF, err)
	}
	if len(pdf) == 0 {
		return fail(domain.StepFetchPDF, fmt.Errorf("empty pdf at %s", pdfURL))
	}

	doc.Content = pdf
	doc.ContentRef = domain.ArtifactRef{}
	doc.Extension = domain.ExtPDF
	return doc, visible, nil
}

func mimeType(ext string) string {
	switch ext {
	case domain.ExtDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case domain.ExtDOC:
		return "application/msword"
	default:
		return "application/octet-stream"
	}
}
