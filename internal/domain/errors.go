package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks across stage boundaries.
var (
	// ErrInvalidDocument indicates a document violates a model invariant.
	ErrInvalidDocument = errors.New("invalid conformity document")

	// ErrInvalidDraft indicates the envelope draft is incomplete or malformed.
	ErrInvalidDraft = errors.New("invalid envelope draft")

	// ErrInvalidReminder indicates a reminder policy outside its allowed values.
	ErrInvalidReminder = errors.New("invalid reminder policy")

	// ErrDuplicateName indicates two documents of one batch share a name.
	// Names join documents across stages, so duplicates are rejected.
	ErrDuplicateName = errors.New("duplicate document name")

	// ErrDocumentNotFound indicates no document of the batch has the requested ID.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUploadFormat is the uniform rejection of an upload outside pdf, docx, doc.
	ErrUploadFormat = errors.New("upload format not allowed")

	// ErrUnsupportedFormat indicates a document cannot be normalized.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrConversion indicates normalization failed; the whole stage is aborted.
	ErrConversion = errors.New("document conversion failed")

	// ErrUpload indicates a presigned upload failed; no envelope was created.
	ErrUpload = errors.New("document upload failed")

	// ErrEnvelopeCreation indicates the envelope record could not be created.
	ErrEnvelopeCreation = errors.New("envelope creation failed")

	// ErrCampaignLink indicates the envelope exists but is not linked to its campaign.
	ErrCampaignLink = errors.New("campaign link failed")

	// ErrNoDocumentsProduced indicates sourcing yielded nothing usable.
	ErrNoDocumentsProduced = errors.New("no files produced")
)

// SourcingError reports one template or GED document that could not be
// materialized. It is aggregated, never raised on its own: the operator
// decides whether to proceed without the failed items.
type SourcingError struct {
	DocumentLabel string     `json:"document_label"`
	OriginKind    OriginKind `json:"origin_kind"`
}

func (e SourcingError) Error() string {
	return fmt.Sprintf("%s document %q could not be retrieved", e.OriginKind, e.DocumentLabel)
}

// UploadFormatError rejects an upload whose extension is not allowed.
type UploadFormatError struct {
	FileName  string
	Extension string
}

func (e *UploadFormatError) Error() string {
	return fmt.Sprintf("%v: %q (allowed: pdf, docx, doc)", ErrUploadFormat, e.FileName)
}

func (e *UploadFormatError) Unwrap() error { return ErrUploadFormat }

// UnsupportedFormatError is raised by normalization for an extension it
// cannot handle.
type UnsupportedFormatError struct {
	DocumentID string
	Name       string
	Extension  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%v: %q has extension %q", ErrUnsupportedFormat, e.Name, e.Extension)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// ConversionStep names the normalization step that failed.
type ConversionStep string

const (
	StepOpenEditor ConversionStep = "open_editor"
	StepApplyStyle ConversionStep = "apply_style"
	StepExport     ConversionStep = "export"
	StepUpload     ConversionStep = "upload"
	StepConvert    ConversionStep = "convert"
	StepFetchPDF   ConversionStep = "fetch_pdf"
)

// ConversionError aborts the whole normalization stage.
// Cause keeps the collaborator failure for errors.As traversal.
type ConversionError struct {
	DocumentID string
	Name       string
	Step       ConversionStep
	Cause      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%v: %q at %s: %v", ErrConversion, e.Name, e.Step, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// Is matches ErrConversion in addition to the wrapped cause.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// UploadError aborts submission before any envelope is created.
type UploadError struct {
	DocumentName string
	Cause        error
}

func (e *UploadError) Error() string {
	if e.DocumentName == "" {
		return fmt.Sprintf("%v: %v", ErrUpload, e.Cause)
	}
	return fmt.Sprintf("%v: %q: %v", ErrUpload, e.DocumentName, e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// EnvelopeCreationError wraps a failed createEnvelope call. Binaries are
// already uploaded at that point but nothing references them.
type EnvelopeCreationError struct {
	Cause error
}

func (e *EnvelopeCreationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrEnvelopeCreation, e.Cause)
}

func (e *EnvelopeCreationError) Unwrap() error { return e.Cause }

func (e *EnvelopeCreationError) Is(target error) bool { return target == ErrEnvelopeCreation }

// CampaignLinkError is a partial success: Envelope was created but could
// not be attached to CampaignID.
type CampaignLinkError struct {
	Envelope   EnvelopeRef
	CampaignID string
	Cause      error
}

func (e *CampaignLinkError) Error() string {
	return fmt.Sprintf("%v: envelope %s created but not linked to campaign %s: %v",
		ErrCampaignLink, e.Envelope.ID, e.CampaignID, e.Cause)
}

func (e *CampaignLinkError) Unwrap() error { return e.Cause }

func (e *CampaignLinkError) Is(target error) bool { return target == ErrCampaignLink }

// NoDocumentsProducedError aborts sourcing outright. Errors lists what
// failed, if anything was requested at all.
type NoDocumentsProducedError struct {
	Errors []SourcingError
}

func (e *NoDocumentsProducedError) Error() string {
	if len(e.Errors) == 0 {
		return ErrNoDocumentsProduced.Error() + ": nothing was selected"
	}
	labels := make([]string, len(e.Errors))
	for i, se := range e.Errors {
		labels[i] = se.DocumentLabel
	}
	return fmt.Sprintf("%v: all sources failed (%s)", ErrNoDocumentsProduced, strings.Join(labels, ", "))
}

func (e *NoDocumentsProducedError) Unwrap() error { return ErrNoDocumentsProduced }
