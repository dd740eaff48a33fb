// Package domain provides the core types of the conformity envelope pipeline.
// It defines conformity documents and their provenance, the envelope draft,
// reminder and notification policy, and the error taxonomy shared by every
// stage. Stages receive and return copies of these values; nothing here
// performs I/O.
package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// OriginKind tags where a conformity document came from.
// Using typed constants instead of raw strings keeps stage boundaries
// exhaustive and prevents typos from slipping past validation.
type OriginKind string

const (
	// OriginUpload marks a file the operator uploaded from disk.
	OriginUpload OriginKind = "upload"

	// OriginTemplate marks a document instantiated from a compliance template.
	OriginTemplate OriginKind = "template"

	// OriginGed marks a document materialized from the customer's GED repository.
	OriginGed OriginKind = "ged"
)

// Origin is the provenance of a document. Kind selects the variant and Ref
// carries the variant's identifier: the file name for uploads, the template
// ID for templates, and the GED document ID for GED references.
// Construct values with UploadedFrom, FromTemplate or FromGed.
type Origin struct {
	Kind  OriginKind `json:"kind"`
	Ref   string     `json:"ref"`
	Label string     `json:"label,omitempty"`
}

// UploadedFrom returns the origin of an operator upload.
func UploadedFrom(fileName string) Origin {
	return Origin{Kind: OriginUpload, Ref: fileName, Label: fileName}
}

// FromTemplate returns the origin of a template-instantiated document.
func FromTemplate(templateID, label string) Origin {
	return Origin{Kind: OriginTemplate, Ref: templateID, Label: label}
}

// FromGed returns the origin of a GED-materialized document.
func FromGed(gedID, label string) Origin {
	return Origin{Kind: OriginGed, Ref: gedID, Label: label}
}

// DisplayLabel returns the label shown to operators, falling back to Ref.
func (o Origin) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Ref
}

// Validate checks that o is one of the known variants and carries its
// identifier. Origins decoded from workflow payloads go through here.
func (o Origin) Validate() error {
	var ref string
	switch o.Kind {
	case OriginUpload:
		ref = "file name"
	case OriginTemplate:
		ref = "template ID"
	case OriginGed:
		ref = "GED document ID"
	default:
		return fmt.Errorf("%w: unknown origin kind %q", ErrInvalidDocument, o.Kind)
	}
	if strings.TrimSpace(o.Ref) == "" {
		return fmt.Errorf("%w: %s origin without %s", ErrInvalidDocument, o.Kind, ref)
	}
	return nil
}

// SignerRole identifies who signs a document.
type SignerRole string

const (
	// SignerManager is the wealth manager in charge of the customer.
	SignerManager SignerRole = "manager"

	// SignerCustomer is the customer the envelope is addressed to.
	SignerCustomer SignerRole = "customer"
)

// Signer is one entry of a document's ordered signer list.
type Signer struct {
	DisplayName string     `json:"display_name"`
	Role        SignerRole `json:"role" validate:"required,oneof=manager customer"`
}

// DefaultSigner is attached when digital action is switched on for a
// document that has no signer yet.
func DefaultSigner() Signer { return Signer{Role: SignerCustomer} }

// Document is a conformity document moving through the pipeline.
//
// Content is present once the document is sourced and is replaced, never
// appended, when the document is normalized. ContentRef points to the same
// bytes when they live in the artifact store instead of in memory.
type Document struct {
	// ID is stable for the lifetime of a wizard session and is the join key
	// across stages.
	ID string `json:"id" validate:"required"`

	Origin Origin `json:"origin"`

	Content    []byte      `json:"content,omitempty"`
	ContentRef ArtifactRef `json:"content_ref,omitzero"`

	// Name is unique within an envelope submission.
	Name string `json:"name" validate:"required"`

	// Extension is lowercase and always "pdf" after normalization.
	Extension string `json:"extension" validate:"required,lowercase"`

	Category string `json:"category"`

	// DigitalAction requires at least one signer when set.
	DigitalAction bool     `json:"digital_action"`
	Signers       []Signer `json:"signers,omitempty" validate:"dive"`
}

// NewDocument creates a document with a fresh stable ID.
func NewDocument(origin Origin, fileName, category string, content []byte) Document {
	name, ext := SplitFileName(fileName)
	return Document{
		ID:        uuid.NewString(),
		Origin:    origin,
		Content:   content,
		Name:      name,
		Extension: ext,
		Category:  category,
	}
}

// Validate checks struct constraints, the origin and the digital action
// invariant.
func (d Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	if err := d.Origin.Validate(); err != nil {
		return fmt.Errorf("document %q: %w", d.Name, err)
	}
	if d.DigitalAction && len(d.Signers) == 0 {
		return fmt.Errorf("%w: document %q has digital action without signers", ErrInvalidDocument, d.Name)
	}
	if !d.DigitalAction && len(d.Signers) > 0 {
		return fmt.Errorf("%w: document %q has signers without digital action", ErrInvalidDocument, d.Name)
	}
	return nil
}

// FileName joins name and extension.
func (d Document) FileName() string {
	if d.Extension == "" {
		return d.Name
	}
	return d.Name + "." + d.Extension
}

// IsPDF reports whether the document is already in its final format.
func (d Document) IsPDF() bool { return d.Extension == ExtPDF }

// HasSigners reports whether anyone must sign the document.
func (d Document) HasSigners() bool { return len(d.Signers) > 0 }

// Clone returns a deep copy so that no stage can alias another stage's buffers.
func (d Document) Clone() Document {
	c := d
	c.Content = slices.Clone(d.Content)
	c.Signers = slices.Clone(d.Signers)
	return c
}

// Supported document extensions.
const (
	ExtPDF  = "pdf"
	ExtDOCX = "docx"
	ExtDOC  = "doc"
)

// MIMEPDF is forced on every uploaded binary once documents are normalized.
const MIMEPDF = "application/pdf"

// IsSupportedExtension reports whether ext may enter the pipeline.
func IsSupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ExtPDF, ExtDOCX, ExtDOC:
		return true
	default:
		return false
	}
}

// NeedsConversion reports whether ext must go through PDF conversion.
func NeedsConversion(ext string) bool {
	switch strings.ToLower(ext) {
	case ExtDOCX, ExtDOC:
		return true
	default:
		return false
	}
}

// SplitFileName splits on the last dot: "report.v2.final.docx" yields
// ("report.v2.final", "docx"). The extension is lowercased. A name without
// a dot, or whose only dot is leading, has no extension.
func SplitFileName(fileName string) (name, ext string) {
	i := strings.LastIndexByte(fileName, '.')
	if i <= 0 {
		return fileName, ""
	}
	return fileName[:i], strings.ToLower(fileName[i+1:])
}
