package domain

import (
	"fmt"
	"slices"
)

// Batch is the ordered document collection threaded through the stages.
// Documents are addressed by their stable ID; order is the display and
// processing order. Stage functions take a Batch and return a new one.
type Batch []Document

// Clone deep-copies every document.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	for i, d := range b {
		out[i] = d.Clone()
	}
	return out
}

// Index returns the position of the document with the given ID, or -1.
func (b Batch) Index(id string) int {
	return slices.IndexFunc(b, func(d Document) bool { return d.ID == id })
}

// Get returns a copy of the document with the given ID.
func (b Batch) Get(id string) (Document, error) {
	i := b.Index(id)
	if i < 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return b[i].Clone(), nil
}

// IDs returns document IDs in batch order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, d := range b {
		ids[i] = d.ID
	}
	return ids
}

// HasSignatories reports whether at least one document has signers.
func (b Batch) HasSignatories() bool {
	return slices.ContainsFunc(b, Document.HasSigners)
}

// AllPDF reports whether every document is already normalized.
func (b Batch) AllPDF() bool {
	return !slices.ContainsFunc(b, func(d Document) bool { return !d.IsPDF() })
}

// ValidateUniqueNames rejects batches where two documents share a name.
func (b Batch) ValidateUniqueNames() error {
	seen := make(map[string]struct{}, len(b))
	for _, d := range b {
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// Validate checks every document plus name uniqueness.
func (b Batch) Validate() error {
	for _, d := range b {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return b.ValidateUniqueNames()
}

// WithoutContent returns a copy whose documents carry only artifact
// references. Used before handing a batch to a workflow payload.
func (b Batch) WithoutContent() Batch {
	out := make(Batch, len(b))
	for i, d := range b {
		c := d
		c.Content = nil
		c.Signers = slices.Clone(d.Signers)
		out[i] = c
	}
	return out
}
