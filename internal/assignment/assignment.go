// Package assignment holds the operator's per-document edits between
// normalization and recap: digital action, signers, category and name.
// Every function is pure and returns a new batch; the input is never
// modified.
package assignment

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iliassehm/conformity/internal/domain"
)

// Assignment errors.
var (
	ErrEmptyName     = errors.New("document name cannot be empty")
	ErrSignerIndex   = errors.New("signer index out of range")
	ErrUnknownEdit   = errors.New("unknown edit operation")
	ErrInvalidSigner = errors.New("invalid signer")
)

// SetDigitalAction switches signing on or off for a document. Switching
// it on for a document without signers adds the default customer signer;
// switching it off drops every signer.
func SetDigitalAction(b domain.Batch, id string, on bool) (domain.Batch, error) {
	return update(b, id, func(d *domain.Document) error {
		d.DigitalAction = on
		switch {
		case !on:
			d.Signers = nil
		case len(d.Signers) == 0:
			d.Signers = []domain.Signer{domain.DefaultSigner()}
		}
		return nil
	})
}

// AddSigner appends s to the document's signers and turns digital action on.
func AddSigner(b domain.Batch, id string, s domain.Signer) (domain.Batch, error) {
	if err := domain.ValidateStruct(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSigner, err)
	}
	return update(b, id, func(d *domain.Document) error {
		d.Signers = append(d.Signers, s)
		d.DigitalAction = true
		return nil
	})
}

// RemoveSigner removes the signer at index. Removing the last signer
// turns digital action off.
func RemoveSigner(b domain.Batch, id string, index int) (domain.Batch, error) {
	return update(b, id, func(d *domain.Document) error {
		if index < 0 || index >= len(d.Signers) {
			return fmt.Errorf("%w: %d of %d", ErrSignerIndex, index, len(d.Signers))
		}
		d.Signers = slices.Delete(d.Signers, index, index+1)
		if len(d.Signers) == 0 {
			d.Signers = nil
			d.DigitalAction = false
		}
		return nil
	})
}

// SetCategory sets the compliance category.
func SetCategory(b domain.Batch, id, category string) (domain.Batch, error) {
	return update(b, id, func(d *domain.Document) error {
		d.Category = strings.TrimSpace(category)
		return nil
	})
}

// Rename changes a document's display name. Names join documents to their
// upload targets, so a name already used by another document is refused.
func Rename(b domain.Batch, id, name string) (domain.Batch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	for _, d := range b {
		if d.ID != id && d.Name == name {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
		}
	}
	return update(b, id, func(d *domain.Document) error {
		d.Name = name
		return nil
	})
}

// SignAll turns digital action on for every document, adding signer where
// a document has none. Used when no operator reviews the batch.
func SignAll(b domain.Batch, signer domain.Signer) (domain.Batch, error) {
	out := b.Clone()
	for _, d := range b {
		if d.HasSigners() {
			continue
		}
		var err error
		if out, err = AddSigner(out, d.ID, signer); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func update(b domain.Batch, id string, fn func(*domain.Document) error) (domain.Batch, error) {
	i := b.Index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	out := b.Clone()
	if err := fn(&out[i]); err != nil {
		return nil, err
	}
	return out, nil
}
