package assignment

import (
	"fmt"

	"github.com/iliassehm/conformity/internal/domain"
)

// Op names an Edit.
type Op string

// Edit operations.
const (
	OpDigitalAction Op = "digital_action"
	OpAddSigner     Op = "add_signer"
	OpRemoveSigner  Op = "remove_signer"
	OpCategory      Op = "category"
	OpRename        Op = "rename"
)

// Edit is one serializable operator change. Only the fields of Op are read.
type Edit struct {
	DocumentID string `json:"document_id" validate:"required"`
	Op         Op     `json:"op" validate:"oneof=digital_action add_signer remove_signer category rename"`

	DigitalAction bool           `json:"digital_action,omitempty"`
	Signer        *domain.Signer `json:"signer,omitempty" validate:"required_if=Op add_signer"`
	SignerIndex   int            `json:"signer_index,omitempty"`
	Category      string         `json:"category,omitempty"`
	Name          string         `json:"name,omitempty"`
}

// Apply runs edits in order. Either every edit applies and the result is
// a valid batch, or b is returned untouched with the first error.
func Apply(b domain.Batch, edits ...Edit) (domain.Batch, error) {
	out := b.Clone()
	for i, e := range edits {
		next, err := apply(out, e)
		if err != nil {
			return b, fmt.Errorf("edit %d (%s %s): %w", i, e.Op, e.DocumentID, err)
		}
		out = next
	}
	if err := out.Validate(); err != nil {
		return b, err
	}
	return out, nil
}

func apply(b domain.Batch, e Edit) (domain.Batch, error) {
	if err := domain.ValidateStruct(e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownEdit, err)
	}
	switch e.Op {
	case OpDigitalAction:
		return SetDigitalAction(b, e.DocumentID, e.DigitalAction)
	case OpAddSigner:
		return AddSigner(b, e.DocumentID, *e.Signer)
	case OpRemoveSigner:
		return RemoveSigner(b, e.DocumentID, e.SignerIndex)
	case OpCategory:
		return SetCategory(b, e.DocumentID, e.Category)
	case OpRename:
		return Rename(b, e.DocumentID, e.Name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEdit, e.Op)
	}
}
