package wizard

import (
	"github.com/iliassehm/conformity/internal/assignment"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/sourcing"
)

// StepInput is the local form of one step. Each step accepts exactly one
// input type.
type StepInput interface {
	step() Step
}

// EnvelopeInput completes the envelope step.
type EnvelopeInput struct {
	Draft domain.EnvelopeDraft `json:"draft"`
}

// SourcingInput completes the sourcing step.
type SourcingInput struct {
	Templates       []domain.TemplateRef `json:"templates"`
	Ged             []domain.GedRef      `json:"ged"`
	Uploads         []sourcing.Upload    `json:"uploads"`
	DefaultCategory string               `json:"default_category"`
}

// NormalizationInput completes the normalization step. It carries
// nothing: the batch itself is the input.
type NormalizationInput struct{}

// AssignmentInput completes the assignment step.
type AssignmentInput struct {
	Edits []assignment.Edit `json:"edits"`
}

func (EnvelopeInput) step() Step      { return StepEnvelope }
func (SourcingInput) step() Step      { return StepSourcing }
func (NormalizationInput) step() Step { return StepNormalization }
func (AssignmentInput) step() Step    { return StepAssignment }
