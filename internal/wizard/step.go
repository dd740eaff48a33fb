package wizard

import "fmt"

// Step is a wizard state. Steps are ordered; the wizard only moves one
// step at a time.
type Step int

const (
	StepEnvelope Step = iota
	StepSourcing
	StepNormalization
	StepAssignment
	StepRecap
)

var stepNames = [...]string{"envelope", "sourcing", "normalization", "assignment", "recap"}

func (s Step) String() string {
	if s < StepEnvelope || s > StepRecap {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// RetreatPolicy decides what happens to normalized documents when the
// operator goes back from assignment to normalization.
type RetreatPolicy int

const (
	// PreserveNormalized keeps conversion output; advancing again is a
	// no-op conversion of an all-PDF batch.
	PreserveNormalized RetreatPolicy = iota

	// ResetToSourcingSnapshot restores the batch as it was when sourcing
	// completed, discarding conversion output.
	ResetToSourcingSnapshot
)

// ParseRetreatPolicy maps a configuration value to a policy.
func ParseRetreatPolicy(s string) (RetreatPolicy, error) {
	switch s {
	case "", "preserve_normalized":
		return PreserveNormalized, nil
	case "reset_to_sourcing":
		return ResetToSourcingSnapshot, nil
	default:
		return 0, fmt.Errorf("unknown retreat policy %q", s)
	}
}
