// Package workflow implements the Temporal workflow that creates an
// envelope without an operator.
//
// The workflow runs the same stages as the interactive wizard: sourcing,
// normalization and submission, with assignment reduced to a fixed
// default. Document binaries never enter workflow history; activities
// exchange artifact references and load the bytes themselves.
//
// Workflows must stay deterministic: anything touching the network, the
// clock or randomness belongs in an activity.
package workflow
