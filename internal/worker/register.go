package worker

import (
	sdkactivity "go.temporal.io/sdk/activity"

	"github.com/iliassehm/conformity/internal/normalize"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/submission"
	"github.com/iliassehm/conformity/internal/workflow"
	"github.com/iliassehm/conformity/pkg/activity"
)

// Registry is the part of a Temporal worker RegisterAll needs. Both
// worker.Worker and the SDK test environment satisfy it.
type Registry interface {
	RegisterWorkflow(w any)
	RegisterActivityWithOptions(a any, options sdkactivity.RegisterOptions)
}

// RegisterAll registers the envelope workflow and its activities under
// the names the workflow executes them by. Call it once before starting
// the worker.
func RegisterAll(r Registry, s *Stack) {
	base := activity.NewBaseActivities(s.Sink)

	sourcingActivities := sourcing.NewActivities(base, s.Aggregator, s.Artifacts)
	normalizeActivities := normalize.NewActivities(base, s.Normalizer, s.Artifacts)
	submissionActivities := submission.NewActivities(base, s.Transaction, s.Artifacts)

	r.RegisterWorkflow(workflow.EnvelopeCreationWorkflow)

	r.RegisterActivityWithOptions(sourcingActivities.SourceDocuments,
		sdkactivity.RegisterOptions{Name: workflow.ActivitySourceDocuments})
	r.RegisterActivityWithOptions(normalizeActivities.NormalizeDocuments,
		sdkactivity.RegisterOptions{Name: workflow.ActivityNormalizeDocuments})
	r.RegisterActivityWithOptions(submissionActivities.SubmitEnvelope,
		sdkactivity.RegisterOptions{Name: workflow.ActivitySubmitEnvelope})
}
