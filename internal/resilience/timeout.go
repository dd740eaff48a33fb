package resilience

import (
	"context"
	"time"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/transport"
)

// Timeouts maps operations to their call budget.
type Timeouts map[transport.Operation]time.Duration

// TimeoutsFromConfig maps the configured budgets onto operations.
func TimeoutsFromConfig(c config.TimeoutConfig) Timeouts {
	return Timeouts{
		transport.OpMaterializeTemplate: c.Materialize.Std(),
		transport.OpMaterializeGed:      c.Materialize.Std(),
		transport.OpConvertToPdf:        c.Convert.Std(),
		transport.OpIssueUploadTargets:  c.IssueTargets.Std(),
		transport.OpUploadDocument:      c.Upload.Std(),
		transport.OpCreateEnvelope:      c.CreateEnvelope.Std(),
		transport.OpLinkCampaign:        c.LinkCampaign.Std(),
		transport.OpNotifyStatus:        c.Notify.Std(),
	}
}

// NewTimeoutMiddleware bounds each attempt. Request.Timeout wins over the
// per-operation default. It sits inside the retry middleware so every
// attempt gets a fresh budget.
func NewTimeoutMiddleware(timeouts Timeouts) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			d := req.Timeout
			if d <= 0 {
				d = timeouts[req.Operation]
			}
			if d <= 0 {
				return next.Handle(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Handle(ctx, req)
		})
	}
}
