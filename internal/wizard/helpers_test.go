package wizard_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/submission"
	"github.com/iliassehm/conformity/internal/wizard"
)

var expiration = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

func draft() domain.EnvelopeDraft {
	return domain.EnvelopeDraft{Name: "Annual review", ExpirationDate: expiration}
}

func newDoc(fileName string) domain.Document {
	return domain.NewDocument(domain.UploadedFrom(fileName), fileName, "kyc", []byte(fileName))
}

type fakeSourcer struct {
	calls   atomic.Int32
	result  sourcing.Result
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSourcer) Source(ctx context.Context, _ sourcing.Request) (sourcing.Result, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return sourcing.Result{
		Documents: f.result.Documents.Clone(),
		Errors:    f.result.Errors,
	}, f.err
}

// fakeNormalizer turns word documents into PDFs by renaming them.
type fakeNormalizer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeNormalizer) Normalize(_ context.Context, b domain.Batch) (domain.Batch, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := b.Clone()
	for i := range out {
		if !out[i].IsPDF() {
			out[i].Extension = domain.ExtPDF
			out[i].Content = []byte("%PDF:" + string(out[i].Content))
		}
	}
	return out, nil
}

type fakeSubmitter struct {
	requests []submission.Request
	result   submission.Result
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, req submission.Request) (submission.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type notification struct {
	step wizard.Step
	err  error
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) NotifyFailure(_ context.Context, step wizard.Step, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{step, err})
}

type countingLock struct {
	held     atomic.Int32
	acquired atomic.Int32
}

func (l *countingLock) Acquire() func() {
	l.acquired.Add(1)
	l.held.Add(1)
	return func() { l.held.Add(-1) }
}

func isDocx(d domain.Document) bool { return strings.EqualFold(d.Extension, domain.ExtDOCX) }
