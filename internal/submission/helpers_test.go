package submission_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
	"github.com/iliassehm/conformity/internal/submission"
)

type fakeIssuer struct {
	calls [][]domain.FileDescriptor
	skip  string
	err   error
}

func (f *fakeIssuer) IssueUploadTargets(_ context.Context, files []domain.FileDescriptor) ([]domain.UploadTarget, error) {
	f.calls = append(f.calls, files)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.UploadTarget
	// Reply in reverse order: callers must match by name.
	for i := len(files) - 1; i >= 0; i-- {
		if files[i].Name == f.skip {
			continue
		}
		out = append(out, domain.UploadTarget{
			UploadURL: "https://s3/put/" + files[i].Name + "?sig=1",
			PublicURL: "https://s3/get/" + files[i].Name,
			Name:      files[i].Name,
		})
	}
	return out, nil
}

type put struct {
	url, contentType string
	body             []byte
}

type fakePutter struct {
	mu     sync.Mutex
	puts   []put
	failOn string
}

var errPut = errors.New("put rejected")

func (f *fakePutter) Put(_ context.Context, url, contentType string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, put{url, contentType, body})
	if f.failOn != "" && strings.Contains(url, f.failOn) {
		return errPut
	}
	return nil
}

type fakeEnvelopes struct {
	created   []domain.EnvelopeRequest
	linked    [][2]string
	createErr error
	linkErr   error
}

func (f *fakeEnvelopes) CreateEnvelope(_ context.Context, req domain.EnvelopeRequest) (domain.EnvelopeRef, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return domain.EnvelopeRef{}, f.createErr
	}
	return domain.EnvelopeRef{ID: "env-42", Name: req.Name}, nil
}

func (f *fakeEnvelopes) LinkCampaign(_ context.Context, envelopeID, campaignID string) error {
	f.linked = append(f.linked, [2]string{envelopeID, campaignID})
	return f.linkErr
}

type fakeInvalidator struct {
	owners []domain.Owner
	err    error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, owner domain.Owner) error {
	f.owners = append(f.owners, owner)
	return f.err
}

type fixture struct {
	issuer      *fakeIssuer
	putter      *fakePutter
	envelopes   *fakeEnvelopes
	invalidator *fakeInvalidator
	tx          *submission.Transaction
}

func newFixture() *fixture {
	f := &fixture{
		issuer:      &fakeIssuer{},
		putter:      &fakePutter{},
		envelopes:   &fakeEnvelopes{},
		invalidator: &fakeInvalidator{},
	}
	f.tx = submission.New(f.issuer, f.putter, f.envelopes, f.invalidator, submission.WithUploadConcurrency(2))
	return f
}

func pdfDoc(name string) domain.Document {
	return domain.NewDocument(domain.UploadedFrom(name+".pdf"), name+".pdf", "kyc", []byte("%PDF-"+name))
}

func request(campaign string, docs ...domain.Document) submission.Request {
	d := domain.EnvelopeDraft{Name: "Annual review", ExpirationDate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)}
	if campaign != "" {
		d.CampaignID = &campaign
	}
	return submission.Request{
		SessionID: "sess-1",
		Draft:     d,
		Owner:     domain.Owner{CustomerID: "cust-1"},
		Documents: docs,
		Settings:  recap.Settings{Transports: domain.NewTransportSet(domain.TransportMail)},
	}
}
