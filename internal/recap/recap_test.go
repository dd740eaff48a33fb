package recap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
)

var expiration = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

func draft() domain.EnvelopeDraft {
	return domain.EnvelopeDraft{Name: "Annual review", ExpirationDate: expiration}
}

func pdf(name string, signers ...domain.Signer) domain.Document {
	d := domain.NewDocument(domain.UploadedFrom(name+".pdf"), name+".pdf", "kyc", nil)
	if len(signers) > 0 {
		d.DigitalAction = true
		d.Signers = signers
	}
	return d
}

func TestEnvelopeRequest(t *testing.T) {
	owner := domain.Owner{CustomerID: "cust-1"}
	reminder := &domain.ReminderPolicy{Times: 2, Interval: 3, PeriodicityUnitDays: domain.PeriodicityWeek}

	t.Run("reminder interval is multiplied at submission", func(t *testing.T) {
		batch := domain.Batch{pdf("mandate", domain.DefaultSigner()), pdf("id")}
		s := recap.Settings{Reminder: reminder, Transports: domain.NewTransportSet(domain.TransportMail)}

		req, err := recap.EnvelopeRequest(draft(), owner, batch, s)
		require.NoError(t, err)
		require.NotNil(t, req.Reminder)
		assert.Equal(t, domain.ReminderRequest{Times: 2, IntervalDays: 21}, *req.Reminder)
		assert.Equal(t, 3, reminder.Interval, "policy is not stored pre-multiplied")

		require.Len(t, req.Documents, 2)
		assert.Equal(t, domain.EnvelopeDocument{
			Name: "mandate", Extension: "pdf", Category: "kyc",
			DigitalAction: true, SignerRoles: []domain.SignerRole{domain.SignerCustomer},
		}, req.Documents[0])
		assert.False(t, req.Documents[1].DigitalAction)
		assert.Equal(t, owner, req.Owner)
	})

	t.Run("no signatories sends no reminder", func(t *testing.T) {
		batch := domain.Batch{pdf("a"), pdf("b")}
		s := recap.Settings{Reminder: reminder}

		assert.False(t, batch.HasSignatories())
		assert.Nil(t, recap.Resolve(batch, s).Reminder)

		req, err := recap.EnvelopeRequest(draft(), owner, batch, s)
		require.NoError(t, err)
		assert.Nil(t, req.Reminder)
	})

	t.Run("invalid reminder is ignored without signatories", func(t *testing.T) {
		bad := recap.Settings{Reminder: &domain.ReminderPolicy{Times: 0, Interval: 1, PeriodicityUnitDays: 7}}

		_, err := recap.EnvelopeRequest(draft(), owner, domain.Batch{pdf("a")}, bad)
		require.NoError(t, err)

		_, err = recap.EnvelopeRequest(draft(), owner, domain.Batch{pdf("a", domain.DefaultSigner())}, bad)
		require.ErrorIs(t, err, domain.ErrInvalidReminder)
	})

	t.Run("repeat period is independent of reminders", func(t *testing.T) {
		d := draft()
		every := domain.RepeatQuarterly
		d.RepeatEvery = &every

		req, err := recap.EnvelopeRequest(d, owner, domain.Batch{pdf("a")}, recap.Settings{})
		require.NoError(t, err)
		require.NotNil(t, req.RepeatEveryDays)
		assert.Equal(t, 90, *req.RepeatEveryDays)
		assert.Nil(t, req.Reminder)
	})

	t.Run("one notification per transport", func(t *testing.T) {
		d := draft()
		delay := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
		d.DelayUntil = &delay
		s := recap.Settings{Transports: domain.NewTransportSet(domain.TransportMail, domain.TransportPush, domain.TransportMail)}

		req, err := recap.EnvelopeRequest(d, owner, domain.Batch{pdf("a")}, s)
		require.NoError(t, err)
		require.Len(t, req.Notifications, 2)
		assert.Equal(t, domain.TransportPush, req.Notifications[0].Transport)
		assert.Equal(t, domain.TransportMail, req.Notifications[1].Transport)
		for _, n := range req.Notifications {
			assert.Equal(t, delay, *n.DelayUntil)
		}
	})

	t.Run("rejects", func(t *testing.T) {
		_, err := recap.EnvelopeRequest(domain.EnvelopeDraft{ExpirationDate: expiration}, owner, domain.Batch{pdf("a")}, recap.Settings{})
		require.ErrorIs(t, err, domain.ErrInvalidDraft)

		_, err = recap.EnvelopeRequest(draft(), owner, nil, recap.Settings{})
		require.ErrorIs(t, err, domain.ErrInvalidDraft)

		_, err = recap.EnvelopeRequest(draft(), domain.Owner{}, domain.Batch{pdf("a")}, recap.Settings{})
		require.ErrorIs(t, err, domain.ErrInvalidDraft)

		_, err = recap.EnvelopeRequest(draft(), owner, domain.Batch{pdf("a"), pdf("a")}, recap.Settings{})
		require.ErrorIs(t, err, domain.ErrDuplicateName)
	})
}

func TestSummarize(t *testing.T) {
	batch := domain.Batch{pdf("a", domain.DefaultSigner()), pdf("b")}
	s := recap.Settings{
		Reminder:   &domain.ReminderPolicy{Times: 3, Interval: 1, PeriodicityUnitDays: domain.PeriodicityMonth},
		Transports: domain.NewTransportSet(domain.TransportPush),
	}

	sum := recap.Summarize(draft(), batch, s)
	assert.Equal(t, recap.Summary{
		Documents:         2,
		Signed:            1,
		HasSignatories:    true,
		ReminderTimes:     3,
		ReminderEveryDays: 30,
		Transports:        []domain.Transport{domain.TransportPush},
	}, sum)
}

type recordingNotifier struct {
	calls      int
	documentID string
	sent       []domain.NotificationRequest
	err        error
}

func (r *recordingNotifier) NotifyDocumentStatus(_ context.Context, documentID string, reqs []domain.NotificationRequest) error {
	r.calls++
	r.documentID = documentID
	r.sent = reqs
	return r.err
}

func TestNotify(t *testing.T) {
	ctx := context.Background()
	both := domain.NewTransportSet(domain.TransportPush, domain.TransportMail)
	at := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	n := &recordingNotifier{}
	require.NoError(t, recap.Notify(ctx, n, "doc-1", both, &at))
	assert.Equal(t, 1, n.calls, "one call carries every transport")
	assert.Equal(t, "doc-1", n.documentID)
	assert.Equal(t, []domain.NotificationRequest{
		{Transport: domain.TransportPush, DelayUntil: &at},
		{Transport: domain.TransportMail, DelayUntil: &at},
	}, n.sent)

	n = &recordingNotifier{err: errors.New("gateway down")}
	err := recap.Notify(ctx, n, "doc-1", both, nil)
	require.ErrorContains(t, err, "notify document doc-1")
	assert.Equal(t, 1, n.calls)

	n = &recordingNotifier{}
	require.ErrorIs(t, recap.Notify(ctx, n, "doc-1", domain.TransportSet{}, nil), recap.ErrNoTransport)
	assert.Zero(t, n.calls)
}
