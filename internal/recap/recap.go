// Package recap resolves the reminder and notification settings of an
// envelope and assembles the createEnvelope payload. Nothing here does I/O
// except Notify.
package recap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliassehm/conformity/internal/domain"
)

// ErrNoTransport indicates a notification was requested without any transport.
var ErrNoTransport = errors.New("no notification transport selected")

// Settings is what the operator chose on the recap step.
type Settings struct {
	// Reminder is only honored when the batch has signatories.
	Reminder   *domain.ReminderPolicy `json:"reminder,omitempty"`
	Transports domain.TransportSet    `json:"transports"`
}

// Resolve returns s adjusted to batch: without signatories the reminder
// is cleared.
func Resolve(batch domain.Batch, s Settings) Settings {
	if !batch.HasSignatories() {
		s.Reminder = nil
	}
	if s.Reminder != nil {
		r := *s.Reminder
		s.Reminder = &r
	}
	return s
}

// Validate checks the draft and the settings that apply to batch.
func Validate(draft domain.EnvelopeDraft, batch domain.Batch, s Settings) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return fmt.Errorf("%w: envelope has no document", domain.ErrInvalidDraft)
	}
	if err := batch.Validate(); err != nil {
		return err
	}
	if r := Resolve(batch, s).Reminder; r != nil {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NotificationRequests builds one request per transport, each carrying
// the draft's delay.
func NotificationRequests(ts domain.TransportSet, delayUntil *time.Time) []domain.NotificationRequest {
	out := make([]domain.NotificationRequest, 0, ts.Len())
	for _, t := range ts.Slice() {
		req := domain.NotificationRequest{Transport: t}
		if delayUntil != nil {
			d := *delayUntil
			req.DelayUntil = &d
		}
		out = append(out, req)
	}
	return out
}

// EnvelopeRequest assembles the createEnvelope payload. Document URLs are
// left empty for the caller to fill once binaries are uploaded. The
// reminder interval is multiplied out here, at submission time.
func EnvelopeRequest(
	draft domain.EnvelopeDraft, owner domain.Owner, batch domain.Batch, s Settings,
) (domain.EnvelopeRequest, error) {
	if err := Validate(draft, batch, s); err != nil {
		return domain.EnvelopeRequest{}, err
	}
	if err := domain.ValidateStruct(owner); err != nil {
		return domain.EnvelopeRequest{}, fmt.Errorf("%w: owner: %w", domain.ErrInvalidDraft, err)
	}
	s = Resolve(batch, s)

	req := domain.EnvelopeRequest{
		Name:           draft.Name,
		ExpirationDate: draft.ExpirationDate,
		Owner:          owner,
		Documents:      make([]domain.EnvelopeDocument, len(batch)),
		Notifications:  NotificationRequests(s.Transports, draft.DelayUntil),
	}
	if draft.RepeatEvery != nil {
		days := int(*draft.RepeatEvery)
		req.RepeatEveryDays = &days
	}
	if s.Reminder != nil {
		req.Reminder = &domain.ReminderRequest{
			Times:        s.Reminder.Times,
			IntervalDays: s.Reminder.EffectiveIntervalDays(),
		}
	}
	for i, d := range batch {
		roles := make([]domain.SignerRole, len(d.Signers))
		for j, sg := range d.Signers {
			roles[j] = sg.Role
		}
		req.Documents[i] = domain.EnvelopeDocument{
			Name:          d.Name,
			Extension:     d.Extension,
			Category:      d.Category,
			DigitalAction: d.DigitalAction,
			SignerRoles:   roles,
		}
	}
	return req, nil
}

// Summary is the read-only recap shown before submission.
type Summary struct {
	Documents         int                `json:"documents"`
	Signed            int                `json:"signed"`
	HasSignatories    bool               `json:"has_signatories"`
	ReminderTimes     int                `json:"reminder_times,omitempty"`
	ReminderEveryDays int                `json:"reminder_every_days,omitempty"`
	RepeatEveryDays   int                `json:"repeat_every_days,omitempty"`
	Transports        []domain.Transport `json:"transports"`
	DelayUntil        *time.Time         `json:"delay_until,omitempty"`
}

// Summarize describes what submitting would send.
func Summarize(draft domain.EnvelopeDraft, batch domain.Batch, s Settings) Summary {
	s = Resolve(batch, s)
	sum := Summary{
		Documents:      len(batch),
		HasSignatories: batch.HasSignatories(),
		Transports:     s.Transports.Slice(),
		DelayUntil:     draft.DelayUntil,
	}
	for _, d := range batch {
		if d.HasSigners() {
			sum.Signed++
		}
	}
	if s.Reminder != nil {
		sum.ReminderTimes = s.Reminder.Times
		sum.ReminderEveryDays = s.Reminder.EffectiveIntervalDays()
	}
	if draft.RepeatEvery != nil {
		sum.RepeatEveryDays = int(*draft.RepeatEvery)
	}
	return sum
}

// StatusNotifier sends document status notifications.
type StatusNotifier interface {
	NotifyDocumentStatus(ctx context.Context, documentID string, reqs []domain.NotificationRequest) error
}

// Notify asks n to notify documentID through every transport of ts in one
// call.
func Notify(
	ctx context.Context, n StatusNotifier, documentID string, ts domain.TransportSet, delayUntil *time.Time,
) error {
	reqs := NotificationRequests(ts, delayUntil)
	if len(reqs) == 0 {
		return ErrNoTransport
	}
	if err := n.NotifyDocumentStatus(ctx, documentID, reqs); err != nil {
		return fmt.Errorf("notify document %s: %w", documentID, err)
	}
	return nil
}
