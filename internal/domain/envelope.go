package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// EnvelopeDraft is owned by the wizard until submission and is not
// modified afterward.
type EnvelopeDraft struct {
	Name           string     `json:"name" validate:"required"`
	ExpirationDate time.Time  `json:"expiration_date" validate:"required"`
	CampaignID     *string    `json:"campaign_id,omitempty"`
	DelayUntil     *time.Time `json:"delay_until,omitempty"`

	// RepeatEvery is a re-issue period, unrelated to reminders.
	RepeatEvery *RepeatEvery `json:"repeat_every,omitempty"`
}

// Validate checks required fields and the repeat period.
func (d EnvelopeDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDraft)
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if d.RepeatEvery != nil && !d.RepeatEvery.Valid() {
		return fmt.Errorf("%w: repeat period %d days", ErrInvalidDraft, *d.RepeatEvery)
	}
	if d.DelayUntil != nil && d.DelayUntil.After(d.ExpirationDate) {
		return fmt.Errorf("%w: notifications delayed past expiration", ErrInvalidDraft)
	}
	return nil
}

// HasCampaign reports whether submission must link a campaign.
func (d EnvelopeDraft) HasCampaign() bool { return d.CampaignID != nil && *d.CampaignID != "" }

// RepeatEvery is the re-issue period in days.
type RepeatEvery int

const (
	RepeatMonthly    RepeatEvery = 30
	RepeatQuarterly  RepeatEvery = 90
	RepeatBiannually RepeatEvery = 180
	RepeatYearly     RepeatEvery = 365
)

// Valid reports whether r is one of the allowed periods.
func (r RepeatEvery) Valid() bool {
	switch r {
	case RepeatMonthly, RepeatQuarterly, RepeatBiannually, RepeatYearly:
		return true
	default:
		return false
	}
}

// Periodicity is the unit of a reminder interval, in days.
type Periodicity int

const (
	PeriodicityDay   Periodicity = 1
	PeriodicityWeek  Periodicity = 7
	PeriodicityMonth Periodicity = 30
	PeriodicityYear  Periodicity = 365
)

// ReminderPolicy re-notifies unsigned documents. It only means something
// when the batch has signatories.
type ReminderPolicy struct {
	Times               int         `json:"times" validate:"gt=0"`
	Interval            int         `json:"interval" validate:"gt=0"`
	PeriodicityUnitDays Periodicity `json:"periodicity_unit_days" validate:"oneof=1 7 30 365"`
}

// Validate checks the policy bounds.
func (r ReminderPolicy) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReminder, err)
	}
	return nil
}

// EffectiveIntervalDays is Interval * PeriodicityUnitDays. It is computed
// when the envelope is submitted and never stored pre-multiplied.
func (r ReminderPolicy) EffectiveIntervalDays() int {
	return r.Interval * int(r.PeriodicityUnitDays)
}

// Transport is a notification channel.
type Transport string

const (
	TransportPush Transport = "push"
	TransportMail Transport = "mail"
)

// transportOrder fixes iteration order of a TransportSet.
var transportOrder = []Transport{TransportPush, TransportMail}

// TransportSet is a set of notification transports. The zero value is an
// empty set ready to use; Add and Remove are idempotent.
type TransportSet struct {
	push, mail bool
}

// NewTransportSet builds a set from ts, ignoring duplicates.
func NewTransportSet(ts ...Transport) TransportSet {
	var s TransportSet
	for _, t := range ts {
		s = s.Add(t)
	}
	return s
}

// Add returns s with t included.
func (s TransportSet) Add(t Transport) TransportSet {
	switch t {
	case TransportPush:
		s.push = true
	case TransportMail:
		s.mail = true
	}
	return s
}

// Remove returns s without t.
func (s TransportSet) Remove(t Transport) TransportSet {
	switch t {
	case TransportPush:
		s.push = false
	case TransportMail:
		s.mail = false
	}
	return s
}

// Has reports membership.
func (s TransportSet) Has(t Transport) bool {
	switch t {
	case TransportPush:
		return s.push
	case TransportMail:
		return s.mail
	default:
		return false
	}
}

// Len returns the number of transports in the set.
func (s TransportSet) Len() int { return len(s.Slice()) }

// Slice lists members in a fixed order (push, mail).
func (s TransportSet) Slice() []Transport {
	out := make([]Transport, 0, len(transportOrder))
	for _, t := range transportOrder {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// MarshalJSON encodes the set as an ordered list.
func (s TransportSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Slice()) }

// UnmarshalJSON decodes a list, rejecting unknown transports.
func (s *TransportSet) UnmarshalJSON(data []byte) error {
	var ts []Transport
	if err := json.Unmarshal(data, &ts); err != nil {
		return err
	}
	var out TransportSet
	for _, t := range ts {
		if !slices.Contains(transportOrder, t) {
			return fmt.Errorf("unknown transport %q", t)
		}
		out = out.Add(t)
	}
	*s = out
	return nil
}

// Owner identifies whose read caches an envelope touches.
type Owner struct {
	CustomerID string `json:"customer_id,omitempty"`
	CompanyID  string `json:"company_id,omitempty" validate:"required_without=CustomerID"`
}

// EnvelopeRef is what the backoffice returns for a created or linked envelope.
type EnvelopeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
