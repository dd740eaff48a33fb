package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeDraftValidate(t *testing.T) {
	exp := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	quarterly := RepeatQuarterly
	weekly := RepeatEvery(7)
	late := exp.Add(time.Hour)
	early := exp.Add(-time.Hour)
	campaign := "camp-1"

	tests := []struct {
		name    string
		draft   EnvelopeDraft
		wantErr bool
	}{
		{"minimal", EnvelopeDraft{Name: "KYC", ExpirationDate: exp}, false},
		{"full", EnvelopeDraft{Name: "KYC", ExpirationDate: exp, CampaignID: &campaign, DelayUntil: &early, RepeatEvery: &quarterly}, false},
		{"blank name", EnvelopeDraft{Name: "  ", ExpirationDate: exp}, true},
		{"no expiration", EnvelopeDraft{Name: "KYC"}, true},
		{"unknown repeat period", EnvelopeDraft{Name: "KYC", ExpirationDate: exp, RepeatEvery: &weekly}, true},
		{"delay past expiration", EnvelopeDraft{Name: "KYC", ExpirationDate: exp, DelayUntil: &late}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDraft)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHasCampaign(t *testing.T) {
	empty, id := "", "camp-1"
	assert.False(t, EnvelopeDraft{}.HasCampaign())
	assert.False(t, EnvelopeDraft{CampaignID: &empty}.HasCampaign())
	assert.True(t, EnvelopeDraft{CampaignID: &id}.HasCampaign())
}

func TestReminderPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  ReminderPolicy
		days    int
		wantErr bool
	}{
		{"two weeks", ReminderPolicy{Times: 1, Interval: 2, PeriodicityUnitDays: PeriodicityWeek}, 14, false},
		{"three weeks", ReminderPolicy{Times: 2, Interval: 3, PeriodicityUnitDays: PeriodicityWeek}, 21, false},
		{"monthly", ReminderPolicy{Times: 1, Interval: 1, PeriodicityUnitDays: PeriodicityMonth}, 30, false},
		{"zero times", ReminderPolicy{Times: 0, Interval: 1, PeriodicityUnitDays: PeriodicityDay}, 1, true},
		{"odd unit", ReminderPolicy{Times: 1, Interval: 1, PeriodicityUnitDays: 14}, 14, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.days, tt.policy.EffectiveIntervalDays())
			err := tt.policy.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidReminder)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTransportSet(t *testing.T) {
	var s TransportSet
	assert.Zero(t, s.Len())

	s = s.Add(TransportMail).Add(TransportMail).Add(TransportPush)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Transport{TransportPush, TransportMail}, s.Slice())

	s = s.Remove(TransportPush).Remove(TransportPush)
	assert.True(t, s.Has(TransportMail))
	assert.False(t, s.Has(TransportPush))
	assert.False(t, s.Has("sms"))
	assert.Equal(t, NewTransportSet(TransportMail), s)

	t.Run("json", func(t *testing.T) {
		b, err := json.Marshal(NewTransportSet(TransportMail, TransportPush))
		require.NoError(t, err)
		assert.JSONEq(t, `["push","mail"]`, string(b))

		var got TransportSet
		require.NoError(t, json.Unmarshal([]byte(`["mail","mail"]`), &got))
		assert.Equal(t, NewTransportSet(TransportMail), got)

		require.Error(t, json.Unmarshal([]byte(`["sms"]`), &got))
		require.Error(t, json.Unmarshal([]byte(`"mail"`), &got))

		b, err = json.Marshal(TransportSet{})
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(b))
	})
}

func TestOwnerValidation(t *testing.T) {
	require.NoError(t, ValidateStruct(Owner{CustomerID: "c"}))
	require.NoError(t, ValidateStruct(Owner{CompanyID: "co"}))
	require.Error(t, ValidateStruct(Owner{}))
}
