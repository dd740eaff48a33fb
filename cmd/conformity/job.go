package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
)

// job describes one envelope to create. It is read from a TOML or JSON
// file; upload paths are relative to the file.
type job struct {
	Owner    jobOwner    `toml:"owner" json:"owner"`
	Envelope jobEnvelope `toml:"envelope" json:"envelope"`

	Templates       []jobRef `toml:"templates" json:"templates"`
	Ged             []jobRef `toml:"ged" json:"ged"`
	Uploads         []string `toml:"uploads" json:"uploads"`
	DefaultCategory string   `toml:"default_category" json:"default_category"`

	Reminder   *jobReminder `toml:"reminder" json:"reminder"`
	Transports []string     `toml:"transports" json:"transports"`

	AcceptPartial  bool `toml:"accept_partial" json:"accept_partial"`
	SignByCustomer bool `toml:"sign_by_customer" json:"sign_by_customer"`

	dir string
}

type jobOwner struct {
	CustomerID string `toml:"customer_id" json:"customer_id"`
	CompanyID  string `toml:"company_id" json:"company_id"`
}

type jobEnvelope struct {
	Name            string     `toml:"name" json:"name"`
	ExpirationDate  time.Time  `toml:"expiration_date" json:"expiration_date"`
	CampaignID      string     `toml:"campaign_id" json:"campaign_id"`
	DelayUntil      *time.Time `toml:"delay_until" json:"delay_until"`
	RepeatEveryDays int        `toml:"repeat_every_days" json:"repeat_every_days"`
}

type jobRef struct {
	ID    string `toml:"id" json:"id"`
	Label string `toml:"label" json:"label"`
}

type jobReminder struct {
	Times    int `toml:"times" json:"times"`
	Interval int `toml:"interval" json:"interval"`
	UnitDays int `toml:"unit_days" json:"unit_days"`
}

func loadJob(path string) (*job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	j := &job{dir: filepath.Dir(path)}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, j)
	} else {
		err = toml.Unmarshal(data, j)
	}
	if err != nil {
		return nil, fmt.Errorf("parse job %s: %w", path, err)
	}
	return j, nil
}

func (j *job) owner() domain.Owner {
	return domain.Owner{CustomerID: j.Owner.CustomerID, CompanyID: j.Owner.CompanyID}
}

func (j *job) draft() domain.EnvelopeDraft {
	d := domain.EnvelopeDraft{
		Name:           j.Envelope.Name,
		ExpirationDate: j.Envelope.ExpirationDate,
		DelayUntil:     j.Envelope.DelayUntil,
	}
	if j.Envelope.CampaignID != "" {
		id := j.Envelope.CampaignID
		d.CampaignID = &id
	}
	if j.Envelope.RepeatEveryDays > 0 {
		r := domain.RepeatEvery(j.Envelope.RepeatEveryDays)
		d.RepeatEvery = &r
	}
	return d
}

func (j *job) templates() []domain.TemplateRef {
	out := make([]domain.TemplateRef, len(j.Templates))
	for i, r := range j.Templates {
		out[i] = domain.TemplateRef{ID: r.ID, Label: r.Label}
	}
	return out
}

func (j *job) ged() []domain.GedRef {
	out := make([]domain.GedRef, len(j.Ged))
	for i, r := range j.Ged {
		out[i] = domain.GedRef{ID: r.ID, Label: r.Label}
	}
	return out
}

func (j *job) settings() (recap.Settings, error) {
	ts, err := parseTransports(j.Transports)
	if err != nil {
		return recap.Settings{}, err
	}
	s := recap.Settings{Transports: ts}
	if j.Reminder != nil {
		s.Reminder = &domain.ReminderPolicy{
			Times:               j.Reminder.Times,
			Interval:            j.Reminder.Interval,
			PeriodicityUnitDays: domain.Periodicity(j.Reminder.UnitDays),
		}
	}
	return s, nil
}

// uploadFile is an upload read from disk.
type uploadFile struct {
	name    string
	content []byte
}

func (j *job) readUploads() ([]uploadFile, error) {
	var (
		out  []uploadFile
		errs []error
	)
	for _, p := range j.Uploads {
		if !filepath.IsAbs(p) {
			p = filepath.Join(j.dir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, uploadFile{name: filepath.Base(p), content: b})
	}
	return out, errors.Join(errs...)
}
