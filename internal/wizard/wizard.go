// Package wizard coordinates the envelope creation steps.
//
// A Wizard owns the working batch and the envelope draft for one session.
// Stages receive copies and return new batches; the wizard is the only
// writer. Steps run strictly in order: Advance runs the current step and
// moves forward, Retreat moves back, Replay shows what a completed step
// produced without running anything, and Submit sends the envelope from
// the recap step.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/iliassehm/conformity/internal/assignment"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/recap"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/submission"
)

// Wizard errors.
var (
	ErrBusy            = errors.New("wizard is busy")
	ErrClosed          = errors.New("wizard is closed")
	ErrWrongStep       = errors.New("input does not belong to the current step")
	ErrFirstStep       = errors.New("already at the first step")
	ErrLastStep        = errors.New("recap is completed by submitting")
	ErrNotCompleted    = errors.New("step has not been completed")
	ErrNothingToDecide = errors.New("no partial sourcing result awaits a decision")
)

// Sourcer runs the sourcing stage.
type Sourcer interface {
	Source(ctx context.Context, req sourcing.Request) (sourcing.Result, error)
}

// Normalizer runs the normalization stage.
type Normalizer interface {
	Normalize(ctx context.Context, batch domain.Batch) (domain.Batch, error)
}

// Submitter runs the submission transaction.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (submission.Result, error)
}

// Notifier reports an all-or-nothing failure to the operator.
type Notifier interface {
	NotifyFailure(ctx context.Context, step Step, err error)
}

// ScrollLock freezes the operator's view while a stage runs.
type ScrollLock interface {
	Acquire() (release func())
}

// PartialSourcingError stops the wizard on the sourcing step until the
// operator calls AcceptPartial or AbortSourcing.
type PartialSourcingError struct {
	Errors    []domain.SourcingError
	Documents int
}

func (e *PartialSourcingError) Error() string {
	return fmt.Sprintf("%d of %d documents could not be retrieved", len(e.Errors), len(e.Errors)+e.Documents)
}

// RejectedUploadsError stops the wizard on the sourcing step when an
// upload has a disallowed extension. Nothing is sourced until the
// operator drops the rejected files and advances again.
type RejectedUploadsError struct {
	Rejected []*domain.UploadFormatError
}

func (e *RejectedUploadsError) Error() string {
	names := make([]string, len(e.Rejected))
	for i, r := range e.Rejected {
		names[i] = r.FileName
	}
	return fmt.Sprintf("%v: %s (allowed: pdf, docx, doc)", domain.ErrUploadFormat, strings.Join(names, ", "))
}

// Unwrap exposes every rejection to errors.Is and errors.As.
func (e *RejectedUploadsError) Unwrap() []error {
	errs := make([]error, len(e.Rejected))
	for i, r := range e.Rejected {
		errs[i] = r
	}
	return errs
}

// Snapshot is the state a completed step handed to the next one.
type Snapshot struct {
	Step  Step                 `json:"step"`
	Draft domain.EnvelopeDraft `json:"draft"`
	Batch domain.Batch         `json:"batch"`
}

// Wizard is the envelope creation state machine. Only one mutating call
// runs at a time; a call made while another is in flight fails with
// ErrBusy instead of queueing. Accessors must not race with mutating calls.
type Wizard struct {
	sourcer    Sourcer
	normalizer Normalizer
	submitter  Submitter

	owner           domain.Owner
	sessionID       string
	policy          RetreatPolicy
	defaultCategory string
	notifier        Notifier
	lock            ScrollLock
	logger          *slog.Logger

	busy   atomic.Bool
	closed bool

	step      Step
	initial   Step
	draft     domain.EnvelopeDraft
	batch     domain.Batch
	pending   *sourcing.Result
	snapshots map[Step]Snapshot
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithInitialStep starts the wizard at step with a pre-filled draft, as
// when an envelope is created from another flow.
func WithInitialStep(step Step, draft domain.EnvelopeDraft) Option {
	return func(w *Wizard) {
		w.step, w.initial, w.draft = step, step, draft
	}
}

// WithRetreatPolicy sets the backward navigation policy.
func WithRetreatPolicy(p RetreatPolicy) Option { return func(w *Wizard) { w.policy = p } }

// WithNotifier sets the failure notifier.
func WithNotifier(n Notifier) Option { return func(w *Wizard) { w.notifier = n } }

// WithScrollLock sets the lock held while stages run.
func WithScrollLock(l ScrollLock) Option { return func(w *Wizard) { w.lock = l } }

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option { return func(w *Wizard) { w.sessionID = id } }

// WithDefaultCategory sets the category of documents sourced without one.
func WithDefaultCategory(c string) Option { return func(w *Wizard) { w.defaultCategory = c } }

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Wizard) { w.logger = l.With("component", "wizard") }
}

// New creates a wizard for owner.
func New(owner domain.Owner, s Sourcer, n Normalizer, sub Submitter, opts ...Option) (*Wizard, error) {
	w := &Wizard{
		sourcer:    s,
		normalizer: n,
		submitter:  sub,
		owner:      owner,
		sessionID:  uuid.NewString(),
		notifier:   nopNotifier{},
		lock:       nopLock{},
		logger:     slog.Default().With("component", "wizard"),
		snapshots:  make(map[Step]Snapshot),
	}
	for _, o := range opts {
		o(w)
	}
	if err := domain.ValidateStruct(owner); err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}
	switch {
	case w.step < StepEnvelope || w.step > StepSourcing:
		return nil, fmt.Errorf("cannot start at %s", w.step)
	case w.step == StepSourcing:
		if err := w.draft.Validate(); err != nil {
			return nil, err
		}
		w.snapshots[StepEnvelope] = Snapshot{Step: StepEnvelope, Draft: w.draft}
	}
	return w, nil
}

// Step returns the current step.
func (w *Wizard) Step() Step { return w.step }

// SessionID identifies this wizard session.
func (w *Wizard) SessionID() string { return w.sessionID }

// Draft returns the envelope draft.
func (w *Wizard) Draft() domain.EnvelopeDraft { return w.draft }

// Batch returns a copy of the working batch.
func (w *Wizard) Batch() domain.Batch { return w.batch.Clone() }

// Pending returns the sourcing result awaiting a decision, if any.
func (w *Wizard) Pending() (sourcing.Result, bool) {
	if w.pending == nil {
		return sourcing.Result{}, false
	}
	r := *w.pending
	r.Documents = r.Documents.Clone()
	return r, true
}

// Closed reports whether the wizard was closed or submitted.
func (w *Wizard) Closed() bool { return w.closed }

func (w *Wizard) enter() error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	if w.closed {
		w.busy.Store(false)
		return ErrClosed
	}
	return nil
}

func (w *Wizard) leave() { w.busy.Store(false) }

// Advance completes the current step with in and moves to the next one.
// On failure the wizard stays where it is.
func (w *Wizard) Advance(ctx context.Context, in StepInput) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()

	if w.step == StepRecap {
		return ErrLastStep
	}
	if in == nil || in.step() != w.step {
		return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	if w.pending != nil {
		return &PartialSourcingError{Errors: w.pending.Errors, Documents: len(w.pending.Documents)}
	}

	switch in := in.(type) {
	case EnvelopeInput:
		if err := in.Draft.Validate(); err != nil {
			return err
		}
		w.draft = in.Draft
		w.complete()
		return nil

	case SourcingInput:
		return w.source(ctx, in)

	case NormalizationInput:
		release := w.lock.Acquire()
		defer release()
		out, err := w.normalizer.Normalize(ctx, w.batch)
		if err != nil {
			return w.fail(ctx, err)
		}
		w.batch = out
		w.complete()
		return nil

	case AssignmentInput:
		out, err := assignment.Apply(w.batch, in.Edits...)
		if err != nil {
			return err
		}
		w.batch = out
		w.complete()
		return nil
	}
	return fmt.Errorf("%w: %T", ErrWrongStep, in)
}

func (w *Wizard) source(ctx context.Context, in SourcingInput) error {
	if _, rejected := sourcing.ScreenUploads(in.Uploads); len(rejected) > 0 {
		w.logger.WarnContext(ctx, "uploads rejected", "session_id", w.sessionID, "rejected", len(rejected))
		for _, r := range rejected {
			w.notifier.NotifyFailure(ctx, w.step, r)
		}
		return &RejectedUploadsError{Rejected: rejected}
	}

	category := in.DefaultCategory
	if category == "" {
		category = w.defaultCategory
	}
	release := w.lock.Acquire()
	res, err := w.sourcer.Source(ctx, sourcing.Request{
		CustomerID:      w.customerID(),
		Templates:       in.Templates,
		Ged:             in.Ged,
		Uploads:         in.Uploads,
		DefaultCategory: category,
	})
	release()
	if err != nil {
		return w.fail(ctx, err)
	}
	if res.NeedsConfirmation() {
		w.pending = &res
		w.logger.InfoContext(ctx, "partial sourcing awaits a decision",
			"session_id", w.sessionID, "documents", len(res.Documents), "errors", len(res.Errors))
		return &PartialSourcingError{Errors: res.Errors, Documents: len(res.Documents)}
	}
	w.batch = res.Documents
	w.complete()
	return nil
}

// AcceptPartial proceeds with the documents that were sourced.
func (w *Wizard) AcceptPartial() error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()

	if w.pending == nil {
		return ErrNothingToDecide
	}
	w.batch = w.pending.Documents
	w.pending = nil
	w.complete()
	return nil
}

// AbortSourcing discards a partial sourcing result; the wizard stays on
// the sourcing step.
func (w *Wizard) AbortSourcing() error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()

	if w.pending == nil {
		return ErrNothingToDecide
	}
	w.pending = nil
	return nil
}

// Retreat moves one step back, never before the initial step. Going back
// from assignment applies the retreat policy.
func (w *Wizard) Retreat() error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.leave()

	if w.step == w.initial {
		return ErrFirstStep
	}
	from := w.step
	w.pending = nil
	w.step--
	if from == StepAssignment && w.policy == ResetToSourcingSnapshot {
		if snap, ok := w.snapshots[StepSourcing]; ok {
			w.batch = snap.Batch.Clone()
		}
	}
	w.logger.Debug("retreated", "session_id", w.sessionID, "from", from, "to", w.step)
	return nil
}

// Replay returns what step produced when it was completed. It never runs
// a stage and only reaches steps behind the current one.
func (w *Wizard) Replay(step Step) (Snapshot, error) {
	if step >= w.step {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotCompleted, step)
	}
	snap, ok := w.snapshots[step]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotCompleted, step)
	}
	snap.Batch = snap.Batch.Clone()
	return snap, nil
}

// Summary describes the envelope the recap step would submit.
func (w *Wizard) Summary(s recap.Settings) (recap.Summary, error) {
	if w.step != StepRecap {
		return recap.Summary{}, fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	return recap.Summarize(w.draft, w.batch, s), nil
}

// Submit sends the envelope. It is only valid on the recap step; a
// successful submission closes the wizard. A *domain.CampaignLinkError
// leaves the wizard open on recap: the envelope exists and the returned
// result names it.
func (w *Wizard) Submit(ctx context.Context, s recap.Settings) (submission.Result, error) {
	if err := w.enter(); err != nil {
		return submission.Result{}, err
	}
	defer w.leave()

	if w.step != StepRecap {
		return submission.Result{}, fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	if err := recap.Validate(w.draft, w.batch, s); err != nil {
		return submission.Result{}, err
	}

	release := w.lock.Acquire()
	res, err := w.submitter.Submit(ctx, submission.Request{
		SessionID: w.sessionID,
		Draft:     w.draft,
		Owner:     w.owner,
		Documents: w.batch.Clone(),
		Settings:  s,
	})
	release()
	if err != nil {
		return res, w.fail(ctx, err)
	}
	w.logger.InfoContext(ctx, "envelope submitted", "session_id", w.sessionID, "envelope_id", res.Envelope.ID)
	w.discard()
	return res, nil
}

// Close discards the working state. It is idempotent.
func (w *Wizard) Close() error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer w.leave()
	w.discard()
	return nil
}

func (w *Wizard) discard() {
	w.closed = true
	w.batch = nil
	w.pending = nil
	w.snapshots = make(map[Step]Snapshot)
}

// complete snapshots the current step and moves forward.
func (w *Wizard) complete() {
	w.snapshots[w.step] = Snapshot{Step: w.step, Draft: w.draft, Batch: w.batch.Clone()}
	w.step++
	w.logger.Debug("step completed", "session_id", w.sessionID, "next", w.step)
}

// fail notifies the operator once and returns err unchanged.
func (w *Wizard) fail(ctx context.Context, err error) error {
	w.logger.WarnContext(ctx, "step failed", "session_id", w.sessionID, "step", w.step, "error", err)
	w.notifier.NotifyFailure(ctx, w.step, err)
	return err
}

func (w *Wizard) customerID() string {
	if w.owner.CustomerID != "" {
		return w.owner.CustomerID
	}
	return w.owner.CompanyID
}

type nopNotifier struct{}

func (nopNotifier) NotifyFailure(context.Context, Step, error) {}

type nopLock struct{}

func (nopLock) Acquire() func() { return func() {} }
