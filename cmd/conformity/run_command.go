package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iliassehm/conformity/internal/assignment"
	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/submission"
	"github.com/iliassehm/conformity/internal/wizard"
	"github.com/iliassehm/conformity/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-file>",
		Short: "Run the envelope wizard in-process for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := loadJob(args[0])
			if err != nil {
				return err
			}
			return ctx.withStack(cmd.Context(), func(cfg *config.Config, stack *worker.Stack) error {
				policy, err := wizard.ParseRetreatPolicy(cfg.Wizard.RetreatPolicy)
				if err != nil {
					return err
				}
				w, err := wizard.New(j.owner(), stack.Aggregator, stack.Normalizer, stack.Transaction,
					wizard.WithRetreatPolicy(policy),
					wizard.WithDefaultCategory(cfg.Sourcing.DefaultCategory),
					wizard.WithNotifier(printNotifier{out: cmd.ErrOrStderr()}),
					wizard.WithLogger(ctx.logger))
				if err != nil {
					return err
				}
				res, err := runJob(cmd.Context(), w, j)
				if err != nil {
					reportRunError(cmd.OutOrStdout(), err)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Envelope %s created with %d documents\n", res.Envelope.ID, len(res.Uploaded))
				return nil
			})
		},
	}
}

// runJob drives every wizard step with the job's answers.
func runJob(ctx context.Context, w *wizard.Wizard, j *job) (submission.Result, error) {
	if err := w.Advance(ctx, wizard.EnvelopeInput{Draft: j.draft()}); err != nil {
		return submission.Result{}, err
	}

	files, err := j.readUploads()
	if err != nil {
		return submission.Result{}, err
	}
	in := wizard.SourcingInput{
		Templates:       j.templates(),
		Ged:             j.ged(),
		DefaultCategory: j.DefaultCategory,
	}
	for _, f := range files {
		in.Uploads = append(in.Uploads, sourcing.Upload{FileName: f.name, Content: f.content})
	}
	if err := w.Advance(ctx, in); err != nil {
		var partial *wizard.PartialSourcingError
		if !errors.As(err, &partial) || !j.AcceptPartial {
			return submission.Result{}, err
		}
		if err := w.AcceptPartial(); err != nil {
			return submission.Result{}, err
		}
	}

	if err := w.Advance(ctx, wizard.NormalizationInput{}); err != nil {
		return submission.Result{}, err
	}

	var edits []assignment.Edit
	if j.SignByCustomer {
		for _, d := range w.Batch() {
			edits = append(edits, assignment.Edit{DocumentID: d.ID, Op: assignment.OpDigitalAction, DigitalAction: true})
		}
	}
	if err := w.Advance(ctx, wizard.AssignmentInput{Edits: edits}); err != nil {
		return submission.Result{}, err
	}

	settings, err := j.settings()
	if err != nil {
		return submission.Result{}, err
	}
	return w.Submit(ctx, settings)
}

// reportRunError explains failures the operator can act on.
func reportRunError(out io.Writer, err error) {
	var linkErr *domain.CampaignLinkError
	if errors.As(err, &linkErr) {
		fmt.Fprintf(out, "Envelope %s created but not linked to campaign %s\n",
			linkErr.Envelope.ID, linkErr.CampaignID)
	}
	var rejected *wizard.RejectedUploadsError
	if errors.As(err, &rejected) {
		for _, r := range rejected.Rejected {
			fmt.Fprintf(out, "Upload %s rejected: only pdf, docx and doc files are accepted\n", r.FileName)
		}
	}
}

type printNotifier struct{ out io.Writer }

func (n printNotifier) NotifyFailure(_ context.Context, step wizard.Step, err error) {
	fmt.Fprintf(n.out, "%s failed: %v\n", step, err)
}
