package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/sourcing"
	"github.com/iliassehm/conformity/internal/worker"
	"github.com/iliassehm/conformity/internal/workflow"
)

var errUploadsNeedSharedStorage = errors.New("uploads need storage.mode = \"s3\" so the worker can read them")

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "submit <job-file>",
		Short: "Start a headless envelope creation workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := loadJob(args[0])
			if err != nil {
				return err
			}
			return ctx.withStack(cmd.Context(), func(cfg *config.Config, stack *worker.Stack) error {
				if len(j.Uploads) > 0 && cfg.Storage.Mode != config.StorageS3 {
					return errUploadsNeedSharedStorage
				}

				workflowID := "envelope-" + uuid.NewString()
				req, err := buildEnvelopeRequest(cmd, j, workflowID, stack)
				if err != nil {
					return err
				}

				c, err := dialTemporal(ctx, cfg)
				if err != nil {
					return err
				}
				defer c.Close()

				run, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
					ID:        workflowID,
					TaskQueue: cfg.Temporal.TaskQueue,
				}, workflow.EnvelopeCreationWorkflow, req)
				if err != nil {
					return fmt.Errorf("start workflow: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Workflow: %s (run %s)\n", run.GetID(), run.GetRunID())
				if !wait {
					return nil
				}

				var res workflow.EnvelopeResult
				if err := run.Get(cmd.Context(), &res); err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the envelope and print the result")
	return cmd
}

// buildEnvelopeRequest stores uploads in the artifact store under the
// workflow's prefix and assembles the workflow input.
func buildEnvelopeRequest(cmd *cobra.Command, j *job, workflowID string, stack *worker.Stack) (workflow.EnvelopeRequest, error) {
	settings, err := j.settings()
	if err != nil {
		return workflow.EnvelopeRequest{}, err
	}
	req := workflow.EnvelopeRequest{
		Owner:           j.owner(),
		Draft:           j.draft(),
		Templates:       j.templates(),
		Ged:             j.ged(),
		DefaultCategory: j.DefaultCategory,
		Settings:        settings,
		AcceptPartial:   j.AcceptPartial,
		SignByCustomer:  j.SignByCustomer,
	}

	files, err := j.readUploads()
	if err != nil {
		return req, err
	}
	for _, f := range files {
		key := path.Join("uploads", workflowID, uuid.NewString(), f.name)
		ref, err := stack.Artifacts.Put(cmd.Context(), f.content, domain.ArtifactSourced, key)
		if err != nil {
			return req, fmt.Errorf("store upload %s: %w", f.name, err)
		}
		req.Uploads = append(req.Uploads, sourcing.UploadRef{FileName: f.name, Ref: ref})
	}
	return req, req.Validate()
}
