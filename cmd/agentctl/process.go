package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/multimodal-agent/server/internal/bootstrap"
	"github.com/multimodal-agent/server/internal/domain"
	"github.com/multimodal-agent/server/internal/jobs"
)

type processReport struct {
	JobID        string           `json:"job_id" yaml:"job_id"`
	Status       domain.JobStatus `json:"status" yaml:"status"`
	Step         string           `json:"step,omitempty" yaml:"step,omitempty"`
	ResultURL    *string          `json:"result_url" yaml:"result_url"`
	ErrorMessage *string          `json:"error_message" yaml:"error_message"`
	CodeLength   int              `json:"code_length" yaml:"code_length"`
}

func newProcessReport(res *jobs.Result) processReport {
	out := processReport{
		JobID:        res.Job.ID,
		Status:       res.Job.Status,
		ResultURL:    res.Job.ResultURL,
		ErrorMessage: res.Job.ErrorMessage,
	}
	if res.State != nil {
		out.Step = string(res.State.Step)
		out.CodeLength = len(res.State.Code)
	}
	return out
}

func processCmd(s *session, emit printFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "process <job-id>",
		Short: "Run one job synchronously and print its outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(args[0]); err != nil {
				return fmt.Errorf("job %q: %w", args[0], domain.ErrNotFound)
			}
			ctx := cmd.Context()
			deps, err := s.open(ctx)
			if err != nil {
				return err
			}
			models, err := bootstrap.NewModels(deps.Config, deps.Logger)
			if err != nil {
				return err
			}
			manager, err := deps.NewManager(models)
			if err != nil {
				return err
			}
			res, err := manager.Process(ctx, args[0])
			if err != nil {
				return err
			}
			return emit(cmd, newProcessReport(res))
		},
	}
}
