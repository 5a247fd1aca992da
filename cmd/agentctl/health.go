package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/multimodal-agent/server/internal/bootstrap"
)

const checkTimeout = 30 * time.Second

type healthReport struct {
	Database  string `json:"database" yaml:"database"`
	Cache     string `json:"cache" yaml:"cache"`
	Vision    string `json:"vision" yaml:"vision"`
	Reasoning string `json:"reasoning" yaml:"reasoning"`
	Codegen   string `json:"codegen" yaml:"codegen"`
}

func (h healthReport) healthy() bool {
	for _, v := range []string{h.Database, h.Vision, h.Reasoning, h.Codegen} {
		if v != "ok" {
			return false
		}
	}
	return h.Cache != "error"
}

var errUnhealthy = errors.New("one or more adapters are unhealthy")

func healthCmd(s *session, emit printFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database, cache and the three inference adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()

			deps, err := s.open(ctx)
			if err != nil {
				return err
			}
			report := healthReport{Database: "ok", Cache: "ok"}
			if err := deps.Health.Ping(ctx); err != nil {
				report.Database = "error"
			}
			switch {
			case !deps.Cache.Enabled():
				report.Cache = "disabled"
			case deps.Cache.Ping(ctx) != nil:
				report.Cache = "error"
			}

			models, err := bootstrap.NewModels(deps.Config, deps.Logger)
			if err != nil {
				report.Vision, report.Reasoning, report.Codegen = "misconfigured", "misconfigured", "misconfigured"
			} else {
				report.Vision = status(models.Vision.HealthCheck(ctx))
				report.Reasoning = status(models.Reasoning.HealthCheck(ctx))
				report.Codegen = status(models.Codegen.HealthCheck(ctx))
			}

			if err := emit(cmd, report); err != nil {
				return err
			}
			if !report.healthy() {
				return errUnhealthy
			}
			return nil
		},
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
