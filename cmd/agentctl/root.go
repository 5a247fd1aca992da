package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/multimodal-agent/server/internal/bootstrap"
	"github.com/multimodal-agent/server/internal/infra"
)

// session opens the shared adapters on first use and closes them when the
// command finishes.
type session struct {
	cfg    *infra.Config
	logger *infra.Logger
	deps   *bootstrap.Deps
}

func (s *session) config() (*infra.Config, *infra.Logger, error) {
	if s.cfg != nil {
		return s.cfg, s.logger, nil
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := infra.NewStderrLogger(cfg, "agentctl")
	s.cfg, s.logger = cfg, &logger
	return s.cfg, s.logger, nil
}

func (s *session) open(ctx context.Context) (*bootstrap.Deps, error) {
	if s.deps != nil {
		return s.deps, nil
	}
	cfg, logger, err := s.config()
	if err != nil {
		return nil, err
	}
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.deps = deps
	return deps, nil
}

func (s *session) close() {
	if s.deps != nil {
		s.deps.Close()
		s.deps = nil
	}
}

func newRootCmd(s *session) *cobra.Command {
	var output string
	root := &cobra.Command{
		Use:          "agentctl",
		Short:        "Operate the image-to-code job pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "json", "yaml":
				return nil
			}
			return fmt.Errorf("unsupported --output %q (want json or yaml)", output)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")

	emit := func(cmd *cobra.Command, v any) error {
		return render(cmd.OutOrStdout(), output, v)
	}

	root.AddCommand(healthCmd(s, emit))
	root.AddCommand(processCmd(s, emit))
	root.AddCommand(generateCmd(func(context.Context) (*bootstrap.Models, error) {
		cfg, logger, err := s.config()
		if err != nil {
			return nil, err
		}
		return bootstrap.NewModels(cfg, logger)
	}, emit))
	root.AddCommand(rateLimitCmd(func(ctx context.Context) (admitter, error) {
		deps, err := s.open(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Limiter(), nil
	}, emit))
	return root
}

type printFunc func(cmd *cobra.Command, v any) error

// render writes v as indented JSON or as YAML.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
