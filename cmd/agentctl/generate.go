package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/multimodal-agent/server/internal/bootstrap"
	"github.com/multimodal-agent/server/internal/providers/llm"
)

const (
	generateTemperature = 0.7
	generateMaxTokens   = 2048
)

var errGenerateFailed = errors.New("generation failed")

type textModel interface {
	Model() string
	Generate(ctx context.Context, req llm.Request) (string, error)
}

type generateReport struct {
	Role      string  `json:"role" yaml:"role"`
	Model     string  `json:"model" yaml:"model"`
	Response  string  `json:"response" yaml:"response"`
	Success   bool    `json:"success" yaml:"success"`
	Error     *string `json:"error" yaml:"error"`
	ErrorKind string  `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// pickModel resolves a role, or the vendor nickname it was first deployed
// with, to one of the three adapters.
func pickModel(models *bootstrap.Models, name string) (string, textModel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vision", "qwen":
		return "vision", models.Vision, nil
	case "reasoning", "llama":
		return "reasoning", models.Reasoning, nil
	case "codegen", "deepseek":
		return "codegen", models.Codegen, nil
	}
	return "", nil, fmt.Errorf("unknown model %q (want vision, reasoning or codegen)", name)
}

func errorKind(err error) string {
	switch {
	case llm.IsConnection(err):
		return "connection"
	case llm.IsResponse(err):
		return "response"
	}
	return "other"
}

// generateCmd sends one text prompt to a single adapter and reports the raw
// reply. Nothing is cached.
func generateCmd(open func(ctx context.Context) (*bootstrap.Models, error), emit printFunc) *cobra.Command {
	var (
		modelName   string
		system      string
		temperature float64
		maxTokens   int
	)
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Send a prompt to one inference adapter and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("prompt is empty")
			}
			models, err := open(cmd.Context())
			if err != nil {
				return err
			}
			role, model, err := pickModel(models, modelName)
			if err != nil {
				return err
			}

			report := generateReport{Role: role, Model: model.Model()}
			out, genErr := model.Generate(cmd.Context(), llm.Request{
				Prompt:       prompt,
				SystemPrompt: strings.TrimSpace(system),
				Temperature:  temperature,
				MaxTokens:    maxTokens,
			})
			if genErr != nil {
				msg := genErr.Error()
				report.Error = &msg
				report.ErrorKind = errorKind(genErr)
			} else {
				report.Response = out
				report.Success = true
			}

			if err := emit(cmd, report); err != nil {
				return err
			}
			if !report.Success {
				return errGenerateFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Adapter to call: vision, reasoning or codegen")
	cmd.Flags().StringVar(&system, "system", "", "Optional system prompt")
	cmd.Flags().Float64Var(&temperature, "temperature", generateTemperature, "Sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", generateMaxTokens, "Maximum tokens to generate")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
