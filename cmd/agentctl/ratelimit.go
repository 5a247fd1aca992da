package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

type admitter interface {
	IsAllowed(ctx context.Context, identifier string) (bool, int)
	Limit() int
	Window() time.Duration
}

type rateLimitReport struct {
	Identifier    string `json:"identifier" yaml:"identifier"`
	Allowed       bool   `json:"allowed" yaml:"allowed"`
	Remaining     int    `json:"remaining" yaml:"remaining"`
	Limit         int    `json:"limit" yaml:"limit"`
	WindowSeconds int    `json:"window_seconds" yaml:"window_seconds"`
}

// rateLimitCmd performs one admission check. It consumes a slot when the
// request is admitted, exactly as an API call would.
func rateLimitCmd(open func(ctx context.Context) (admitter, error), emit printFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit <identifier>",
		Short: "Run one rate-limit admission check for a user id or IP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limiter, err := open(cmd.Context())
			if err != nil {
				return err
			}
			allowed, remaining := limiter.IsAllowed(cmd.Context(), args[0])
			return emit(cmd, rateLimitReport{
				Identifier:    args[0],
				Allowed:       allowed,
				Remaining:     remaining,
				Limit:         limiter.Limit(),
				WindowSeconds: int(limiter.Window() / time.Second),
			})
		},
	}
}
