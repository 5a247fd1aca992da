package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger for one binary. Every event carries
// the service and component names. Development uses the console writer.
func NewLogger(cfg *Config, component string) zerolog.Logger {
	return newLogger(os.Stdout, cfg, component)
}

// NewStderrLogger is NewLogger for tools whose stdout is program output.
func NewStderrLogger(cfg *Config, component string) zerolog.Logger {
	return newLogger(os.Stderr, cfg, component)
}

func newLogger(w io.Writer, cfg *Config, component string) zerolog.Logger {
	dev := cfg.IsDevelopment()
	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(logLevel(dev, cfg.LogLevel)).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	return ctx.Logger()
}

// logLevel maps LOG_LEVEL onto zerolog. Empty or unknown names fall back to
// debug in development and info elsewhere.
func logLevel(dev bool, name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		if lvl, err := zerolog.ParseLevel(name); err == nil {
			return lvl
		}
	}
	if dev {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// NopLogger returns a logger that drops every event.
func NopLogger() *Logger {
	l := zerolog.Nop()
	return &l
}

// Logger aliases zerolog.Logger so packages can accept a logger without
// importing zerolog themselves.
type Logger = zerolog.Logger
