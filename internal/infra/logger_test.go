package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerCarriesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", ServiceName: "agent"}, "worker")
	logger.Info().Msg("hello")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if event["service"] != "agent" || event["component"] != "worker" {
		t.Fatalf("event = %v, want service=agent component=worker", event)
	}
}

func TestLogLevel(t *testing.T) {
	cases := []struct {
		dev  bool
		name string
		want zerolog.Level
	}{
		{false, "", zerolog.InfoLevel},
		{true, "", zerolog.DebugLevel},
		{false, " WARN ", zerolog.WarnLevel},
		{true, "bogus", zerolog.DebugLevel},
	}
	for _, tc := range cases {
		if got := logLevel(tc.dev, tc.name); got != tc.want {
			t.Errorf("logLevel(%v, %q) = %s, want %s", tc.dev, tc.name, got, tc.want)
		}
	}
}

func TestLoggerDropsBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogLevel: "error"}, "")
	logger.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info event written at error level: %q", buf.String())
	}
}
