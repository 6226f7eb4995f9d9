package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriter_EmitsJSONAboveLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", &buf)

	logger.Info("dropped")
	logger.With("session_id", "s1").Warn("kept", "stage", "intent")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" {
		t.Fatalf("expected msg=kept, got %v", entry["msg"])
	}
	if entry["session_id"] != "s1" || entry["stage"] != "intent" {
		t.Fatalf("missing attributes: %v", entry)
	}
}
