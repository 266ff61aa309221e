package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/zhouzirui/studyai/backend/internal/config"
)

func TestJSONLoggerWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(newWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf), "relay")

	logger.Debug().Str("session_id", "abc").Msg("frame received")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "relay" {
		t.Fatalf("expected component relay, got %v", entry["component"])
	}
	if entry["session_id"] != "abc" {
		t.Fatalf("expected session_id abc, got %v", entry["session_id"])
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LogConfig{Level: "chatty", Format: "json"}, &buf)

	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug suppressed, got %q", buf.String())
	}

	logger.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("expected info line")
	}
}
