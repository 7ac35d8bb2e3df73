package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.Info("payment reconciled", "payment_id", "123")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", line, err)
	}
	if entry["msg"] != "payment reconciled" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["payment_id"] != "123" {
		t.Fatalf("expected payment_id attr, got %v", entry["payment_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "verbose")

	logger.Debug("hidden")
	logger.Info("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatal("debug should be filtered when level falls back to info")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatal("info line missing")
	}
}
