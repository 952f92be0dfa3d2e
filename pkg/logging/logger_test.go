package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesToConfiguredWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Writer: &buf, Service: "test"})

	logger.Info("stack launched", "services", 3)

	out := buf.String()
	if !strings.Contains(out, "stack launched") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "services=3") {
		t.Errorf("output missing attribute: %q", out)
	}
	if !strings.Contains(out, "service=test") {
		t.Errorf("output missing service attribute: %q", out)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Writer: &buf})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	logger.Error("also kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "also kept") {
		t.Errorf("at-level messages missing: %q", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Writer: &buf, JSON: true})

	logger.Info("probe", "attempt", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "probe" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v", entry["attempt"])
	}
}

func TestLoggerWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Writer: &buf})

	child := logger.With("session_id", "abc123")
	child.Info("stage entered")

	if !strings.Contains(buf.String(), "session_id=abc123") {
		t.Errorf("child attribute missing: %q", buf.String())
	}

	buf.Reset()
	logger.Info("parent log")
	if strings.Contains(buf.String(), "session_id") {
		t.Error("parent logger mutated by With")
	}
}

func TestLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: LevelInfo, LogDir: dir, Service: "tidegatectl", Quiet: true})

	logger.Info("written to file", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("log dir entries = %v, err = %v", entries, err)
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "tidegatectl_") || !strings.HasSuffix(name, ".log") {
		t.Errorf("log file name = %q", name)
	}

	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("file log is not json: %v", err)
	}
	if entry["msg"] != "written to file" {
		t.Errorf("file entry msg = %v", entry["msg"])
	}
}

func TestWithFileAddsFileDestination(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	logger := New(Config{Level: LevelInfo, Writer: &buf, Service: "tidegatectl"})

	fileLogger := logger.WithFile(dir)
	fileLogger.Info("workspace provisioned")
	if err := fileLogger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// The primary destination keeps receiving entries.
	if !strings.Contains(buf.String(), "workspace provisioned") {
		t.Errorf("primary output missing entry: %q", buf.String())
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("log dir entries = %v, err = %v", entries, err)
	}
	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "workspace provisioned") {
		t.Errorf("file log missing entry: %q", content)
	}
}

func TestQuietWithoutFileDiscards(t *testing.T) {
	logger := New(Config{Quiet: true})
	// Must not panic with no destinations.
	logger.Info("into the void")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}
