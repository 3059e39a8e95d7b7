package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown", nil)
	logger.Error("shown", nil)

	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("emitted %d lines, want 2: %q", lines, buf.String())
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("analysis finished", map[string]interface{}{"files": 42})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, buf.String())
	}
	if entry.Level != "info" || entry.Message != "analysis finished" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["files"] != float64(42) {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})
	child := logger.With(map[string]interface{}{"run": "abc"})

	child.Info("step", map[string]interface{}{"phase": "walk"})

	var entry struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry.Fields["run"] != "abc" || entry.Fields["phase"] != "walk" {
		t.Errorf("fields = %v, want base and call fields merged", entry.Fields)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DebugLevel {
		t.Error("ParseLevel(debug) wrong")
	}
	if ParseLevel("nonsense") != InfoLevel {
		t.Error("ParseLevel should default to info")
	}
}
