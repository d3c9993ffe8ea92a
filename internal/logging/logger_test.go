package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) Entry {
	t.Helper()
	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v\nOutput: %s", err, buf.String())
	}
	return entry
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		setLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"Debug at Debug level", LevelDebug, LevelDebug, true},
		{"Info at Debug level", LevelDebug, LevelInfo, true},
		{"Debug at Info level", LevelInfo, LevelDebug, false},
		{"Info at Info level", LevelInfo, LevelInfo, true},
		{"Warn at Info level", LevelInfo, LevelWarn, true},
		{"Info at Warn level", LevelWarn, LevelInfo, false},
		{"Error at Warn level", LevelWarn, LevelError, true},
		{"Warn at Error level", LevelError, LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(WithOutput(&buf), WithLevel(tt.setLevel))

			switch tt.logLevel {
			case LevelDebug:
				logger.Debug("test message")
			case LevelInfo:
				logger.Info("test message")
			case LevelWarn:
				logger.Warn("test message")
			case LevelError:
				logger.Error("test message")
			}

			hasOutput := buf.Len() > 0
			if hasOutput != tt.shouldLog {
				t.Errorf("Expected shouldLog=%v, got output=%q", tt.shouldLog, buf.String())
			}
			if got := logger.Enabled(tt.logLevel); got != tt.shouldLog {
				t.Errorf("Enabled(%s) = %v, want %v", tt.logLevel, got, tt.shouldLog)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON(true))

	logger.Info("resolved %d dependencies", 3)

	entry := decode(t, &buf)
	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "resolved 3 dependencies" {
		t.Errorf("Expected message 'resolved 3 dependencies', got '%s'", entry.Message)
	}
	if entry.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf))

	logger.With("dependency", "core").With("branch", "develop").Warn("falling back")

	output := buf.String()
	if !strings.Contains(output, "[WARN] falling back") {
		t.Errorf("Expected level and message in output, got: %s", output)
	}
	if !strings.Contains(output, "{branch=develop, dependency=core}") {
		t.Errorf("Expected sorted fields in output, got: %s", output)
	}
}

func TestRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON(true))

	ctx := WithRunID(context.Background(), "3f2b8c1e-0000-4000-8000-000000000000")
	logger.InfoContext(ctx, "run started")

	entry := decode(t, &buf)
	if entry.RunID != "3f2b8c1e-0000-4000-8000-000000000000" {
		t.Errorf("Expected run ID, got '%s'", entry.RunID)
	}

	buf.Reset()
	New(WithOutput(&buf)).WarnContext(ctx, "text")
	if !strings.Contains(buf.String(), "[3f2b8c1e]") {
		t.Errorf("Expected short run ID in text output, got: %s", buf.String())
	}

	if id := RunID(context.Background()); id != "" {
		t.Errorf("Expected empty run ID, got %q", id)
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON(true))

	logger.WithFields(Fields{"dependency": "core", "attempt": 2}).Info("resolving")

	entry := decode(t, &buf)
	if entry.Fields["attempt"] != float64(2) { // JSON numbers are float64
		t.Errorf("Expected attempt=2, got %v", entry.Fields["attempt"])
	}
	if entry.Fields["dependency"] != "core" {
		t.Errorf("Expected dependency='core', got %v", entry.Fields["dependency"])
	}
}

func TestDerivedLoggerDoesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON(true))
	derived := logger.With("derived", true)

	logger.Info("original")
	if entry := decode(t, &buf); entry.Fields["derived"] != nil {
		t.Error("Original logger should not have derived field")
	}

	buf.Reset()
	derived.Info("derived")
	if entry := decode(t, &buf); entry.Fields["derived"] != true {
		t.Error("Derived logger should have derived field")
	}
}

func TestDerivedLoggerSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf))
	derived := logger.With("k", "v")

	logger.SetLevel(LevelError)
	derived.Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		ok       bool
	}{
		{"DEBUG", LevelDebug, true},
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"info", LevelInfo, true},
		{"WARN", LevelWarn, true},
		{"WARNING", LevelWarn, true},
		{"error", LevelError, true},
		{"", LevelInfo, true},
		{"invalid", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, ok := ParseLevel(tt.input)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v, want %v, %v", tt.input, result, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if got := Level(99).String(); got != "UNKNOWN" {
		t.Errorf("Level(99).String() = %q, want UNKNOWN", got)
	}
	if got := LevelWarn.String(); got != "WARN" {
		t.Errorf("LevelWarn.String() = %q, want WARN", got)
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	previous := Default()
	defer SetDefault(previous)

	var buf bytes.Buffer
	SetDefault(New(WithOutput(&buf)))

	Info("package level info")

	if !strings.Contains(buf.String(), "package level info") {
		t.Errorf("Package-level function failed, got: %s", buf.String())
	}
}
