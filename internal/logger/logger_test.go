package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// resetLogger resets the default logger to a clean state for testing.
func resetLogger() {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = LevelInfo
	defaultLogger.output = io.Discard
	if defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected string
	}{
		{"debug", LevelDebug, "DEBUG"},
		{"info", LevelInfo, "INFO"},
		{"warn", LevelWarn, "WARN"},
		{"error", LevelError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.level.String() != tt.expected {
				t.Errorf("Level.String() = %q, want %q", tt.level.String(), tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"  debug  ", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLevel(%q) expected error, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	defer resetLogger()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below threshold were logged: %q", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("messages at or above threshold were dropped: %q", output)
	}
}

func TestDefaultOutputIsSilent(t *testing.T) {
	defer resetLogger()
	resetLogger()

	// Nothing to assert directly; logging before SetOutput/SetLogFile must
	// simply not panic and not touch a file.
	Info("goes nowhere")
}

func TestSetLogFile(t *testing.T) {
	defer resetLogger()

	var buf bytes.Buffer
	SetOutput(&buf)

	path := filepath.Join(t.TempDir(), "minecli.log")
	if err := SetLogFile(path); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}

	Info("hello from the file test")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from the file test") {
		t.Errorf("log file missing message: %q", string(data))
	}
	if !strings.Contains(string(data), "INFO") {
		t.Errorf("log file missing level tag: %q", string(data))
	}
	if !strings.Contains(buf.String(), "hello from the file test") {
		t.Errorf("primary output missing message: %q", buf.String())
	}
}

func TestSetLogFileBadPath(t *testing.T) {
	defer resetLogger()

	if err := SetLogFile(filepath.Join(t.TempDir(), "missing", "dir", "x.log")); err == nil {
		t.Error("expected error for unwritable log path")
	}
}
