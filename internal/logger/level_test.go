package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/harrison/gasctl/internal/models"
)

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		logLevel     string
		messageLevel string
		message      string
		shouldAppear bool
	}{
		{name: "trace sees trace", logLevel: "trace", messageLevel: "trace", message: "trace msg", shouldAppear: true},
		{name: "debug blocks trace", logLevel: "debug", messageLevel: "trace", message: "trace msg", shouldAppear: false},
		{name: "info blocks debug", logLevel: "info", messageLevel: "debug", message: "debug msg", shouldAppear: false},
		{name: "warn blocks info", logLevel: "warn", messageLevel: "info", message: "info msg", shouldAppear: false},
		{name: "error blocks warn", logLevel: "error", messageLevel: "warn", message: "warn msg", shouldAppear: false},
		{name: "error sees error", logLevel: "error", messageLevel: "error", message: "error msg", shouldAppear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.logLevel)

			switch tt.messageLevel {
			case "trace":
				logger.LogTrace(tt.message)
			case "debug":
				logger.LogDebug(tt.message)
			case "info":
				logger.LogInfo(tt.message)
			case "warn":
				logger.LogWarn(tt.message)
			case "error":
				logger.LogError(tt.message)
			}

			contains := strings.Contains(buf.String(), tt.message)
			if tt.shouldAppear != contains {
				t.Errorf("message %q appear=%v, want %v", tt.message, contains, tt.shouldAppear)
			}
		})
	}
}

func TestLogLevelEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "empty string defaults to info", logLevel: ""},
		{name: "unknown level defaults to info", logLevel: "unknown"},
		{name: "uppercase level normalized", logLevel: "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.logLevel)
			logger.LogDebug("debug message")
			logger.LogInfo("info message")

			if tt.logLevel != "DEBUG" {
				if strings.Contains(buf.String(), "debug message") {
					t.Error("debug message should be filtered when defaulting to info level")
				}
			}
			if !strings.Contains(buf.String(), "info message") {
				t.Error("info message should appear")
			}
		})
	}
}

func TestConsoleLoggerGenerationEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "debug")

	parent := &models.Generation{Agent: "backend-dev", Number: 1}
	child := &models.Generation{Agent: "backend-dev", Number: 2, Parent: 1}

	logger.LogGenerationSpawn(parent)
	logger.LogSuccession(parent, child, "interaction_limit")
	logger.LogTriggerEvaluation("backend-dev", 0.82, "immediate", "interactions")
	logger.LogWaveTransition(1, 2, 3)

	out := buf.String()
	for _, want := range []string{"spawned generation 1", "generation 1 -> 2", "score=0.82", "wave 1 complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestFileLoggerWithLogLevel(t *testing.T) {
	tmpDir := t.TempDir()

	fl, err := NewFileLogger(tmpDir, "warn")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer fl.Close()

	fl.LogDebug("debug message")
	fl.LogInfo("info message")
	fl.LogWarn("warn message")
	fl.LogError("error message")

	content := readFileLoggerOutput(t, fl)

	if strings.Contains(content, "debug message") || strings.Contains(content, "info message") {
		t.Error("debug/info should be filtered at warn level")
	}
	if !strings.Contains(content, "warn message") || !strings.Contains(content, "error message") {
		t.Error("warn/error should appear at warn level")
	}
}

func TestFileLoggerGenerationEvents(t *testing.T) {
	tmpDir := t.TempDir()

	fl, err := NewFileLogger(tmpDir, "debug")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer fl.Close()

	parent := &models.Generation{Agent: "backend-dev", Number: 1}
	child := &models.Generation{Agent: "backend-dev", Number: 2, Parent: 1}
	fl.LogGenerationSpawn(parent)
	fl.LogSuccession(parent, child, "confidence_drop")
	fl.LogWaveTransition(2, 3, 4)

	content := readFileLoggerOutput(t, fl)
	for _, want := range []string{"spawned generation 1", "generation 1 -> 2", "wave 2 complete"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected log file to contain %q", want)
		}
	}
}

func TestNewFileLoggerCreatesLatestSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	fl, err := NewFileLogger(tmpDir, "")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer fl.Close()

	symlinkPath := tmpDir + "/latest.log"
	if _, err := os.Lstat(symlinkPath); err != nil {
		t.Fatalf("expected latest.log symlink to exist: %v", err)
	}
}

func readFileLoggerOutput(t *testing.T, fl *FileLogger) string {
	t.Helper()
	fl.runLog.Sync()
	content, err := os.ReadFile(fl.runFile)
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	return string(content)
}
