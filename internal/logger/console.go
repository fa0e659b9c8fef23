// Package logger provides logging implementations for the GAS orchestrator.
//
// Implementations are thread-safe and support console and file output at the
// same five verbosity levels (trace, debug, info, warn, error). When it
// writes to a terminal, console output is colorized by level: red for
// error, yellow for warn, cyan for info, white for trace and debug.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/gasctl/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering.
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// normalizeLogLevel converts a log level string to lowercase and validates
// it, defaulting to "info" for empty or unrecognized values.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if validLevels[normalized] {
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// GenerationLogger is the logging surface the orchestrator loop (C10), the
// generation lifecycle (C7), and the trigger evaluator (C5) depend on.
// ConsoleLogger and FileLogger both implement it.
type GenerationLogger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)

	LogGenerationSpawn(gen *models.Generation)
	LogSuccession(parent, child *models.Generation, reason string)
	LogTriggerEvaluation(agentID string, score float64, urgency string, primary string)
	LogWaveTransition(from, to int, agentCount int)
}

// ConsoleLogger writes colorized, timestamped output to a writer. Color is
// enabled automatically when the writer is a TTY.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool

	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// NewConsoleLogger creates a ConsoleLogger writing to w at the given level.
// If w is nil, messages are silently discarded. logLevel defaults to "info"
// when empty or unrecognized.
func NewConsoleLogger(w io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      w,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(w),
		success:     color.New(color.FgGreen),
		fail:        color.New(color.FgRed),
		warn:        color.New(color.FgYellow),
		label:       color.New(color.FgCyan),
		value:       color.New(color.FgWhite),
	}
}

func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout {
		return isatty.IsTerminal(os.Stdout.Fd())
	}
	if w == os.Stderr {
		return isatty.IsTerminal(os.Stderr.Fd())
	}
	return false
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("trace", "TRACE", message) }
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("debug", "DEBUG", message) }
func (cl *ConsoleLogger) LogInfo(message string)  { cl.logWithLevel("info", "INFO", message) }
func (cl *ConsoleLogger) LogWarn(message string)  { cl.logWithLevel("warn", "WARN", message) }
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("error", "ERROR", message) }

func (cl *ConsoleLogger) logWithLevel(level, label, message string) {
	if !cl.shouldLog(level) {
		return
	}
	ts := timestamp()
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	if cl.writer == nil {
		return
	}
	fmt.Fprintln(cl.writer, cl.formatWithColor(ts, level, label, message))
}

func (cl *ConsoleLogger) formatWithColor(ts, level, label, message string) string {
	if !cl.colorOutput {
		return fmt.Sprintf("[%s] [%s] %s", ts, label, message)
	}
	var c *color.Color
	switch level {
	case "error":
		c = cl.fail
	case "warn":
		c = cl.warn
	case "info":
		c = cl.label
	default:
		c = cl.value
	}
	return fmt.Sprintf("[%s] %s", ts, c.Sprintf("[%s] %s", label, message))
}

// LogGenerationSpawn announces a new generation taking over an agent slot.
func (cl *ConsoleLogger) LogGenerationSpawn(gen *models.Generation) {
	if !cl.shouldLog("info") {
		return
	}
	msg := fmt.Sprintf("%s spawned generation %d (parent %d)", gen.Agent, gen.Number, gen.Parent)
	cl.logWithLevel("info", "SPAWN", msg)
}

// LogSuccession announces a parent generation handing off to a child.
func (cl *ConsoleLogger) LogSuccession(parent, child *models.Generation, reason string) {
	if !cl.shouldLog("info") {
		return
	}
	msg := fmt.Sprintf("%s: generation %d -> %d (%s)", parent.Agent, parent.Number, child.Number, reason)
	cl.logWithLevel("info", "SUCCEED", msg)
}

// LogTriggerEvaluation reports a succession trigger's score and urgency for
// one agent, at debug level to avoid flooding the console every tick.
func (cl *ConsoleLogger) LogTriggerEvaluation(agentID string, score float64, urgency string, primary string) {
	if !cl.shouldLog("debug") {
		return
	}
	msg := fmt.Sprintf("%s: score=%.2f urgency=%s primary=%s", agentID, score, urgency, primary)
	cl.logWithLevel("debug", "TRIGGER", msg)
}

// LogWaveTransition announces swarm mode advancing from one wave to the
// next.
func (cl *ConsoleLogger) LogWaveTransition(from, to int, agentCount int) {
	if !cl.shouldLog("info") {
		return
	}
	msg := fmt.Sprintf("wave %d complete, advancing to wave %d (%d agents)", from, to, agentCount)
	cl.logWithLevel("info", "WAVE", msg)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}
