package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrison/gasctl/internal/models"
)

// FileLogger mirrors console output to a log file in the log directory it is
// given. It creates a timestamped per-run log file and maintains
// a latest.log symlink pointing at the most recent run, the same layout the
// teacher's file logger uses for .conductor/logs/.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing into logDir at the given level.
// logDir is created if it does not exist. logLevel defaults to "info" when
// empty or unrecognized.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if logDir == "" {
		logDir = filepath.Join(".gasctl", "logs")
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("remove old latest.log symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("create latest.log symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== GAS orchestrator run log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

func (fl *FileLogger) shouldLog(level string) bool {
	return logLevelToInt(level) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("trace", "TRACE", message) }
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("debug", "DEBUG", message) }
func (fl *FileLogger) LogInfo(message string)  { fl.logWithLevel("info", "INFO", message) }
func (fl *FileLogger) LogWarn(message string)  { fl.logWithLevel("warn", "WARN", message) }
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("error", "ERROR", message) }

func (fl *FileLogger) logWithLevel(level, label, message string) {
	if !fl.shouldLog(level) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), label, message))
}

// LogGenerationSpawn records a generation spawn event.
func (fl *FileLogger) LogGenerationSpawn(gen *models.Generation) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [SPAWN] %s spawned generation %d (parent %d)\n",
		timestamp(), gen.Agent, gen.Number, gen.Parent))
}

// LogSuccession records a succession handoff.
func (fl *FileLogger) LogSuccession(parent, child *models.Generation, reason string) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [SUCCEED] %s: generation %d -> %d (%s)\n",
		timestamp(), parent.Agent, parent.Number, child.Number, reason))
}

// LogTriggerEvaluation records a succession trigger's score at debug level.
func (fl *FileLogger) LogTriggerEvaluation(agentID string, score float64, urgency string, primary string) {
	if !fl.shouldLog("debug") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [TRIGGER] %s: score=%.2f urgency=%s primary=%s\n",
		timestamp(), agentID, score, urgency, primary))
}

// LogWaveTransition records a swarm wave advancing.
func (fl *FileLogger) LogWaveTransition(from, to int, agentCount int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [WAVE] wave %d complete, advancing to wave %d (%d agents)\n",
		timestamp(), from, to, agentCount))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
