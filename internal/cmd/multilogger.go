package cmd

import "github.com/harrison/gasctl/internal/models"

// multiLogger implements logger.GenerationLogger by forwarding to every
// wrapped logger, so a run fans output out to both a console and a file
// logger at once.
type multiLogger struct {
	loggers []loggerLike
}

// loggerLike is the subset of logger.GenerationLogger multiLogger needs;
// named locally to avoid importing logger just for the interface type.
type loggerLike interface {
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

func (m *multiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *multiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *multiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *multiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *multiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *multiLogger) LogGenerationSpawn(gen *models.Generation) {
	for _, l := range m.loggers {
		l.LogGenerationSpawn(gen)
	}
}

func (m *multiLogger) LogSuccession(parent, child *models.Generation, reason string) {
	for _, l := range m.loggers {
		l.LogSuccession(parent, child, reason)
	}
}

func (m *multiLogger) LogTriggerEvaluation(agentID string, score float64, urgency string, primary string) {
	for _, l := range m.loggers {
		l.LogTriggerEvaluation(agentID, score, urgency, primary)
	}
}

func (m *multiLogger) LogWaveTransition(from, to int, agentCount int) {
	for _, l := range m.loggers {
		l.LogWaveTransition(from, to, agentCount)
	}
}
