package gastatus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/gasctl/internal/models"
)

// toolInvocation is one tool_use occurrence extracted from an event, along
// with whatever input parameters it carried.
type toolInvocation struct {
	name  string
	input map[string]any
}

// ParseLines incrementally extends existing (or a fresh ParsedOutput if nil)
// with every event decoded from content, one NDJSON line at a time.
// Malformed lines are skipped silently; they never abort the parse.
func ParseLines(content string, existing *models.ParsedOutput, completionMarkers []string) *models.ParsedOutput {
	result := existing
	if result == nil {
		result = models.NewParsedOutput()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.RawLinesCount++

		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		applyEvent(result, event, completionMarkers)
	}

	result.ProgressEstimate = EstimateProgress(result)
	return result
}

func applyEvent(result *models.ParsedOutput, event map[string]any, completionMarkers []string) {
	result.TotalEvents++

	if ts, ok := event["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, normalizeTimestamp(ts)); err == nil {
			if !result.HasLastActivity || parsed.After(result.LastActivity) {
				result.LastActivity = parsed
				result.HasLastActivity = true
			}
		}
	}

	for _, inv := range extractToolInvocations(event) {
		result.ToolsUsed[inv.name]++

		switch inv.name {
		case "Write", "Edit", "NotebookEdit":
			if path := filePathFromInput(inv.input); path != "" {
				if inv.name == "Write" {
					result.FilesCreated.Add(path)
				} else {
					result.FilesModified.Add(path)
				}
			}
		case "TodoWrite":
			if task := inProgressTodo(inv.input); task != "" {
				result.CurrentTask = task
			}
		}
	}

	raw, _ := json.Marshal(event)
	if matchesCompletionMarker(string(raw), completionMarkers) {
		result.HasCompletionMarker = true
	}

	if isErrorEvent(event) {
		if msg := errorMessage(event); msg != "" {
			result.Errors = append(result.Errors, truncate(msg, 200))
		}
	}

	if live := formatForDisplay(event); live != nil {
		result.LiveEvents = append(result.LiveEvents, *live)
		if len(result.LiveEvents) > 50 {
			result.LiveEvents = result.LiveEvents[1:]
		}
	}
}

func normalizeTimestamp(ts string) string {
	return strings.ReplaceAll(ts, "Z", "+00:00")
}

// extractToolInvocations enumerates every tool_use occurrence in an event,
// whether it is a top-level tool_use or nested inside assistant-message
// content.
func extractToolInvocations(event map[string]any) []toolInvocation {
	var invocations []toolInvocation

	if event["type"] == "tool_use" {
		name, _ := event["name"].(string)
		if name == "" {
			name = "unknown"
		}
		input, _ := event["input"].(map[string]any)
		invocations = append(invocations, toolInvocation{name: name, input: input})
		return invocations
	}

	if event["type"] == "assistant" {
		invocations = append(invocations, toolUsesFromContentList(event["content"])...)
		if msg, ok := event["message"].(map[string]any); ok {
			invocations = append(invocations, toolUsesFromContentList(msg["content"])...)
		}
	}

	return invocations
}

func toolUsesFromContentList(content any) []toolInvocation {
	list, ok := content.([]any)
	if !ok {
		return nil
	}
	var invocations []toolInvocation
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok || obj["type"] != "tool_use" {
			continue
		}
		name, _ := obj["name"].(string)
		if name == "" {
			name = "unknown"
		}
		input, _ := obj["input"].(map[string]any)
		invocations = append(invocations, toolInvocation{name: name, input: input})
	}
	return invocations
}

func filePathFromInput(input map[string]any) string {
	if input == nil {
		return ""
	}
	if path, ok := input["file_path"].(string); ok && path != "" {
		return path
	}
	if path, ok := input["notebook_path"].(string); ok && path != "" {
		return path
	}
	return ""
}

func inProgressTodo(input map[string]any) string {
	if input == nil {
		return ""
	}
	todos, ok := input["todos"].([]any)
	if !ok {
		return ""
	}
	for _, t := range todos {
		todo, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if todo["status"] != "in_progress" {
			continue
		}
		if af, ok := todo["activeForm"].(string); ok && af != "" {
			return af
		}
		if c, ok := todo["content"].(string); ok {
			return c
		}
	}
	return ""
}

func matchesCompletionMarker(serialized string, markers []string) bool {
	lower := strings.ToLower(serialized)
	for _, marker := range markers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func isErrorEvent(event map[string]any) bool {
	if event["type"] == "error" {
		return true
	}
	if isErr, ok := event["is_error"].(bool); ok && isErr {
		return true
	}
	return false
}

func errorMessage(event map[string]any) string {
	if msg, ok := event["message"].(string); ok && msg != "" {
		return msg
	}
	if content, ok := event["content"].(string); ok {
		return content
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// formatForDisplay produces a bounded live-feed record from an event, or nil
// when the event has no displayable content.
func formatForDisplay(event map[string]any) *models.LiveEvent {
	eventType, _ := event["type"].(string)

	live := models.LiveEvent{Timestamp: time.Now()}
	if ts, ok := event["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, normalizeTimestamp(ts)); err == nil {
			live.Timestamp = parsed
		}
	}

	switch eventType {
	case "tool_use":
		live.Type = "tool"
		name, _ := event["name"].(string)
		if name == "" {
			name, _ = event["tool"].(string)
		}
		live.Tool = name
		live.Content = toolSummary(event)
	case "tool_result":
		live.Type = "result"
		live.Content = stringifyContent(event["content"])
	case "assistant":
		live.Type = "thinking"
		live.Content = assistantText(event)
	case "text":
		live.Type = "text"
		live.Content, _ = event["text"].(string)
	default:
		return nil
	}

	if live.Content == "" {
		return nil
	}
	live.Content = truncate(live.Content, 300)
	return &live
}

func toolSummary(event map[string]any) string {
	input, _ := event["input"].(map[string]any)
	if input == nil {
		name, _ := event["name"].(string)
		return "Using " + name
	}
	if path, ok := input["file_path"].(string); ok {
		return "File: " + path
	}
	if cmd, ok := input["command"].(string); ok {
		return "Command: " + truncate(cmd, 100)
	}
	if pattern, ok := input["pattern"].(string); ok {
		return "Pattern: " + pattern
	}
	return ""
}

func stringifyContent(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

func assistantText(event map[string]any) string {
	switch content := event["content"].(type) {
	case string:
		return content
	case []any:
		for _, item := range content {
			obj, ok := item.(map[string]any)
			if ok && obj["type"] == "text" {
				text, _ := obj["text"].(string)
				return text
			}
		}
	}
	return ""
}

// ActivitySummary renders a short human-readable description of an agent's
// most recent activity: "Task completed" once a completion marker is seen,
// "Initializing..." before any tool call has been observed, "Using" plus
// the current task when one is known, or else a running tool-call count.
func ActivitySummary(p *models.ParsedOutput) string {
	if p.HasCompletionMarker {
		return "Task completed"
	}
	total := 0
	for _, count := range p.ToolsUsed {
		total += count
	}
	if total == 0 {
		return "Initializing..."
	}
	if p.CurrentTask != "" {
		return fmt.Sprintf("Using %s", p.CurrentTask)
	}
	return fmt.Sprintf("Working... (%d tool calls)", total)
}

// EstimateProgress is the pure progress-estimation formula.
func EstimateProgress(p *models.ParsedOutput) int {
	if p.HasCompletionMarker {
		return 100
	}
	total := 0
	for _, count := range p.ToolsUsed {
		total += count
	}
	score := 3*total + 5*p.FilesCreated.Len() + 2*p.FilesModified.Len()
	if p.CurrentTask != "" {
		score += 5
	}
	if score > 95 {
		return 95
	}
	return score
}
