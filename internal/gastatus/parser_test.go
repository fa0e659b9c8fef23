package gastatus

import (
	"testing"
)

var markers = []string{"task completed", "evolution complete", `status":"completed"`}

func TestParseLinesCountsToolUsage(t *testing.T) {
	content := `{"type":"tool_use","name":"Read","input":{"file_path":"a.go"}}
{"type":"tool_use","name":"Read","input":{"file_path":"b.go"}}
`
	result := ParseLines(content, nil, markers)
	if result.ToolsUsed["Read"] != 2 {
		t.Fatalf("Read count = %d, want 2", result.ToolsUsed["Read"])
	}
}

func TestParseLinesExtractsMultipleToolsFromAssistantMessage(t *testing.T) {
	content := `{"type":"assistant","content":[{"type":"tool_use","name":"Write","input":{"file_path":"x.go"}},{"type":"tool_use","name":"Bash","input":{"command":"go test"}}]}
`
	result := ParseLines(content, nil, markers)
	if result.ToolsUsed["Write"] != 1 || result.ToolsUsed["Bash"] != 1 {
		t.Fatalf("tools used = %+v, want Write:1, Bash:1", result.ToolsUsed)
	}
}

func TestParseLinesTracksFileCreatedAndModified(t *testing.T) {
	content := `{"type":"tool_use","name":"Write","input":{"file_path":"new.go"}}
{"type":"tool_use","name":"Edit","input":{"file_path":"existing.go"}}
`
	result := ParseLines(content, nil, markers)
	if result.FilesCreatedList()[0] != "new.go" {
		t.Fatalf("files created = %v", result.FilesCreatedList())
	}
	if result.FilesModifiedList()[0] != "existing.go" {
		t.Fatalf("files modified = %v", result.FilesModifiedList())
	}
}

func TestParseLinesExtractsCurrentTaskFromTodoWrite(t *testing.T) {
	content := `{"type":"tool_use","name":"TodoWrite","input":{"todos":[{"status":"completed","content":"done"},{"status":"in_progress","activeForm":"Writing tests"}]}}
`
	result := ParseLines(content, nil, markers)
	if result.CurrentTask != "Writing tests" {
		t.Fatalf("current task = %q, want %q", result.CurrentTask, "Writing tests")
	}
}

func TestParseLinesDetectsCompletionMarkerCaseInsensitively(t *testing.T) {
	content := `{"type":"text","text":"Task Completed successfully"}
`
	result := ParseLines(content, nil, markers)
	if !result.HasCompletionMarker {
		t.Fatal("expected completion marker to be detected")
	}
}

func TestParseLinesCapturesTruncatedErrors(t *testing.T) {
	content := `{"type":"error","message":"boom"}
`
	result := ParseLines(content, nil, markers)
	if len(result.Errors) != 1 || result.Errors[0] != "boom" {
		t.Fatalf("errors = %v", result.Errors)
	}
}

func TestParseLinesSkipsMalformedJSON(t *testing.T) {
	content := "not json\n{\"type\":\"tool_use\",\"name\":\"Read\"}\n"
	result := ParseLines(content, nil, markers)
	if result.TotalEvents != 1 {
		t.Fatalf("total events = %d, want 1 (malformed line skipped)", result.TotalEvents)
	}
}

func TestParseLinesBoundsLiveEventRingAt50(t *testing.T) {
	content := ""
	for i := 0; i < 60; i++ {
		content += `{"type":"text","text":"event"}` + "\n"
	}
	result := ParseLines(content, nil, markers)
	if len(result.LiveEvents) != 50 {
		t.Fatalf("live events = %d, want 50", len(result.LiveEvents))
	}
}

func TestParseLinesIsIncrementalAcrossCalls(t *testing.T) {
	first := ParseLines(`{"type":"tool_use","name":"Read"}`+"\n", nil, markers)
	second := ParseLines(`{"type":"tool_use","name":"Read"}`+"\n", first, markers)
	if second.ToolsUsed["Read"] != 2 {
		t.Fatalf("incremental Read count = %d, want 2", second.ToolsUsed["Read"])
	}
}

func TestEstimateProgressCompletionMarkerIs100(t *testing.T) {
	result := ParseLines(`{"type":"text","text":"evolution complete"}`+"\n", nil, markers)
	if result.ProgressEstimate != 100 {
		t.Fatalf("progress = %d, want 100", result.ProgressEstimate)
	}
}

func TestEstimateProgressFormula(t *testing.T) {
	content := `{"type":"tool_use","name":"Write","input":{"file_path":"a.go"}}
{"type":"tool_use","name":"Edit","input":{"file_path":"b.go"}}
{"type":"tool_use","name":"TodoWrite","input":{"todos":[{"status":"in_progress","content":"work"}]}}
`
	result := ParseLines(content, nil, markers)
	// 3 tools * 3 + 1 file_created * 5 + 1 file_modified * 2 + 5 (current_task) = 9+5+2+5 = 21
	if result.ProgressEstimate != 21 {
		t.Fatalf("progress = %d, want 21", result.ProgressEstimate)
	}
}

func TestEstimateProgressCapsAt95(t *testing.T) {
	content := ""
	for i := 0; i < 40; i++ {
		content += `{"type":"tool_use","name":"Read"}` + "\n"
	}
	result := ParseLines(content, nil, markers)
	if result.ProgressEstimate != 95 {
		t.Fatalf("progress = %d, want capped at 95", result.ProgressEstimate)
	}
}

func TestActivitySummaryCompletionMarkerWins(t *testing.T) {
	content := `{"type":"tool_use","name":"Read"}
{"type":"text","text":"evolution complete"}
`
	result := ParseLines(content, nil, markers)
	if got := ActivitySummary(result); got != "Task completed" {
		t.Fatalf("ActivitySummary = %q, want %q", got, "Task completed")
	}
}

func TestActivitySummaryBeforeAnyToolCall(t *testing.T) {
	result := ParseLines("", nil, markers)
	if got := ActivitySummary(result); got != "Initializing..." {
		t.Fatalf("ActivitySummary = %q, want %q", got, "Initializing...")
	}
}

func TestActivitySummaryWithCurrentTask(t *testing.T) {
	content := `{"type":"tool_use","name":"Read"}
{"type":"tool_use","name":"TodoWrite","input":{"todos":[{"status":"in_progress","content":"refactor parser"}]}}
`
	result := ParseLines(content, nil, markers)
	if got := ActivitySummary(result); got != "Using refactor parser" {
		t.Fatalf("ActivitySummary = %q, want %q", got, "Using refactor parser")
	}
}

func TestActivitySummaryWithoutCurrentTask(t *testing.T) {
	content := `{"type":"tool_use","name":"Read"}
{"type":"tool_use","name":"Read"}
`
	result := ParseLines(content, nil, markers)
	if got := ActivitySummary(result); got != "Working... (2 tool calls)" {
		t.Fatalf("ActivitySummary = %q, want %q", got, "Working... (2 tool calls)")
	}
}
