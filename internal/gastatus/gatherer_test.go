package gastatus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrison/gasctl/internal/models"
)

func writeOutputFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestGatherer(taskDir string) *Gatherer {
	return NewGatherer(
		NewPositionTracker(100),
		NewParseCache(50),
		markers,
		StatusThresholds{IdleThreshold: 60 * time.Second, CompletionThreshold: 120 * time.Second},
		DefaultOutputLocator(taskDir),
	)
}

func TestGatherAssemblesAgentSnapshots(t *testing.T) {
	dir := t.TempDir()
	agentDir := filepath.Join(dir, "alpha")
	os.MkdirAll(agentDir, 0755)
	writeOutputFile(t, agentDir, "output.ndjson",
		`{"type":"tool_use","name":"Write","input":{"file_path":"a.go"}}`+"\n")

	g := newTestGatherer(dir)
	ws := models.NewWorkspaceState("proj", "build it", models.ModeSingle)
	ws.Agents["alpha"] = &models.Agent{ID: "alpha", TaskID: "alpha", Role: "backend-dev", Wave: 1}

	snap := g.Gather(ws)
	agent, ok := snap.Agents["alpha"]
	if !ok {
		t.Fatal("expected alpha agent in snapshot")
	}
	if agent.Status != "idle" {
		t.Fatalf("unexpected status %q", agent.Status)
	}
	if len(agent.FilesCreated) != 1 || agent.FilesCreated[0] != "a.go" {
		t.Fatalf("files created = %v", agent.FilesCreated)
	}
}

func TestDeriveStatusCompletionMarkerWins(t *testing.T) {
	parsed := models.NewParsedOutput()
	parsed.HasCompletionMarker = true
	status := deriveStatus(parsed, time.Now(), StatusThresholds{})
	if status != "completed" {
		t.Fatalf("status = %q, want completed", status)
	}
}

func TestDeriveStatusNoActivityNoEventsIsPending(t *testing.T) {
	parsed := models.NewParsedOutput()
	status := deriveStatus(parsed, time.Now(), StatusThresholds{})
	if status != "pending" {
		t.Fatalf("status = %q, want pending", status)
	}
}

func TestDeriveStatusStaleWithManyEventsIsCompleted(t *testing.T) {
	parsed := models.NewParsedOutput()
	parsed.TotalEvents = 25
	parsed.HasLastActivity = true
	parsed.LastActivity = time.Now().Add(-3 * time.Minute)
	status := deriveStatus(parsed, time.Now(), StatusThresholds{IdleThreshold: 60 * time.Second, CompletionThreshold: 120 * time.Second})
	if status != "completed" {
		t.Fatalf("status = %q, want completed", status)
	}
}

func TestDeriveStatusStaleWithFewEventsIsIdle(t *testing.T) {
	parsed := models.NewParsedOutput()
	parsed.TotalEvents = 5
	parsed.HasLastActivity = true
	parsed.LastActivity = time.Now().Add(-3 * time.Minute)
	status := deriveStatus(parsed, time.Now(), StatusThresholds{IdleThreshold: 60 * time.Second, CompletionThreshold: 120 * time.Second})
	if status != "idle" {
		t.Fatalf("status = %q, want idle", status)
	}
}

func TestDeriveStatusRecentActivityIsRunning(t *testing.T) {
	parsed := models.NewParsedOutput()
	parsed.HasLastActivity = true
	parsed.LastActivity = time.Now()
	status := deriveStatus(parsed, time.Now(), StatusThresholds{IdleThreshold: 60 * time.Second, CompletionThreshold: 120 * time.Second})
	if status != "running" {
		t.Fatalf("status = %q, want running", status)
	}
}

func TestOverallProgressBlendsMeanAndCompletionRatio(t *testing.T) {
	agents := map[string]AgentSnapshot{
		"a": {Progress: 100, Status: "completed"},
		"b": {Progress: 0, Status: "pending"},
	}
	// mean = 50, completion ratio = 0.5 -> 0.5*50 + 0.5*50 = 50
	if got := overallProgress(agents); got != 50 {
		t.Fatalf("overall progress = %d, want 50", got)
	}
}

func TestOverallProgressEmptyIsZero(t *testing.T) {
	if got := overallProgress(map[string]AgentSnapshot{}); got != 0 {
		t.Fatalf("overall progress = %d, want 0", got)
	}
}

func TestOrganizeByWavesGroupsAgents(t *testing.T) {
	agents := map[string]AgentSnapshot{
		"a": {Wave: 1, Status: "running"},
		"b": {Wave: 1, Status: "completed"},
		"c": {Wave: 2, Status: "pending"},
	}
	waves := organizeByWaves(agents)
	if waves[1].Total != 2 || waves[1].Running != 1 || waves[1].Completed != 1 {
		t.Fatalf("wave 1 = %+v", waves[1])
	}
	if waves[2].Total != 1 || waves[2].Pending != 1 {
		t.Fatalf("wave 2 = %+v", waves[2])
	}
}

func TestCheckForChangesDetectsAppendedEvents(t *testing.T) {
	dir := t.TempDir()
	agentDir := filepath.Join(dir, "alpha")
	os.MkdirAll(agentDir, 0755)
	path := writeOutputFile(t, agentDir, "output.ndjson",
		`{"type":"tool_use","name":"Read"}`+"\n")

	g := newTestGatherer(dir)
	ws := models.NewWorkspaceState("proj", "objective", models.ModeSingle)
	ws.Agents["alpha"] = &models.Agent{ID: "alpha", TaskID: "alpha"}

	// Prime the tracker with the initial content.
	g.tracker.GetNewContent(path)

	time.Sleep(10 * time.Millisecond)
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString(`{"type":"text","text":"new activity line"}` + "\n")
	f.Close()

	changed := g.CheckForChanges(ws)
	if !changed {
		t.Fatal("expected CheckForChanges to report a change")
	}

	drained := g.DrainNewEvents()
	if len(drained) == 0 {
		t.Fatal("expected at least one drained event")
	}
	if drained[0].AgentID != "alpha" {
		t.Fatalf("event agent id = %q, want alpha", drained[0].AgentID)
	}
}
