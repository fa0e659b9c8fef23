package swarm

import (
	"context"
	"testing"

	"github.com/harrison/gasctl/internal/models"
)

type fakeSpawner struct {
	spawned []string
}

func (f *fakeSpawner) Spawn(ctx context.Context, ws *models.WorkspaceState, n, parent int, transfer *models.TransferDocument) error {
	return nil
}

func newSwarmWorkspace() *models.WorkspaceState {
	ws := models.NewWorkspaceState("proj", "objective", models.ModeSwarm)
	ws.TotalWaves = 2
	ws.CurrentWave = 1
	ws.Waves[1] = []string{"a1", "a2"}
	ws.Waves[2] = []string{"a3", "a4"}
	ws.Agents["a1"] = &models.Agent{ID: "a1", Wave: 1, Status: models.GenRunning}
	ws.Agents["a2"] = &models.Agent{ID: "a2", Wave: 1, Status: models.GenRunning}
	ws.Agents["a3"] = &models.Agent{ID: "a3", Wave: 2}
	ws.Agents["a4"] = &models.Agent{ID: "a4", Wave: 2}
	return ws
}

func TestIsWaveCompleteFalseWhileAnyAgentActive(t *testing.T) {
	ws := newSwarmWorkspace()
	if IsWaveComplete(ws, 1) {
		t.Fatal("wave 1 should not be complete while a1/a2 are running")
	}
}

func TestIsWaveCompleteTrueWhenAllTerminal(t *testing.T) {
	ws := newSwarmWorkspace()
	ws.Agents["a1"].Status = models.GenCompleted
	ws.Agents["a2"].Status = models.GenSucceeded
	if !IsWaveComplete(ws, 1) {
		t.Fatal("wave 1 should be complete")
	}
}

func TestAdvanceNoopWhenWaveIncomplete(t *testing.T) {
	ws := newSwarmWorkspace()
	spawner := &fakeSpawner{}
	sched := New(func(agentID string) Spawner { return spawner })

	n, err := sched.Advance(context.Background(), ws)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0 (no transition)", n)
	}
	if ws.CurrentWave != 1 {
		t.Fatalf("current wave = %d, want 1", ws.CurrentWave)
	}
}

func TestAdvanceOpensNextWaveAndSpawnsZeroGenAgents(t *testing.T) {
	ws := newSwarmWorkspace()
	ws.Agents["a1"].Status = models.GenCompleted
	ws.Agents["a2"].Status = models.GenSucceeded

	spawnedFor := map[string]bool{}
	sched := New(func(agentID string) Spawner {
		return spawnRecorder{agentID: agentID, seen: spawnedFor}
	})

	n, err := sched.Advance(context.Background(), ws)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if ws.CurrentWave != 2 {
		t.Fatalf("current wave = %d, want 2", ws.CurrentWave)
	}
	if ws.WaveStates[1].Status != models.WaveCompleted {
		t.Fatalf("wave 1 state = %v, want completed", ws.WaveStates[1].Status)
	}
	if ws.WaveStates[2].Status != models.WaveRunning {
		t.Fatalf("wave 2 state = %v, want running", ws.WaveStates[2].Status)
	}
	if !spawnedFor["a3"] || !spawnedFor["a4"] {
		t.Fatalf("expected spawn for a3 and a4, got %v", spawnedFor)
	}
}

type spawnRecorder struct {
	agentID string
	seen    map[string]bool
}

func (s spawnRecorder) Spawn(ctx context.Context, ws *models.WorkspaceState, n, parent int, transfer *models.TransferDocument) error {
	s.seen[s.agentID] = true
	return nil
}

func TestAdvanceDoesNotRespawnAgentWithExistingGeneration(t *testing.T) {
	ws := newSwarmWorkspace()
	ws.Agents["a1"].Status = models.GenCompleted
	ws.Agents["a2"].Status = models.GenSucceeded
	ws.Agents["a3"].CurrentGeneration = 1

	spawnedFor := map[string]bool{}
	sched := New(func(agentID string) Spawner {
		return spawnRecorder{agentID: agentID, seen: spawnedFor}
	})

	if _, err := sched.Advance(context.Background(), ws); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if spawnedFor["a3"] {
		t.Fatal("a3 already has a generation, should not be respawned")
	}
	if !spawnedFor["a4"] {
		t.Fatal("a4 should be spawned")
	}
}

func TestAllCompleteRequiresEveryAgentTerminal(t *testing.T) {
	ws := newSwarmWorkspace()
	if AllComplete(ws) {
		t.Fatal("should not be complete initially")
	}
	for _, a := range ws.Agents {
		a.Status = models.GenCompleted
	}
	if !AllComplete(ws) {
		t.Fatal("expected all complete")
	}
}
