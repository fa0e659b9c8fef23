// Package swarm implements the wave scheduler (C9): barrier-gated
// progression through waves of agents in swarm mode. A wave
// never opens until every agent in the wave before it has reached a
// terminal per-generation-line state.
package swarm

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/gasctl/internal/models"
)

// terminalAgentStatuses are the agent statuses is_wave_complete treats as
// "done with this wave" (status ∈ {completed, succeeded}).
var terminalAgentStatuses = map[models.GenerationStatus]bool{
	models.GenCompleted: true,
	models.GenSucceeded: true,
}

// Spawner is the subset of generation.Lifecycle the scheduler needs to
// start an agent's first generation, narrowed to an interface so a single
// scheduler can drive many agents' lifecycles (one per agent, same
// workspace) without depending on the generation package's concrete type.
type Spawner interface {
	Spawn(ctx context.Context, ws *models.WorkspaceState, n, parent int, transfer *models.TransferDocument) error
}

// LifecycleFor resolves the Spawner to use for a given agent id.
type LifecycleFor func(agentID string) Spawner

// Scheduler advances a swarm workspace's waves, one barrier at a time.
type Scheduler struct {
	spawnerFor LifecycleFor
}

// New builds a Scheduler. spawnerFor must return a Spawner scoped to the
// given agent (i.e. a generation.Lifecycle constructed with that agent id).
func New(spawnerFor LifecycleFor) *Scheduler {
	return &Scheduler{spawnerFor: spawnerFor}
}

// CurrentWave returns the workspace's current wave number.
func CurrentWave(ws *models.WorkspaceState) int {
	return ws.CurrentWave
}

// IsWaveComplete reports whether every agent in wave w has reached a
// terminal status.
func IsWaveComplete(ws *models.WorkspaceState, w int) bool {
	agentIDs, ok := ws.Waves[w]
	if !ok || len(agentIDs) == 0 {
		return false
	}
	for _, id := range agentIDs {
		agent, ok := ws.Agents[id]
		if !ok {
			return false
		}
		if !terminalAgentStatuses[agent.Status] {
			return false
		}
	}
	return true
}

// Advance implements C9's advance(): if the current wave is complete and
// more waves remain, it closes the current wave, opens the next, and spawns
// generation 1 for every agent in the new wave that hasn't started yet. It
// returns the wave number that was opened, or 0 if no transition occurred.
func (s *Scheduler) Advance(ctx context.Context, ws *models.WorkspaceState) (int, error) {
	current := ws.CurrentWave
	if current >= ws.TotalWaves {
		return 0, nil
	}
	if !IsWaveComplete(ws, current) {
		return 0, nil
	}

	now := time.Now().UTC()

	cw := ws.WaveStates[current]
	if cw == nil {
		cw = &models.Wave{Number: current, Agents: append([]string(nil), ws.Waves[current]...)}
		ws.WaveStates[current] = cw
	}
	cw.Status = models.WaveCompleted
	completedAt := now
	cw.CompletedAt = &completedAt

	next := current + 1
	ws.CurrentWave = next

	nw := ws.WaveStates[next]
	if nw == nil {
		nw = &models.Wave{Number: next, Agents: append([]string(nil), ws.Waves[next]...)}
		ws.WaveStates[next] = nw
	}
	nw.Status = models.WaveRunning
	startedAt := now
	nw.StartedAt = &startedAt

	for _, id := range ws.Waves[next] {
		agent, ok := ws.Agents[id]
		if !ok || agent.CurrentGeneration != 0 {
			continue
		}
		spawner := s.spawnerFor(id)
		if spawner == nil {
			return next, fmt.Errorf("advance to wave %d: no lifecycle for agent %q", next, id)
		}
		if err := spawner.Spawn(ctx, ws, 1, 0, nil); err != nil {
			return next, fmt.Errorf("advance to wave %d: spawn agent %q: %w", next, id, err)
		}
	}

	return next, nil
}

// AllComplete reports whether every agent across every wave has reached a
// terminal status, used by the orchestrator loop to decide when a swarm run
// is finished.
func AllComplete(ws *models.WorkspaceState) bool {
	if len(ws.Agents) == 0 {
		return false
	}
	for _, agent := range ws.Agents {
		if !terminalAgentStatuses[agent.Status] {
			return false
		}
	}
	return true
}

