// Package models defines the persistent data structures shared across the
// GAS orchestrator: workspace state, generations, agents, waves, transfer
// documents, and knowledge entries. These mirror the on-disk JSON contract
// documented in the workspace layout (state.json, knowledge/store.json,
// generations/gen-{N}/status.json).
package models

import "time"

// Mode is the orchestration mode for a workspace.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeSwarm  Mode = "swarm"
)

// WorkspaceState is the top-level record persisted at <workspace>/state.json.
type WorkspaceState struct {
	ProjectName       string           `json:"project_name"`
	Objective         string           `json:"objective"`
	Mode              Mode             `json:"mode"`
	StartTime         time.Time        `json:"start_time"`
	CurrentGeneration int              `json:"current_generation"`
	CurrentWave       int              `json:"current_wave"`
	TotalWaves        int              `json:"total_waves"`
	Agents            map[string]*Agent `json:"agents,omitempty"`
	Waves             map[int][]string  `json:"waves,omitempty"` // wave number -> agent ids, ordered
	WaveStates        map[int]*Wave     `json:"wave_states,omitempty"` // wave number -> barrier state
	Dependencies      map[int][]int     `json:"dependencies,omitempty"` // wave -> waves it depends on
	TaskComplete      bool             `json:"task_complete"`
	Completed         bool             `json:"completed"`
	FailureReason     string           `json:"failure_reason,omitempty"`
}

// NewWorkspaceState creates a fresh workspace state in the given mode.
func NewWorkspaceState(projectName, objective string, mode Mode) *WorkspaceState {
	return &WorkspaceState{
		ProjectName:       projectName,
		Objective:         objective,
		Mode:              mode,
		StartTime:         time.Now().UTC(),
		CurrentGeneration: 0,
		CurrentWave:       1,
		TotalWaves:        1,
		Agents:            make(map[string]*Agent),
		Waves:             make(map[int][]string),
		WaveStates:        make(map[int]*Wave),
		Dependencies:      make(map[int][]int),
	}
}

// IsSwarm reports whether the workspace runs in swarm mode.
func (w *WorkspaceState) IsSwarm() bool {
	return w.Mode == ModeSwarm
}
