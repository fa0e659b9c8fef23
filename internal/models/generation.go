package models

import "time"

// GenerationStatus is the lifecycle state of a single generation.
type GenerationStatus string

const (
	GenPending   GenerationStatus = "pending"
	GenRunning   GenerationStatus = "running"
	GenIdle      GenerationStatus = "idle"
	GenSucceeded GenerationStatus = "succeeded"
	GenCompleted GenerationStatus = "completed"
	GenFailed    GenerationStatus = "failed"
)

// Learning is a single item of knowledge surfaced by a worker before it
// succeeds or completes. Type routes it into the knowledge store's kinds.
type Learning struct {
	Type    string `json:"type"` // "success_pattern", "anti_pattern", or other
	Context string `json:"context"`
	Pattern string `json:"pattern"`
}

// Generation is the lifecycle record persisted at
// generations/gen-{N}/status.json (or agents/{A}/generations/gen-{N}/status.json
// in swarm mode).
type Generation struct {
	Agent  string           `json:"agent,omitempty"` // empty in single mode
	Number int              `json:"generation"`
	Parent int              `json:"parent,omitempty"`
	Status GenerationStatus `json:"status"`

	Interactions int     `json:"interactions"`
	Errors       int     `json:"errors"`
	Progress     float64 `json:"progress"`
	Confidence   float64 `json:"confidence"`

	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CompletedTasks []string   `json:"completed_tasks,omitempty"`
	Learnings      []Learning `json:"learnings,omitempty"`
	Blockers       []string   `json:"blockers,omitempty"`
	Decisions      []string   `json:"key_decisions,omitempty"`
	NextSteps      []string   `json:"next_steps,omitempty"`
	ActiveFiles    []string   `json:"active_files,omitempty"`
	CurrentPhase   string     `json:"current_phase,omitempty"`
	RemainingPhases []string  `json:"remaining_phases,omitempty"`

	SucceededTo int  `json:"succeeded_to,omitempty"`
	TaskComplete bool `json:"task_complete,omitempty"`
}

// NewGeneration constructs the initial status.json contents for a spawned
// generation, per C7 spawn step 2.
func NewGeneration(agent string, number, parent int) *Generation {
	now := time.Now().UTC()
	return &Generation{
		Agent:       agent,
		Number:      number,
		Parent:      parent,
		Status:      GenPending,
		Confidence:  1.0,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// IsTerminal reports whether the generation has left the active lifecycle.
func (g *Generation) IsTerminal() bool {
	switch g.Status {
	case GenSucceeded, GenCompleted, GenFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether the generation is still doing work.
func (g *Generation) IsActive() bool {
	return g.Status == GenRunning || g.Status == GenIdle
}
