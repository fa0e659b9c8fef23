package models

import "time"

// WaveStatus is the lifecycle state of a wave barrier.
type WaveStatus string

const (
	WavePending   WaveStatus = "pending"
	WaveRunning   WaveStatus = "running"
	WaveCompleted WaveStatus = "completed"
)

// Wave groups agents that must all reach a terminal state before the next
// wave number is allowed to start.
type Wave struct {
	Number      int        `json:"number"`
	Agents      []string   `json:"agents"`
	Status      WaveStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
