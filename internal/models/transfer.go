package models

import "time"

// TransferMeta stamps provenance and succession reason onto a transfer
// document.
type TransferMeta struct {
	ParentGen           int       `json:"parent_gen"`
	ChildGen            int       `json:"child_gen"`
	Reason              string    `json:"reason"`
	ConfidenceAtHandoff float64   `json:"confidence_at_handoff"`
	Timestamp           time.Time `json:"timestamp"`
}

// TaskState carries the successor's view of where the overall objective stands.
type TaskState struct {
	Objective       string   `json:"objective"`
	Progress        float64  `json:"progress"`
	CurrentPhase    string   `json:"current_phase"`
	RemainingPhases []string `json:"remaining_phases"`
	Blockers        []string `json:"blockers"`
}

// CompletedWork records what the predecessor generation finished.
type CompletedWork struct {
	Subtasks    []string `json:"subtasks"`
	KeyDecisions []string `json:"key_decisions"`
}

// WorkingMemory carries forward the predecessor's active context.
type WorkingMemory struct {
	ActiveFiles []string `json:"active_files"`
	NextSteps   []string `json:"next_steps"`
}

// TransferDocument is the compact inheritance record handed from generation
// N to generation N+1.
type TransferDocument struct {
	Meta                 TransferMeta          `json:"meta"`
	TaskState            TaskState             `json:"task_state"`
	CompletedWork        CompletedWork         `json:"completed_work"`
	WorkingMemory        WorkingMemory         `json:"working_memory"`
	AccumulatedKnowledge KnowledgeExport       `json:"accumulated_knowledge"`
	ConversationSummary  string                `json:"conversation_summary"`
}

// Validate checks the transfer-document invariants exercised by the
// round-trip law: child must exceed parent, confidence must be in [0,1].
func (t *TransferDocument) Validate() error {
	if t.Meta.ChildGen <= t.Meta.ParentGen {
		return &ValidationError{Field: "meta.child_gen", Message: "child generation must exceed parent"}
	}
	if t.Meta.ConfidenceAtHandoff < 0 || t.Meta.ConfidenceAtHandoff > 1 {
		return &ValidationError{Field: "meta.confidence_at_handoff", Message: "confidence out of [0,1]"}
	}
	return nil
}
