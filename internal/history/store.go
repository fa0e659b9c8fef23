// Package history is a thin SQLite-backed audit trail of generation
// outcomes, using the database/sql + mattn/go-sqlite3 + go:embed schema.sql
// pattern. It is
// additional to, not a replacement for, the JSON-based knowledge store
// (internal/knowledge), which remains the spec's C4 contract; history exists
// so `gasctl report` can answer "why did succession happen" after the fact
// without re-parsing every status.json in a workspace.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Outcome is one row of the generation_outcomes table: what happened when a
// generation ended, and why.
type Outcome struct {
	ID               int64
	ProjectName      string
	AgentID          string
	GenerationNumber int
	ParentGeneration int
	Status           string
	TriggerReason    string
	TriggerScore     float64
	Confidence       float64
	Interactions     int
	Errors           int
	TaskComplete     bool
	RecordedAt       time.Time
}

// Store wraps a SQLite database of generation outcomes.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite database at path, initializing its
// schema if needed. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create history database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordOutcome inserts one generation outcome row.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_outcomes (
			project_name, agent_id, generation_number, parent_generation,
			status, trigger_reason, trigger_score, confidence,
			interactions, errors, task_complete
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ProjectName, o.AgentID, o.GenerationNumber, o.ParentGeneration,
		o.Status, o.TriggerReason, o.TriggerScore, o.Confidence,
		o.Interactions, o.Errors, boolToInt(o.TaskComplete),
	)
	if err != nil {
		return fmt.Errorf("record generation outcome: %w", err)
	}
	return nil
}

// OutcomesForProject returns every recorded outcome for a project, oldest
// first, optionally narrowed to one agent (empty agentID means all agents).
func (s *Store) OutcomesForProject(ctx context.Context, projectName, agentID string) ([]Outcome, error) {
	query := `
		SELECT id, project_name, agent_id, generation_number, parent_generation,
		       status, trigger_reason, trigger_score, confidence,
		       interactions, errors, task_complete, recorded_at
		FROM generation_outcomes
		WHERE project_name = ?`
	args := []any{projectName}
	if agentID != "" {
		query += " AND agent_id = ?"
		args = append(args, agentID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var taskComplete int
		if err := rows.Scan(&o.ID, &o.ProjectName, &o.AgentID, &o.GenerationNumber, &o.ParentGeneration,
			&o.Status, &o.TriggerReason, &o.TriggerScore, &o.Confidence,
			&o.Interactions, &o.Errors, &taskComplete, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan generation outcome: %w", err)
		}
		o.TaskComplete = taskComplete != 0
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// SuccessionReasons tallies how often each trigger_reason led to a
// succession across a project, for `gasctl report`'s summary view.
func (s *Store) SuccessionReasons(ctx context.Context, projectName string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trigger_reason, COUNT(*)
		FROM generation_outcomes
		WHERE project_name = ? AND status = 'succeeded'
		GROUP BY trigger_reason`, projectName)
	if err != nil {
		return nil, fmt.Errorf("query succession reasons: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("scan succession reason: %w", err)
		}
		counts[reason] = count
	}
	return counts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
