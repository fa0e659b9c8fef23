package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDatabaseAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec("SELECT 1 FROM generation_outcomes LIMIT 1")
	require.NoError(t, err)
}

func TestOpenInMemoryDatabase(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
}

func TestRecordAndQueryOutcomes(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.RecordOutcome(ctx, Outcome{
		ProjectName: "proj", AgentID: "alpha", GenerationNumber: 1,
		Status: "succeeded", TriggerReason: "confidence", TriggerScore: 0.8,
		Confidence: 0.6, Interactions: 120, TaskComplete: false,
	}))
	require.NoError(t, s.RecordOutcome(ctx, Outcome{
		ProjectName: "proj", AgentID: "alpha", GenerationNumber: 2,
		Status: "completed", TriggerReason: "completion_marker",
		TaskComplete: true,
	}))
	require.NoError(t, s.RecordOutcome(ctx, Outcome{
		ProjectName: "proj", AgentID: "beta", GenerationNumber: 1,
		Status: "succeeded", TriggerReason: "errors",
	}))

	all, err := s.OutcomesForProject(ctx, "proj", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "alpha", all[0].AgentID)

	alphaOnly, err := s.OutcomesForProject(ctx, "proj", "alpha")
	require.NoError(t, err)
	require.Len(t, alphaOnly, 2)
	require.True(t, alphaOnly[1].TaskComplete)
}

func TestSuccessionReasonsTalliesByReason(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.RecordOutcome(ctx, Outcome{ProjectName: "proj", Status: "succeeded", TriggerReason: "confidence"}))
	require.NoError(t, s.RecordOutcome(ctx, Outcome{ProjectName: "proj", Status: "succeeded", TriggerReason: "confidence"}))
	require.NoError(t, s.RecordOutcome(ctx, Outcome{ProjectName: "proj", Status: "succeeded", TriggerReason: "errors"}))
	require.NoError(t, s.RecordOutcome(ctx, Outcome{ProjectName: "proj", Status: "completed", TriggerReason: "completion_marker"}))

	counts, err := s.SuccessionReasons(ctx, "proj")
	require.NoError(t, err)
	require.Equal(t, 2, counts["confidence"])
	require.Equal(t, 1, counts["errors"])
	require.NotContains(t, counts, "completion_marker")
}
