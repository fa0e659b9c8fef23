package succession

import (
	"time"

	"github.com/harrison/gasctl/internal/knowledge"
	"github.com/harrison/gasctl/internal/models"
)

// topKPerKindDefault: the transfer document carries the
// top 5 entries per knowledge kind.
const topKPerKindDefault = 5

// BuildTransfer assembles a transfer document from the current generation's
// status, the knowledge store's export, the workspace's task objective, and
// the trigger result that caused the handoff. childGen is the
// generation number the successor will be spawned as.
func BuildTransfer(gen *models.Generation, childGen int, objective string, store *knowledge.Store, trigger Result) *models.TransferDocument {
	export := store.Export(topKPerKindDefault)

	return &models.TransferDocument{
		Meta: models.TransferMeta{
			ParentGen:           gen.Number,
			ChildGen:            childGen,
			Reason:              trigger.Primary,
			ConfidenceAtHandoff: gen.Confidence,
			Timestamp:           time.Now(),
		},
		TaskState: models.TaskState{
			Objective:       objective,
			Progress:        gen.Progress,
			CurrentPhase:    gen.CurrentPhase,
			RemainingPhases: gen.RemainingPhases,
			Blockers:        gen.Blockers,
		},
		CompletedWork: models.CompletedWork{
			Subtasks:     gen.CompletedTasks,
			KeyDecisions: gen.Decisions,
		},
		WorkingMemory: models.WorkingMemory{
			ActiveFiles: gen.ActiveFiles,
			NextSteps:   gen.NextSteps,
		},
		AccumulatedKnowledge: export,
	}
}

// ConsolidateLearnings routes a completed or succeeded generation's
// learnings into the knowledge store, one kind per learning.type:
// success_pattern -> success, anti_pattern -> anti, anything else -> domain.
func ConsolidateLearnings(gen *models.Generation, store *knowledge.Store) error {
	for _, l := range gen.Learnings {
		kind := models.KindDomain
		switch l.Type {
		case "success_pattern":
			kind = models.KindSuccess
		case "anti_pattern":
			kind = models.KindAnti
		}

		opts := knowledge.AddOptions{
			SourceGen:   gen.Number,
			SourceAgent: gen.Agent,
		}
		if _, err := store.Add(kind, l.Context, l.Pattern, opts); err != nil {
			return err
		}
	}
	return nil
}
