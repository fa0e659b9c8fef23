// Package generation implements the per-generation state machine (C7):
// spawning a generation directory, launching its worker, and driving
// succession or completion as the orchestrator loop ticks.
package generation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/gasctl/internal/budget"
	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/filelock"
	"github.com/harrison/gasctl/internal/history"
	"github.com/harrison/gasctl/internal/knowledge"
	"github.com/harrison/gasctl/internal/logger"
	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/prompt"
	"github.com/harrison/gasctl/internal/succession"
	"github.com/harrison/gasctl/internal/worker"
)

// encodeJSON and decodeJSON are package vars so tests can substitute a
// deterministic encoder; production code always uses encoding/json.
var (
	encodeJSON = defaultEncodeJSON
	decodeJSON = defaultDecodeJSON
)

// Launcher is the subset of worker.Launcher the lifecycle needs, narrowed to
// an interface so tests can stub it without starting real processes.
type Launcher interface {
	Launch(ctx context.Context, gen int, paths worker.Paths) (*worker.Handle, error)
}

// Tick is the outcome of advancing one generation by one orchestrator tick.
type Tick struct {
	Status      models.GenerationStatus
	Spawned     int  // child generation number, 0 if none was spawned
	RunComplete bool // the generation set task_complete
}

// Lifecycle drives a single agent's (or the sole generation line, in single
// mode) sequence of generations within one workspace.
type Lifecycle struct {
	workspace      string
	agent          string // empty in single mode
	cfg            config.TriggerConfig
	promptTemplate string
	launcher       Launcher
	store          *knowledge.Store
	log            logger.GenerationLogger
	history        *history.Store // optional; nil disables audit recording
	project        string
}

// New builds a Lifecycle for a workspace (and, in swarm mode, one agent
// within it). store is shared across all agents in the workspace (C4).
func New(workspace, agent string, cfg *config.Config, launcher Launcher, store *knowledge.Store, log logger.GenerationLogger) *Lifecycle {
	return &Lifecycle{
		workspace:      workspace,
		agent:          agent,
		cfg:            cfg.Trigger,
		promptTemplate: cfg.Worker.PromptTemplate,
		launcher:       launcher,
		store:          store,
		log:            log,
	}
}

// SetHistory attaches an optional audit-trail store. Call it after New;
// until it is called, terminal generation transitions simply skip recording
// (history is additive to the JSON knowledge store, never required by it).
func (l *Lifecycle) SetHistory(h *history.Store, project string) *Lifecycle {
	l.history = h
	l.project = project
	return l
}

// recordOutcome writes one row to the audit trail, if one is attached.
func (l *Lifecycle) recordOutcome(ws *models.WorkspaceState, gen *models.Generation, reason string, score float64) {
	if l.history == nil {
		return
	}
	project := l.project
	if project == "" && ws != nil {
		project = ws.ProjectName
	}
	err := l.history.RecordOutcome(context.Background(), history.Outcome{
		ProjectName:      project,
		AgentID:          l.agent,
		GenerationNumber: gen.Number,
		ParentGeneration: gen.Parent,
		Status:           string(gen.Status),
		TriggerReason:    reason,
		TriggerScore:     score,
		Confidence:       gen.Confidence,
		Interactions:     gen.Interactions,
		Errors:           gen.Errors,
		TaskComplete:     gen.TaskComplete,
	})
	if err != nil && l.log != nil {
		l.log.LogError(fmt.Sprintf("record history outcome for generation %d: %v", gen.Number, err))
	}
}

// generationDir returns the directory for generation n, nesting under
// agents/{agent}/generations in swarm mode.
func (l *Lifecycle) generationDir(n int) string {
	if l.agent != "" {
		return filepath.Join(l.workspace, "agents", l.agent, "generations", fmt.Sprintf("gen-%d", n))
	}
	return filepath.Join(l.workspace, "generations", fmt.Sprintf("gen-%d", n))
}

func (l *Lifecycle) statusPath(n int) string {
	return filepath.Join(l.generationDir(n), "status.json")
}

func (l *Lifecycle) transferPath(n int) string {
	return filepath.Join(l.generationDir(n), "transfer.json")
}

// renderPrompt builds the prompt text for generation n, substituting the
// objective and, past the first generation, the predecessor's transfer
// document into the configured (or default) template.
func (l *Lifecycle) renderPrompt(objective string, n int, transfer *models.TransferDocument) (string, error) {
	tmpl := l.promptTemplate
	if tmpl == "" {
		tmpl = prompt.DefaultTemplate
	}
	return prompt.Render(tmpl, prompt.BuildData(objective, n, transfer))
}

// logRateLimitIfPresent inspects a failed generation's worker.log for a
// Claude CLI rate-limit message, logging the detected reset time so an
// operator watching a failed run can tell a rate limit from a genuine
// worker crash at a glance.
func (l *Lifecycle) logRateLimitIfPresent(n int) {
	if l.log == nil {
		return
	}
	raw, err := os.ReadFile(filepath.Join(l.generationDir(n), "worker.log"))
	if err != nil {
		return
	}
	info := budget.ParseRateLimitFromOutput(string(raw))
	if info == nil {
		return
	}
	l.log.LogWarn(fmt.Sprintf("generation %d failure looks like a rate limit (%s), resets around %s",
		n, info.LimitType, info.ResetAt.Format(time.RFC3339)))
}

// Spawn implements C7's spawn(N, transfer?): creates the generation
// directory, writes the initial status and optional transfer document,
// updates ws's bookkeeping, and launches the external worker.
func (l *Lifecycle) Spawn(ctx context.Context, ws *models.WorkspaceState, n, parent int, transfer *models.TransferDocument) error {
	dir := l.generationDir(n)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("spawn generation %d: create directory: %w", n, err)
	}

	gen := models.NewGeneration(l.agent, n, parent)
	if err := l.writeStatus(gen); err != nil {
		return fmt.Errorf("spawn generation %d: %w", n, err)
	}

	if transfer != nil {
		data, err := encodeJSON(transfer)
		if err != nil {
			return fmt.Errorf("spawn generation %d: encode transfer: %w", n, err)
		}
		if err := filelock.AtomicWrite(l.transferPath(n), data); err != nil {
			return fmt.Errorf("spawn generation %d: write transfer: %w", n, err)
		}
	}

	ws.CurrentGeneration = n
	if l.agent != "" {
		if a, ok := ws.Agents[l.agent]; ok {
			a.CurrentGeneration = n
			a.TotalGenerations = n
		}
	}

	paths := worker.Paths{
		Workspace:  l.workspace,
		Generation: dir,
		Status:     l.statusPath(n),
		Output:     filepath.Join(dir, "output.ndjson"),
	}
	if transfer != nil {
		paths.Transfer = l.transferPath(n)
	}

	rendered, err := l.renderPrompt(ws.Objective, n, transfer)
	if err != nil {
		return fmt.Errorf("spawn generation %d: %w", n, err)
	}
	paths.Prompt = rendered

	if l.launcher != nil {
		if _, err := l.launcher.Launch(ctx, n, paths); err != nil {
			return fmt.Errorf("spawn generation %d: launch worker: %w", n, err)
		}
	}

	if l.log != nil {
		l.log.LogGenerationSpawn(gen)
	}
	return nil
}

// Advance reads generation n's current status and, based on its lifecycle
// state, performs the appropriate transition: trigger evaluation leading
// to succession, completion-marker leading to completed/failed terminal
// handling, or no-op while still running.
func (l *Lifecycle) Advance(ctx context.Context, ws *models.WorkspaceState, n int, now time.Time) (Tick, error) {
	gen, err := l.readStatus(n)
	if err != nil {
		return Tick{}, fmt.Errorf("advance generation %d: %w", n, err)
	}

	switch gen.Status {
	case models.GenSucceeded:
		return Tick{Status: gen.Status}, nil
	case models.GenFailed:
		l.recordOutcome(ws, gen, "", 0)
		l.logRateLimitIfPresent(n)
		return Tick{Status: gen.Status}, nil
	case models.GenCompleted:
		tick, err := l.finishCompleted(ws, gen)
		if err != nil || tick.RunComplete {
			return tick, err
		}
		// The generation reached completion_marker but the worker hasn't
		// set task_complete: more phases remain, so hand off to a fresh
		// generation the same way a resource-driven trigger would. Learnings
		// were already consolidated by finishCompleted above.
		return l.spawnSuccessor(ctx, ws, gen, succession.Result{Primary: "completed"}, now)
	}

	result := succession.Evaluate(gen, l.cfg, now)
	if l.log != nil {
		l.log.LogTriggerEvaluation(generationAgentID(l.agent, n), result.Score, string(result.Urgency), result.Primary)
	}

	if result.Urgency == succession.UrgencySoon || result.Urgency == succession.UrgencyImmediate {
		return l.handleSuccession(ctx, ws, gen, result, now)
	}
	return Tick{Status: gen.Status}, nil
}

// handleSuccession implements C7's handle_succession(N): consolidate, then
// spawn the successor.
func (l *Lifecycle) handleSuccession(ctx context.Context, ws *models.WorkspaceState, gen *models.Generation, result succession.Result, now time.Time) (Tick, error) {
	if err := ConsolidateLearnings(gen, l.store); err != nil {
		return Tick{}, fmt.Errorf("handle succession %d: consolidate learnings: %w", gen.Number, err)
	}
	return l.spawnSuccessor(ctx, ws, gen, result, now)
}

// spawnSuccessor builds the transfer document, spawns generation N+1, and
// marks generation N succeeded. Learnings must already be consolidated by
// the caller.
func (l *Lifecycle) spawnSuccessor(ctx context.Context, ws *models.WorkspaceState, gen *models.Generation, result succession.Result, now time.Time) (Tick, error) {
	childN := gen.Number + 1
	transfer := succession.BuildTransfer(gen, childN, ws.Objective, l.store, result)

	if err := l.Spawn(ctx, ws, childN, gen.Number, transfer); err != nil {
		return Tick{}, fmt.Errorf("handle succession %d: %w", gen.Number, err)
	}

	gen.Status = models.GenSucceeded
	gen.SucceededTo = childN
	completedAt := now
	gen.CompletedAt = &completedAt
	if err := l.writeStatus(gen); err != nil {
		return Tick{}, fmt.Errorf("handle succession %d: mark succeeded: %w", gen.Number, err)
	}
	l.recordOutcome(ws, gen, result.Primary, result.Score)

	if l.log != nil {
		child, err := l.readStatus(childN)
		if err == nil {
			l.log.LogSuccession(gen, child, result.Primary)
		}
	}

	return Tick{Status: models.GenSucceeded, Spawned: childN}, nil
}

// finishCompleted consolidates a completed generation's learnings without
// spawning a successor.
func (l *Lifecycle) finishCompleted(ws *models.WorkspaceState, gen *models.Generation) (Tick, error) {
	if err := ConsolidateLearnings(gen, l.store); err != nil {
		return Tick{}, fmt.Errorf("finish completed generation %d: %w", gen.Number, err)
	}
	if gen.TaskComplete {
		l.recordOutcome(ws, gen, "task_complete", 0)
	}
	return Tick{Status: models.GenCompleted, RunComplete: gen.TaskComplete}, nil
}

// ConsolidateLearnings is succession.ConsolidateLearnings, re-exported so
// callers that only import generation don't also need the succession
// package directly.
func ConsolidateLearnings(gen *models.Generation, store *knowledge.Store) error {
	return succession.ConsolidateLearnings(gen, store)
}

func (l *Lifecycle) writeStatus(gen *models.Generation) error {
	data, err := encodeJSON(gen)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return filelock.AtomicWrite(l.statusPath(gen.Number), data)
}

func (l *Lifecycle) readStatus(n int) (*models.Generation, error) {
	data, err := os.ReadFile(l.statusPath(n))
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	var gen models.Generation
	if err := decodeJSON(data, &gen); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &gen, nil
}

func generationAgentID(agent string, n int) string {
	if agent == "" {
		return fmt.Sprintf("gen-%d", n)
	}
	return fmt.Sprintf("%s/gen-%d", agent, n)
}
