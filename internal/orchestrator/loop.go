// Package orchestrator implements the control loop (C10): single-mode and
// swarm-mode ticking over generations, driving C5/C7/C9 and persisting
// workspace state.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/harrison/gasctl/internal/budget"
	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/decompose"
	"github.com/harrison/gasctl/internal/generation"
	"github.com/harrison/gasctl/internal/history"
	"github.com/harrison/gasctl/internal/knowledge"
	"github.com/harrison/gasctl/internal/logger"
	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/swarm"
	"github.com/harrison/gasctl/internal/worker"
)

// Result is what a completed run reports to its caller (CLI command or
// dashboard).
type Result struct {
	Completed     bool
	TaskComplete  bool
	FailureReason string
	FinalState    *models.WorkspaceState
}

// Orchestrator owns the long-lived collaborators a run needs: the worker
// launcher, the shared knowledge store, and the generation logger. One
// Orchestrator can run either loop, since both ultimately drive the same
// generation.Lifecycle machinery.
type Orchestrator struct {
	Workspace string
	Config    *config.Config
	Launcher  *worker.Launcher
	Store     *knowledge.Store
	Log       logger.GenerationLogger
	History   *history.Store // optional; nil disables audit recording for every lifecycle
	Budget    *budget.UsageTracker

	budgetWarned bool
}

// New constructs an Orchestrator for a workspace.
func New(workspace string, cfg *config.Config, store *knowledge.Store, log logger.GenerationLogger) *Orchestrator {
	return &Orchestrator{
		Workspace: workspace,
		Config:    cfg,
		Launcher:  worker.New(cfg.Worker),
		Store:     store,
		Log:       log,
		Budget:    budget.NewUsageTracker(filepath.Join(workspace, "generations"), budget.DefaultCostModel()),
	}
}

// checkBudget reloads worker cost usage from the NDJSON output under
// <workspace>/generations (swarm agents' own generations directories are
// not scanned) and warns once, the first tick MaxCostUSD is crossed. It never
// aborts a run: GAS has no concept of a hard kill-switch trigger, only
// visibility, so the warning is logged and the run continues.
func (o *Orchestrator) checkBudget() {
	if o.Budget == nil || o.Config.Budget.MaxCostUSD <= 0 {
		return
	}
	if err := budget.LoadUsage(o.Budget); err != nil {
		return
	}
	status := o.Budget.GetStatus()
	if status == nil || status.Block == nil {
		return
	}
	if status.Block.CostUSD > o.Config.Budget.MaxCostUSD && !o.budgetWarned {
		o.budgetWarned = true
		if o.Log != nil {
			o.Log.LogWarn(fmt.Sprintf("worker cost $%.2f exceeds budget $%.2f",
				status.Block.CostUSD, o.Config.Budget.MaxCostUSD))
		}
	}
}

// withShutdown wraps ctx so that an interrupt or SIGTERM cancels it,
// letting every loop iteration observe cancellation at its next boundary
// on cancellation.
func withShutdown(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// RunSingle drives single-mode orchestration: spawn generation 1 if the
// workspace is new, then tick until the run completes, fails, or is
// interrupted.
func (o *Orchestrator) RunSingle(ctx context.Context, objective string) (Result, error) {
	ctx, cancel := withShutdown(ctx)
	defer cancel()

	ws, err := LoadState(o.Workspace)
	if err != nil {
		return Result{}, fmt.Errorf("run single: %w", err)
	}
	if ws == nil {
		ws = models.NewWorkspaceState(filepath.Base(o.Workspace), objective, models.ModeSingle)
	}

	life := generation.New(o.Workspace, "", o.Config, o.Launcher, o.Store, o.Log)
	if o.History != nil {
		life.SetHistory(o.History, ws.ProjectName)
	}

	if ws.CurrentGeneration == 0 {
		if err := life.Spawn(ctx, ws, 1, 0, nil); err != nil {
			return Result{}, fmt.Errorf("run single: initial spawn: %w", err)
		}
		if err := SaveState(o.Workspace, ws); err != nil {
			return Result{}, fmt.Errorf("run single: %w", err)
		}
	}

	tick := o.Config.Timing.SingleModeTick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{FinalState: ws}, SaveState(o.Workspace, ws)
		case <-ticker.C:
			o.checkBudget()
			result, done, err := o.tickSingle(ctx, life, ws)
			if err != nil {
				return Result{FinalState: ws}, err
			}
			if saveErr := SaveState(o.Workspace, ws); saveErr != nil {
				return Result{FinalState: ws}, saveErr
			}
			if done {
				return result, nil
			}
		}
	}
}

func (o *Orchestrator) tickSingle(ctx context.Context, life *generation.Lifecycle, ws *models.WorkspaceState) (Result, bool, error) {
	t, err := life.Advance(ctx, ws, ws.CurrentGeneration, time.Now())
	if err != nil {
		return Result{}, false, fmt.Errorf("tick generation %d: %w", ws.CurrentGeneration, err)
	}

	switch t.Status {
	case models.GenFailed:
		ws.Completed = true
		ws.FailureReason = fmt.Sprintf("generation %d failed", ws.CurrentGeneration)
		return Result{Completed: true, FailureReason: ws.FailureReason, FinalState: ws}, true, nil
	case models.GenCompleted:
		if !t.RunComplete {
			return Result{}, false, nil
		}
		ws.Completed = true
		ws.TaskComplete = true
		return Result{Completed: true, TaskComplete: true, FinalState: ws}, true, nil
	default:
		return Result{}, false, nil
	}
}

// RunSwarm drives swarm-mode orchestration: initialize wave 1 from plan if
// the workspace is new, then tick every agent's lifecycle and the wave
// barrier until every agent reaches a terminal state.
func (o *Orchestrator) RunSwarm(ctx context.Context, objective string, plan decompose.Plan) (Result, error) {
	ctx, cancel := withShutdown(ctx)
	defer cancel()

	ws, err := LoadState(o.Workspace)
	if err != nil {
		return Result{}, fmt.Errorf("run swarm: %w", err)
	}
	if ws == nil {
		ws = initSwarmState(o.Workspace, objective, plan)
	}

	lifecycles := map[string]*generation.Lifecycle{}
	for id := range ws.Agents {
		life := generation.New(o.Workspace, id, o.Config, o.Launcher, o.Store, o.Log)
		if o.History != nil {
			life.SetHistory(o.History, ws.ProjectName)
		}
		lifecycles[id] = life
	}
	scheduler := swarm.New(func(agentID string) swarm.Spawner {
		return lifecycles[agentID]
	})

	if err := o.spawnWaveOneIfNeeded(ctx, ws, lifecycles); err != nil {
		return Result{}, err
	}
	if err := SaveState(o.Workspace, ws); err != nil {
		return Result{}, err
	}

	tick := o.Config.Timing.SwarmModeTick
	if tick <= 0 {
		tick = 5 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{FinalState: ws}, SaveState(o.Workspace, ws)
		case <-ticker.C:
			o.checkBudget()
			done, err := o.tickSwarm(ctx, ws, lifecycles, scheduler)
			if err != nil {
				return Result{FinalState: ws}, err
			}
			if saveErr := SaveState(o.Workspace, ws); saveErr != nil {
				return Result{FinalState: ws}, saveErr
			}
			if done {
				ws.Completed = true
				return Result{Completed: true, TaskComplete: true, FinalState: ws}, nil
			}
		}
	}
}

func (o *Orchestrator) tickSwarm(ctx context.Context, ws *models.WorkspaceState, lifecycles map[string]*generation.Lifecycle, scheduler *swarm.Scheduler) (bool, error) {
	now := time.Now()
	for id, agent := range ws.Agents {
		if agent.CurrentGeneration == 0 || terminal(agent.Status) {
			continue
		}
		life, ok := lifecycles[id]
		if !ok {
			continue
		}
		t, err := life.Advance(ctx, ws, agent.CurrentGeneration, now)
		if err != nil {
			return false, fmt.Errorf("tick agent %q generation %d: %w", id, agent.CurrentGeneration, err)
		}
		agent.Status = t.Status
		if t.Spawned != 0 {
			agent.CurrentGeneration = t.Spawned
			agent.TotalGenerations = t.Spawned
		}
	}

	before := ws.CurrentWave
	opened, err := scheduler.Advance(ctx, ws)
	if err != nil {
		return false, fmt.Errorf("advance wave barrier: %w", err)
	}
	if opened != 0 && o.Log != nil {
		o.Log.LogWaveTransition(before, opened, len(ws.Waves[opened]))
	}

	return swarm.AllComplete(ws), nil
}

func (o *Orchestrator) spawnWaveOneIfNeeded(ctx context.Context, ws *models.WorkspaceState, lifecycles map[string]*generation.Lifecycle) error {
	for _, id := range ws.Waves[1] {
		agent, ok := ws.Agents[id]
		if !ok || agent.CurrentGeneration != 0 {
			continue
		}
		life, ok := lifecycles[id]
		if !ok {
			return fmt.Errorf("spawn wave 1: no lifecycle for agent %q", id)
		}
		if err := life.Spawn(ctx, ws, 1, 0, nil); err != nil {
			return fmt.Errorf("spawn wave 1 agent %q: %w", id, err)
		}
		agent.CurrentGeneration = 1
		agent.TotalGenerations = 1
	}
	if ws.CurrentWave == 0 {
		ws.CurrentWave = 1
	}
	if ws.WaveStates[1] == nil {
		started := time.Now().UTC()
		ws.WaveStates[1] = &models.Wave{Number: 1, Agents: append([]string(nil), ws.Waves[1]...), Status: models.WaveRunning, StartedAt: &started}
	}
	return nil
}

// InitSwarmState builds a fresh swarm-mode workspace state from a
// decomposition plan, for callers (e.g. `gasctl init`) that need to create
// state.json before any orchestrator run starts.
func InitSwarmState(workspace, objective string, plan decompose.Plan) *models.WorkspaceState {
	return initSwarmState(workspace, objective, plan)
}

func initSwarmState(workspace, objective string, plan decompose.Plan) *models.WorkspaceState {
	ws := models.NewWorkspaceState(filepath.Base(workspace), objective, models.ModeSwarm)
	maxWave := 1
	for _, agent := range plan.Agents {
		ws.Agents[agent.ID] = agent
		ws.Waves[agent.Wave] = append(ws.Waves[agent.Wave], agent.ID)
		if agent.Wave > maxWave {
			maxWave = agent.Wave
		}
	}
	for w, deps := range plan.Dependencies {
		ws.Dependencies[w] = deps
	}
	ws.TotalWaves = maxWave
	return ws
}

func terminal(status models.GenerationStatus) bool {
	return status == models.GenSucceeded || status == models.GenCompleted || status == models.GenFailed
}
