package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/dashboard"
	"github.com/harrison/gasctl/internal/decompose"
	"github.com/harrison/gasctl/internal/gastatus"
	"github.com/harrison/gasctl/internal/history"
	"github.com/harrison/gasctl/internal/logger"
	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var dashboardFlag bool
	var port int
	var configPath string

	cmd := &cobra.Command{
		Use:   "run <workspace>",
		Short: "Run the orchestrator until the workspace reaches a terminal state",
		Long: `Run drives single-mode or swarm-mode orchestration (whichever the
workspace's state.json already records) until the run completes, fails, or
is interrupted by SIGINT/SIGTERM.

With --dashboard, a status server is started alongside the orchestrator
loop so the live status dashboard is reachable while the run is in
progress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], configPath, dashboardFlag, port)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (default: <workspace>/.gasctl.yaml)")
	cmd.Flags().BoolVar(&dashboardFlag, "dashboard", false, "serve the live status dashboard while running")
	cmd.Flags().IntVar(&port, "port", 0, "dashboard port override (0 = use config)")

	return cmd
}

func runRun(cmd *cobra.Command, workspaceArg, configPath string, serveDashboard bool, port int) error {
	workspace, err := filepath.Abs(workspaceArg)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	cfg, err := resolveConfig(workspace, configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	ws, err := orchestrator.LoadState(workspace)
	if err != nil {
		return fmt.Errorf("load workspace state: %w", err)
	}
	if ws == nil {
		return fmt.Errorf("workspace %q is not initialized; run gasctl init first", workspace)
	}

	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create file logger: %w", err)
	}
	defer fileLog.Close()
	log := &multiLogger{loggers: []loggerLike{consoleLog, fileLog}}

	store, err := openKnowledgeStore(defaultKnowledgePath(workspace), cfg)
	if err != nil {
		return err
	}

	hist, err := history.Open(filepath.Join(workspace, "history.db"))
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	orch := orchestrator.New(workspace, cfg, store, log)
	orch.History = hist

	ctx := context.Background()
	if serveDashboard {
		stop := make(chan struct{})
		go serveDashboardFor(workspace, cfg, log, stop)
		defer close(stop)
	}

	var result orchestrator.Result
	if ws.IsSwarm() {
		// A swarm workspace's agents/waves were already recorded by
		// "gasctl init"; LoadState above found existing state, so
		// RunSwarm's empty-plan branch (used only to seed a brand-new
		// workspace) is never reached here.
		result, err = orch.RunSwarm(ctx, ws.Objective, decompose.Plan{})
	} else {
		result, err = orch.RunSingle(ctx, ws.Objective)
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if !result.Completed {
		fmt.Fprintf(cmd.OutOrStdout(), "Run interrupted before reaching a terminal state.\n")
		return nil
	}
	if result.FailureReason != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Run failed: %s\n", result.FailureReason)
		return fmt.Errorf("run failed: %s", result.FailureReason)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run completed (task_complete=%v).\n", result.TaskComplete)
	return nil
}

// resolveConfig loads explicit --config path if given, else the
// workspace-local .gasctl.yaml overlay.
func resolveConfig(workspace, configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", configPath, err)
		}
		return cfg, nil
	}
	cfg, err := loadWorkspaceConfig(workspace)
	if err != nil {
		return nil, fmt.Errorf("load workspace config: %w", err)
	}
	return cfg, nil
}

// serveDashboardFor starts a dashboard.Server for the workspace and blocks
// until stop is closed. Errors are logged, not returned: the dashboard is a
// best-effort accompaniment to the orchestrator loop, never a requirement
// for the run itself to succeed.
func serveDashboardFor(workspace string, cfg *config.Config, log *multiLogger, stop chan struct{}) {
	thresholds := gastatus.StatusThresholds{
		IdleThreshold:       cfg.Timing.IdleThreshold,
		CompletionThreshold: cfg.Timing.CompletionThreshold,
	}
	tracker := gastatus.NewPositionTracker(cfg.Limits.TrackedFiles)
	cache := gastatus.NewParseCache(cfg.Limits.ParseCacheSize)
	gatherer := gastatus.NewGatherer(tracker, cache, cfg.CompletionMarkers, thresholds,
		gastatus.DefaultOutputLocator(workspace))

	srv := dashboard.New(cfg.Server, cfg.Timing, gatherer, func() (*models.WorkspaceState, error) {
		return orchestrator.LoadState(workspace)
	}, log)

	fsWatch, err := gastatus.NewWatcher(workspace)
	if err != nil {
		log.LogWarn(fmt.Sprintf("dashboard file watcher unavailable, falling back to polling only: %v", err))
		fsWatch = nil
	} else {
		defer fsWatch.Close()
	}

	go srv.Watch(stop, fsWatch)

	log.LogInfo(fmt.Sprintf("dashboard listening on %s", srv.Addr()))
	if err := srv.ListenAndServe(); err != nil {
		log.LogError(fmt.Sprintf("dashboard server stopped: %v", err))
	}
}
