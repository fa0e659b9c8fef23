package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/harrison/gasctl/internal/gastatus"
	"github.com/harrison/gasctl/internal/logger"
	"github.com/harrison/gasctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var asJSON bool
	var serve bool
	var port int

	cmd := &cobra.Command{
		Use:   "status <workspace>",
		Short: "Print the workspace's current status",
		Long: `Status prints a one-shot snapshot of the workspace's agents and progress.

With --serve, it instead starts the dashboard's HTTP/WebSocket surface
read-only against the workspace and blocks until interrupted, with no
orchestrator attached. This is the recovery-mode counterpart to
"gasctl run --dashboard": reattaching a dashboard to a workspace whose
orchestrator process already exited or is running elsewhere.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serve {
				return runStatusServe(cmd, args[0], port)
			}
			return runStatus(cmd, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status snapshot as JSON")
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the dashboard read-only, with no orchestrator attached, until interrupted")
	cmd.Flags().IntVar(&port, "port", 0, "dashboard port override (0 = use config)")
	return cmd
}

func runStatus(cmd *cobra.Command, workspaceArg string, asJSON bool) error {
	workspace, err := filepath.Abs(workspaceArg)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	cfg, err := loadWorkspaceConfig(workspace)
	if err != nil {
		return fmt.Errorf("load workspace config: %w", err)
	}

	ws, err := orchestrator.LoadState(workspace)
	if err != nil {
		return fmt.Errorf("load workspace state: %w", err)
	}
	if ws == nil {
		return fmt.Errorf("workspace %q is not initialized", workspace)
	}

	thresholds := gastatus.StatusThresholds{
		IdleThreshold:       cfg.Timing.IdleThreshold,
		CompletionThreshold: cfg.Timing.CompletionThreshold,
	}
	tracker := gastatus.NewPositionTracker(cfg.Limits.TrackedFiles)
	cache := gastatus.NewParseCache(cfg.Limits.ParseCacheSize)
	gatherer := gastatus.NewGatherer(tracker, cache, cfg.CompletionMarkers, thresholds,
		gastatus.DefaultOutputLocator(workspace))

	snap := gatherer.Gather(ws)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) — progress %d%%\n", snap.ProjectName, snap.Mode, snap.OverallProgress)
	fmt.Fprintf(cmd.OutOrStdout(), "  agents: %d total, %d active, %d completed\n",
		snap.TotalAgents, snap.ActiveAgents, snap.CompletedAgents)

	ids := make([]string, 0, len(snap.Agents))
	for id := range snap.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := snap.Agents[id]
		fmt.Fprintf(cmd.OutOrStdout(), "  %-20s wave=%d gen=%d status=%-10s progress=%3d%% %s\n",
			a.ID, a.Wave, a.Generation, a.Status, a.Progress, a.Activity)
	}
	return nil
}

// runStatusServe starts a read-only dashboard against workspace with no
// orchestrator attached, blocking until interrupted. It reuses
// serveDashboardFor, the same dashboard-construction path "gasctl run
// --dashboard" uses, so both entry points serve an identical surface.
func runStatusServe(cmd *cobra.Command, workspaceArg string, port int) error {
	workspace, err := filepath.Abs(workspaceArg)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	cfg, err := loadWorkspaceConfig(workspace)
	if err != nil {
		return fmt.Errorf("load workspace config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	ws, err := orchestrator.LoadState(workspace)
	if err != nil {
		return fmt.Errorf("load workspace state: %w", err)
	}
	if ws == nil {
		return fmt.Errorf("workspace %q is not initialized", workspace)
	}

	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	log := &multiLogger{loggers: []loggerLike{consoleLog}}

	stop := make(chan struct{})
	go serveDashboardFor(workspace, cfg, log, stop)

	waitForInterrupt()
	close(stop)
	return nil
}

// waitForInterrupt blocks until SIGINT or SIGTERM, the same signals
// withShutdown observes for an attached run.
func waitForInterrupt() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)
}
