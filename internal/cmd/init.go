package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/decompose"
	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var mode string
	var agentCount int

	cmd := &cobra.Command{
		Use:   "init <project-name> <objective>",
		Short: "Create a new workspace",
		Long: `Create a new workspace directory and its initial state.json.

In single mode (the default) the workspace starts with no generations
spawned; the first "gasctl run" call spawns generation 1. In swarm mode the
objective is decomposed into agents, waves, and wave dependencies using the
default role-table heuristic, and wave 1's agents are recorded (but not yet
spawned) in state.json.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], args[1], mode, agentCount)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "single", "orchestration mode: single or swarm")
	cmd.Flags().IntVar(&agentCount, "agents", 3, "agent count (swarm mode only)")

	return cmd
}

func runInit(cmd *cobra.Command, projectName, objective, mode string, agentCount int) error {
	if mode != "single" && mode != "swarm" {
		return fmt.Errorf("invalid --mode %q: must be single or swarm", mode)
	}

	workspace, err := filepath.Abs(projectName)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("create workspace directory: %w", err)
	}

	if existing, err := orchestrator.LoadState(workspace); err != nil {
		return fmt.Errorf("check existing workspace: %w", err)
	} else if existing != nil {
		return fmt.Errorf("workspace %q already initialized", workspace)
	}

	var ws *models.WorkspaceState
	if mode == "swarm" {
		plan := decompose.NewRoleTable().Decompose(objective, agentCount)
		ws = orchestrator.InitSwarmState(workspace, objective, plan)
	} else {
		ws = models.NewWorkspaceState(filepath.Base(workspace), objective, models.ModeSingle)
	}

	if err := orchestrator.SaveState(workspace, ws); err != nil {
		return fmt.Errorf("write initial state: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(workspace, "knowledge"), 0755); err != nil {
		return fmt.Errorf("create knowledge directory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s workspace %q at %s\n", mode, projectName, workspace)
	if mode == "swarm" {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d agent(s) across %d wave(s)\n", len(ws.Agents), ws.TotalWaves)
	}
	return nil
}

// loadWorkspaceConfig loads a workspace-local config overlay, if present,
// the same way every other subcommand does.
func loadWorkspaceConfig(workspace string) (*config.Config, error) {
	overlay := filepath.Join(workspace, ".gasctl.yaml")
	return config.Load(overlay)
}
