package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harrison/gasctl/internal/generation"
	"github.com/harrison/gasctl/internal/logger"
	"github.com/harrison/gasctl/internal/orchestrator"
	"github.com/harrison/gasctl/internal/worker"
	"github.com/spf13/cobra"
)

// NewSpawnCommand creates the spawn command.
func NewSpawnCommand() *cobra.Command {
	var generationNumber int
	var agent string

	cmd := &cobra.Command{
		Use:   "spawn <workspace>",
		Short: "Manually spawn a generation (for recovery)",
		Long: `Spawn creates generation N's directory, writes its initial status.json,
and launches the configured worker command, without going through the
orchestrator's trigger evaluation. It exists for recovering a workspace
whose state.json records a generation that was never actually spawned
(worker crash, manual edit, interrupted run).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpawn(cmd, args[0], agent, generationNumber)
		},
	}
	cmd.Flags().IntVar(&generationNumber, "generation", 1, "generation number to spawn")
	cmd.Flags().StringVar(&agent, "agent", "", "agent id (swarm mode only)")
	return cmd
}

func runSpawn(cmd *cobra.Command, workspaceArg, agent string, n int) error {
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
	if agent != "" {
		if _, ok := ws.Agents[agent]; !ok {
			return fmt.Errorf("unknown agent %q", agent)
		}
	}

	store, err := openKnowledgeStore(defaultKnowledgePath(workspace), cfg)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	launcher := worker.New(cfg.Worker)
	life := generation.New(workspace, agent, cfg, launcher, store, log)

	parent := n - 1
	if err := life.Spawn(context.Background(), ws, n, parent, nil); err != nil {
		return fmt.Errorf("spawn generation %d: %w", n, err)
	}
	if err := orchestrator.SaveState(workspace, ws); err != nil {
		return fmt.Errorf("save workspace state: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Spawned generation %d in %s\n", n, workspace)
	return nil
}
