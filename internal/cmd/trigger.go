package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/succession"
	"github.com/spf13/cobra"
)

// NewTriggerCommand creates the trigger command. It evaluates one
// generation's status.json and exits 0 (none), 1 (soon), 2 (immediate), or
// 3 (status.json could not be read).
func NewTriggerCommand() *cobra.Command {
	var generationNumber int
	var agent string

	cmd := &cobra.Command{
		Use:   "trigger <workspace>",
		Short: "Evaluate succession urgency for a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(cmd, args[0], agent, generationNumber)
		},
		SilenceErrors: true,
	}
	cmd.Flags().IntVar(&generationNumber, "generation", 1, "generation number to evaluate")
	cmd.Flags().StringVar(&agent, "agent", "", "agent id (swarm mode only)")
	return cmd
}

func runTrigger(cmd *cobra.Command, workspaceArg, agent string, n int) error {
	workspace, err := filepath.Abs(workspaceArg)
	if err != nil {
		return exitWithCode(3, fmt.Errorf("resolve workspace path: %w", err))
	}

	cfg, err := loadWorkspaceConfig(workspace)
	if err != nil {
		return exitWithCode(3, fmt.Errorf("load workspace config: %w", err))
	}

	statusPath := generationStatusPath(workspace, agent, n)
	data, err := os.ReadFile(statusPath)
	if err != nil {
		return exitWithCode(3, fmt.Errorf("read %s: %w", statusPath, err))
	}

	var gen models.Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return exitWithCode(3, fmt.Errorf("parse %s: %w", statusPath, err))
	}

	result := succession.Evaluate(&gen, cfg.Trigger, time.Now())
	fmt.Fprintf(cmd.OutOrStdout(), "urgency=%s score=%.3f primary=%s\n", result.Urgency, result.Score, result.Primary)

	switch result.Urgency {
	case succession.UrgencyImmediate:
		return exitWithCode(2, nil)
	case succession.UrgencySoon:
		return exitWithCode(1, nil)
	default:
		return exitWithCode(0, nil)
	}
}

func generationStatusPath(workspace, agent string, n int) string {
	if agent != "" {
		return filepath.Join(workspace, "agents", agent, "generations", fmt.Sprintf("gen-%d", n), "status.json")
	}
	return filepath.Join(workspace, "generations", fmt.Sprintf("gen-%d", n), "status.json")
}

// exitWithCode prints err (if any) and exits the process with code,
// matching the trigger tool's documented exit-code contract exactly
// (cobra's normal non-zero-on-error path only distinguishes zero/non-zero).
func exitWithCode(code int, err error) error {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
	return nil
}
