package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/harrison/gasctl/internal/budget"
	"github.com/harrison/gasctl/internal/history"
	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "report <workspace>",
		Short: "Summarize why successions happened across a run",
		Long: `Report reads the workspace's audit trail (history.db) and prints, per
generation, its terminal status and the trigger reason that caused it,
plus a tally of how often each trigger reason drove a succession. This is
in addition to the final run summary "gasctl run" itself prints; it exists
for after-the-fact analysis of a completed or in-progress run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args[0], agent)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "limit to one agent (swarm mode)")
	return cmd
}

func runReport(cmd *cobra.Command, workspaceArg, agent string) error {
	workspace, err := filepath.Abs(workspaceArg)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	ws, err := orchestrator.LoadState(workspace)
	if err != nil {
		return fmt.Errorf("load workspace state: %w", err)
	}
	if ws == nil {
		return fmt.Errorf("workspace %q is not initialized", workspace)
	}

	dbPath := filepath.Join(workspace, "history.db")
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No history recorded yet for %q.\n", ws.ProjectName)
		printSuccessions(cmd, ws)
		printBudget(cmd, workspace)
		return nil
	}

	hist, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer hist.Close()

	ctx := cmd.Context()
	outcomes, err := hist.OutcomesForProject(ctx, ws.ProjectName, agent)
	if err != nil {
		return fmt.Errorf("query outcomes: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d recorded generation outcome(s)\n", ws.ProjectName, len(outcomes))
	for _, o := range outcomes {
		label := o.AgentID
		if label == "" {
			label = "(single)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s gen %d -> %-10s reason=%-16s score=%.2f complete=%v\n",
			label, o.GenerationNumber, o.Status, orDash(o.TriggerReason), o.TriggerScore, o.TaskComplete)
	}

	reasons, err := hist.SuccessionReasons(ctx, ws.ProjectName)
	if err != nil {
		return fmt.Errorf("query succession reasons: %w", err)
	}
	if len(reasons) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSuccession reasons:\n")
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %d\n", k, reasons[k])
		}
	}

	printSuccessions(cmd, ws)
	printBudget(cmd, workspace)
	return nil
}

// printBudget reloads worker cost usage from the NDJSON output under
// <workspace>/generations and prints the current 5-hour block's spend, if
// any usage has been recorded yet. Swarm agents' own generations
// directories are not scanned.
func printBudget(cmd *cobra.Command, workspace string) {
	tracker := budget.NewUsageTracker(filepath.Join(workspace, "generations"), budget.DefaultCostModel())
	if err := budget.LoadUsage(tracker); err != nil {
		return
	}
	status := tracker.GetStatus()
	if status == nil || status.Block == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nWorker cost (current 5h block): $%.2f, %d tokens across %d call(s)\n",
		status.Block.CostUSD, status.Block.TotalTokens, len(status.Block.Entries))
}

// printSuccessions lists every agent (or the single chain) currently beyond
// generation 1, sorted by generation then agent id — a quick answer to
// "who has already succeeded at least once" straight from live state,
// without needing the audit trail.
func printSuccessions(cmd *cobra.Command, ws *models.WorkspaceState) {
	type entry struct {
		agent      string
		generation int
	}
	var beyond []entry
	if ws.IsSwarm() {
		for id, a := range ws.Agents {
			if a.CurrentGeneration > 1 {
				beyond = append(beyond, entry{id, a.CurrentGeneration})
			}
		}
	} else if ws.CurrentGeneration > 1 {
		beyond = append(beyond, entry{"(single)", ws.CurrentGeneration})
	}
	if len(beyond) == 0 {
		return
	}
	sort.Slice(beyond, func(i, j int) bool {
		if beyond[i].generation != beyond[j].generation {
			return beyond[i].generation < beyond[j].generation
		}
		return beyond[i].agent < beyond[j].agent
	})

	fmt.Fprintf(cmd.OutOrStdout(), "\nAgents beyond generation 1:\n")
	for _, e := range beyond {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s gen %d\n", e.agent, e.generation)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
