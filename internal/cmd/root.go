// Package cmd wires the gasctl cobra command tree: one file per subcommand,
// each a NewXCommand() *cobra.Command constructor, assembled by
// NewRootCommand.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for gasctl.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gasctl",
		Short: "Generational agent succession orchestrator",
		Long: `gasctl spawns and supersedes generations of worker agents that each
inherit a compact transfer document from their predecessor, evaluating
interaction count, confidence, error rate, and stall time to decide when
one generation should hand off to the next.

It runs in single-agent mode (one succession chain) or swarm mode (waves
of agents coordinated by a dependency barrier), persists a shared
knowledge store across generations, and can serve a live status dashboard
over HTTP and WebSocket.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewSpawnCommand())
	cmd.AddCommand(NewTriggerCommand())
	cmd.AddCommand(NewKnowledgeCommand())

	return cmd
}
