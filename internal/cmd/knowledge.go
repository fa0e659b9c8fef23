package cmd

import "github.com/spf13/cobra"

// NewKnowledgeCommand creates the knowledge command and its subcommands
// (add, query, prune, export, stats), each operating on a knowledge store
// JSON file named directly with --store rather than a workspace path, so
// the knowledge tool can inspect or seed a store before a workspace exists.
func NewKnowledgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect and edit a knowledge store",
	}

	cmd.AddCommand(NewKnowledgeAddCommand())
	cmd.AddCommand(NewKnowledgeQueryCommand())
	cmd.AddCommand(NewKnowledgePruneCommand())
	cmd.AddCommand(NewKnowledgeExportCommand())
	cmd.AddCommand(NewKnowledgeStatsCommand())

	return cmd
}

// addStoreFlag registers the --store flag shared by every knowledge
// subcommand and returns a pointer to its value.
func addStoreFlag(cmd *cobra.Command) *string {
	store := new(string)
	cmd.Flags().StringVar(store, "store", "", "path to the knowledge store JSON file (required)")
	cmd.MarkFlagRequired("store")
	return store
}

// addConfigFlag registers the optional --config flag knowledge subcommands
// use to source non-default caps/tuning, since a knowledge store can be
// edited standalone, without a workspace.
func addConfigFlag(cmd *cobra.Command) *string {
	configPath := new(string)
	cmd.Flags().StringVar(configPath, "config", "", "optional config file for caps and tuning (default: built-in defaults)")
	return configPath
}
