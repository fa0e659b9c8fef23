package cmd

import (
	"fmt"

	"github.com/harrison/gasctl/internal/config"
	"github.com/spf13/cobra"
)

// NewKnowledgePruneCommand creates the knowledge prune command.
func NewKnowledgePruneCommand() *cobra.Command {
	var minConfidence float64
	var maxAgeDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop entries below a confidence floor or older than a max age",
	}

	storeFlag := addStoreFlag(cmd)
	configPathFlag := addConfigFlag(cmd)
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "drop entries below this confidence")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "drop entries last seen more than this many days ago (0 = no age limit)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPathFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, err := openKnowledgeStore(*storeFlag, cfg)
		if err != nil {
			return err
		}

		result, err := s.Prune(minConfidence, maxAgeDays)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned: success=%d anti=%d domain=%d\n", result.Success, result.Anti, result.Domain)
		return nil
	}

	return cmd
}
