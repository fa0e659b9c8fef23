package cmd

import (
	"fmt"

	"github.com/harrison/gasctl/internal/config"
	"github.com/spf13/cobra"
)

// NewKnowledgeStatsCommand creates the knowledge stats command.
func NewKnowledgeStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-kind entry counts",
	}

	storeFlag := addStoreFlag(cmd)
	configPathFlag := addConfigFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPathFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, err := openKnowledgeStore(*storeFlag, cfg)
		if err != nil {
			return err
		}

		stats := s.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "success=%d anti=%d domain=%d\n", stats.SuccessCount, stats.AntiCount, stats.DomainCount)
		return nil
	}

	return cmd
}
