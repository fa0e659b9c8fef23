package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/harrison/gasctl/internal/config"
	"github.com/spf13/cobra"
)

// NewKnowledgeExportCommand creates the knowledge export command.
func NewKnowledgeExportCommand() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the top entries per kind as JSON",
	}

	storeFlag := addStoreFlag(cmd)
	configPathFlag := addConfigFlag(cmd)
	cmd.Flags().IntVar(&topK, "top", 10, "entries per kind")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPathFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, err := openKnowledgeStore(*storeFlag, cfg)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s.Export(topK))
	}

	return cmd
}
