package cmd

import (
	"fmt"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/knowledge"
	"github.com/spf13/cobra"
)

// NewKnowledgeQueryCommand creates the knowledge query command.
func NewKnowledgeQueryCommand() *cobra.Command {
	var kind, context string
	var minConfidence float64
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query knowledge entries by kind, context substring, and confidence",
	}

	storeFlag := addStoreFlag(cmd)
	configPathFlag := addConfigFlag(cmd)
	cmd.Flags().StringVar(&kind, "kind", "", "success | anti | domain (empty = all kinds)")
	cmd.Flags().StringVar(&context, "context", "", "case-insensitive substring match on context")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "minimum confidence")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum entries returned")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPathFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, err := openKnowledgeStore(*storeFlag, cfg)
		if err != nil {
			return err
		}

		opts := knowledge.QueryOptions{
			Context:       context,
			MinConfidence: minConfidence,
			Limit:         limit,
		}
		if kind != "" {
			parsed, err := parseKnowledgeKind(kind)
			if err != nil {
				return err
			}
			opts.Kind = parsed
		}

		for _, e := range s.Query(opts) {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-6.2f %-30s %s\n", e.Kind, e.Confidence, e.Context, e.Pattern)
		}
		return nil
	}

	return cmd
}
