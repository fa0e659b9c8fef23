package cmd

import (
	"fmt"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/knowledge"
	"github.com/harrison/gasctl/internal/models"
	"github.com/spf13/cobra"
)

// NewKnowledgeAddCommand creates the knowledge add command.
func NewKnowledgeAddCommand() *cobra.Command {
	var kind, context, pattern, evidence, impact, category, sourceAgent string
	var confidence float64
	var sourceGen int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add (or reinforce, if a duplicate) a knowledge entry",
	}

	storeFlag := addStoreFlag(cmd)
	configPathFlag := addConfigFlag(cmd)
	cmd.Flags().StringVar(&kind, "kind", "", "success | anti | domain (required)")
	cmd.Flags().StringVar(&context, "context", "", "the situation the pattern applies to (required)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "the pattern itself (required)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "initial confidence (0 uses the store's default)")
	cmd.Flags().IntVar(&sourceGen, "source-gen", 0, "generation number that surfaced this pattern")
	cmd.Flags().StringVar(&sourceAgent, "source-agent", "", "agent id that surfaced this pattern")
	cmd.Flags().StringVar(&evidence, "evidence", "", "kind=success only")
	cmd.Flags().StringVar(&impact, "impact", "", "kind=anti only")
	cmd.Flags().StringVar(&category, "category", "", "kind=domain only")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagRequired("context")
	cmd.MarkFlagRequired("pattern")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPathFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, err := openKnowledgeStore(*storeFlag, cfg)
		if err != nil {
			return err
		}

		k, err := parseKnowledgeKind(kind)
		if err != nil {
			return err
		}

		entry, err := s.Add(k, context, pattern, knowledge.AddOptions{
			Confidence:  confidence,
			SourceGen:   sourceGen,
			SourceAgent: sourceAgent,
			Evidence:    evidence,
			Impact:      impact,
			Category:    category,
		})
		if err != nil {
			return fmt.Errorf("add entry: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s entry %s: occurrences=%d confidence=%.2f\n",
			entry.Kind, entry.ID, entry.Occurrences, entry.Confidence)
		return nil
	}

	return cmd
}

func parseKnowledgeKind(s string) (models.KnowledgeKind, error) {
	switch s {
	case "success":
		return models.KindSuccess, nil
	case "anti":
		return models.KindAnti, nil
	case "domain":
		return models.KindDomain, nil
	default:
		return "", fmt.Errorf("invalid --kind %q: must be success, anti, or domain", s)
	}
}
