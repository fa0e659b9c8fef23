package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/knowledge"
)

// defaultKnowledgePath is the store location inside a workspace.
func defaultKnowledgePath(workspace string) string {
	return filepath.Join(workspace, "knowledge", "store.json")
}

// openKnowledgeStore loads (or lazily creates) the workspace's shared
// knowledge store using the caps and tuning parameters from cfg.
func openKnowledgeStore(path string, cfg *config.Config) (*knowledge.Store, error) {
	caps := knowledge.Caps{
		Success: cfg.Knowledge.SuccessCap,
		Anti:    cfg.Knowledge.AntiCap,
		Domain:  cfg.Knowledge.DomainCap,
	}
	store, err := knowledge.Load(path, caps, cfg.Knowledge.DefaultConfidence, cfg.Knowledge.DecayAmount,
		cfg.Knowledge.DecayFloor, cfg.Knowledge.PromotionThreshold, cfg.Knowledge.PromotionBump)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	return store, nil
}
