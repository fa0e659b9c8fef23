package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/gasctl/internal/filelock"
	"github.com/harrison/gasctl/internal/models"
)

// stateFilenames is the ordered set of filenames LoadState tries: the
// canonical name first, then fallback names used by workspaces migrated
// from an older tool.
var stateFilenames = []string{"state.json", "swarm-config.json", "config.json"}

// LoadState reads the workspace's process-local authoritative record,
// trying state.json and then its migration fallbacks in order. A missing
// file under every candidate name is not an error — it signals a
// brand-new workspace the caller must initialize.
func LoadState(workspace string) (*models.WorkspaceState, error) {
	var data []byte
	var err error
	for _, name := range stateFilenames {
		data, err = os.ReadFile(filepath.Join(workspace, name))
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load workspace state: %w", err)
		}
	}
	if err != nil {
		return nil, nil
	}

	var ws models.WorkspaceState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("decode workspace state: %w", err)
	}
	return &ws, nil
}

// SaveState atomically persists ws to <workspace>/state.json.
func SaveState(workspace string, ws *models.WorkspaceState) error {
	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("encode workspace state: %w", err)
	}
	if err := filelock.AtomicWrite(statePath(workspace), data); err != nil {
		return fmt.Errorf("save workspace state: %w", err)
	}
	return nil
}

func statePath(workspace string) string {
	return filepath.Join(workspace, "state.json")
}
