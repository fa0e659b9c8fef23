package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harrison/gasctl/internal/models"
	"github.com/harrison/gasctl/internal/orchestrator"
)

func TestReportListsSuccessionsBeyondGenerationOne(t *testing.T) {
	workspace := t.TempDir()
	ws := models.NewWorkspaceState("proj", "ship it", models.ModeSwarm)
	ws.Agents["alpha"] = &models.Agent{ID: "alpha", CurrentGeneration: 3}
	ws.Agents["beta"] = &models.Agent{ID: "beta", CurrentGeneration: 1}
	if err := orchestrator.SaveState(workspace, ws); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	cmd := NewReportCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{workspace})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "alpha") || !strings.Contains(output, "gen 3") {
		t.Fatalf("expected alpha's generation 3 succession listed, got:\n%s", output)
	}
	if strings.Contains(output, "beta") {
		t.Fatalf("beta never succeeded past generation 1, should not be listed:\n%s", output)
	}
}

func TestReportSingleModeAtGenerationOneOmitsSuccessionSection(t *testing.T) {
	workspace := t.TempDir()
	ws := models.NewWorkspaceState("proj", "ship it", models.ModeSingle)
	ws.CurrentGeneration = 1
	if err := orchestrator.SaveState(workspace, ws); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	cmd := NewReportCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{workspace})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if strings.Contains(buf.String(), "Agents beyond generation 1") {
		t.Fatalf("generation 1 should not trigger a successions section, got:\n%s", buf.String())
	}
}
