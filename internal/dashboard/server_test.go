package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/gastatus"
	"github.com/harrison/gasctl/internal/models"
)

func testGatherer() *gastatus.Gatherer {
	tracker := gastatus.NewPositionTracker(10)
	cache := gastatus.NewParseCache(10)
	thresholds := gastatus.StatusThresholds{IdleThreshold: time.Minute, CompletionThreshold: 2 * time.Minute}
	return gastatus.NewGatherer(tracker, cache, nil, thresholds, func(a *models.Agent) (string, bool) { return "", false })
}

func TestHandleStatusReturnsSnapshot(t *testing.T) {
	ws := models.NewWorkspaceState("proj", "objective", models.ModeSwarm)
	ws.Agents["alpha"] = &models.Agent{ID: "alpha", Status: models.GenRunning}

	s := New(config.ServerConfig{}, config.TimingConfig{}, testGatherer(), func() (*models.WorkspaceState, error) { return ws, nil }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap gastatus.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ProjectName != "proj" || snap.TotalAgents != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestHandleStatusMissingWorkspaceIs404(t *testing.T) {
	s := New(config.ServerConfig{}, config.TimingConfig{}, testGatherer(), func() (*models.WorkspaceState, error) { return nil, nil }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleAgentReturnsSnapshotForKnownAgent(t *testing.T) {
	ws := models.NewWorkspaceState("proj", "objective", models.ModeSwarm)
	ws.Agents["alpha"] = &models.Agent{ID: "alpha", Role: "backend-dev"}

	s := New(config.ServerConfig{}, config.TimingConfig{}, testGatherer(), func() (*models.WorkspaceState, error) { return ws, nil }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/agent/alpha", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleAgentUnknownIs404(t *testing.T) {
	ws := models.NewWorkspaceState("proj", "objective", models.ModeSwarm)
	s := New(config.ServerConfig{}, config.TimingConfig{}, testGatherer(), func() (*models.WorkspaceState, error) { return ws, nil }, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/agent/missing", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealthReportsClientCount(t *testing.T) {
	s := New(config.ServerConfig{}, config.TimingConfig{}, testGatherer(), func() (*models.WorkspaceState, error) { return nil, nil }, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %+v", body)
	}
	if body["ws_connection_count"] != float64(0) {
		t.Fatalf("ws_connection_count = %v, want 0", body["ws_connection_count"])
	}
}
