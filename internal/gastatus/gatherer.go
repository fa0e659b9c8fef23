package gastatus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/harrison/gasctl/internal/fileutil"
	"github.com/harrison/gasctl/internal/models"
)

// singleAgentID labels the synthetic agent discovered for single-mode
// workspaces, which have no Agent records of their own (models.Agent's doc
// comment). It matches the "(single)" label gasctl report already uses for
// the same chain.
const singleAgentID = "(single)"

// AgentSnapshot is one agent's gathered status, assembled from workspace
// config and parsed output.
type AgentSnapshot struct {
	ID               string
	Role             string
	Wave             int
	Generation       int
	Mission          string
	TaskID           string
	Status           string // pending, running, idle, completed
	Progress         int
	CurrentTask      string
	Activity         string // one-line human-readable summary of recent activity
	ToolsUsed        map[string]int
	FilesCreated     []string
	FilesModified    []string
	LastActivity     time.Time
	HasLastActivity  bool
	HasCompletion    bool
	OutputFile       string
	Errors           []string
}

// WaveSummary aggregates agent counts per wave.
type WaveSummary struct {
	Wave      int
	Agents    []string
	Total     int
	Running   int
	Completed int
	Idle      int
	Pending   int
}

// Snapshot is the immutable aggregate C11 broadcasts and serves from
// /api/status.
type Snapshot struct {
	ProjectName     string
	Mode            models.Mode
	StartTime       time.Time
	OverallProgress int
	Agents          map[string]AgentSnapshot
	Waves           map[int]WaveSummary
	TotalAgents     int
	ActiveAgents    int
	CompletedAgents int
	Timestamp       time.Time
}

// StatusThresholds configures the idle/completion derivation; normally
// sourced from config.TimingConfig.
type StatusThresholds struct {
	IdleThreshold       time.Duration
	CompletionThreshold time.Duration
}

// OutputLocator finds the NDJSON output file path for an agent, by task_id
// match or directory-name convention. It is pluggable so gatherer tests can
// avoid touching the filesystem.
type OutputLocator func(agent *models.Agent) (path string, found bool)

// Gatherer is C8: it owns the position tracker, parse cache, and the
// per-agent incremental parse state, and produces Snapshots on demand.
type Gatherer struct {
	tracker    *PositionTracker
	cache      *ParseCache
	thresholds StatusThresholds
	markers    []string
	locate     OutputLocator

	mu          sync.Mutex
	parsed      map[string]*models.ParsedOutput
	recentEvents []models.LiveEvent
	newEvents    []models.LiveEvent
}

const globalEventRingSize = 50

// NewGatherer wires a Gatherer around the given tracker/cache, completion
// markers, status thresholds, and output-locating strategy.
func NewGatherer(tracker *PositionTracker, cache *ParseCache, markers []string, thresholds StatusThresholds, locate OutputLocator) *Gatherer {
	return &Gatherer{
		tracker:    tracker,
		cache:      cache,
		thresholds: thresholds,
		markers:    markers,
		locate:     locate,
		parsed:     make(map[string]*models.ParsedOutput),
	}
}

// discoveredAgents returns the union spec.md §4.8 step 3 requires: every
// agent already recorded in state.agents, plus, for single-mode workspaces
// (which have no Agent records at all — models.Agent's doc comment), a
// synthetic agent representing the sole generation chain, located the same
// way a swarm agent is: by its own output path. Output files that belong to
// no recorded agent are not added.
func discoveredAgents(ws *models.WorkspaceState) map[string]*models.Agent {
	agents := make(map[string]*models.Agent, len(ws.Agents)+1)
	for id, agent := range ws.Agents {
		agents[id] = agent
	}
	if !ws.IsSwarm() {
		if _, exists := agents[singleAgentID]; !exists {
			agents[singleAgentID] = &models.Agent{
				ID:                singleAgentID,
				CurrentGeneration: ws.CurrentGeneration,
			}
		}
	}
	return agents
}

// Gather produces a full snapshot from workspace state: one entry per agent
// that discoveredAgents returns. Output files with no agent record in the
// state are not scanned for or included.
func (g *Gatherer) Gather(ws *models.WorkspaceState) Snapshot {
	now := time.Now()
	discovered := discoveredAgents(ws)
	agents := make(map[string]AgentSnapshot, len(discovered))

	for id, agent := range discovered {
		agents[id] = g.snapshotAgent(agent, now)
	}

	snap := Snapshot{
		ProjectName:     ws.ProjectName,
		Mode:            ws.Mode,
		StartTime:       ws.StartTime,
		Agents:          agents,
		TotalAgents:     len(agents),
		Timestamp:       now,
	}
	for _, a := range agents {
		if a.Status == "running" {
			snap.ActiveAgents++
		}
		if a.Status == "completed" {
			snap.CompletedAgents++
		}
	}
	snap.OverallProgress = overallProgress(agents)
	if ws.IsSwarm() {
		snap.Waves = organizeByWaves(agents)
	}
	return snap
}

func (g *Gatherer) snapshotAgent(agent *models.Agent, now time.Time) AgentSnapshot {
	snap := AgentSnapshot{
		ID:         agent.ID,
		Role:       agent.Role,
		Wave:       agent.Wave,
		Generation: agent.CurrentGeneration,
		Mission:    agent.Mission,
		TaskID:     agent.TaskID,
		Status:     "pending",
	}

	path, found := "", false
	if g.locate != nil {
		path, found = g.locate(agent)
	}
	if !found {
		return snap
	}
	snap.OutputFile = path

	parsed, ok := g.parseWithCache(path)
	if !ok {
		return snap
	}

	snap.Status = deriveStatus(parsed, now, g.thresholds)
	snap.Progress = parsed.ProgressEstimate
	snap.CurrentTask = parsed.CurrentTask
	snap.Activity = ActivitySummary(parsed)
	snap.ToolsUsed = parsed.ToolsUsed
	snap.FilesCreated = parsed.FilesCreatedList()
	snap.FilesModified = parsed.FilesModifiedList()
	snap.HasCompletion = parsed.HasCompletionMarker
	snap.Errors = parsed.Errors
	if parsed.HasLastActivity {
		snap.LastActivity = parsed.LastActivity
		snap.HasLastActivity = true
	}
	return snap
}

// parseWithCache consults C2 by (path, mtime); on miss it loads the full
// content via C1 and parses via C3, caching and remembering the result.
func (g *Gatherer) parseWithCache(path string) (*models.ParsedOutput, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	mtime := info.ModTime().UnixNano()

	if cached, ok := g.cache.Get(path, mtime); ok {
		return cached, true
	}

	content := g.tracker.GetAllContent(path)
	parsed := ParseLines(content, nil, g.markers)
	g.cache.Set(path, mtime, parsed)

	g.mu.Lock()
	g.parsed[path] = parsed
	g.mu.Unlock()

	return parsed, true
}

// CheckForChanges polls C1 for every tracked agent output file; changed
// files are re-parsed incrementally (extending the prior ParsedOutput) and
// their newly appended live events are pushed onto both the per-agent log
// and the bounded global ring.
func (g *Gatherer) CheckForChanges(ws *models.WorkspaceState) bool {
	hasChanges := false

	for _, agent := range discoveredAgents(ws) {
		if g.locate == nil {
			continue
		}
		path, found := g.locate(agent)
		if !found {
			continue
		}

		content, changed := g.tracker.GetNewContent(path)
		if !changed {
			continue
		}
		hasChanges = true

		g.mu.Lock()
		existing := g.parsed[path]
		// ParseLines extends existing in place, so the new content's own
		// events are taken from a separate parse of just that content.
		fresh := ParseLines(content, nil, g.markers)
		parsed := fresh
		if existing != nil {
			parsed = ParseLines(content, existing, g.markers)
		}
		g.parsed[path] = parsed

		for _, ev := range fresh.LiveEvents {
			ev.AgentID = agent.ID
			g.newEvents = append(g.newEvents, ev)
			g.recentEvents = append(g.recentEvents, ev)
		}
		if len(g.recentEvents) > globalEventRingSize*2 {
			g.recentEvents = g.recentEvents[len(g.recentEvents)-globalEventRingSize:]
		}
		g.mu.Unlock()

		if info, err := os.Stat(path); err == nil {
			g.cache.Set(path, info.ModTime().UnixNano(), parsed)
		}
	}

	return hasChanges
}

// DrainNewEvents returns and clears events accumulated since the last call,
// for delivery to WebSocket subscribers.
func (g *Gatherer) DrainNewEvents() []models.LiveEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	drained := g.newEvents
	g.newEvents = nil
	return drained
}

// RecentEvents returns a bounded copy of the global live-event ring.
func (g *Gatherer) RecentEvents() []models.LiveEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.recentEvents) <= globalEventRingSize {
		out := make([]models.LiveEvent, len(g.recentEvents))
		copy(out, g.recentEvents)
		return out
	}
	start := len(g.recentEvents) - globalEventRingSize
	out := make([]models.LiveEvent, globalEventRingSize)
	copy(out, g.recentEvents[start:])
	return out
}

// deriveStatus derives an agent's display status from its recent activity.
func deriveStatus(parsed *models.ParsedOutput, now time.Time, th StatusThresholds) string {
	if parsed.HasCompletionMarker {
		return "completed"
	}
	if !parsed.HasLastActivity {
		if parsed.TotalEvents == 0 {
			return "pending"
		}
		return "idle"
	}

	delta := now.Sub(parsed.LastActivity)
	completion := th.CompletionThreshold
	idle := th.IdleThreshold
	if completion <= 0 {
		completion = 120 * time.Second
	}
	if idle <= 0 {
		idle = 60 * time.Second
	}

	switch {
	case delta > completion && parsed.TotalEvents > 20:
		return "completed"
	case delta > completion:
		return "idle"
	case delta > idle:
		return "idle"
	default:
		return "running"
	}
}

// overallProgress is 0.5*mean(progress) + 0.5*(completed/total), capped at
// 100.
func overallProgress(agents map[string]AgentSnapshot) int {
	if len(agents) == 0 {
		return 0
	}
	var totalProgress, completed int
	for _, a := range agents {
		totalProgress += a.Progress
		if a.Status == "completed" {
			completed++
		}
	}
	mean := float64(totalProgress) / float64(len(agents))
	completionRatio := float64(completed) / float64(len(agents))
	result := 0.5*mean + 0.5*completionRatio*100
	if result > 100 {
		return 100
	}
	return int(result)
}

func organizeByWaves(agents map[string]AgentSnapshot) map[int]WaveSummary {
	waves := make(map[int]WaveSummary)

	var ids []string
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		a := agents[id]
		w := waves[a.Wave]
		w.Wave = a.Wave
		w.Agents = append(w.Agents, id)
		w.Total++
		switch a.Status {
		case "running":
			w.Running++
		case "completed":
			w.Completed++
		case "idle":
			w.Idle++
		case "pending":
			w.Pending++
		}
		waves[a.Wave] = w
	}
	return waves
}

// DefaultOutputLocator finds an agent's NDJSON stream under taskDir by
// task_id match, falling back to an agent-ID-named directory, falling back
// further to a recursive scan of either directory for any .ndjson file. The
// synthetic single-mode agent (singleAgentID) instead resolves directly to
// its generation directory, since single mode has no agent subdirectory.
func DefaultOutputLocator(taskDir string) OutputLocator {
	return func(agent *models.Agent) (string, bool) {
		if agent.ID == singleAgentID {
			path := filepath.Join(taskDir, "generations", fmt.Sprintf("gen-%d", agent.CurrentGeneration), "output.ndjson")
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
			return "", false
		}

		candidates := []string{
			filepath.Join(taskDir, agent.TaskID, "output.ndjson"),
			filepath.Join(taskDir, agent.ID, "output.ndjson"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return c, true
			}
		}
		return locateByScan(taskDir, agent)
	}
}

// locateByScan covers workspace layouts where the output file isn't at
// either conventional path (e.g. nested one generation directory deeper):
// it scans the task- or agent-named directory recursively for .ndjson files
// and takes the most recently modified one.
func locateByScan(taskDir string, agent *models.Agent) (string, bool) {
	for _, name := range []string{agent.TaskID, agent.ID} {
		if name == "" {
			continue
		}
		result, err := fileutil.ScanDirectory(filepath.Join(taskDir, name), fileutil.ScanOptions{
			Extensions: []string{".ndjson"},
			Recursive:  true,
		})
		if err != nil || len(result.Files) == 0 {
			continue
		}
		best, bestMod := "", time.Time{}
		for _, f := range result.Files {
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			if best == "" || info.ModTime().After(bestMod) {
				best, bestMod = f, info.ModTime()
			}
		}
		if best != "" {
			return best, true
		}
	}
	return "", false
}
