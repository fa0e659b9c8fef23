package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harrison/gasctl/internal/config"
	"github.com/harrison/gasctl/internal/gastatus"
	"github.com/harrison/gasctl/internal/logger"
	"github.com/harrison/gasctl/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StateLoader returns the current workspace state, read fresh on every
// request so the dashboard never serves stale data after a restart.
type StateLoader func() (*models.WorkspaceState, error)

// Server wires the hub, the gatherer, and the HTTP surface together.
type Server struct {
	hub       *Hub
	gatherer  *gastatus.Gatherer
	loadState StateLoader
	log       logger.GenerationLogger
	cfg       config.ServerConfig
	timing    config.TimingConfig

	mux *http.ServeMux
}

// New builds a Server. gatherer and loadState are shared with the
// orchestrator loop so the dashboard reflects live state without its own
// copy of the workspace.
func New(cfg config.ServerConfig, timing config.TimingConfig, gatherer *gastatus.Gatherer, loadState StateLoader, log logger.GenerationLogger) *Server {
	s := &Server{
		hub:       NewHub(timing.WebSocketPing),
		gatherer:  gatherer,
		loadState: loadState,
		log:       log,
		cfg:       cfg,
		timing:    timing,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/agent/{id}", s.handleAgent)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Addr is the host:port the server should bind to.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// ListenAndServe starts the HTTP server, blocking until it exits.
func (s *Server) ListenAndServe() error {
	if s.log != nil {
		s.log.LogInfo(fmt.Sprintf("dashboard listening on %s", s.Addr()))
	}
	return http.ListenAndServe(s.Addr(), s.mux)
}

// Watch runs the background poller that feeds new output to the gatherer
// and broadcasts deltas to WebSocket subscribers, until stop is closed.
// fsWatch, if non-nil, accelerates polling whenever an output file is
// written; the ticker remains as a fallback so a dropped or coalesced
// fsnotify event never stalls the feed.
func (s *Server) Watch(stop <-chan struct{}, fsWatch *gastatus.Watcher) {
	interval := s.timing.FileWatchInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var changes <-chan struct{}
	if fsWatch != nil {
		changes = fsWatch.Changes()
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.poll()
		case <-changes:
			s.poll()
		}
	}
}

func (s *Server) poll() {
	ws, err := s.loadState()
	if err != nil || ws == nil {
		return
	}

	if s.gatherer.CheckForChanges(ws) {
		snap := s.gatherer.Gather(ws)
		s.hub.Broadcast(MessageStatusUpdate, snap)
		for id, agent := range snap.Agents {
			s.hub.Broadcast(MessageAgentUpdate, map[string]any{"agent_id": id, "agent": agent})
		}
	}
	for _, ev := range s.gatherer.DrainNewEvents() {
		s.hub.Broadcast(MessageLiveEvent, ev)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"ws_connection_count": s.hub.ClientCount(),
		"timestamp":         time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws, err := s.loadState()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ws == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no workspace state"})
		return
	}
	writeJSON(w, http.StatusOK, s.gatherer.Gather(ws))
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ws, err := s.loadState()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ws == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	snap := s.gatherer.Gather(ws)
	agent, ok := snap.Agents[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gatherer.RecentEvents())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.log != nil {
			s.log.LogError(fmt.Sprintf("websocket upgrade: %v", err))
		}
		return
	}

	client := newClient(uuid.New().String(), conn, s.hub)
	s.hub.register <- client

	go client.WritePump(s.timing.WebSocketPing)
	go client.ReadPump()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>GAS Orchestrator</title></head>
<body>
<h1>Generational Agent Succession</h1>
<p>Status: <a href="/api/status">/api/status</a></p>
<p>Live events: ws://<span id="host"></span>/ws</p>
<script>document.getElementById('host').textContent = location.host</script>
</body>
</html>
`
