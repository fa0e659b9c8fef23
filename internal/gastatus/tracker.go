// Package gastatus implements the live status-gathering pipeline: the
// position tracker (C1), bounded parse cache (C2), NDJSON event parser (C3),
// and the status gatherer (C8) that assembles per-tick snapshots for the
// orchestrator loop and the dashboard.
package gastatus

import (
	"os"
	"sync"
	"time"
)

// fileState tracks incremental read position for one NDJSON stream.
type fileState struct {
	position     int64
	lastModified time.Time
	lastSize     int64
	lastRead     time.Time
	errorCount   int
	lineCount    int
}

// PositionTracker reads only the bytes appended to a file since the last
// read, using seek/tell so repeated polling of large agent output files
// stays cheap. It is bounded to maxFiles tracked paths, evicting the least
// recently read entry on overflow.
type PositionTracker struct {
	mu       sync.Mutex
	files    map[string]*fileState
	maxFiles int
}

// NewPositionTracker creates a tracker bounded to maxFiles distinct paths.
func NewPositionTracker(maxFiles int) *PositionTracker {
	return &PositionTracker{
		files:    make(map[string]*fileState),
		maxFiles: maxFiles,
	}
}

// GetNewContent returns the bytes appended to path since the last call, and
// whether anything new was found. A shrunk file (log rotation / truncation)
// resets the tracked position to the start. A missing file returns no
// content without error.
func (t *PositionTracker) GetNewContent(path string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}

	state, ok := t.files[path]
	if !ok {
		t.ensureCapacity()
		state = &fileState{}
		t.files[path] = state
	}

	if info.ModTime().Equal(state.lastModified) && info.Size() == state.lastSize {
		return "", false
	}

	if info.Size() < state.lastSize {
		state.position = 0
		state.lineCount = 0
	}

	f, err := os.Open(path)
	if err != nil {
		state.errorCount++
		return "", false
	}
	defer f.Close()

	if _, err := f.Seek(state.position, 0); err != nil {
		state.errorCount++
		return "", false
	}

	buf := make([]byte, info.Size()-state.position)
	n, _ := f.Read(buf)
	content := string(buf[:n])

	state.position += int64(n)
	state.lastModified = info.ModTime()
	state.lastSize = info.Size()
	state.lastRead = time.Now()
	state.errorCount = 0
	state.lineCount += countNewlines(content)

	return content, content != ""
}

// GetAllContent reads the entire file and advances the tracked position to
// its end, for the initial full-content load of a newly discovered stream.
func (t *PositionTracker) GetAllContent(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := string(data)

	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.files[path]
	if !ok {
		t.ensureCapacity()
		state = &fileState{}
		t.files[path] = state
	}
	state.position = int64(len(data))
	state.lastRead = time.Now()

	return content
}

// ResetPosition rewinds a tracked file back to the start, forcing the next
// read to return the full content again.
func (t *PositionTracker) ResetPosition(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state, ok := t.files[path]; ok {
		state.position = 0
	}
}

// TrackedCount returns how many distinct files currently have state.
func (t *PositionTracker) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

// ensureCapacity evicts the least-recently-read file when at capacity.
// Caller must hold t.mu.
func (t *PositionTracker) ensureCapacity() {
	if t.maxFiles <= 0 || len(t.files) < t.maxFiles {
		return
	}
	var oldestPath string
	var oldestTime time.Time
	first := true
	for p, s := range t.files {
		if first || s.lastRead.Before(oldestTime) {
			oldestPath = p
			oldestTime = s.lastRead
			first = false
		}
	}
	delete(t.files, oldestPath)
}

func countNewlines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
