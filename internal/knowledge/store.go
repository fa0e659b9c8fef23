// Package knowledge implements the shared knowledge store (C4): a bounded,
// persistent repository of success patterns, anti-patterns, and domain
// knowledge that generations contribute to on every succession or
// completion, and that the transfer document builder (C6) draws from on
// every handoff.
//
// The store is a single JSON object on disk, mutated through this package's
// API only, and persisted with the same write-temp-then-rename discipline
// the rest of the orchestrator uses for state.json.
package knowledge

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harrison/gasctl/internal/filelock"
	"github.com/harrison/gasctl/internal/models"
)

// Caps bounds each kind's list independently.
type Caps struct {
	Success int
	Anti    int
	Domain  int
}

// AddOptions carries the optional fields accepted by Add.
type AddOptions struct {
	Confidence  float64 // defaults to DefaultConfidence when zero
	SourceGen   int
	SourceAgent string
	Evidence    string // kind=success
	Impact      string // kind=anti
	Category    string // kind=domain
}

// Store is the single-writer, RWMutex-guarded knowledge repository. All
// mutation goes through Add/Prune/Decay; Query takes a read lock only.
type Store struct {
	mu   sync.RWMutex
	path string

	caps               Caps
	defaultConfidence  float64
	decayAmount        float64
	decayFloor         float64
	promotionThreshold int
	promotionBump      float64

	success []models.KnowledgeEntry
	anti    []models.KnowledgeEntry
	domain  []models.KnowledgeEntry
}

// New creates an empty store backed by path, with the given caps and
// tuning parameters (normally sourced from config.KnowledgeConfig).
func New(path string, caps Caps, defaultConfidence, decayAmount, decayFloor float64, promotionThreshold int, promotionBump float64) *Store {
	return &Store{
		path:               path,
		caps:               caps,
		defaultConfidence:  defaultConfidence,
		decayAmount:        decayAmount,
		decayFloor:         decayFloor,
		promotionThreshold: promotionThreshold,
		promotionBump:      promotionBump,
	}
}

// diskFormat is the on-disk JSON shape.
type diskFormat struct {
	Success []models.KnowledgeEntry `json:"success"`
	Anti    []models.KnowledgeEntry `json:"anti"`
	Domain  []models.KnowledgeEntry `json:"domain"`
}

// Load reads an existing store from path, or returns an empty store if the
// file does not exist yet.
func Load(path string, caps Caps, defaultConfidence, decayAmount, decayFloor float64, promotionThreshold int, promotionBump float64) (*Store, error) {
	s := New(path, caps, defaultConfidence, decayAmount, decayFloor, promotionThreshold, promotionBump)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read knowledge store: %w", err)
	}

	var disk diskFormat
	if err := json.Unmarshal(data, &disk); err != nil {
		return nil, fmt.Errorf("parse knowledge store: %w", err)
	}
	s.success = disk.Success
	s.anti = disk.Anti
	s.domain = disk.Domain
	return s, nil
}

// save persists the store atomically under a cross-process lock. Caller
// must already hold s.mu for writing.
func (s *Store) save() error {
	disk := diskFormat{Success: s.success, Anti: s.anti, Domain: s.domain}
	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal knowledge store: %w", err)
	}
	if err := filelock.LockAndWrite(s.path, data); err != nil {
		return fmt.Errorf("write knowledge store: %w", err)
	}
	return nil
}

func listFor(s *Store, kind models.KnowledgeKind) *[]models.KnowledgeEntry {
	switch kind {
	case models.KindSuccess:
		return &s.success
	case models.KindAnti:
		return &s.anti
	default:
		return &s.domain
	}
}

func capFor(s *Store, kind models.KnowledgeKind) int {
	switch kind {
	case models.KindSuccess:
		return s.caps.Success
	case models.KindAnti:
		return s.caps.Anti
	default:
		return s.caps.Domain
	}
}

// substringEquivalent reports whether a and b are case-insensitively
// substrings of one another.
func substringEquivalent(a, b string) bool {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(al, bl) || strings.Contains(bl, al)
}

func deterministicID(context, pattern string) string {
	sum := md5.Sum([]byte(context + ":" + pattern))
	return hex.EncodeToString(sum[:])[:8]
}

// Add inserts or reinforces a pattern. If an existing entry in the target
// kind's list has a substring-equivalent pattern, it is reinforced in place
// (occurrences incremented, last_seen refreshed, confidence bumped past the
// promotion threshold) and returned; otherwise a new entry is created.
func (s *Store) Add(kind models.KnowledgeKind, context, pattern string, opts AddOptions) (models.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := listFor(s, kind)
	now := time.Now()

	for i := range *list {
		if substringEquivalent((*list)[i].Pattern, pattern) {
			(*list)[i].Occurrences++
			(*list)[i].LastSeen = now
			if (*list)[i].Occurrences >= s.promotionThreshold {
				(*list)[i].Confidence = minFloat(1.0, (*list)[i].Confidence+s.promotionBump)
			}
			entry := (*list)[i]
			if err := s.save(); err != nil {
				return models.KnowledgeEntry{}, err
			}
			return entry, nil
		}
	}

	confidence := opts.Confidence
	if confidence == 0 {
		confidence = s.defaultConfidence
	}

	entry := models.KnowledgeEntry{
		ID:          deterministicID(context, pattern),
		Kind:        kind,
		Context:     context,
		Pattern:     pattern,
		Confidence:  confidence,
		Occurrences: 1,
		AddedAt:     now,
		LastSeen:    now,
		SourceGen:   opts.SourceGen,
		SourceAgent: opts.SourceAgent,
		Evidence:    opts.Evidence,
		Impact:      opts.Impact,
		Category:    opts.Category,
	}
	*list = append(*list, entry)

	capLimit := capFor(s, kind)
	if capLimit > 0 && len(*list) > capLimit {
		sortByConfidenceDesc(*list)
		*list = (*list)[:capLimit]
	}

	if err := s.save(); err != nil {
		return models.KnowledgeEntry{}, err
	}
	return entry, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func sortByConfidenceDesc(entries []models.KnowledgeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Confidence > entries[j].Confidence
	})
}

// QueryOptions filters Query's result set.
type QueryOptions struct {
	Kind          models.KnowledgeKind // empty means all kinds
	Context       string               // substring match, case-insensitive; empty means any
	MinConfidence float64
	Limit         int // 0 defaults to 10
}

// Query filters across kinds (or one kind), sorts by confidence descending,
// and slices to Limit (default 10).
func (s *Store) Query(opts QueryOptions) []models.KnowledgeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit == 0 {
		limit = 10
	}

	var candidates []models.KnowledgeEntry
	for _, kind := range []models.KnowledgeKind{models.KindSuccess, models.KindAnti, models.KindDomain} {
		if opts.Kind != "" && opts.Kind != kind {
			continue
		}
		for _, e := range *listFor(s, kind) {
			if e.Confidence < opts.MinConfidence {
				continue
			}
			if opts.Context != "" && !strings.Contains(strings.ToLower(e.Context), strings.ToLower(opts.Context)) {
				continue
			}
			candidates = append(candidates, e)
		}
	}

	sortByConfidenceDesc(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// PruneResult reports how many entries were removed per kind.
type PruneResult struct {
	Success int
	Anti    int
	Domain  int
}

// Prune drops entries below minConfidence or older than maxAgeDays (if
// positive, by last_seen).
func (s *Store) Prune(minConfidence float64, maxAgeDays int) (PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cutoff time.Time
	hasCutoff := maxAgeDays > 0
	if hasCutoff {
		cutoff = time.Now().AddDate(0, 0, -maxAgeDays)
	}

	var result PruneResult
	prune := func(list *[]models.KnowledgeEntry) int {
		kept := (*list)[:0]
		removed := 0
		for _, e := range *list {
			tooOld := hasCutoff && e.LastSeen.Before(cutoff)
			if e.Confidence < minConfidence || tooOld {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		*list = kept
		return removed
	}

	result.Success = prune(&s.success)
	result.Anti = prune(&s.anti)
	result.Domain = prune(&s.domain)

	if err := s.save(); err != nil {
		return PruneResult{}, err
	}
	return result, nil
}

// Decay reduces confidence for stale, rarely-reinforced success/anti entries:
// entries at least 2 generations behind currentGen with occurrences <= 1
// lose decayAmount confidence, floored at decayFloor. Domain entries are
// not generation-scoped and are unaffected.
func (s *Store) Decay(currentGen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decayList := func(list []models.KnowledgeEntry) {
		for i := range list {
			if list[i].Occurrences <= 1 && currentGen-list[i].SourceGen >= 2 {
				list[i].Confidence = maxFloat(s.decayFloor, list[i].Confidence-s.decayAmount)
			}
		}
	}
	decayList(s.success)
	decayList(s.anti)

	return s.save()
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Export returns the top topKPerKind entries by confidence for each kind,
// for consumption by the transfer document builder (C6).
func (s *Store) Export(topKPerKind int) models.KnowledgeExport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top := func(list []models.KnowledgeEntry) []models.KnowledgeEntry {
		cp := make([]models.KnowledgeEntry, len(list))
		copy(cp, list)
		sortByConfidenceDesc(cp)
		if len(cp) > topKPerKind {
			cp = cp[:topKPerKind]
		}
		return cp
	}

	return models.KnowledgeExport{
		Success: top(s.success),
		Anti:    top(s.anti),
		Domain:  top(s.domain),
	}
}

// Stats reports per-kind counts, used by `gasctl knowledge stats`.
type Stats struct {
	SuccessCount int
	AntiCount    int
	DomainCount  int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		SuccessCount: len(s.success),
		AntiCount:    len(s.anti),
		DomainCount:  len(s.domain),
	}
}
