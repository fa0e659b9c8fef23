package models

import "time"

// KnowledgeKind distinguishes the three pattern populations the store caps
// independently.
type KnowledgeKind string

const (
	KindSuccess KnowledgeKind = "success"
	KindAnti    KnowledgeKind = "anti"
	KindDomain  KnowledgeKind = "domain"
)

// KnowledgeEntry is one pattern in the shared store. Kind-specific fields
// (Evidence for success, Impact for anti, Category for domain) are optional
// and only populated for the matching kind.
type KnowledgeEntry struct {
	ID          string        `json:"id"`
	Kind        KnowledgeKind `json:"kind"`
	Context     string        `json:"context"`
	Pattern     string        `json:"pattern"`
	Confidence  float64       `json:"confidence"`
	Occurrences int           `json:"occurrences"`
	AddedAt     time.Time     `json:"added_at"`
	LastSeen    time.Time     `json:"last_seen"`
	SourceGen   int           `json:"source_gen,omitempty"`
	SourceAgent string        `json:"source_agent,omitempty"`

	Evidence string `json:"evidence,omitempty"` // kind=success
	Impact   string `json:"impact,omitempty"`   // kind=anti
	Category string `json:"category,omitempty"` // kind=domain
}

// KnowledgeExport is the top-K-per-kind slice handed to a transfer document
// by C4's export operation.
type KnowledgeExport struct {
	Success []KnowledgeEntry `json:"success"`
	Anti    []KnowledgeEntry `json:"anti"`
	Domain  []KnowledgeEntry `json:"domain"`
}
