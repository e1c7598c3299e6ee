// Package types holds the data-model structs shared across the retrieval
// engine's kernels, store, and lifecycle packages.
package types

import "time"

// MemoryKind classifies a Memory's content.
type MemoryKind string

const (
	KindLearning     MemoryKind = "learning"
	KindDecision     MemoryKind = "decision"
	KindContext      MemoryKind = "context"
	KindBug          MemoryKind = "bug"
	KindSolution     MemoryKind = "solution"
	KindConversation MemoryKind = "conversation"
)

// DefaultEmotionalWeight is the scalar used when a Memory doesn't specify one.
const DefaultEmotionalWeight = 0.5

// Memory is a textual item the engine may later surface.
type Memory struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	Gist            string     `json:"gist"`
	Kind            MemoryKind `json:"kind"`
	EmotionalWeight float64    `json:"emotional_weight"`
	Tags            []string   `json:"tags,omitempty"`
	ProjectID       string     `json:"project_id,omitempty"`
	AccessCount     int        `json:"access_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Embedding is a unit vector associated with exactly one Memory (or visual memory).
type Embedding struct {
	OwnerID string    `json:"owner_id"`
	Vector  []float64 `json:"vector"`
	Model   string    `json:"model"`
}

// AccessRecord is a single timestamped access against a Memory.
type AccessRecord struct {
	MemoryID  string    `json:"memory_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Association is a weighted, directed edge between two Memories.
type Association struct {
	SourceID       string    `json:"source_id"`
	TargetID       string    `json:"target_id"`
	Strength       float64   `json:"strength"`
	Kind           string    `json:"kind"`
	LastReinforced time.Time `json:"last_reinforced"`
}

// Project groups Memories and Locations under an absolute path.
type Project struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// ActivityType classifies what a Location access was for.
type ActivityType string

const (
	ActivityReading     ActivityType = "reading"
	ActivityWriting     ActivityType = "writing"
	ActivityDebugging   ActivityType = "debugging"
	ActivityRefactoring ActivityType = "refactoring"
	ActivityReviewing   ActivityType = "reviewing"
	ActivityUnknown     ActivityType = "unknown"
)

// Location is a known file path with learned familiarity.
type Location struct {
	ID                string    `json:"id"`
	Path              string    `json:"path"`
	ProjectID         string    `json:"project_id,omitempty"`
	Description       string    `json:"description,omitempty"`
	AccessCount       int       `json:"access_count"`
	LastAccessed      time.Time `json:"last_accessed"`
	Familiarity       float64   `json:"familiarity"`
	DirectAccessCount int       `json:"direct_access_count"`
	SearchSavedCount  int       `json:"search_saved_count"`
	Pinned            bool      `json:"pinned"`
	// EverWellKnown tracks whether Familiarity ever crossed the sticky
	// threshold, so passive decay can apply the well-known floor instead
	// of the plain floor even after the score has since dropped.
	EverWellKnown bool `json:"ever_well_known"`
}

// LocationAccessContext is a per-access record bound to a Location.
type LocationAccessContext struct {
	ID           int64        `json:"id,omitempty"`
	LocationID   string       `json:"location_id"`
	Context      string       `json:"context,omitempty"`
	Activity     ActivityType `json:"activity"`
	DirectAccess bool         `json:"direct_access"`
	Task         string       `json:"task,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// LocationAssociation is a weighted edge between two Locations reflecting
// co-access within a task or time window.
type LocationAssociation struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Strength float64 `json:"strength"`
}

// ScoredMemory is a Memory annotated with the signals that produced its rank.
type ScoredMemory struct {
	Memory           *Memory
	Similarity       float64
	ProbeActivation  float64
	BaseLevel        float64
	Spreading        float64
	Score            float64
	Probability      float64
	LastAccess       time.Time
}

// AssociatedLocation is the result shape for getAssociatedLocationsByPath.
type AssociatedLocation struct {
	Location    *Location
	Strength    float64
	Familiarity float64
}
