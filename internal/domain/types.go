package domain

import "time"

// Relation types used on concept edges
const (
	RelationSynonym      = "synonym"
	RelationRelatedTo    = "related_to"
	RelationRequires     = "requires"
	RelationCoStudied    = "co_studied"
	RelationSameCategory = "same_category"
)

// Edge provenance recorded under the "source" metadata key
const (
	SourceManual     = "manual"
	SourceCoStudy    = "co_study"
	SourceDefinition = "definition_similarity"
)

// ConceptNode is a vertex of the concept graph
type ConceptNode struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConceptEdge is a typed, weighted, directed link between two nodes.
// Uniqueness is enforced on the unordered pair.
type ConceptEdge struct {
	ID        string            `json:"id"`
	SourceID  string            `json:"source_id"`
	TargetID  string            `json:"target_id"`
	Type      string            `json:"type"`
	Strength  float64           `json:"strength"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Other returns the endpoint of e that is not nodeID
func (e ConceptEdge) Other(nodeID string) string {
	if e.SourceID == nodeID {
		return e.TargetID
	}
	return e.SourceID
}

// Touches reports whether nodeID is one of the edge endpoints
func (e ConceptEdge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// Flashcard is a vocabulary card owned by a user
type Flashcard struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Word         string    `json:"word"`
	Definition   string    `json:"definition"`
	Example      string    `json:"example,omitempty"`
	PartOfSpeech string    `json:"part_of_speech,omitempty"`
	Difficulty   string    `json:"difficulty,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReviewEvent records one answer to a flashcard
type ReviewEvent struct {
	ID          string    `json:"id"`
	FlashcardID string    `json:"flashcard_id"`
	UserID      string    `json:"user_id"`
	Correct     bool      `json:"correct"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

// Priority buckets for recommendations
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Signal types for recommendations
const (
	SignalWeakArea         = "weak_area"
	SignalSpacedRepetition = "spaced_repetition"
	SignalGraphNeighbor    = "graph_neighbor"
	SignalStale            = "stale"
)

// Recommendation is a transient engine output, never persisted
type Recommendation struct {
	Flashcard Flashcard `json:"flashcard"`
	Type      string    `json:"type"`
	Score     float64   `json:"score"`
	Priority  string    `json:"priority"`
	Reason    string    `json:"reason"`
}

// UserStats aggregates a user's study activity
type UserStats struct {
	TotalCards    int     `json:"total_cards"`
	TotalReviews  int     `json:"total_reviews"`
	Accuracy      float64 `json:"accuracy"`
	StudiedToday  int     `json:"studied_today"`
	CurrentStreak int     `json:"current_streak"`
	WeakAreas     int     `json:"weak_areas"`
}
