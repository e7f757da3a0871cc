// Package recommend ranks a user's flashcards for study by merging four
// independent signals: weak areas, spaced-repetition due dates, graph
// neighbours of recently studied words, and staleness.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/graph"
	"go.uber.org/zap"
)

// Difficulty filter values; "" is treated as DifficultyAll
const (
	DifficultyAll    = "all"
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Store supplies flashcards and review history
type Store interface {
	FlashcardsByUser(ctx context.Context, userID string) ([]domain.Flashcard, error)
	ReviewsByUser(ctx context.Context, userID string) ([]domain.ReviewEvent, error)
	RecentlyReviewedFlashcards(ctx context.Context, since time.Time, limit int) ([]domain.Flashcard, error)
}

// Relater finds related concepts and their flashcards
type Relater interface {
	RelatedConcepts(ctx context.Context, q graph.RelatedQuery) (*graph.RelatedResult, error)
}

// Config holds signal thresholds and scores
type Config struct {
	WeakAccuracy   float64
	WeakLookback   int
	Intervals      []int
	DueBaseScore   float64
	DueDayScore    float64
	NeighborWindow time.Duration
	NeighborSeeds  int
	NeighborScore  float64
	StaleAfter     time.Duration
	StaleScore     float64
}

// DefaultConfig returns the standard signal settings
func DefaultConfig() Config {
	return Config{
		WeakAccuracy:   0.6,
		WeakLookback:   5,
		Intervals:      []int{1, 3, 7, 14},
		DueBaseScore:   80,
		DueDayScore:    5,
		NeighborWindow: 7 * 24 * time.Hour,
		NeighborSeeds:  10,
		NeighborScore:  75,
		StaleAfter:     3 * 24 * time.Hour,
		StaleScore:     70,
	}
}

// Query parameters for Recommendations
type Query struct {
	UserID         string `validate:"required"`
	Limit          int    `validate:"gte=0"`
	IncludeReasons bool
	Difficulty     string `validate:"omitempty,oneof=easy medium hard all"`
}

// Result is the output of Recommendations
type Result struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Reasons         []string                `json:"reasons,omitempty"`
	TotalFound      int                     `json:"total_found"`
	UserStats       domain.UserStats        `json:"user_stats"`
}

// Engine produces study recommendations
type Engine struct {
	store   Store
	relater Relater
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine. relater may be nil, which disables the
// graph-neighbor signal.
func New(store Store, relater Relater, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.WeakAccuracy <= 0 {
		cfg.WeakAccuracy = def.WeakAccuracy
	}
	if cfg.WeakLookback <= 0 {
		cfg.WeakLookback = def.WeakLookback
	}
	if len(cfg.Intervals) == 0 {
		cfg.Intervals = def.Intervals
	}
	if cfg.DueBaseScore <= 0 {
		cfg.DueBaseScore = def.DueBaseScore
	}
	if cfg.DueDayScore <= 0 {
		cfg.DueDayScore = def.DueDayScore
	}
	if cfg.NeighborWindow <= 0 {
		cfg.NeighborWindow = def.NeighborWindow
	}
	if cfg.NeighborSeeds <= 0 {
		cfg.NeighborSeeds = def.NeighborSeeds
	}
	if cfg.NeighborScore <= 0 {
		cfg.NeighborScore = def.NeighborScore
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.StaleScore <= 0 {
		cfg.StaleScore = def.StaleScore
	}

	e := &Engine{
		store:   store,
		relater: relater,
		cfg:     cfg,
		log:     zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("recommend")
	return e
}

// signalInput is shared read-only by all signal generators of one call
type signalInput struct {
	userID  string
	cards   []domain.Flashcard
	owned   map[string]bool
	reviews func() (map[string][]domain.ReviewEvent, error)
	now     time.Time
}

type signal struct {
	name string
	run  func(ctx context.Context, in *signalInput) ([]domain.Recommendation, error)
}

// Recommendations ranks the user's flashcards. A user without flashcards
// gets an empty result with an explanatory reason. A failing signal is
// logged and contributes nothing; the others still run.
func (e *Engine) Recommendations(ctx context.Context, q Query) (*Result, error) {
	if err := domain.Validate(q); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	all, err := e.store.FlashcardsByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	if len(all) == 0 {
		return &Result{
			Recommendations: []domain.Recommendation{},
			Reasons:         []string{"You have no flashcards yet. Add some to start getting study recommendations"},
		}, nil
	}

	now := e.now()
	reviews := sync.OnceValues(func() (map[string][]domain.ReviewEvent, error) {
		events, err := e.store.ReviewsByUser(ctx, q.UserID)
		if err != nil {
			return nil, err
		}
		byCard := make(map[string][]domain.ReviewEvent)
		for _, r := range events {
			byCard[r.FlashcardID] = append(byCard[r.FlashcardID], r)
		}
		return byCard, nil
	})

	cards := filterByDifficulty(all, q.Difficulty)
	owned := make(map[string]bool, len(cards))
	for _, c := range cards {
		owned[c.ID] = true
	}
	in := &signalInput{userID: q.UserID, cards: cards, owned: owned, reviews: reviews, now: now}

	signals := []signal{
		{name: domain.SignalWeakArea, run: e.weakAreas},
		{name: domain.SignalSpacedRepetition, run: e.spacedRepetition},
		{name: domain.SignalGraphNeighbor, run: e.graphNeighbors},
		{name: domain.SignalStale, run: e.stale},
	}
	lists := make([][]domain.Recommendation, len(signals))
	var wg sync.WaitGroup
	for i, s := range signals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := s.run(ctx, in)
			if err != nil {
				e.log.Warn("recommendation signal failed",
					zap.String("signal", s.name),
					zap.String("user_id", q.UserID),
					zap.Error(err))
				return
			}
			lists[i] = recs
		}()
	}
	wg.Wait()

	merged := merge(lists...)
	result := &Result{TotalFound: len(merged)}
	if len(merged) > q.Limit {
		merged = merged[:q.Limit]
	}
	result.Recommendations = merged

	result.UserStats = e.userStats(all, reviews, now)
	if q.IncludeReasons {
		result.Reasons = reasons(result.UserStats, merged)
	}

	return result, nil
}

func filterByDifficulty(cards []domain.Flashcard, difficulty string) []domain.Flashcard {
	if difficulty == "" || difficulty == DifficultyAll {
		return cards
	}
	out := make([]domain.Flashcard, 0, len(cards))
	for _, c := range cards {
		if c.Difficulty == difficulty {
			out = append(out, c)
		}
	}
	return out
}

var priorityRank = map[string]int{
	domain.PriorityHigh:   0,
	domain.PriorityMedium: 1,
	domain.PriorityLow:    2,
}

// merge concatenates lists in order, keeps the first occurrence of each
// flashcard, then orders by priority bucket and score
func merge(lists ...[]domain.Recommendation) []domain.Recommendation {
	seen := make(map[string]bool)
	out := []domain.Recommendation{}
	for _, list := range lists {
		for _, r := range list {
			if seen[r.Flashcard.ID] {
				continue
			}
			seen[r.Flashcard.ID] = true
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priorityRank[out[i].Priority], priorityRank[out[j].Priority]
		if pi != pj {
			return pi < pj
		}
		return out[i].Score > out[j].Score
	})
	return out
}
