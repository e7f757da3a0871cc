// Package builder grows the concept graph from study activity. It runs
// off the query path: hooks enqueue work that background workers apply
// to the store.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/relation"
	"go.uber.org/zap"
)

// Store is the write side of the graph store adapter plus the flashcard
// and review reads the builder needs
type Store interface {
	GetFlashcard(ctx context.Context, id string) (*domain.Flashcard, error)
	RecentReviews(ctx context.Context, userID string, since time.Time, limit int) ([]domain.ReviewEvent, error)
	FlashcardsWithDefinitionContaining(ctx context.Context, word, excludeID string, limit int) ([]domain.Flashcard, error)
	GetOrCreateNode(ctx context.Context, nodeType, title, description, content string) (*domain.ConceptNode, bool, error)
	UpdateNodeDescription(ctx context.Context, id, description string) error
	FindEdgeBetween(ctx context.Context, a, b string) (*domain.ConceptEdge, error)
	CreateEdge(ctx context.Context, sourceID, targetID, relType string, strength float64, metadata map[string]string) (*domain.ConceptEdge, error)
	Reinforce(ctx context.Context, edgeID string, delta float64) error
}

// Config tunes graph inference
type Config struct {
	// CoStudyWindow is how far back a review still counts as co-studied
	CoStudyWindow time.Duration
	// CoStudyLookback is the number of recent reviews considered
	CoStudyLookback int
	// MinCoStudyStrength floors the strength of a new co-study edge
	MinCoStudyStrength float64
	// ReinforceDelta is added to an existing edge on repeated co-study
	ReinforceDelta float64
	// DefinitionStrength is the strength of definition-similarity edges
	DefinitionStrength float64
	// DefinitionMatches caps flashcards linked per definition pass
	DefinitionMatches int
	// NodeType is the type given to nodes created from flashcards
	NodeType string
	// Workers and QueueSize size the hook pipeline
	Workers   int
	QueueSize int
	// JobTimeout bounds the processing of one queued job
	JobTimeout time.Duration
}

// DefaultConfig returns the standard inference settings
func DefaultConfig() Config {
	return Config{
		CoStudyWindow:      30 * time.Minute,
		CoStudyLookback:    5,
		MinCoStudyStrength: 0.3,
		ReinforceDelta:     0.1,
		DefinitionStrength: 0.5,
		DefinitionMatches:  20,
		NodeType:           "vocabulary",
		Workers:            2,
		QueueSize:          64,
		JobTimeout:         30 * time.Second,
	}
}

type jobKind int

const (
	jobCoStudy jobKind = iota
	jobDefinition
)

type job struct {
	kind        jobKind
	userID      string
	flashcardID string
}

// Builder derives nodes and edges from flashcards and reviews
type Builder struct {
	store    Store
	classify relation.Classifier
	cfg      Config
	log      *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// Option customizes a Builder
type Option func(*Builder)

// WithClassifier replaces the relation heuristic
func WithClassifier(c relation.Classifier) Option {
	return func(b *Builder) { b.classify = c }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// New creates a Builder. Call Start to process hook events.
func New(store Store, cfg Config, opts ...Option) *Builder {
	def := DefaultConfig()
	if cfg.CoStudyWindow <= 0 {
		cfg.CoStudyWindow = def.CoStudyWindow
	}
	if cfg.CoStudyLookback <= 0 {
		cfg.CoStudyLookback = def.CoStudyLookback
	}
	if cfg.MinCoStudyStrength <= 0 {
		cfg.MinCoStudyStrength = def.MinCoStudyStrength
	}
	if cfg.ReinforceDelta <= 0 {
		cfg.ReinforceDelta = def.ReinforceDelta
	}
	if cfg.DefinitionStrength <= 0 {
		cfg.DefinitionStrength = def.DefinitionStrength
	}
	if cfg.DefinitionMatches <= 0 {
		cfg.DefinitionMatches = def.DefinitionMatches
	}
	if cfg.NodeType == "" {
		cfg.NodeType = def.NodeType
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}

	b := &Builder{
		store:    store,
		classify: relation.Heuristic,
		cfg:      cfg,
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		jobs:     make(chan job, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.Named("builder")
	return b
}

// Start launches the worker goroutines. Workers stop when ctx is done or
// Close is called.
func (b *Builder) Start(ctx context.Context) {
	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker(ctx)
	}
}

// Close stops accepting events, drains the queue and waits for workers
func (b *Builder) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.jobs)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// OnFlashcardReviewed schedules co-study inference for a review. It never
// blocks; the event is dropped (and logged) when the queue is full.
func (b *Builder) OnFlashcardReviewed(userID, flashcardID string) bool {
	return b.enqueue(job{kind: jobCoStudy, userID: userID, flashcardID: flashcardID})
}

// OnFlashcardCreatedOrUpdated schedules definition-similarity inference
func (b *Builder) OnFlashcardCreatedOrUpdated(flashcardID string) bool {
	return b.enqueue(job{kind: jobDefinition, flashcardID: flashcardID})
}

func (b *Builder) enqueue(j job) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.jobs <- j:
		return true
	default:
		b.log.Warn("builder queue full, dropping event",
			zap.String("flashcard_id", j.flashcardID),
			zap.Int("queue_size", b.cfg.QueueSize))
		return false
	}
}

func (b *Builder) worker(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-b.jobs:
			if !ok {
				return
			}
			b.process(ctx, j)
		}
	}
}

func (b *Builder) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.JobTimeout)
	defer cancel()

	var (
		n   int
		err error
	)
	switch j.kind {
	case jobCoStudy:
		n, err = b.CoStudy(ctx, j.userID, j.flashcardID)
	case jobDefinition:
		n, err = b.LinkByDefinition(ctx, j.flashcardID)
	}
	if err != nil {
		b.log.Error("graph inference failed",
			zap.String("user_id", j.userID),
			zap.String("flashcard_id", j.flashcardID),
			zap.Error(err))
		return
	}
	b.log.Debug("graph inference applied",
		zap.String("flashcard_id", j.flashcardID),
		zap.Int("edges", n))
}

// CoStudy links flashcardID to the other flashcards the user reviewed
// within the co-study window. New edges get a strength that decays with
// the time since the other review; existing edges are reinforced. It
// returns the number of edges created or reinforced.
func (b *Builder) CoStudy(ctx context.Context, userID, flashcardID string) (int, error) {
	card, err := b.store.GetFlashcard(ctx, flashcardID)
	if err != nil {
		return 0, fmt.Errorf("co-study: %w", err)
	}

	now := b.now()
	reviews, err := b.store.RecentReviews(ctx, userID, now.Add(-b.cfg.CoStudyWindow), b.cfg.CoStudyLookback+1)
	if err != nil {
		return 0, fmt.Errorf("co-study: %w", err)
	}

	cardNode, err := b.ensureNode(ctx, *card)
	if err != nil {
		return 0, fmt.Errorf("co-study: %w", err)
	}

	seen := map[string]bool{card.ID: true}
	linked := 0
	considered := 0
	var errs []error
	for _, r := range reviews {
		if considered >= b.cfg.CoStudyLookback {
			break
		}
		if seen[r.FlashcardID] {
			continue
		}
		seen[r.FlashcardID] = true
		considered++

		other, err := b.store.GetFlashcard(ctx, r.FlashcardID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		otherNode, err := b.ensureNode(ctx, *other)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if otherNode.ID == cardNode.ID {
			continue
		}

		elapsed := now.Sub(r.ReviewedAt)
		strength := b.coStudyStrength(elapsed)
		meta := map[string]string{
			"source":          domain.SourceCoStudy,
			"user_id":         userID,
			"elapsed_seconds": strconv.Itoa(int(elapsed.Seconds())),
		}

		if err := b.link(ctx, otherNode.ID, cardNode.ID, *other, *card, strength, meta); err != nil {
			errs = append(errs, err)
			continue
		}
		linked++
	}

	if len(errs) > 0 {
		return linked, fmt.Errorf("co-study: %w", errors.Join(errs...))
	}
	return linked, nil
}

func (b *Builder) coStudyStrength(elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	s := 1 - float64(elapsed)/float64(b.cfg.CoStudyWindow)
	return min(1, max(b.cfg.MinCoStudyStrength, s))
}

// link creates an edge or, when the pair is already joined, reinforces it
func (b *Builder) link(ctx context.Context, sourceID, targetID string, source, target domain.Flashcard, strength float64, meta map[string]string) error {
	edge, err := b.store.FindEdgeBetween(ctx, sourceID, targetID)
	if err == nil {
		return b.store.Reinforce(ctx, edge.ID, b.cfg.ReinforceDelta)
	}
	if !errors.Is(err, domain.ErrEdgeNotFound) {
		return err
	}

	relType := b.classify.Classify(ctx, source, target)
	_, err = b.store.CreateEdge(ctx, sourceID, targetID, relType, strength, meta)
	if !errors.Is(err, domain.ErrDuplicateEdge) {
		return err
	}

	// A concurrent writer created the edge between our check and insert
	edge, err = b.store.FindEdgeBetween(ctx, sourceID, targetID)
	if err != nil {
		return err
	}
	return b.store.Reinforce(ctx, edge.ID, b.cfg.ReinforceDelta)
}

// LinkByDefinition links a flashcard's concept to the concepts of other
// flashcards whose definitions contain its first meaningful definition
// word. Existing edges are left untouched. It returns the number of
// edges created.
func (b *Builder) LinkByDefinition(ctx context.Context, flashcardID string) (int, error) {
	card, err := b.store.GetFlashcard(ctx, flashcardID)
	if err != nil {
		return 0, fmt.Errorf("definition links: %w", err)
	}

	word := relation.FirstMeaningfulWord(card.Definition)
	if word == "" {
		return 0, nil
	}

	others, err := b.store.FlashcardsWithDefinitionContaining(ctx, word, card.ID, b.cfg.DefinitionMatches)
	if err != nil {
		return 0, fmt.Errorf("definition links: %w", err)
	}
	if len(others) == 0 {
		return 0, nil
	}

	cardNode, err := b.ensureNode(ctx, *card)
	if err != nil {
		return 0, fmt.Errorf("definition links: %w", err)
	}

	created := 0
	var errs []error
	for _, other := range others {
		otherNode, err := b.ensureNode(ctx, other)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if otherNode.ID == cardNode.ID {
			continue
		}

		_, err = b.store.FindEdgeBetween(ctx, cardNode.ID, otherNode.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrEdgeNotFound) {
			errs = append(errs, err)
			continue
		}

		meta := map[string]string{
			"source":      domain.SourceDefinition,
			"shared_word": word,
		}
		relType := b.classify.Classify(ctx, *card, other)
		_, err = b.store.CreateEdge(ctx, cardNode.ID, otherNode.ID, relType, b.cfg.DefinitionStrength, meta)
		if errors.Is(err, domain.ErrDuplicateEdge) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created++
	}

	if len(errs) > 0 {
		return created, fmt.Errorf("definition links: %w", errors.Join(errs...))
	}
	return created, nil
}

// ensureNode returns the concept node for a flashcard's word, creating it
// on first reference. A strictly longer definition replaces the stored
// description.
func (b *Builder) ensureNode(ctx context.Context, card domain.Flashcard) (*domain.ConceptNode, error) {
	title := strings.ToLower(strings.TrimSpace(card.Word))
	node, created, err := b.store.GetOrCreateNode(ctx, b.cfg.NodeType, title, card.Definition, card.Example)
	if err != nil {
		return nil, fmt.Errorf("ensure node %q: %w", title, err)
	}
	if !created && len(card.Definition) > len(node.Description) {
		if err := b.store.UpdateNodeDescription(ctx, node.ID, card.Definition); err != nil {
			return nil, fmt.Errorf("update node %q: %w", title, err)
		}
		node.Description = card.Definition
	}
	return node, nil
}
