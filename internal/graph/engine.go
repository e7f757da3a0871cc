// Package graph answers read-only queries over the concept graph:
// related concepts (breadth-first), learning paths (depth-first) and
// structurally similar concepts.
//
// Every query resolves its starting word with Store.FindNodeByText. An
// unknown word is a normal outcome and yields an empty result, never an
// error. Each call owns its visited sets and edge caches, so an Engine is
// safe for concurrent use.
package graph

import (
	"context"
	"errors"

	"github.com/pbaille/lexigraph/internal/domain"
	"go.uber.org/zap"
)

// Store is the read side of the graph store adapter
type Store interface {
	FindNodeByText(ctx context.Context, query string) (*domain.ConceptNode, error)
	GetNode(ctx context.Context, id string) (*domain.ConceptNode, error)
	EdgesTouching(ctx context.Context, nodeID string) ([]domain.ConceptEdge, error)
	EdgesByType(ctx context.Context, relType string) ([]domain.ConceptEdge, error)
	FlashcardsReferencing(ctx context.Context, terms []string, limit int) ([]domain.Flashcard, error)
}

// Config bounds the work a single query may do
type Config struct {
	// MaxVisited caps nodes expanded by one traversal
	MaxVisited int
	// MaxExpansions caps DFS frames pushed by one path search
	MaxExpansions int
	// MaxPaths is the number of ranked learning paths returned
	MaxPaths int
	// SiblingTolerance is the strength window for similar-concept matching
	SiblingTolerance float64
	// FlashcardLimit caps flashcards attached to related-concept results
	FlashcardLimit int
}

// DefaultConfig returns the standard query bounds
func DefaultConfig() Config {
	return Config{
		MaxVisited:       1000,
		MaxExpansions:    10000,
		MaxPaths:         5,
		SiblingTolerance: 0.2,
		FlashcardLimit:   10,
	}
}

// Engine runs graph queries against a Store
type Engine struct {
	store Store
	cfg   Config
	log   *zap.Logger
}

// New creates an Engine. A nil logger disables logging.
func New(store Store, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.MaxVisited <= 0 {
		cfg.MaxVisited = def.MaxVisited
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = def.MaxExpansions
	}
	if cfg.MaxPaths <= 0 {
		cfg.MaxPaths = def.MaxPaths
	}
	if cfg.SiblingTolerance <= 0 {
		cfg.SiblingTolerance = def.SiblingTolerance
	}
	if cfg.FlashcardLimit <= 0 {
		cfg.FlashcardLimit = def.FlashcardLimit
	}
	return &Engine{store: store, cfg: cfg, log: log.Named("graph")}
}

// resolve maps a query word to a node; (nil, nil) when nothing matches
func (e *Engine) resolve(ctx context.Context, word string) (*domain.ConceptNode, error) {
	n, err := e.store.FindNodeByText(ctx, word)
	if errors.Is(err, domain.ErrConceptNotFound) {
		e.log.Debug("concept not found", zap.String("word", word))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// edgeCache memoizes EdgesTouching for the duration of one query
type edgeCache struct {
	store Store
	edges map[string][]domain.ConceptEdge
}

func newEdgeCache(store Store) *edgeCache {
	return &edgeCache{store: store, edges: make(map[string][]domain.ConceptEdge)}
}

func (c *edgeCache) touching(ctx context.Context, nodeID string) ([]domain.ConceptEdge, error) {
	if edges, ok := c.edges[nodeID]; ok {
		return edges, nil
	}
	edges, err := c.store.EdgesTouching(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	c.edges[nodeID] = edges
	return edges, nil
}

// nodeCache memoizes GetNode for the duration of one query
type nodeCache struct {
	store Store
	nodes map[string]*domain.ConceptNode
}

func newNodeCache(store Store) *nodeCache {
	return &nodeCache{store: store, nodes: make(map[string]*domain.ConceptNode)}
}

func (c *nodeCache) get(ctx context.Context, id string) (*domain.ConceptNode, error) {
	if n, ok := c.nodes[id]; ok {
		return n, nil
	}
	n, err := c.store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	c.nodes[id] = n
	return n, nil
}
