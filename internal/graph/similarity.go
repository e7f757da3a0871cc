package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/pbaille/lexigraph/internal/domain"
	"golang.org/x/sync/errgroup"
)

// contextSize is the number of neighbours attached per similar concept
const contextSize = 3

// strengthEpsilon absorbs float error at the edge of the tolerance window
const strengthEpsilon = 1e-9

// SimilarQuery parameters for SimilarConcepts.
//
// MinSimilarity is compared against the raw number of matching sibling
// edges, not a normalized score.
type SimilarQuery struct {
	Word           string  `validate:"required"`
	Limit          int     `validate:"gte=0"`
	MinSimilarity  float64 `validate:"gte=0"`
	IncludeContext bool
}

// ContextConcept is a neighbour shown alongside a similar concept
type ContextConcept struct {
	Title    string  `json:"title"`
	Relation string  `json:"relation"`
	Strength float64 `json:"strength"`
}

// SimilarConcept is a concept whose typed, weighted relationships overlap
// with the query concept's
type SimilarConcept struct {
	Concept                domain.ConceptNode `json:"concept"`
	Similarity             float64            `json:"similarity"`
	SharedRelationshipType string             `json:"shared_relationship_type"`
	SharedStrength         float64            `json:"shared_strength"`
	Context                []ContextConcept   `json:"context,omitempty"`
}

type similarityCandidate struct {
	nodeID       string
	score        float64
	sharedType   string
	sharedWeight float64
}

// SimilarConcepts scores every other node by how many edges it touches
// that share a relation type with one of the query concept's edges and
// lie within the sibling strength tolerance of it.
func (e *Engine) SimilarConcepts(ctx context.Context, q SimilarQuery) ([]SimilarConcept, error) {
	q.Word = strings.TrimSpace(q.Word)
	if err := domain.Validate(q); err != nil {
		return nil, fmt.Errorf("similar concepts: %w", err)
	}
	if q.Limit == 0 {
		return []SimilarConcept{}, nil
	}

	target, err := e.resolve(ctx, q.Word)
	if err != nil {
		return nil, fmt.Errorf("similar concepts: %w", err)
	}
	if target == nil {
		return []SimilarConcept{}, nil
	}

	own, err := e.store.EdgesTouching(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("similar concepts: %w", err)
	}

	siblings, err := e.siblingsByType(ctx, own)
	if err != nil {
		return nil, fmt.Errorf("similar concepts: %w", err)
	}

	candidates := make(map[string]*similarityCandidate)
	var order []string
	for _, edge := range own {
		for _, sib := range siblings[edge.Type] {
			if sib.ID == edge.ID {
				continue
			}
			if math.Abs(sib.Strength-edge.Strength) > e.cfg.SiblingTolerance+strengthEpsilon {
				continue
			}
			for _, nodeID := range [2]string{sib.SourceID, sib.TargetID} {
				if nodeID == target.ID {
					continue
				}
				c, ok := candidates[nodeID]
				if !ok {
					c = &similarityCandidate{nodeID: nodeID}
					candidates[nodeID] = c
					order = append(order, nodeID)
				}
				c.score++
				c.sharedType = edge.Type
				c.sharedWeight = sib.Strength
			}
		}
	}

	ranked := make([]*similarityCandidate, 0, len(order))
	for _, id := range order {
		if c := candidates[id]; c.score >= q.MinSimilarity {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	nodes := newNodeCache(e.store)
	nodes.nodes[target.ID] = target
	results := make([]SimilarConcept, 0, len(ranked))
	for _, c := range ranked {
		n, err := nodes.get(ctx, c.nodeID)
		if err != nil {
			return nil, fmt.Errorf("similar concepts: %w", err)
		}
		sc := SimilarConcept{
			Concept:                *n,
			Similarity:             c.score,
			SharedRelationshipType: c.sharedType,
			SharedStrength:         c.sharedWeight,
		}
		if q.IncludeContext {
			sc.Context, err = e.conceptContext(ctx, nodes, c.nodeID)
			if err != nil {
				return nil, fmt.Errorf("similar concepts: %w", err)
			}
		}
		results = append(results, sc)
	}

	return results, nil
}

// siblingsByType fetches all edges for each relation type present in own.
// Lookups run concurrently; each goroutine writes only its own map key
// under the mutex.
func (e *Engine) siblingsByType(ctx context.Context, own []domain.ConceptEdge) (map[string][]domain.ConceptEdge, error) {
	types := make(map[string]struct{})
	for _, edge := range own {
		types[edge.Type] = struct{}{}
	}

	var mu sync.Mutex
	siblings := make(map[string][]domain.ConceptEdge, len(types))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for relType := range types {
		g.Go(func() error {
			edges, err := e.store.EdgesByType(gctx, relType)
			if err != nil {
				return fmt.Errorf("sibling edges %q: %w", relType, err)
			}
			mu.Lock()
			siblings[relType] = edges
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return siblings, nil
}

func (e *Engine) conceptContext(ctx context.Context, nodes *nodeCache, nodeID string) ([]ContextConcept, error) {
	edges, err := e.store.EdgesTouching(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if len(edges) > contextSize {
		edges = edges[:contextSize]
	}

	out := make([]ContextConcept, 0, len(edges))
	for _, edge := range edges {
		n, err := nodes.get(ctx, edge.Other(nodeID))
		if err != nil {
			return nil, err
		}
		out = append(out, ContextConcept{Title: n.Title, Relation: edge.Type, Strength: edge.Strength})
	}
	return out, nil
}
