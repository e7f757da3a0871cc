package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/lexigraph/internal/domain"
	"go.uber.org/zap"
)

// Traversal directions, relative to the node being expanded
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// RelatedQuery parameters for RelatedConcepts
type RelatedQuery struct {
	Word              string `validate:"required"`
	MaxDepth          int    `validate:"gte=0"`
	Limit             int    `validate:"gte=0"`
	IncludeFlashcards bool
}

// RelatedConcept is one neighbour discovered by traversal.
//
// Depth counts expansions from the start node: direct neighbours of the
// start node are at depth 0, their neighbours at depth 1, and so on.
// Only nodes at depth < MaxDepth are expanded, so MaxDepth 0 finds nothing.
type RelatedConcept struct {
	Concept   domain.ConceptNode `json:"concept"`
	Relation  string             `json:"relation"`
	Strength  float64            `json:"strength"`
	Direction string             `json:"direction"`
	Depth     int                `json:"depth"`
}

// RelatedResult is the output of RelatedConcepts
type RelatedResult struct {
	Concepts   []RelatedConcept   `json:"concepts"`
	Flashcards []domain.Flashcard `json:"flashcards,omitempty"`
	TotalFound int                `json:"total_found"`
}

type frontierItem struct {
	nodeID string
	depth  int
}

// RelatedConcepts expands breadth-first from the concept matching
// q.Word and returns neighbours ordered by edge strength. A node is
// recorded on first discovery only.
func (e *Engine) RelatedConcepts(ctx context.Context, q RelatedQuery) (*RelatedResult, error) {
	q.Word = strings.TrimSpace(q.Word)
	if err := domain.Validate(q); err != nil {
		return nil, fmt.Errorf("related concepts: %w", err)
	}

	result := &RelatedResult{Concepts: []RelatedConcept{}}
	if q.Limit == 0 {
		return result, nil
	}

	start, err := e.resolve(ctx, q.Word)
	if err != nil {
		return nil, fmt.Errorf("related concepts: %w", err)
	}
	if start == nil {
		return result, nil
	}

	nodes := newNodeCache(e.store)
	nodes.nodes[start.ID] = start

	visited := map[string]bool{start.ID: true}
	queue := []frontierItem{{nodeID: start.ID, depth: 0}}
	var found []RelatedConcept
	expanded := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth >= q.MaxDepth {
			continue
		}
		if expanded >= e.cfg.MaxVisited {
			e.log.Warn("traversal visit cap reached",
				zap.String("word", q.Word),
				zap.Int("max_visited", e.cfg.MaxVisited))
			break
		}
		expanded++

		edges, err := e.store.EdgesTouching(ctx, item.nodeID)
		if err != nil {
			return nil, fmt.Errorf("related concepts: %w", err)
		}

		for _, edge := range edges {
			neighborID := edge.Other(item.nodeID)
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			neighbor, err := nodes.get(ctx, neighborID)
			if err != nil {
				return nil, fmt.Errorf("related concepts: %w", err)
			}

			direction := DirectionIncoming
			if edge.SourceID == item.nodeID {
				direction = DirectionOutgoing
			}

			found = append(found, RelatedConcept{
				Concept:   *neighbor,
				Relation:  edge.Type,
				Strength:  edge.Strength,
				Direction: direction,
				Depth:     item.depth,
			})
			queue = append(queue, frontierItem{nodeID: neighborID, depth: item.depth + 1})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Strength > found[j].Strength
	})
	result.TotalFound = len(found)
	if len(found) > q.Limit {
		found = found[:q.Limit]
	}
	result.Concepts = found

	if q.IncludeFlashcards {
		terms := make([]string, 0, len(found)+1)
		terms = append(terms, q.Word)
		for _, c := range found {
			terms = append(terms, c.Concept.Title)
		}
		cards, err := e.store.FlashcardsReferencing(ctx, terms, e.cfg.FlashcardLimit)
		if err != nil {
			return nil, fmt.Errorf("related flashcards: %w", err)
		}
		result.Flashcards = cards
	}

	return result, nil
}
