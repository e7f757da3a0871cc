package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/lexigraph/internal/domain"
	"go.uber.org/zap"
)

// DefaultMaxLength is the hop cap used when PathQuery.MaxLength is 0
const DefaultMaxLength = 5

// Path difficulty labels
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// PathQuery parameters for LearningPaths. End is optional.
type PathQuery struct {
	Start             string  `validate:"required"`
	End               string
	MaxLength         int     `validate:"gte=0"`
	MinStrength       float64 `validate:"gte=0,lte=1"`
	IncludeDifficulty bool
}

// PathStep is one hop of a learning path
type PathStep struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Relation string  `json:"relation"`
	Strength float64 `json:"strength"`
}

// LearningPath is an accepted chain of outgoing edges
type LearningPath struct {
	Concepts        []domain.ConceptNode `json:"concepts"`
	Steps           []PathStep           `json:"steps"`
	Length          int                  `json:"length"`
	TotalStrength   float64              `json:"total_strength"`
	AverageStrength float64              `json:"average_strength"`
	Score           float64              `json:"score"`
	Difficulty      string               `json:"difficulty,omitempty"`
}

// Titles returns the concept titles along the path
func (p LearningPath) Titles() []string {
	titles := make([]string, len(p.Concepts))
	for i, c := range p.Concepts {
		titles[i] = c.Title
	}
	return titles
}

// ClassifyDifficulty labels a path from its average strength and length
func ClassifyDifficulty(avgStrength float64, length int) string {
	switch {
	case avgStrength >= 0.8 && length <= 2:
		return DifficultyEasy
	case avgStrength >= 0.6 && length <= 3:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// pathFrame is a DFS stack entry; nodes[0] is the start node and
// edges[i] joins nodes[i] to nodes[i+1]
type pathFrame struct {
	nodes []string
	edges []domain.ConceptEdge
}

func (f pathFrame) current() string {
	return f.nodes[len(f.nodes)-1]
}

func (f pathFrame) contains(nodeID string) bool {
	for _, id := range f.nodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

func (f pathFrame) extend(edge domain.ConceptEdge) pathFrame {
	nodes := make([]string, len(f.nodes), len(f.nodes)+1)
	copy(nodes, f.nodes)
	edges := make([]domain.ConceptEdge, len(f.edges), len(f.edges)+1)
	copy(edges, f.edges)
	return pathFrame{nodes: append(nodes, edge.TargetID), edges: append(edges, edge)}
}

// LearningPaths enumerates chains of outgoing edges from q.Start using
// depth-first search. With an end concept, paths reaching it are
// accepted. Without one, every path of length >= 2 is accepted. Paths
// are ranked by average strength divided by length.
func (e *Engine) LearningPaths(ctx context.Context, q PathQuery) ([]LearningPath, error) {
	q.Start = strings.TrimSpace(q.Start)
	q.End = strings.TrimSpace(q.End)
	if err := domain.Validate(q); err != nil {
		return nil, fmt.Errorf("learning paths: %w", err)
	}
	if q.MaxLength == 0 {
		q.MaxLength = DefaultMaxLength
	}

	start, err := e.resolve(ctx, q.Start)
	if err != nil {
		return nil, fmt.Errorf("learning paths: %w", err)
	}
	if start == nil {
		return []LearningPath{}, nil
	}

	endID := ""
	if q.End != "" {
		end, err := e.resolve(ctx, q.End)
		if err != nil {
			return nil, fmt.Errorf("learning paths: %w", err)
		}
		if end == nil {
			return []LearningPath{}, nil
		}
		endID = end.ID
	}

	accepted, err := e.searchPaths(ctx, start.ID, endID, q)
	if err != nil {
		return nil, fmt.Errorf("learning paths: %w", err)
	}

	nodes := newNodeCache(e.store)
	nodes.nodes[start.ID] = start
	paths := make([]LearningPath, 0, len(accepted))
	for _, f := range accepted {
		p, err := e.buildPath(ctx, nodes, f, q.IncludeDifficulty)
		if err != nil {
			return nil, fmt.Errorf("learning paths: %w", err)
		}
		paths = append(paths, p)
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Score > paths[j].Score
	})
	if len(paths) > e.cfg.MaxPaths {
		paths = paths[:e.cfg.MaxPaths]
	}

	return paths, nil
}

func (e *Engine) searchPaths(ctx context.Context, startID, endID string, q PathQuery) ([]pathFrame, error) {
	cache := newEdgeCache(e.store)
	stack := []pathFrame{{nodes: []string{startID}}}
	var accepted []pathFrame
	expansions := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		length := len(f.edges)
		if endID != "" {
			if length > 0 && f.current() == endID {
				accepted = append(accepted, f)
				continue
			}
		} else if length >= 2 {
			accepted = append(accepted, f)
		}
		if length >= q.MaxLength {
			continue
		}

		edges, err := cache.touching(ctx, f.current())
		if err != nil {
			return nil, err
		}

		// Push in reverse so the strongest edge is explored first
		for i := len(edges) - 1; i >= 0; i-- {
			edge := edges[i]
			if edge.SourceID != f.current() || edge.Strength < q.MinStrength {
				continue
			}
			if f.contains(edge.TargetID) {
				continue
			}
			if expansions >= e.cfg.MaxExpansions {
				e.log.Warn("path search expansion cap reached",
					zap.String("start", q.Start),
					zap.Int("max_expansions", e.cfg.MaxExpansions),
					zap.Int("accepted", len(accepted)))
				return accepted, nil
			}
			expansions++
			stack = append(stack, f.extend(edge))
		}
	}

	return accepted, nil
}

func (e *Engine) buildPath(ctx context.Context, nodes *nodeCache, f pathFrame, withDifficulty bool) (LearningPath, error) {
	p := LearningPath{
		Concepts: make([]domain.ConceptNode, 0, len(f.nodes)),
		Steps:    make([]PathStep, 0, len(f.edges)),
		Length:   len(f.edges),
	}
	for _, id := range f.nodes {
		n, err := nodes.get(ctx, id)
		if err != nil {
			return LearningPath{}, err
		}
		p.Concepts = append(p.Concepts, *n)
	}
	for i, edge := range f.edges {
		p.Steps = append(p.Steps, PathStep{
			From:     p.Concepts[i].Title,
			To:       p.Concepts[i+1].Title,
			Relation: edge.Type,
			Strength: edge.Strength,
		})
		p.TotalStrength += edge.Strength
	}
	if p.Length > 0 {
		p.AverageStrength = p.TotalStrength / float64(p.Length)
		p.Score = p.AverageStrength / float64(p.Length)
	}
	if withDifficulty {
		p.Difficulty = ClassifyDifficulty(p.AverageStrength, p.Length)
	}
	return p, nil
}
