package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/graph"
	"github.com/spf13/cobra"
)

func conceptCmd() *cobra.Command {
	var nodeType, description, content string

	cmd := &cobra.Command{
		Use:   "concept [title]",
		Short: "Add a concept node",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			node, created, err := a.store.GetOrCreateNode(cmd.Context(), nodeType, strings.Join(args, " "), description, content)
			if err != nil {
				return err
			}
			if !created {
				fmt.Printf("Concept already exists: %s (%s)\n", node.Title, shortID(node.ID))
				return nil
			}

			fmt.Printf("Added concept: %s (%s)\n", node.Title, shortID(node.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeType, "type", "vocabulary", "concept type")
	cmd.Flags().StringVarP(&description, "description", "d", "", "short gloss")
	cmd.Flags().StringVar(&content, "content", "", "longer explanation")
	return cmd
}

func conceptsCmd() *cobra.Command {
	var (
		nodeType string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "List concept nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			nodes, err := a.store.ListNodes(cmd.Context(), nodeType, limit)
			if err != nil {
				return err
			}

			if len(nodes) == 0 {
				fmt.Println("No concepts yet. Concepts emerge from studying flashcards, or use 'lexigraph seed'.")
				return nil
			}

			for _, n := range nodes {
				fmt.Printf("%s  %-20s %-16s %s\n", shortID(n.ID), n.Title, n.Type, truncate(n.Description, 40))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&nodeType, "type", "", "only concepts of this type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of concepts to show")
	return cmd
}

func linkCmd() *cobra.Command {
	var (
		relType  string
		strength float64
	)

	cmd := &cobra.Command{
		Use:   "link [from] [to]",
		Short: "Link two concepts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			from, err := a.store.FindNodeByText(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			to, err := a.store.FindNodeByText(ctx, args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			_, err = a.store.CreateEdge(ctx, from.ID, to.ID, relType, strength, map[string]string{"source": domain.SourceManual})
			if errors.Is(err, domain.ErrDuplicateEdge) {
				edge, err := a.store.FindEdgeBetween(ctx, from.ID, to.ID)
				if err != nil {
					return err
				}
				if err := a.store.Reinforce(ctx, edge.ID, a.cfg.Builder.ReinforceDelta); err != nil {
					return err
				}
				fmt.Printf("Reinforced %s -> %s (%s)\n", from.Title, to.Title, edge.Type)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("Linked %s -[%s %.2f]-> %s\n", from.Title, relType, strength, to.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&relType, "type", domain.RelationRelatedTo, "relation type")
	cmd.Flags().Float64VarP(&strength, "strength", "s", 0.5, "strength in [0,1]")
	return cmd
}

type seedEdge struct {
	from, to, relType string
	strength          float64
}

var seedConcepts = []struct{ title, description string }{
	{"procurement", "the process of finding and acquiring goods or services"},
	{"negotiate", "to discuss terms in order to reach an agreement"},
	{"supplier", "a company that provides goods or services to a business"},
	{"contract", "a written agreement that is legally binding"},
}

var seedEdges = []seedEdge{
	{"procurement", "negotiate", domain.RelationRequires, 0.8},
	{"procurement", "supplier", domain.RelationRelatedTo, 0.9},
	{"procurement", "contract", domain.RelationRelatedTo, 0.7},
	{"negotiate", "contract", domain.RelationRequires, 0.8},
	{"supplier", "contract", domain.RelationRelatedTo, 0.6},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a small business-vocabulary graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			ids := make(map[string]string)
			for _, c := range seedConcepts {
				node, _, err := a.store.GetOrCreateNode(ctx, "business_concept", c.title, c.description, "")
				if err != nil {
					return err
				}
				ids[c.title] = node.ID
			}

			created := 0
			for _, e := range seedEdges {
				_, err := a.store.CreateEdge(ctx, ids[e.from], ids[e.to], e.relType, e.strength,
					map[string]string{"source": domain.SourceManual})
				if errors.Is(err, domain.ErrDuplicateEdge) {
					continue
				}
				if err != nil {
					return err
				}
				created++
			}

			fmt.Printf("Seeded %d concepts, %d new edges\n", len(seedConcepts), created)
			return nil
		},
	}
}

func relatedCmd() *cobra.Command {
	q := graph.RelatedQuery{}

	cmd := &cobra.Command{
		Use:   "related [word]",
		Short: "Show concepts related to a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			q.Word = args[0]
			res, err := a.graph.RelatedConcepts(cmd.Context(), q)
			if err != nil {
				return err
			}

			if len(res.Concepts) == 0 {
				fmt.Printf("No related concepts for %q.\n", q.Word)
				return nil
			}

			for _, c := range res.Concepts {
				fmt.Printf("  %-20s %-14s %.2f  %-8s depth %d\n", c.Concept.Title, c.Relation, c.Strength, c.Direction, c.Depth)
			}
			if len(res.Flashcards) > 0 {
				fmt.Printf("\nFlashcards:\n")
				for _, f := range res.Flashcards {
					fmt.Printf("  %s  %s\n", shortID(f.ID), f.Word)
				}
			}
			fmt.Printf("\n%d found\n", res.TotalFound)

			return nil
		},
	}

	cmd.Flags().IntVar(&q.MaxDepth, "depth", 2, "expansion depth")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 10, "maximum concepts")
	cmd.Flags().BoolVar(&q.IncludeFlashcards, "flashcards", false, "include referencing flashcards")
	return cmd
}

func pathsCmd() *cobra.Command {
	q := graph.PathQuery{IncludeDifficulty: true}

	cmd := &cobra.Command{
		Use:   "paths [start] [end]",
		Short: "Show learning paths from a concept",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			q.Start = args[0]
			if len(args) == 2 {
				q.End = args[1]
			}
			paths, err := a.graph.LearningPaths(cmd.Context(), q)
			if err != nil {
				return err
			}

			if len(paths) == 0 {
				fmt.Println("No learning paths found.")
				return nil
			}

			for i, p := range paths {
				fmt.Printf("%d. %s\n", i+1, strings.Join(p.Titles(), " -> "))
				fmt.Printf("   length %d, avg strength %.2f, score %.2f", p.Length, p.AverageStrength, p.Score)
				if p.Difficulty != "" {
					fmt.Printf(", %s", p.Difficulty)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&q.MaxLength, "max-length", graph.DefaultMaxLength, "maximum hops")
	cmd.Flags().Float64Var(&q.MinStrength, "min-strength", 0, "ignore weaker edges")
	return cmd
}

func similarCmd() *cobra.Command {
	q := graph.SimilarQuery{}

	cmd := &cobra.Command{
		Use:   "similar [word]",
		Short: "Show concepts with a similar relationship profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			q.Word = args[0]
			similar, err := a.graph.SimilarConcepts(cmd.Context(), q)
			if err != nil {
				return err
			}

			if len(similar) == 0 {
				fmt.Printf("No similar concepts for %q.\n", q.Word)
				return nil
			}

			for _, s := range similar {
				fmt.Printf("  %-20s %.0f shared (%s)\n", s.Concept.Title, s.Similarity, s.SharedRelationshipType)
				for _, c := range s.Context {
					fmt.Printf("      %s %s %.2f\n", c.Relation, c.Title, c.Strength)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 10, "maximum concepts")
	cmd.Flags().Float64Var(&q.MinSimilarity, "min", 1, "minimum number of matching relationships")
	cmd.Flags().BoolVar(&q.IncludeContext, "context", false, "show each concept's neighbours")
	return cmd
}
