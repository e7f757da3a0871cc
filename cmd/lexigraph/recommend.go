package main

import (
	"fmt"

	"github.com/pbaille/lexigraph/internal/recommend"
	"github.com/spf13/cobra"
)

func recommendCmd() *cobra.Command {
	q := recommend.Query{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest flashcards to study next",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			q.UserID = userID
			res, err := a.recommend.Recommendations(cmd.Context(), q)
			if err != nil {
				return err
			}

			for i, r := range res.Recommendations {
				fmt.Printf("%2d. [%s] %-20s %-18s %5.1f  %s\n",
					i+1, r.Priority, r.Flashcard.Word, r.Type, r.Score, truncate(r.Reason, 60))
			}
			if len(res.Recommendations) < res.TotalFound {
				fmt.Printf("    ... %d more\n", res.TotalFound-len(res.Recommendations))
			}

			if len(res.Reasons) > 0 {
				fmt.Println()
				for _, reason := range res.Reasons {
					fmt.Printf("* %s\n", reason)
				}
			}

			s := res.UserStats
			fmt.Printf("\n%d cards, %d reviews, %.0f%% accuracy, %d studied today, %d-day streak\n",
				s.TotalCards, s.TotalReviews, s.Accuracy*100, s.StudiedToday, s.CurrentStreak)

			return nil
		},
	}

	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 10, "maximum recommendations")
	cmd.Flags().BoolVar(&q.IncludeReasons, "reasons", false, "explain the recommendations")
	cmd.Flags().StringVar(&q.Difficulty, "difficulty", recommend.DifficultyAll, "easy, medium, hard or all")
	return cmd
}
