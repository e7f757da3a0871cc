package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/glossary"
	"github.com/spf13/cobra"
)

func cardCmd() *cobra.Command {
	var card domain.Flashcard

	cmd := &cobra.Command{
		Use:   "card [word]",
		Short: "Add a flashcard",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			card.Word = strings.Join(args, " ")
			card.UserID = userID
			added, err := a.store.AddFlashcard(cmd.Context(), card)
			if err != nil {
				return err
			}

			fmt.Printf("Added flashcard: %s\n", shortID(added.ID))
			fmt.Printf("Word: %s\n", added.Word)
			if added.Definition != "" {
				fmt.Printf("Definition: %s\n", truncate(added.Definition, 80))
			}

			a.builder.OnFlashcardCreatedOrUpdated(added.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&card.Definition, "definition", "d", "", "definition")
	cmd.Flags().StringVarP(&card.Example, "example", "e", "", "example sentence")
	cmd.Flags().StringVar(&card.PartOfSpeech, "pos", "", "part of speech")
	cmd.Flags().StringVar(&card.Difficulty, "difficulty", "", "easy, medium or hard")
	cmd.Flags().StringSliceVarP(&card.Tags, "tags", "t", nil, "comma-separated tags")
	return cmd
}

func cardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cards",
		Short: "List your flashcards",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			cards, err := a.store.FlashcardsByUser(cmd.Context(), userID)
			if err != nil {
				return err
			}

			if len(cards) == 0 {
				fmt.Println("No flashcards yet. Use 'lexigraph card' to create one.")
				return nil
			}

			for _, c := range cards {
				fmt.Printf("%s  %-20s %s\n", shortID(c.ID), c.Word, truncate(c.Definition, 50))
			}

			return nil
		},
	}
}

func reviewCmd() *cobra.Command {
	var wrong bool

	cmd := &cobra.Command{
		Use:   "review [flashcard-id]",
		Short: "Record a review of one of your flashcards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			card, err := findCard(cmd, a, args[0])
			if err != nil {
				return err
			}

			if _, err := a.store.RecordReview(cmd.Context(), userID, card.ID, !wrong, time.Now()); err != nil {
				return err
			}

			outcome := "correct"
			if wrong {
				outcome = "incorrect"
			}
			fmt.Printf("Recorded %s review of %q\n", outcome, card.Word)

			a.builder.OnFlashcardReviewed(userID, card.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wrong, "wrong", false, "the answer was incorrect")
	return cmd
}

func importCmd() *cobra.Command {
	var (
		tags       []string
		difficulty string
	)

	cmd := &cobra.Command{
		Use:   "import [url-or-file]",
		Short: "Import flashcards from an HTML glossary",
		Long:  "Reads <dl> term lists and two-column tables from a glossary page or local HTML file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := glossary.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No glossary entries found.")
				return nil
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			existing, err := a.store.FlashcardsByUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			have := make(map[string]bool, len(existing))
			for _, c := range existing {
				have[strings.ToLower(c.Word)] = true
			}

			added, skipped := 0, 0
			for _, e := range entries {
				if have[strings.ToLower(e.Term)] {
					skipped++
					continue
				}
				card, err := a.store.AddFlashcard(cmd.Context(), domain.Flashcard{
					UserID:     userID,
					Word:       e.Term,
					Definition: e.Definition,
					Difficulty: difficulty,
					Tags:       tags,
				})
				if err != nil {
					return err
				}
				have[strings.ToLower(e.Term)] = true
				added++
				a.builder.OnFlashcardCreatedOrUpdated(card.ID)
			}

			fmt.Printf("Imported %d flashcards (%d already present)\n", added, skipped)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "tags for every imported card")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	return cmd
}

// findCard resolves an ID prefix against the user's flashcards
func findCard(cmd *cobra.Command, a *app, prefix string) (*domain.Flashcard, error) {
	cards, err := a.store.FlashcardsByUser(cmd.Context(), userID)
	if err != nil {
		return nil, err
	}

	for _, c := range cards {
		if strings.HasPrefix(c.ID, prefix) {
			return &c, nil
		}
	}

	return nil, fmt.Errorf("flashcard not found: %s", prefix)
}
