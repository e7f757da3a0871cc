package recommend

import (
	"context"
	"fmt"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/pbaille/lexigraph/internal/graph"
)

// accuracy of the most recent n reviews (reviews are newest first)
func accuracy(reviews []domain.ReviewEvent, n int) (float64, int) {
	if len(reviews) > n {
		reviews = reviews[:n]
	}
	if len(reviews) == 0 {
		return 0, 0
	}
	correct := 0
	for _, r := range reviews {
		if r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(reviews)), len(reviews)
}

func (e *Engine) weakAreas(_ context.Context, in *signalInput) ([]domain.Recommendation, error) {
	byCard, err := in.reviews()
	if err != nil {
		return nil, err
	}

	var recs []domain.Recommendation
	for _, card := range in.cards {
		acc, n := accuracy(byCard[card.ID], e.cfg.WeakLookback)
		if n == 0 || acc >= e.cfg.WeakAccuracy {
			continue
		}
		recs = append(recs, domain.Recommendation{
			Flashcard: card,
			Type:      domain.SignalWeakArea,
			Score:     (e.cfg.WeakAccuracy - acc) * 100,
			Priority:  domain.PriorityHigh,
			Reason:    fmt.Sprintf("Low accuracy (%.0f%%) over the last %d reviews", acc*100, n),
		})
	}
	return recs, nil
}

// expectedInterval maps a review count to the spaced-repetition interval
// in days, clamped to the last interval
func (e *Engine) expectedInterval(reviewCount int) int {
	idx := min(reviewCount-1, len(e.cfg.Intervals)-1)
	return e.cfg.Intervals[max(idx, 0)]
}

func (e *Engine) spacedRepetition(_ context.Context, in *signalInput) ([]domain.Recommendation, error) {
	byCard, err := in.reviews()
	if err != nil {
		return nil, err
	}

	var recs []domain.Recommendation
	for _, card := range in.cards {
		reviews := byCard[card.ID]
		if len(reviews) == 0 {
			continue
		}
		days := int(in.now.Sub(reviews[0].ReviewedAt).Hours() / 24)
		interval := e.expectedInterval(len(reviews))
		if days < interval {
			continue
		}
		overdue := days - interval
		recs = append(recs, domain.Recommendation{
			Flashcard: card,
			Type:      domain.SignalSpacedRepetition,
			Score:     e.cfg.DueBaseScore + e.cfg.DueDayScore*float64(overdue),
			Priority:  domain.PriorityHigh,
			Reason:    fmt.Sprintf("Due for review: last seen %d days ago, interval is %d days", days, interval),
		})
	}
	return recs, nil
}

// graphNeighbors recommends the user's flashcards that are related, in
// the concept graph, to words anyone studied recently
func (e *Engine) graphNeighbors(ctx context.Context, in *signalInput) ([]domain.Recommendation, error) {
	if e.relater == nil || len(in.owned) == 0 {
		return nil, nil
	}

	seeds, err := e.store.RecentlyReviewedFlashcards(ctx, in.now.Add(-e.cfg.NeighborWindow), e.cfg.NeighborSeeds)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Flashcard, len(in.cards))
	for _, c := range in.cards {
		byID[c.ID] = c
	}

	added := make(map[string]bool)
	var recs []domain.Recommendation
	for _, seed := range seeds {
		related, err := e.relater.RelatedConcepts(ctx, graph.RelatedQuery{
			Word:              seed.Word,
			MaxDepth:          1,
			Limit:             3,
			IncludeFlashcards: true,
		})
		if err != nil {
			return nil, fmt.Errorf("related to %q: %w", seed.Word, err)
		}
		for _, fc := range related.Flashcards {
			if fc.ID == seed.ID || !in.owned[fc.ID] || added[fc.ID] {
				continue
			}
			added[fc.ID] = true
			recs = append(recs, domain.Recommendation{
				Flashcard: byID[fc.ID],
				Type:      domain.SignalGraphNeighbor,
				Score:     e.cfg.NeighborScore,
				Priority:  domain.PriorityMedium,
				Reason:    fmt.Sprintf("Related to %q, which was studied recently", seed.Word),
			})
		}
	}
	return recs, nil
}

func (e *Engine) stale(_ context.Context, in *signalInput) ([]domain.Recommendation, error) {
	byCard, err := in.reviews()
	if err != nil {
		return nil, err
	}

	var recs []domain.Recommendation
	for _, card := range in.cards {
		reviews := byCard[card.ID]
		reason := "Not reviewed yet"
		if len(reviews) > 0 {
			since := in.now.Sub(reviews[0].ReviewedAt)
			if since < e.cfg.StaleAfter {
				continue
			}
			reason = fmt.Sprintf("Not reviewed in %d days", int(since.Hours()/24))
		}
		recs = append(recs, domain.Recommendation{
			Flashcard: card,
			Type:      domain.SignalStale,
			Score:     e.cfg.StaleScore,
			Priority:  domain.PriorityMedium,
			Reason:    reason,
		})
	}
	return recs, nil
}
