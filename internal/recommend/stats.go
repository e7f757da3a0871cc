package recommend

import (
	"fmt"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

func (e *Engine) userStats(cards []domain.Flashcard, reviews func() (map[string][]domain.ReviewEvent, error), now time.Time) domain.UserStats {
	stats := domain.UserStats{TotalCards: len(cards)}

	byCard, err := reviews()
	if err != nil {
		e.log.Warn("user stats unavailable", zap.Error(err))
		return stats
	}

	today := now.UTC().Truncate(24 * time.Hour)
	days := make(map[string]bool)
	correct := 0
	for _, events := range byCard {
		studiedToday := false
		for _, r := range events {
			stats.TotalReviews++
			if r.Correct {
				correct++
			}
			days[r.ReviewedAt.UTC().Format(dayLayout)] = true
			if !r.ReviewedAt.Before(today) {
				studiedToday = true
			}
		}
		if studiedToday {
			stats.StudiedToday++
		}
		if acc, n := accuracy(events, e.cfg.WeakLookback); n > 0 && acc < e.cfg.WeakAccuracy {
			stats.WeakAreas++
		}
	}
	if stats.TotalReviews > 0 {
		stats.Accuracy = float64(correct) / float64(stats.TotalReviews)
	}
	stats.CurrentStreak = streak(days, today)

	return stats
}

// streak counts consecutive study days ending today, or ending yesterday
// when nothing has been studied yet today
func streak(days map[string]bool, today time.Time) int {
	day := today
	if !days[day.Format(dayLayout)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[day.Format(dayLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

var signalReasons = []struct {
	signal string
	reason string
}{
	{domain.SignalWeakArea, "Review flashcards with low accuracy"},
	{domain.SignalSpacedRepetition, "Some flashcards are due for spaced repetition review"},
	{domain.SignalGraphNeighbor, "Explore concepts related to recently studied words"},
	{domain.SignalStale, "Refresh flashcards you haven't reviewed recently"},
}

func reasons(stats domain.UserStats, recs []domain.Recommendation) []string {
	var out []string

	if stats.StudiedToday == 0 {
		out = append(out, "You haven't studied today yet")
	} else {
		out = append(out, fmt.Sprintf("You've studied %d flashcards today", stats.StudiedToday))
	}
	if stats.CurrentStreak > 1 {
		out = append(out, fmt.Sprintf("Keep your %d-day streak going", stats.CurrentStreak))
	}
	if stats.WeakAreas > 0 {
		out = append(out, fmt.Sprintf("%d flashcards need extra practice", stats.WeakAreas))
	}

	present := make(map[string]bool)
	for _, r := range recs {
		present[r.Type] = true
	}
	for _, sr := range signalReasons {
		if present[sr.signal] {
			out = append(out, sr.reason)
		}
	}

	if len(recs) == 0 {
		out = append(out, "You're all caught up")
	}
	return out
}
