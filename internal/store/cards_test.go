package store

import (
	"context"
	"testing"
	"time"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCard(t *testing.T, s *Store, user, word, definition string, tags ...string) *domain.Flashcard {
	t.Helper()
	c, err := s.AddFlashcard(context.Background(), domain.Flashcard{
		UserID:     user,
		Word:       word,
		Definition: definition,
		Tags:       tags,
	})
	require.NoError(t, err)
	return c
}

func TestAddFlashcard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := mustCard(t, s, "alice", "supplier", "a company that provides goods", "business", "b2")
	got, err := s.GetFlashcard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "supplier", got.Word)
	assert.Equal(t, []string{"business", "b2"}, got.Tags)

	_, err = s.AddFlashcard(ctx, domain.Flashcard{UserID: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = s.GetFlashcard(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrFlashcardNotFound)
}

func TestUpdateFlashcard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := mustCard(t, s, "alice", "supplier", "")
	c.Definition = "a vendor"
	c.Tags = []string{"trade"}

	got, err := s.UpdateFlashcard(ctx, *c)
	require.NoError(t, err)
	assert.Equal(t, "a vendor", got.Definition)
	assert.Equal(t, []string{"trade"}, got.Tags)

	c.ID = "missing"
	_, err = s.UpdateFlashcard(ctx, *c)
	assert.ErrorIs(t, err, domain.ErrFlashcardNotFound)
}

func TestFlashcardsByUser(t *testing.T) {
	s := newTestStore(t)

	mustCard(t, s, "alice", "one", "")
	mustCard(t, s, "bob", "two", "")
	mustCard(t, s, "alice", "three", "")

	cards, err := s.FlashcardsByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "one", cards[0].Word)
	assert.Equal(t, "three", cards[1].Word)
}

func TestFlashcardsReferencing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCard(t, s, "alice", "Contract", "")
	mustCard(t, s, "bob", "agreement", "a contract between parties")
	mustCard(t, s, "bob", "deal", "", "contract-law")
	mustCard(t, s, "alice", "zebra", "an animal")

	cards, err := s.FlashcardsReferencing(ctx, []string{"contract"}, 10)
	require.NoError(t, err)
	assert.Len(t, cards, 3)

	cards, err = s.FlashcardsReferencing(ctx, []string{"zebra", "agreement"}, 10)
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	cards, err = s.FlashcardsReferencing(ctx, []string{"contract"}, 1)
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	cards, err = s.FlashcardsReferencing(ctx, []string{" "}, 10)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestFlashcardsWithDefinitionContaining(t *testing.T) {
	s := newTestStore(t)

	self := mustCard(t, s, "alice", "negotiate", "to discuss a contract")
	other := mustCard(t, s, "bob", "bargain", "to negotiate a price")
	mustCard(t, s, "bob", "price", "an amount of money")

	cards, err := s.FlashcardsWithDefinitionContaining(context.Background(), "Negotiate", self.ID, 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, other.ID, cards[0].ID)
}

func TestCardSearch_NonASCII(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	self := mustCard(t, s, "alice", "transfer", "")
	wire := mustCard(t, s, "bob", "wire", "Überweisung of funds")
	cv := mustCard(t, s, "bob", "CV", "", "Résumé")

	cards, err := s.FlashcardsWithDefinitionContaining(ctx, "überweisung", self.ID, 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, wire.ID, cards[0].ID)

	cards, err = s.FlashcardsReferencing(ctx, []string{"résumé"}, 10)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, cv.ID, cards[0].ID)
}

func TestReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := mustCard(t, s, "alice", "one", "")
	b := mustCard(t, s, "alice", "two", "")
	c := mustCard(t, s, "bob", "three", "")

	_, err := s.RecordReview(ctx, "alice", a.ID, true, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, "alice", b.ID, false, now.Add(-10*time.Minute))
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, "alice", a.ID, false, now.Add(-5*time.Minute))
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, "bob", c.ID, true, now.Add(-72*time.Hour))
	require.NoError(t, err)

	all, err := s.ReviewsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].FlashcardID)
	assert.False(t, all[0].Correct)
	assert.True(t, all[2].Correct)
	assert.True(t, all[0].ReviewedAt.Equal(now.Add(-5*time.Minute)))

	recent, err := s.RecentReviews(ctx, "alice", now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, a.ID, recent[0].FlashcardID)
	assert.Equal(t, b.ID, recent[1].FlashcardID)

	limited, err := s.RecentReviews(ctx, "alice", now.Add(-30*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecentlyReviewedFlashcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := mustCard(t, s, "alice", "one", "")
	b := mustCard(t, s, "bob", "two", "")
	old := mustCard(t, s, "bob", "three", "")

	_, err := s.RecordReview(ctx, "alice", a.ID, true, now.Add(-3*time.Hour))
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, "bob", b.ID, true, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, "alice", a.ID, true, now.Add(-1*time.Hour))
	require.NoError(t, err)
	_, err = s.RecordReview(ctx, "bob", old.ID, true, now.Add(-30*24*time.Hour))
	require.NoError(t, err)

	cards, err := s.RecentlyReviewedFlashcards(ctx, now.Add(-7*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, a.ID, cards[0].ID)
	assert.Equal(t, b.ID, cards[1].ID)
}
