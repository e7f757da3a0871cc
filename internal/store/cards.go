package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/lexigraph/internal/domain"
)

const cardColumns = "id, user_id, word, definition, example, part_of_speech, difficulty, tags, created_at, updated_at"

func scanCard(row rowScanner) (*domain.Flashcard, error) {
	var (
		c    domain.Flashcard
		tags string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Word, &c.Definition, &c.Example, &c.PartOfSpeech, &c.Difficulty, &tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if tags != "" && tags != "[]" {
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &c, nil
}

func (s *Store) queryCards(ctx context.Context, op, query string, args ...any) ([]domain.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var cards []domain.Flashcard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, unavailable("scan flashcard", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}

	return cards, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

// AddFlashcard stores a new flashcard. ID and timestamps are assigned here.
func (s *Store) AddFlashcard(ctx context.Context, card domain.Flashcard) (*domain.Flashcard, error) {
	if strings.TrimSpace(card.Word) == "" || card.UserID == "" {
		return nil, fmt.Errorf("add flashcard: %w: word and user are required", domain.ErrInvalidParameter)
	}
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	card.ID = uuid.New().String()
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO flashcards ("+cardColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		card.ID, card.UserID, card.Word, card.Definition, card.Example, card.PartOfSpeech,
		card.Difficulty, tags, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		return nil, unavailable("insert flashcard", err)
	}

	return &card, nil
}

// UpdateFlashcard overwrites the mutable fields of an existing flashcard
func (s *Store) UpdateFlashcard(ctx context.Context, card domain.Flashcard) (*domain.Flashcard, error) {
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return nil, err
	}
	card.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE flashcards SET word = ?, definition = ?, example = ?, part_of_speech = ?,
		difficulty = ?, tags = ?, updated_at = ? WHERE id = ?`,
		card.Word, card.Definition, card.Example, card.PartOfSpeech, card.Difficulty, tags, card.UpdatedAt, card.ID,
	)
	if err != nil {
		return nil, unavailable("update flashcard", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrFlashcardNotFound
	}

	return s.GetFlashcard(ctx, card.ID)
}

// GetFlashcard retrieves a flashcard by ID
func (s *Store) GetFlashcard(ctx context.Context, id string) (*domain.Flashcard, error) {
	c, err := scanCard(s.db.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM flashcards WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFlashcardNotFound
	}
	if err != nil {
		return nil, unavailable("get flashcard", err)
	}
	return c, nil
}

// FlashcardsByUser returns a user's flashcards in creation order
func (s *Store) FlashcardsByUser(ctx context.Context, userID string) ([]domain.Flashcard, error) {
	return s.queryCards(ctx, "flashcards by user",
		"SELECT "+cardColumns+" FROM flashcards WHERE user_id = ? ORDER BY created_at, rowid", userID)
}

// FlashcardsReferencing returns flashcards whose word, definition or tags
// contain any of terms (case-insensitive), across all users
func (s *Store) FlashcardsReferencing(ctx context.Context, terms []string, limit int) ([]domain.Flashcard, error) {
	var (
		conds []string
		args  []any
	)
	for _, t := range terms {
		t = fold(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		conds = append(conds, "(instr(fold(word), ?) > 0 OR instr(fold(definition), ?) > 0 OR instr(fold(tags), ?) > 0)")
		args = append(args, t, t, t)
	}
	if len(conds) == 0 || limit <= 0 {
		return nil, nil
	}
	args = append(args, limit)

	return s.queryCards(ctx, "flashcards referencing",
		"SELECT "+cardColumns+" FROM flashcards WHERE "+strings.Join(conds, " OR ")+" ORDER BY created_at, rowid LIMIT ?",
		args...)
}

// FlashcardsWithDefinitionContaining returns other flashcards whose
// definition contains word
func (s *Store) FlashcardsWithDefinitionContaining(ctx context.Context, word, excludeID string, limit int) ([]domain.Flashcard, error) {
	return s.queryCards(ctx, "flashcards by definition",
		"SELECT "+cardColumns+" FROM flashcards WHERE id != ? AND instr(fold(definition), ?) > 0 ORDER BY created_at, rowid LIMIT ?",
		excludeID, fold(word), limit)
}

// RecordReview stores a review outcome at the given time
func (s *Store) RecordReview(ctx context.Context, userID, flashcardID string, correct bool, at time.Time) (*domain.ReviewEvent, error) {
	r := &domain.ReviewEvent{
		ID:          uuid.New().String(),
		FlashcardID: flashcardID,
		UserID:      userID,
		Correct:     correct,
		ReviewedAt:  at.UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reviews (id, flashcard_id, user_id, correct, reviewed_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.FlashcardID, r.UserID, r.Correct, r.ReviewedAt,
	)
	if err != nil {
		return nil, unavailable("insert review", err)
	}

	return r, nil
}

func (s *Store) queryReviews(ctx context.Context, op, query string, args ...any) ([]domain.ReviewEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var reviews []domain.ReviewEvent
	for rows.Next() {
		var r domain.ReviewEvent
		if err := rows.Scan(&r.ID, &r.FlashcardID, &r.UserID, &r.Correct, &r.ReviewedAt); err != nil {
			return nil, unavailable("scan review", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}

	return reviews, nil
}

// ReviewsByUser returns all of a user's reviews, newest first
func (s *Store) ReviewsByUser(ctx context.Context, userID string) ([]domain.ReviewEvent, error) {
	return s.queryReviews(ctx, "reviews by user",
		"SELECT id, flashcard_id, user_id, correct, reviewed_at FROM reviews WHERE user_id = ? ORDER BY reviewed_at DESC, rowid DESC",
		userID)
}

// RecentReviews returns a user's reviews at or after since, newest first
func (s *Store) RecentReviews(ctx context.Context, userID string, since time.Time, limit int) ([]domain.ReviewEvent, error) {
	return s.queryReviews(ctx, "recent reviews",
		`SELECT id, flashcard_id, user_id, correct, reviewed_at FROM reviews
		WHERE user_id = ? AND reviewed_at >= ? ORDER BY reviewed_at DESC, rowid DESC LIMIT ?`,
		userID, since.UTC(), limit)
}

// RecentlyReviewedFlashcards returns flashcards reviewed by anyone at or
// after since, most recently reviewed first
func (s *Store) RecentlyReviewedFlashcards(ctx context.Context, since time.Time, limit int) ([]domain.Flashcard, error) {
	return s.queryCards(ctx, "recently reviewed flashcards",
		`SELECT f.id, f.user_id, f.word, f.definition, f.example, f.part_of_speech, f.difficulty, f.tags, f.created_at, f.updated_at
		FROM flashcards f
		JOIN (SELECT flashcard_id, MAX(reviewed_at) AS last_review FROM reviews WHERE reviewed_at >= ? GROUP BY flashcard_id) r
		ON f.id = r.flashcard_id
		ORDER BY r.last_review DESC LIMIT ?`,
		since.UTC(), limit)
}
