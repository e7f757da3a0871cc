// Package relation labels the relationship between two flashcards.
//
// Classification sits behind the Classifier interface so the word-overlap
// heuristic can be replaced by a semantic model without touching the
// graph code.
package relation

import (
	"context"
	"strings"
	"unicode"

	"github.com/pbaille/lexigraph/internal/domain"
)

// MinWordLength is the length a word must exceed to count as meaningful
const MinWordLength = 3

// Classifier picks a relation type for an edge between two flashcards
type Classifier interface {
	Classify(ctx context.Context, a, b domain.Flashcard) string
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(ctx context.Context, a, b domain.Flashcard) string

// Classify calls f(ctx, a, b)
func (f ClassifierFunc) Classify(ctx context.Context, a, b domain.Flashcard) string {
	return f(ctx, a, b)
}

// Heuristic is the default word-overlap classifier:
//
//  1. definitions share >= 2 meaningful words: synonym
//  2. one definition mentions the other card's word: related_to
//  3. same part of speech: same_category
//  4. otherwise: co_studied
var Heuristic Classifier = ClassifierFunc(classify)

func classify(_ context.Context, a, b domain.Flashcard) string {
	if SharedWords(a.Definition, b.Definition) >= 2 {
		return domain.RelationSynonym
	}
	if mentions(a.Definition, b.Word) || mentions(b.Definition, a.Word) {
		return domain.RelationRelatedTo
	}
	if a.PartOfSpeech != "" && strings.EqualFold(a.PartOfSpeech, b.PartOfSpeech) {
		return domain.RelationSameCategory
	}
	return domain.RelationCoStudied
}

func mentions(text, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	return word != "" && strings.Contains(strings.ToLower(text), word)
}

// Words splits text into lowercase words of letters and digits
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// MeaningfulWords returns the distinct words of text longer than
// MinWordLength, in order of first appearance
func MeaningfulWords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range Words(text) {
		if len([]rune(w)) <= MinWordLength || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// FirstMeaningfulWord returns the first word of text longer than
// MinWordLength, or "" if there is none
func FirstMeaningfulWord(text string) string {
	if words := MeaningfulWords(text); len(words) > 0 {
		return words[0]
	}
	return ""
}

// SharedWords counts distinct meaningful words present in both texts
func SharedWords(a, b string) int {
	inB := make(map[string]bool)
	for _, w := range MeaningfulWords(b) {
		inB[w] = true
	}
	n := 0
	for _, w := range MeaningfulWords(a) {
		if inB[w] {
			n++
		}
	}
	return n
}

// Valid reports whether t is one of the known relation types
func Valid(t string) bool {
	switch t {
	case domain.RelationSynonym, domain.RelationRelatedTo, domain.RelationRequires,
		domain.RelationCoStudied, domain.RelationSameCategory:
		return true
	}
	return false
}
