package graph

import (
	"context"
	"testing"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func similarTitles(similar []SimilarConcept) []string {
	out := make([]string, len(similar))
	for i, s := range similar {
		out[i] = s.Concept.Title
	}
	return out
}

func TestSimilarConcepts(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)

	similar, err := e.SimilarConcepts(context.Background(), SimilarQuery{Word: "negotiate", Limit: 10, MinSimilarity: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"contract", "procurement"}, similarTitles(similar))
	for _, s := range similar {
		assert.Equal(t, 1.0, s.Similarity)
		assert.Equal(t, domain.RelationRequires, s.SharedRelationshipType)
		assert.Equal(t, 0.8, s.SharedStrength)
		assert.Nil(t, s.Context)
	}
}

func TestSimilarConcepts_ToleranceAndRanking(t *testing.T) {
	edges := []testEdge{
		{"bid", "offer", domain.RelationSynonym, 0.8},
		{"quote", "estimate", domain.RelationSynonym, 0.7},
		{"quote", "price", domain.RelationSynonym, 0.9},
		{"tender", "proposal", domain.RelationSynonym, 0.3},
		{"bid", "auction", domain.RelationRelatedTo, 0.5},
		{"lot", "auction", domain.RelationRelatedTo, 0.5},
	}
	e, _, _ := newTestEngine(t, edges)

	similar, err := e.SimilarConcepts(context.Background(), SimilarQuery{Word: "bid", Limit: 10})
	require.NoError(t, err)

	// quote matches two synonym edges; the 0.3 synonym is outside tolerance
	require.NotEmpty(t, similar)
	assert.Equal(t, "quote", similar[0].Concept.Title)
	assert.Equal(t, 2.0, similar[0].Similarity)
	assert.NotContains(t, similarTitles(similar), "tender")
	assert.NotContains(t, similarTitles(similar), "proposal")
	assert.NotContains(t, similarTitles(similar), "bid")
	assert.Contains(t, similarTitles(similar), "lot")

	filtered, err := e.SimilarConcepts(context.Background(), SimilarQuery{Word: "bid", Limit: 10, MinSimilarity: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"quote"}, similarTitles(filtered))

	limited, err := e.SimilarConcepts(context.Background(), SimilarQuery{Word: "bid", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"quote"}, similarTitles(limited))
}

func TestSimilarConcepts_Context(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)

	similar, err := e.SimilarConcepts(context.Background(), SimilarQuery{Word: "negotiate", Limit: 10, IncludeContext: true})
	require.NoError(t, err)
	require.Len(t, similar, 2)

	contract := similar[0]
	require.Len(t, contract.Context, 3)
	assert.Equal(t, ContextConcept{Title: "negotiate", Relation: domain.RelationRequires, Strength: 0.8}, contract.Context[0])

	procurement := similar[1]
	require.Len(t, procurement.Context, 3)
	assert.Equal(t, "supplier", procurement.Context[0].Title)
}

func TestSimilarConcepts_EmptyResults(t *testing.T) {
	e, s, _ := newTestEngine(t, procurementGraph)
	ctx := context.Background()

	similar, err := e.SimilarConcepts(ctx, SimilarQuery{Word: "zebra", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, similar)

	similar, err = e.SimilarConcepts(ctx, SimilarQuery{Word: "procurement", Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, similar)

	_, err = s.CreateNode(ctx, "vocabulary", "island", "", "")
	require.NoError(t, err)
	similar, err = e.SimilarConcepts(ctx, SimilarQuery{Word: "island", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestSimilarConcepts_InvalidParameters(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)
	ctx := context.Background()

	for _, q := range []SimilarQuery{
		{Word: "", Limit: 10},
		{Word: "negotiate", Limit: -1},
		{Word: "negotiate", Limit: 10, MinSimilarity: -1},
	} {
		_, err := e.SimilarConcepts(ctx, q)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	}
}
