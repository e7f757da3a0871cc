package graph

import (
	"context"
	"testing"

	"github.com/pbaille/lexigraph/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLearningPaths_ToEnd(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)

	paths, err := e.LearningPaths(context.Background(), PathQuery{Start: "procurement", End: "contract", MaxLength: 3, IncludeDifficulty: true})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	// direct: 0.7/1; via negotiate: 0.8/2; via supplier: 0.75/2
	assert.Equal(t, []string{"procurement", "contract"}, paths[0].Titles())
	assert.InDelta(t, 0.7, paths[0].Score, 1e-9)
	assert.Equal(t, []string{"procurement", "negotiate", "contract"}, paths[1].Titles())
	assert.InDelta(t, 0.4, paths[1].Score, 1e-9)
	assert.Equal(t, []string{"procurement", "supplier", "contract"}, paths[2].Titles())
	assert.InDelta(t, 0.375, paths[2].Score, 1e-9)

	p := paths[1]
	assert.Equal(t, 2, p.Length)
	assert.InDelta(t, 1.6, p.TotalStrength, 1e-9)
	assert.InDelta(t, 0.8, p.AverageStrength, 1e-9)
	assert.Equal(t, DifficultyEasy, p.Difficulty)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, PathStep{From: "procurement", To: "negotiate", Relation: domain.RelationRequires, Strength: 0.8}, p.Steps[0])

	assert.Equal(t, DifficultyMedium, paths[0].Difficulty)
	assert.Equal(t, DifficultyMedium, paths[2].Difficulty)
}

func TestLearningPaths_MaxLengthAndMinStrength(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)
	ctx := context.Background()

	paths, err := e.LearningPaths(ctx, PathQuery{Start: "procurement", End: "contract", MaxLength: 1})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 1, paths[0].Length)

	paths, err = e.LearningPaths(ctx, PathQuery{Start: "procurement", End: "contract", MinStrength: 0.75})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"procurement", "negotiate", "contract"}, paths[0].Titles())
	for _, s := range paths[0].Steps {
		assert.GreaterOrEqual(t, s.Strength, 0.75)
	}
}

func TestLearningPaths_WithoutEnd(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)

	paths, err := e.LearningPaths(context.Background(), PathQuery{Start: "procurement"})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		assert.GreaterOrEqual(t, p.Length, 2)
		assert.Empty(t, p.Difficulty)
		assert.Equal(t, "procurement", p.Concepts[0].Title)
		assert.Equal(t, "contract", p.Concepts[len(p.Concepts)-1].Title)
	}
}

func TestLearningPaths_OutgoingOnly(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)

	paths, err := e.LearningPaths(context.Background(), PathQuery{Start: "contract", End: "procurement"})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLearningPaths_NoCycles(t *testing.T) {
	cycle := []testEdge{
		{"a", "b", domain.RelationRelatedTo, 0.9},
		{"b", "c", domain.RelationRelatedTo, 0.9},
		{"c", "a", domain.RelationRelatedTo, 0.9},
	}
	e, _, _ := newTestEngine(t, cycle)

	paths, err := e.LearningPaths(context.Background(), PathQuery{Start: "a", MaxLength: 10})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b", "c"}, paths[0].Titles())
}

func TestLearningPaths_Unknown(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)
	ctx := context.Background()

	paths, err := e.LearningPaths(ctx, PathQuery{Start: "zebra"})
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = e.LearningPaths(ctx, PathQuery{Start: "procurement", End: "zebra"})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLearningPaths_InvalidParameters(t *testing.T) {
	e, _, _ := newTestEngine(t, procurementGraph)
	ctx := context.Background()

	for _, q := range []PathQuery{
		{Start: ""},
		{Start: "procurement", MaxLength: -1},
		{Start: "procurement", MinStrength: 1.5},
		{Start: "procurement", MinStrength: -0.1},
	} {
		_, err := e.LearningPaths(ctx, q)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	}
}

func TestLearningPaths_MaxPaths(t *testing.T) {
	var fan []testEdge
	for _, mid := range []string{"m1", "m2", "m3", "m4"} {
		fan = append(fan,
			testEdge{"start", mid, domain.RelationRelatedTo, 0.5},
			testEdge{mid, "end", domain.RelationRelatedTo, 0.5},
		)
	}
	s := newTestStore(t)
	seedGraph(t, s, fan)
	e := New(s, Config{MaxPaths: 2}, zap.NewNop())

	paths, err := e.LearningPaths(context.Background(), PathQuery{Start: "start", End: "end"})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestClassifyDifficulty(t *testing.T) {
	tests := []struct {
		avg    float64
		length int
		want   string
	}{
		{0.9, 1, DifficultyEasy},
		{0.8, 2, DifficultyEasy},
		{0.8, 3, DifficultyMedium},
		{0.6, 3, DifficultyMedium},
		{0.7, 1, DifficultyMedium},
		{0.59, 1, DifficultyHard},
		{0.9, 4, DifficultyHard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDifficulty(tt.avg, tt.length), "avg %.2f length %d", tt.avg, tt.length)
	}
}
