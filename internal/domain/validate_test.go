package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string  `validate:"required"`
	Count int     `validate:"gte=0"`
	Ratio float64 `validate:"gte=0,lte=1"`
	Kind  string  `validate:"omitempty,oneof=a b"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sample{Name: "x", Ratio: 0.5}))

	err := Validate(sample{Count: -1, Ratio: 2, Kind: "c"})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "count must be >= 0")
	assert.Contains(t, err.Error(), "ratio must be <= 1")
	assert.Contains(t, err.Error(), "kind must be one of [a b]")
}

func TestConceptEdge_Other(t *testing.T) {
	e := ConceptEdge{SourceID: "a", TargetID: "b"}

	assert.Equal(t, "b", e.Other("a"))
	assert.Equal(t, "a", e.Other("b"))
	assert.True(t, e.Touches("a"))
	assert.False(t, e.Touches("c"))
}
