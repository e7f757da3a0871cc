package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ledger", truncate("ledger", 10))
	assert.Equal(t, "a book ...", truncate("a book of accounts", 10))
	assert.Equal(t, "two lines", truncate("two\nlines", 10))

	got := truncate("Économie d'échelle", 8)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Écono...", got)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "01234567", shortID("0123456789"))
}
