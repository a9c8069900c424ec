package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuneEstimator(t *testing.T) {
	var est RuneEstimator

	assert.Equal(t, 0, est.Count(""))
	assert.Equal(t, 1, est.Count("a"))
	assert.Equal(t, 1, est.Count("abcd"))
	assert.Equal(t, 2, est.Count("abcde"))
	// Multibyte runes count once each.
	assert.Equal(t, 1, est.Count("日本語"))
	assert.Equal(t, 250, est.Count(strings.Repeat("x", 1000)))
}

func TestNewCounter_AlwaysCounts(t *testing.T) {
	counter := NewCounter("gpt-4o", nil)

	assert.Zero(t, counter.Count(""))
	assert.Positive(t, counter.Count("hello world"))

	short := counter.Count("one two")
	long := counter.Count(strings.Repeat("one two ", 50))
	assert.Greater(t, long, short)
}
