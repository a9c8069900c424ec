package chunk

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split("", 10))
	assert.Empty(t, NewChunker(10).Chunk(""))
}

func TestSplit_ShorterThanMax(t *testing.T) {
	parts := Split("The sky is blue. Grass is green.", 1000)
	require.Len(t, parts, 1)
	assert.Equal(t, "The sky is blue. Grass is green.", parts[0])
}

func TestSplit_ExactBoundaries(t *testing.T) {
	parts := Split("abcdefghij", 5)
	assert.Equal(t, []string{"abcde", "fghij"}, parts)

	parts = Split("abcdefghijk", 5)
	assert.Equal(t, []string{"abcde", "fghij", "k"}, parts)
}

func TestSplit_MultiByteCharacters(t *testing.T) {
	text := "héllo wörld ✓✓✓"
	parts := Split(text, 4)

	for _, p := range parts {
		assert.True(t, utf8.ValidString(p), "chunk %q is not valid UTF-8", p)
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 4)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplit_NonPositiveMaxUsesDefault(t *testing.T) {
	text := strings.Repeat("x", DefaultMaxLength+1)
	assert.Len(t, Split(text, 0), 2)
	assert.Equal(t, DefaultMaxLength, NewChunker(-3).MaxLength())
}

// TestSplit_RoundTripAndCount checks reconstruction and the ceil(len/m) bound
// over random inputs, including non-ASCII runes.
func TestSplit_RoundTripAndCount(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abc xyz\n\tÅéß✓日本")

	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(300)
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(runes)
		m := rng.Intn(50) + 1

		parts := Split(text, m)

		assert.Equal(t, text, strings.Join(parts, ""), "round trip failed for m=%d", m)
		if n == 0 {
			assert.Empty(t, parts)
			continue
		}
		assert.Len(t, parts, (n+m-1)/m)
		for i, p := range parts {
			size := utf8.RuneCountInString(p)
			if i < len(parts)-1 {
				assert.Equal(t, m, size, "non-final chunk %d must be full", i)
			} else {
				assert.LessOrEqual(t, size, m)
				assert.Greater(t, size, 0)
			}
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(7)
	text := "Deterministic chunk boundaries make tests reproducible."

	first := c.Chunk(text)
	second := c.Chunk(text)

	assert.Equal(t, first, second)
	for i, ch := range first {
		assert.Equal(t, i, ch.Index)
	}
}
