// Package chunk splits extracted document text into fixed-size segments for embedding.
package chunk

import "unicode/utf8"

// DefaultMaxLength is the chunk size used when none is configured.
const DefaultMaxLength = 1000

// Chunk is one segment of a document's text.
type Chunk struct {
	Index int    // Position in document (0, 1, 2...)
	Text  string // Raw slice of the extracted text
}

// Chunker splits text into consecutive, non-overlapping segments of at most
// maxLength characters. Concatenating the chunks in Index order yields the
// original text exactly.
type Chunker struct {
	maxLength int
}

// NewChunker creates a chunker. Non-positive lengths fall back to DefaultMaxLength.
func NewChunker(maxLength int) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Chunker{maxLength: maxLength}
}

// MaxLength returns the configured chunk size in characters.
func (c *Chunker) MaxLength() int {
	return c.maxLength
}

// Chunk splits text and tags each segment with its sequence index.
func (c *Chunker) Chunk(text string) []Chunk {
	parts := Split(text, c.maxLength)
	chunks := make([]Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = Chunk{Index: i, Text: part}
	}
	return chunks
}

// Split cuts text into segments of at most maxLength runes. Lengths are
// counted in characters, not bytes, so multi-byte text is never split inside
// a character. Empty input yields no segments.
func Split(text string, maxLength int) []string {
	if text == "" {
		return nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	total := utf8.RuneCountInString(text)
	parts := make([]string, 0, (total+maxLength-1)/maxLength)

	start, count := 0, 0
	for i := range text {
		if count == maxLength {
			parts = append(parts, text[start:i])
			start, count = i, 0
		}
		count++
	}
	parts = append(parts, text[start:])

	return parts
}
