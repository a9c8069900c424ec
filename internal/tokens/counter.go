// Package tokens estimates how many model tokens a piece of text occupies.
package tokens

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter reports the token length of text.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for a model name or encoding name,
// falling back to cl100k_base when neither is known.
func NewTiktokenCounter(modelOrEncoding string) (*TiktokenCounter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}

	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err == nil {
		return &TiktokenCounter{encoding: modelOrEncoding, tke: tke}, nil
	}
	tke, err = tiktoken.EncodingForModel(modelOrEncoding)
	if err == nil {
		return &TiktokenCounter{encoding: modelOrEncoding, tke: tke}, nil
	}
	tke, err = tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get default encoding '%s': %w", defaultEncoding, err)
	}
	return &TiktokenCounter{encoding: defaultEncoding, tke: tke}, nil
}

// Count returns the number of BPE tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

// Encoding returns the name the counter was loaded with.
func (c *TiktokenCounter) Encoding() string {
	return c.encoding
}

// RuneEstimator approximates tokens as one per four runes.
type RuneEstimator struct{}

// Count returns ceil(runes/4), and zero for empty text.
func (RuneEstimator) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// NewCounter returns a tiktoken counter for model, or a RuneEstimator when
// the encoding cannot be loaded (for example without network access to the
// BPE ranks).
func NewCounter(model string, logger *slog.Logger) Counter {
	counter, err := NewTiktokenCounter(model)
	if err != nil {
		if logger != nil {
			logger.Warn("tiktoken unavailable, estimating tokens from rune count", "model", model, "error", err)
		}
		return RuneEstimator{}
	}
	return counter
}
