// Package synthesis turns a question and retrieved passages into an answer
// using an OpenAI chat completion.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/docqa/internal/tokens"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gpt-4o"
	// DefaultTemperature matches the sampling temperature answers were tuned for.
	DefaultTemperature = 0.7
	// DefaultMaxTokens caps the length of a generated answer.
	DefaultMaxTokens = 1000
	// DefaultContextTokenBudget bounds the passages section of the prompt.
	DefaultContextTokenBudget = 3000
)

// ErrEmptyCompletion is returned when the model produced no usable text.
var ErrEmptyCompletion = errors.New("completion returned no content")

const systemPrompt = `You answer questions about a user's uploaded documents.
Use only the numbered passages provided. If they do not contain the answer, say so plainly.
Keep the answer concise and do not invent facts.`

// Config is the per-request language model configuration. It is passed by
// value on every call and never stored on the Synthesizer.
type Config struct {
	Model              string
	Temperature        float64
	MaxTokens          int
	ContextTokenBudget int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Model:              DefaultModel,
		Temperature:        DefaultTemperature,
		MaxTokens:          DefaultMaxTokens,
		ContextTokenBudget: DefaultContextTokenBudget,
	}
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ContextTokenBudget <= 0 {
		c.ContextTokenBudget = DefaultContextTokenBudget
	}
	return c
}

// Passage is one context record handed to the model.
type Passage struct {
	Title    string
	Filename string
	Text     string
}

// Request is a single synthesis call.
type Request struct {
	Config   Config
	Query    string
	Passages []Passage
}

// Result holds the model answer. PassagesUsed is how many of the request's
// passages, counted from the front, made it into the prompt.
type Result struct {
	Answer       string
	PassagesUsed int
}

// Synthesizer produces answers with the OpenAI chat completions API.
type Synthesizer struct {
	client  *openai.Client
	counter tokens.Counter
}

// NewSynthesizer creates a Synthesizer. A nil counter falls back to rune estimation.
func NewSynthesizer(client *openai.Client, counter tokens.Counter) *Synthesizer {
	if counter == nil {
		counter = tokens.RuneEstimator{}
	}
	return &Synthesizer{client: client, counter: counter}
}

// Synthesize builds a bounded prompt and returns the model's text verbatim.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config.withDefaults()
	prompt, used := BuildPrompt(req.Query, req.Passages, cfg.ContextTokenBudget, s.counter)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(cfg.Model),
		Temperature: openai.Float(cfg.Temperature),
		MaxTokens:   openai.Int(int64(cfg.MaxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	answer := resp.Choices[0].Message.Content
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyCompletion
	}

	return &Result{Answer: answer, PassagesUsed: used}, nil
}

// BuildPrompt renders the user message. Passages are added in order while
// they fit in budget tokens; the first passage is always included. It returns
// the prompt and the number of passages included.
func BuildPrompt(query string, passages []Passage, budget int, counter tokens.Counter) (string, int) {
	var b strings.Builder
	b.WriteString("Passages:\n\n")

	spent := 0
	used := 0
	for i, p := range passages {
		block := fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, p.Title, p.Filename, p.Text)
		cost := counter.Count(block)
		if used > 0 && spent+cost > budget {
			break
		}
		b.WriteString(block)
		spent += cost
		used++
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String(), used
}
