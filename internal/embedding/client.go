package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by embedding and answer synthesis.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. It returns an error if apiKey is empty.
// baseURL is optional and points the client at an OpenAI-compatible endpoint.
func NewClient(apiKey, baseURL string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	client := openai.NewClient(reqOpts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., answer synthesis).
func (c *Client) Client() *openai.Client {
	return c.client
}
