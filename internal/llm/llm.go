// Package llm backs the judge and similarity collaborators with the Gemini
// API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/genai"

	"gazette/internal/fetch"
	"gazette/internal/secrets"
)

const (
	// DefaultModel handles judge completions.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel generates similarity embeddings.
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions keeps embeddings compact (Matryoshka).
	DefaultEmbeddingDimensions = int32(768)
	// retryCooldown is the wait before the single retry after a
	// connectivity failure.
	retryCooldown = 30 * time.Second
)

// Client wraps a Gemini client for completions and embeddings. One Client is
// created per run and shared read-only across destinations.
type Client struct {
	modelName string
	gClient   *genai.Client
}

// NewClient builds a Gemini client, resolving the API key through the secret
// accessor (GEMINI_API_KEY).
func NewClient(ctx context.Context, modelName string) (*Client, error) {
	apiKey, err := secrets.Get("GEMINI_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("gemini API key is required: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{modelName: modelName, gClient: gClient}, nil
}

// isConnectivityError reports whether an error looks like a transport
// problem worth one retry, as opposed to a model or request error.
func isConnectivityError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Complete sends one chat completion with a system role. A connectivity
// failure is retried exactly once after a fixed cooldown; other failures
// surface to the caller.
func (c *Client) Complete(ctx context.Context, systemRole, userMessage string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: userMessage}},
		Role:  "user",
	}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemRole}},
		},
	}

	var text string
	policy := fetch.RetryPolicy{Attempts: 2, Delay: retryCooldown, ShouldRetry: isConnectivityError}
	err := policy.Do(ctx, func() error {
		resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
		if err != nil {
			return fmt.Errorf("failed to generate content: %w", err)
		}
		text = resp.Text()
		if text == "" {
			return fmt.Errorf("empty response from model")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Encode returns one embedding vector per input text, in input order.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: t}},
			Role:  "user",
		}
	}
	dims := DefaultEmbeddingDimensions
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	resp, err := c.gClient.Models.EmbedContent(ctx, DefaultEmbeddingModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	embeddings := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("no embedding values returned for text %d", i)
		}
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}
