// Package openaicompat implements quarry's provider interfaces against any
// API that speaks the OpenAI embeddings and chat completions protocol.
//
// Works with OpenAI, OpenRouter, Groq, Together, Fireworks, DeepSeek,
// Mistral, Ollama, vLLM, LM Studio, Azure OpenAI, and any other service
// exposing /embeddings and /chat/completions.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	quarry "github.com/quarryhq/quarry"
)

// client holds the connection details shared by the embedding and completion
// providers.
type client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	name    string
}

// Option configures an Embedding or Completion provider.
type Option func(*client)

// WithName sets the provider name returned by Name() (default "openai").
// Use this to distinguish providers in logs and observability.
func WithName(name string) Option {
	return func(c *client) { c.name = name }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.http = h }
}

func newClient(apiKey, model, baseURL string, opts ...Option) client {
	c := client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		http:    &http.Client{},
		name:    "openai",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// post marshals body and sends it to baseURL+path. The caller owns the
// response body. A transport failure is returned as-is for the caller to
// classify; a non-2xx status is not an error at this layer.
func (c *client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.http.Do(req)
}

// httpErr reads the response body and returns an ErrHTTP for retry
// middleware. Parses the Retry-After header when present (429/503 responses).
func httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &quarry.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: quarry.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}
