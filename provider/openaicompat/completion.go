package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	quarry "github.com/quarryhq/quarry"
)

// Completion implements quarry.CompletionProvider over the /chat/completions
// endpoint.
type Completion struct {
	client
}

var _ quarry.CompletionProvider = (*Completion)(nil)

// NewCompletion creates a chat completion provider. The /chat/completions
// path is appended to baseURL automatically.
func NewCompletion(apiKey, model, baseURL string, opts ...Option) *Completion {
	return &Completion{client: newClient(apiKey, model, baseURL, opts...)}
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Completion) Name() string { return p.name }

type completionRequest struct {
	Model    string               `json:"model"`
	Messages []quarry.ChatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the messages and returns the first choice's content.
// Transport failures wrap quarry.ErrGenerationUnavailable; non-2xx responses
// return *quarry.ErrHTTP.
func (p *Completion) Complete(ctx context.Context, messages []quarry.ChatMessage) (string, error) {
	resp, err := p.post(ctx, "/chat/completions", completionRequest{Model: p.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("%w: %v", quarry.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpErr(resp)
	}

	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(body.Choices) == 0 {
		return "", fmt.Errorf("completion: response has no choices")
	}
	return body.Choices[0].Message.Content, nil
}
