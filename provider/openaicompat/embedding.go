package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	quarry "github.com/quarryhq/quarry"
)

const defaultDimensions = 1536

// Embedding implements quarry.EmbeddingProvider over the /embeddings
// endpoint.
type Embedding struct {
	client
	dimensions int
}

var _ quarry.EmbeddingProvider = (*Embedding)(nil)

// NewEmbedding creates an embedding provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"). The /embeddings path is appended
// automatically.
func NewEmbedding(apiKey, model, baseURL string, opts ...Option) *Embedding {
	return &Embedding{
		client:     newClient(apiKey, model, baseURL, opts...),
		dimensions: defaultDimensions,
	}
}

// SetDimensions overrides the advertised vector size (default 1536). Call it
// when the configured model embeds into a different dimension.
func (e *Embedding) SetDimensions(n int) { e.dimensions = n }

// Name returns the provider name (default "openai", configurable via WithName).
func (e *Embedding) Name() string { return e.name }

// Dimensions returns the embedding vector size.
func (e *Embedding) Dimensions() int { return e.dimensions }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order. Transport
// failures wrap quarry.ErrEmbeddingUnavailable; non-2xx responses return
// *quarry.ErrHTTP so the retry middleware can classify them.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.post(ctx, "/embeddings", embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quarry.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpErr(resp)
	}

	var body embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if len(body.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(body.Data), len(texts))
	}

	// The API documents data entries in input order, but index is
	// authoritative.
	out := make([][]float32, len(texts))
	for _, d := range body.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
