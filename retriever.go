package quarry

import (
	"context"
	"fmt"
	"log/slog"
)

// Retriever searches the chunk table and returns ranked results for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, desc Descriptor, scope Scope, topK int, metric Metric) ([]ScoredChunk, error)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// EngineLogger sets the structured logger used by the engine and its guard.
func EngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// Engine is the retrieval engine: it embeds the query, checks strategy
// consistency against the table, and runs a scope- and strategy-filtered
// similarity search.
type Engine struct {
	store     VectorStore
	embedding EmbeddingProvider
	guard     *Guard
	logger    *slog.Logger
}

var _ Retriever = (*Engine)(nil)

// NewEngine creates an Engine over store and embedding.
func NewEngine(store VectorStore, embedding EmbeddingProvider, opts ...EngineOption) *Engine {
	e := &Engine{store: store, embedding: embedding, logger: nopLogger}
	for _, o := range opts {
		o(e)
	}
	e.guard = NewGuard(store, GuardLogger(e.logger))
	return e
}

// Retrieve returns up to topK chunks ranked by descending similarity to the
// query under metric, restricted to rows produced under desc and visible
// under scope. An empty table — or a table with no rows under desc — yields
// an empty slice, not an error. Ties in score break by ingestion order, so
// results are deterministic regardless of concurrent ingestion elsewhere.
func (e *Engine) Retrieve(ctx context.Context, query string, desc Descriptor, scope Scope, topK int, metric Metric) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("retrieve: topK must be > 0, got %d", topK)
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	outcome, err := e.guard.CheckRetrieve(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if outcome == OutcomeEmpty {
		return nil, nil
	}

	embs, err := e.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("embed query: no embedding returned")
	}

	results, err := e.store.SearchChunks(ctx, embs[0], topK, SearchFilter{
		Strategy: desc.String(),
		Scope:    scope,
		Metric:   metric,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	e.logger.Debug("retrieval complete",
		"strategy", desc.String(),
		"scope", scope.String(),
		"k", topK,
		"results", len(results))
	return results, nil
}
