package quarry

import "context"

// SearchFilter restricts a similarity search. Strategy is mandatory: a search
// never mixes chunks produced under different strategies in one result set.
type SearchFilter struct {
	// Strategy is the canonical label of the descriptor whose rows may match.
	Strategy string
	// Scope excludes internal-only rows when set to ScopeExternalOnly.
	Scope Scope
	// Metric selects the similarity measure used for ranking.
	Metric Metric
}

// VectorStore abstracts the persisted chunk table with vector search.
//
// Implementations must write each InsertBatch atomically: a concurrent
// search sees either all rows of a batch or none of them. Search results
// break score ties by ingestion order (insertion time, then chunk index),
// so ranking is deterministic.
type VectorStore interface {
	// InsertBatch persists one batch of records as a single transaction.
	InsertBatch(ctx context.Context, records []ChunkRecord) error

	// SearchChunks returns up to topK rows matching the filter, ordered by
	// descending similarity under the filter's metric.
	SearchChunks(ctx context.Context, embedding []float32, topK int, f SearchFilter) ([]ScoredChunk, error)

	// Strategies returns the distinct strategy labels present in the table.
	// An empty slice means the table has no rows.
	Strategies(ctx context.Context) ([]string, error)

	// Lifecycle.
	Init(ctx context.Context) error
	Close() error
}
