// Package postgres implements quarry.VectorStore on PostgreSQL with
// pgvector: native operator-based similarity search over an HNSW index.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection; the caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	quarry "github.com/quarryhq/quarry"
)

// Store is a quarry.VectorStore backed by PostgreSQL with pgvector.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

type pgConfig struct {
	embeddingDimension int // 0 = untyped vector column
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
}

// Option configures a Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 768, 1536).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, catching
// dimension mismatches at insert time. Only affects new table creation.
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node). Higher
// values improve recall at the cost of memory. Default: pgvector's 16.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter. Higher values
// improve index quality at the cost of slower builds. Default: pgvector's 64.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

var _ quarry.VectorStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool. The caller owns the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

func (s *Store) hnswWith() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, the chunk table, and its indexes.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			document_name TEXT NOT NULL,
			repo TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			embedding ` + s.vectorType() + ` NOT NULL,
			embedding_model TEXT NOT NULL,
			internal_only BOOLEAN NOT NULL DEFAULT FALSE,
			batch_id TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			seq BIGSERIAL
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_strategy_idx ON chunks(strategy)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)` + s.hnswWith(),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// InsertBatch writes all records in one transaction. Re-inserting an
// existing chunk ID replaces the row.
func (s *Store) InsertBatch(ctx context.Context, records []quarry.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err := tx.Exec(ctx, `INSERT INTO chunks
			(id, document_id, document_name, repo, content, chunk_index, strategy,
			 embedding, embedding_model, internal_only, batch_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				embedding_model = EXCLUDED.embedding_model,
				batch_id = EXCLUDED.batch_id,
				created_at = EXCLUDED.created_at`,
			r.ID, r.DocumentID, r.DocumentName, r.Repo, r.Content, r.ChunkIndex,
			r.Strategy, serializeEmbedding(r.Embedding), r.EmbeddingModel,
			r.InternalOnly, r.BatchID, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// metricExpr returns the score expression and ranking expression for a
// metric. pgvector operators are all distances, so similarity metrics are
// derived (cosine similarity = 1 - cosine distance) while ranking always
// orders by the native operator ascending.
func metricExpr(m quarry.Metric) (scoreExpr, orderExpr string) {
	switch m {
	case quarry.MetricCosineSimilarity:
		return `1 - (embedding <=> $1::vector)`, `embedding <=> $1::vector ASC`
	case quarry.MetricCosineDistance:
		return `embedding <=> $1::vector`, `embedding <=> $1::vector ASC`
	case quarry.MetricInnerProduct:
		// <#> is negative inner product.
		return `-(embedding <#> $1::vector)`, `embedding <#> $1::vector ASC`
	case quarry.MetricEuclidean:
		return `embedding <-> $1::vector`, `embedding <-> $1::vector ASC`
	default:
		return `1 - (embedding <=> $1::vector)`, `embedding <=> $1::vector ASC`
	}
}

// SearchChunks runs an operator-ranked similarity search restricted to the
// filter's strategy and scope. Ties break by insertion order.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, f quarry.SearchFilter) ([]quarry.ScoredChunk, error) {
	scoreExpr, orderExpr := metricExpr(f.Metric)

	where := `strategy = $2`
	if f.Scope == quarry.ScopeExternalOnly {
		where += ` AND internal_only = FALSE`
	}

	query := `SELECT id, document_id, document_name, repo, content, chunk_index,
		strategy, embedding_model, internal_only, batch_id, created_at,
		` + scoreExpr + ` AS score
		FROM chunks
		WHERE ` + where + `
		ORDER BY ` + orderExpr + `, seq ASC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, serializeEmbedding(embedding), f.Strategy, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	defer rows.Close()

	var out []quarry.ScoredChunk
	for rows.Next() {
		var c quarry.ScoredChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentName, &c.Repo,
			&c.Content, &c.ChunkIndex, &c.Strategy, &c.EmbeddingModel,
			&c.InternalOnly, &c.BatchID, &c.CreatedAt, &c.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search rows: %w", err)
	}
	return out, nil
}

// Strategies returns the distinct strategy labels present in the table.
func (s *Store) Strategies(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT strategy FROM chunks ORDER BY strategy`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy: %w", err)
		}
		strategies = append(strategies, v)
	}
	return strategies, rows.Err()
}

// serializeEmbedding renders a vector in pgvector's text format: [1,2,3].
func serializeEmbedding(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
