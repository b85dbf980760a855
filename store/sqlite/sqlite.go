// Package sqlite implements quarry.VectorStore on a local SQLite file using
// the pure-Go driver. Embeddings are stored as JSON text and similarity
// search runs in-process by brute force, which is plenty for local corpora
// and keeps the build free of CGO.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	quarry "github.com/quarryhq/quarry"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger. When set, the store emits debug logs
// with timing and row counts; without one nothing is emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store is a quarry.VectorStore backed by a SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ quarry.VectorStore = (*Store)(nil)

// New creates a Store at dbPath. It opens a single shared connection
// (SetMaxOpenConns(1)) so all goroutines serialize through one connection,
// eliminating SQLITE_BUSY errors from concurrent writers.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the chunk table and its indexes.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			document_name TEXT NOT NULL,
			repo TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			embedding TEXT NOT NULL,
			embedding_model TEXT NOT NULL,
			internal_only INTEGER NOT NULL DEFAULT 0,
			batch_id TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_strategy ON chunks(strategy)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
	}
	for _, ddl := range stmts {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlite: init: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertBatch writes all records in one transaction: either every row of
// the batch lands or none does. Re-inserting an existing chunk ID replaces
// the row.
func (s *Store) InsertBatch(ctx context.Context, records []quarry.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks
		(id, document_id, document_name, repo, content, chunk_index, strategy,
		 embedding, embedding_model, internal_only, batch_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.DocumentID, r.DocumentName, r.Repo, r.Content, r.ChunkIndex,
			r.Strategy, serializeEmbedding(r.Embedding), r.EmbeddingModel,
			boolToInt(r.InternalOnly), r.BatchID, r.CreatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: insert chunk %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	s.logger.Debug("sqlite: batch inserted",
		"chunks", len(records),
		"batch_id", records[0].BatchID,
		"elapsed", time.Since(start))
	return nil
}

// SearchChunks scans all rows under the filter's strategy, scores them
// in-process under the filter's metric, and returns the topK most similar.
// Ties break by insertion order, so results are deterministic.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, f quarry.SearchFilter) ([]quarry.ScoredChunk, error) {
	start := time.Now()

	query := `SELECT rowid, id, document_id, document_name, repo, content, chunk_index,
		strategy, embedding, embedding_model, internal_only, batch_id, created_at
		FROM chunks WHERE strategy = ?`
	args := []any{f.Strategy}
	if f.Scope == quarry.ScopeExternalOnly {
		query += ` AND internal_only = 0`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	defer rows.Close()

	type scoredRow struct {
		chunk quarry.ScoredChunk
		rowid int64
	}
	var scored []scoredRow

	for rows.Next() {
		var (
			c        quarry.ChunkRecord
			rowid    int64
			embJSON  string
			internal int
		)
		if err := rows.Scan(&rowid, &c.ID, &c.DocumentID, &c.DocumentName, &c.Repo,
			&c.Content, &c.ChunkIndex, &c.Strategy, &embJSON, &c.EmbeddingModel,
			&internal, &c.BatchID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		c.InternalOnly = internal != 0
		c.Embedding = stored
		scored = append(scored, scoredRow{
			chunk: quarry.ScoredChunk{ChunkRecord: c, Score: score(f.Metric, embedding, stored)},
			rowid: rowid,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: search rows: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.chunk.Score != b.chunk.Score {
			if f.Metric.Descending() {
				return a.chunk.Score > b.chunk.Score
			}
			return a.chunk.Score < b.chunk.Score
		}
		return a.rowid < b.rowid
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	out := make([]quarry.ScoredChunk, len(scored))
	for i, sr := range scored {
		out[i] = sr.chunk
	}

	s.logger.Debug("sqlite: search complete",
		"strategy", f.Strategy,
		"metric", f.Metric.String(),
		"top_k", topK,
		"results", len(out),
		"elapsed", time.Since(start))
	return out, nil
}

// Strategies returns the distinct strategy labels present in the table.
func (s *Store) Strategies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT strategy FROM chunks ORDER BY strategy`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("sqlite: scan strategy: %w", err)
		}
		strategies = append(strategies, v)
	}
	return strategies, rows.Err()
}

// score computes the raw metric value between the query and a stored vector.
func score(m quarry.Metric, query, stored []float32) float32 {
	switch m {
	case quarry.MetricCosineSimilarity:
		return cosine(query, stored)
	case quarry.MetricCosineDistance:
		return 1 - cosine(query, stored)
	case quarry.MetricInnerProduct:
		return dot(query, stored)
	case quarry.MetricEuclidean:
		return euclidean(query, stored)
	default:
		return cosine(query, stored)
	}
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var d, na, nb float64
	for i := range a {
		d += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return float32(d / denom)
}

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var d float64
	for i := range a {
		d += float64(a[i]) * float64(b[i])
	}
	return float32(d)
}

func euclidean(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return float32(math.Sqrt(sum))
}

func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
