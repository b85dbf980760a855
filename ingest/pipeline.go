package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	quarry "github.com/quarryhq/quarry"
)

const defaultBatchSize = 64

// Pipeline ingests documents end to end: enumerate, chunk under one
// strategy, embed, and write batches to the vector store. A Pipeline is
// safe to reuse across runs.
type Pipeline struct {
	store     quarry.VectorStore
	embedding quarry.EmbeddingProvider
	guard     *quarry.Guard
	batchSize int
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// PipelineBatchSize sets how many chunks are embedded and written per store
// transaction (default 64).
func PipelineBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// PipelineLogger sets the structured logger for ingestion progress.
func PipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline writing to store with embeddings from
// embedding. Wrap the provider with quarry.WithEmbeddingRetry to make
// transient embedding failures retryable before they fail a batch.
func NewPipeline(store quarry.VectorStore, embedding quarry.EmbeddingProvider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:     store,
		embedding: embedding,
		batchSize: defaultBatchSize,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(p)
	}
	p.guard = quarry.NewGuard(store, quarry.GuardLogger(p.logger))
	return p
}

// Report summarizes one Populate run.
type Report struct {
	Strategy       string            // canonical descriptor label
	DocsProcessed  int               // documents chunked and handed to batches
	Skipped        []SkippedDocument // documents not ingested, with reasons
	ChunksWritten  int
	BatchesWritten int
	FailedBatches  int // batches lost to embedding or store failures
	Elapsed        time.Duration
}

// Populate ingests every document of every source under desc. The strategy
// check runs before any write: a table populated under a different
// descriptor aborts the run with *quarry.ErrStrategyMismatch and no rows
// written. Per-document problems are recoverable and reported as skips;
// per-batch embedding or store failures lose only that batch and are
// counted in the report.
func (p *Pipeline) Populate(ctx context.Context, sources []Source, desc quarry.Descriptor) (Report, error) {
	start := time.Now()
	report := Report{Strategy: desc.String()}

	if err := desc.Validate(); err != nil {
		return report, fmt.Errorf("populate: %w", err)
	}
	if _, err := p.guard.CheckIngest(ctx, desc); err != nil {
		return report, fmt.Errorf("populate: %w", err)
	}

	chunker, err := ForDescriptor(desc, p.embedding.Embed)
	if err != nil {
		return report, fmt.Errorf("populate: %w", err)
	}

	var pending []quarry.ChunkRecord
	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		if err := p.writeBatch(ctx, batch); err != nil {
			report.FailedBatches++
			p.logger.Error("batch failed",
				"chunks", len(batch),
				"error", err)
			return
		}
		report.ChunksWritten += len(batch)
		report.BatchesWritten++
	}

	for _, src := range sources {
		docs, skipped, err := src.Documents()
		if err != nil {
			return report, fmt.Errorf("populate: enumerate %s: %w", src.Name(), err)
		}
		report.Skipped = append(report.Skipped, skipped...)

		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			spans, err := chunkDocument(ctx, chunker, doc.Text)
			if err != nil {
				report.Skipped = append(report.Skipped, SkippedDocument{Path: doc.Path, Reason: fmt.Sprintf("chunking failed: %v", err)})
				continue
			}

			wrote := false
			for i, span := range spans {
				if strings.TrimSpace(span) == "" {
					continue
				}
				pending = append(pending, quarry.ChunkRecord{
					ID:             quarry.HashText(doc.ID + "\x00" + strconv.Itoa(i) + "\x00" + span),
					DocumentID:     doc.ID,
					DocumentName:   doc.Name,
					Repo:           doc.Repo,
					Content:        span,
					ChunkIndex:     i,
					Strategy:       report.Strategy,
					EmbeddingModel: p.embedding.Name(),
					InternalOnly:   doc.InternalOnly,
				})
				wrote = true
				if len(pending) >= p.batchSize {
					flush()
				}
			}
			if wrote {
				report.DocsProcessed++
			} else {
				report.Skipped = append(report.Skipped, SkippedDocument{Path: doc.Path, Reason: "no non-empty chunks"})
			}
		}
		p.logger.Info("source enumerated",
			"repo", src.Name(),
			"documents", len(docs),
			"skipped", len(skipped))
	}
	flush()

	report.Elapsed = time.Since(start)
	p.logger.Info("populate complete",
		"strategy", report.Strategy,
		"documents", report.DocsProcessed,
		"chunks", report.ChunksWritten,
		"batches", report.BatchesWritten,
		"failed_batches", report.FailedBatches,
		"skipped", len(report.Skipped),
		"elapsed", report.Elapsed)
	return report, nil
}

// chunkDocument prefers context-aware chunking when the chunker supports it.
func chunkDocument(ctx context.Context, c Chunker, text string) ([]string, error) {
	if cc, ok := c.(ContextChunker); ok {
		return cc.ChunkContext(ctx, text)
	}
	return c.Chunk(text), nil
}

// writeBatch embeds one batch and writes it in a single store transaction.
// The whole batch shares a batch ID and timestamp.
func (p *Pipeline) writeBatch(ctx context.Context, batch []quarry.ChunkRecord) error {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Content
	}
	embeddings, err := p.embedding.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embed batch: got %d embeddings for %d chunks", len(embeddings), len(batch))
	}

	batchID := quarry.NewID()
	now := quarry.NowUnix()
	for i := range batch {
		batch[i].Embedding = embeddings[i]
		batch[i].BatchID = batchID
		batch[i].CreatedAt = now
	}
	if err := p.store.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	p.logger.Debug("batch written", "batch_id", batchID, "chunks", len(batch))
	return nil
}
