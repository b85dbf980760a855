package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	quarry "github.com/quarryhq/quarry"
)

// fakeStore collects inserted batches in memory.
type fakeStore struct {
	mu         sync.Mutex
	batches    [][]quarry.ChunkRecord
	strategies []string
	insertErr  error
	failFirst  bool
}

func (f *fakeStore) Init(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func (f *fakeStore) InsertBatch(ctx context.Context, records []quarry.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirst {
		f.failFirst = false
		return errors.New("transient store failure")
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	batch := append([]quarry.ChunkRecord(nil), records...)
	f.batches = append(f.batches, batch)
	for _, r := range records {
		dup := false
		for _, s := range f.strategies {
			if s == r.Strategy {
				dup = true
			}
		}
		if !dup {
			f.strategies = append(f.strategies, r.Strategy)
		}
	}
	return nil
}

func (f *fakeStore) SearchChunks(ctx context.Context, embedding []float32, topK int, filter quarry.SearchFilter) ([]quarry.ScoredChunk, error) {
	return nil, nil
}

func (f *fakeStore) Strategies(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.strategies...), nil
}

func (f *fakeStore) records() []quarry.ChunkRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []quarry.ChunkRecord
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

// fakeEmbedding returns unit vectors and can fail on demand.
type fakeEmbedding struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedding) Name() string    { return "fake-embedder" }
func (f *fakeEmbedding) Dimensions() int { return 3 }

func (f *fakeEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func staticDocs(texts ...string) []Source {
	docs := make([]quarry.Document, len(texts))
	for i, txt := range texts {
		docs[i] = quarry.Document{
			Name: "doc.txt",
			Path: "doc.txt",
			Text: txt,
		}
	}
	for i := range docs {
		docs[i].Path = docs[i].Path + "-" + string(rune('a'+i))
	}
	return []Source{&StaticSource{Repo: "test", Docs: docs}}
}

var paragraphDesc = quarry.Descriptor{Kind: quarry.StrategyByParagraph}

func TestPopulate(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, &fakeEmbedding{})

	report, err := p.Populate(context.Background(), staticDocs("Para one.\n\nPara two.", "Single paragraph."), paragraphDesc)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if report.DocsProcessed != 2 {
		t.Errorf("DocsProcessed = %d, want 2", report.DocsProcessed)
	}
	if report.ChunksWritten != 3 {
		t.Errorf("ChunksWritten = %d, want 3", report.ChunksWritten)
	}
	if report.Strategy != paragraphDesc.String() {
		t.Errorf("Strategy = %q", report.Strategy)
	}

	for _, r := range store.records() {
		if r.Strategy != paragraphDesc.String() {
			t.Errorf("record strategy = %q", r.Strategy)
		}
		if len(r.Embedding) != 3 {
			t.Errorf("record embedding dims = %d", len(r.Embedding))
		}
		if r.ID == "" || r.BatchID == "" || r.CreatedAt == 0 {
			t.Errorf("record missing identity: %+v", r)
		}
		if r.EmbeddingModel != "fake-embedder" {
			t.Errorf("record model = %q", r.EmbeddingModel)
		}
	}
}

func TestPopulateMismatchAbortsBeforeWrite(t *testing.T) {
	store := &fakeStore{strategies: []string{quarry.Descriptor{Kind: quarry.StrategyBySentence}.String()}}
	p := NewPipeline(store, &fakeEmbedding{})

	_, err := p.Populate(context.Background(), staticDocs("Some text."), paragraphDesc)
	var mismatch *quarry.ErrStrategyMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want *quarry.ErrStrategyMismatch", err)
	}
	if len(store.records()) != 0 {
		t.Errorf("rows written despite mismatch: %d", len(store.records()))
	}
}

func TestPopulateSameStrategyAppends(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, &fakeEmbedding{})

	if _, err := p.Populate(context.Background(), staticDocs("First run."), paragraphDesc); err != nil {
		t.Fatalf("first Populate: %v", err)
	}
	if _, err := p.Populate(context.Background(), staticDocs("Second run."), paragraphDesc); err != nil {
		t.Fatalf("second Populate under the same strategy: %v", err)
	}
	if got := len(store.records()); got != 2 {
		t.Errorf("records = %d, want 2", got)
	}
}

func TestPopulateBatching(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, &fakeEmbedding{}, PipelineBatchSize(2))

	report, err := p.Populate(context.Background(), staticDocs("A.\n\nB.\n\nC.\n\nD.\n\nE."), paragraphDesc)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if report.BatchesWritten != 3 {
		t.Errorf("BatchesWritten = %d, want 3 (2+2+1)", report.BatchesWritten)
	}
	if len(store.batches) != 3 {
		t.Fatalf("store got %d batches", len(store.batches))
	}
	if len(store.batches[0]) != 2 || len(store.batches[2]) != 1 {
		t.Errorf("batch sizes = %d,%d,%d", len(store.batches[0]), len(store.batches[1]), len(store.batches[2]))
	}
	// All records of a batch share one batch ID; different batches differ.
	if store.batches[0][0].BatchID != store.batches[0][1].BatchID {
		t.Error("records in one batch have different batch IDs")
	}
	if store.batches[0][0].BatchID == store.batches[1][0].BatchID {
		t.Error("separate batches share a batch ID")
	}
}

func TestPopulateFailedBatchIsReported(t *testing.T) {
	store := &fakeStore{failFirst: true}
	p := NewPipeline(store, &fakeEmbedding{}, PipelineBatchSize(1))

	report, err := p.Populate(context.Background(), staticDocs("One.\n\nTwo."), paragraphDesc)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if report.FailedBatches != 1 {
		t.Errorf("FailedBatches = %d, want 1", report.FailedBatches)
	}
	if report.ChunksWritten != 1 {
		t.Errorf("ChunksWritten = %d, want 1", report.ChunksWritten)
	}
}

func TestPopulateEmbeddingFailure(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, &fakeEmbedding{err: quarry.ErrEmbeddingUnavailable})

	report, err := p.Populate(context.Background(), staticDocs("Some text."), paragraphDesc)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if report.FailedBatches != 1 {
		t.Errorf("FailedBatches = %d, want 1", report.FailedBatches)
	}
	if len(store.records()) != 0 {
		t.Errorf("records written despite embed failure: %d", len(store.records()))
	}
}

func TestPopulateSkipsWhitespaceDocuments(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, &fakeEmbedding{})

	report, err := p.Populate(context.Background(), staticDocs("   \n\n  ", "Real content."), paragraphDesc)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if report.DocsProcessed != 1 {
		t.Errorf("DocsProcessed = %d, want 1", report.DocsProcessed)
	}
	if len(report.Skipped) != 1 {
		t.Errorf("Skipped = %+v, want one entry", report.Skipped)
	}
}

func TestPopulateInvalidDescriptor(t *testing.T) {
	p := NewPipeline(&fakeStore{}, &fakeEmbedding{})
	bad := quarry.Descriptor{Kind: quarry.StrategyRecursive}
	if _, err := p.Populate(context.Background(), staticDocs("text"), bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestPopulateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPipeline(&fakeStore{}, &fakeEmbedding{})
	if _, err := p.Populate(ctx, staticDocs("text"), paragraphDesc); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
