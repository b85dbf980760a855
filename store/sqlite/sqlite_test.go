package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	quarry "github.com/quarryhq/quarry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

var testStrategy = quarry.Descriptor{Kind: quarry.StrategyByParagraph}.String()

func record(id string, embedding []float32, internal bool) quarry.ChunkRecord {
	return quarry.ChunkRecord{
		ID:             id,
		DocumentID:     "doc-" + id,
		DocumentName:   id + ".txt",
		Repo:           "test",
		Content:        "content " + id,
		Strategy:       testStrategy,
		Embedding:      embedding,
		EmbeddingModel: "test-model",
		InternalOnly:   internal,
		BatchID:        "batch-1",
		CreatedAt:      100,
	}
}

func TestInsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InsertBatch(ctx, []quarry.ChunkRecord{
		record("a", []float32{1, 0}, false),
		record("b", []float32{0.9, 0.1}, false),
		record("c", []float32{0, 1}, false),
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 2, quarry.SearchFilter{
		Strategy: testStrategy,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; want a, b", got[0].ID, got[1].ID)
	}
	if got[0].Score < got[1].Score {
		t.Error("scores not descending")
	}
	if got[0].EmbeddingModel != "test-model" || got[0].Content != "content a" {
		t.Errorf("row fields lost: %+v", got[0])
	}
}

func TestSearchEuclideanAscending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, []quarry.ChunkRecord{
		record("near", []float32{1, 0}, false),
		record("far", []float32{5, 5}, false),
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 10, quarry.SearchFilter{
		Strategy: testStrategy,
		Metric:   quarry.MetricEuclidean,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if got[0].ID != "near" {
		t.Errorf("closest row first: got %s", got[0].ID)
	}
	if got[0].Score > got[1].Score {
		t.Error("euclidean scores should ascend")
	}
}

func TestSearchFiltersStrategy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	other := record("other", []float32{1, 0}, false)
	other.Strategy = quarry.Descriptor{Kind: quarry.StrategyBySentence}.String()
	if err := s.InsertBatch(ctx, []quarry.ChunkRecord{
		record("mine", []float32{1, 0}, false),
		other,
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 10, quarry.SearchFilter{
		Strategy: testStrategy,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 1 || got[0].ID != "mine" {
		t.Errorf("strategy filter leaked rows: %+v", got)
	}
}

func TestSearchExternalScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, []quarry.ChunkRecord{
		record("public", []float32{1, 0}, false),
		record("secret", []float32{1, 0}, true),
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 10, quarry.SearchFilter{
		Strategy: testStrategy,
		Scope:    quarry.ScopeExternalOnly,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 1 || got[0].ID != "public" {
		t.Errorf("internal row visible to external scope: %+v", got)
	}

	all, err := s.SearchChunks(ctx, []float32{1, 0}, 10, quarry.SearchFilter{
		Strategy: testStrategy,
		Scope:    quarry.ScopeAll,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("full scope returned %d rows, want 2", len(all))
	}
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertBatch(ctx, []quarry.ChunkRecord{
		record("first", []float32{1, 0}, false),
		record("second", []float32{1, 0}, false),
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 10, quarry.SearchFilter{
		Strategy: testStrategy,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("tie order = %s, %s; want insertion order", got[0].ID, got[1].ID)
	}
}

func TestSearchEmptyTable(t *testing.T) {
	s := newTestStore(t)
	got, err := s.SearchChunks(context.Background(), []float32{1, 0}, 5, quarry.SearchFilter{
		Strategy: testStrategy,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows from empty table", len(got))
	}
}

func TestStrategies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	strategies, err := s.Strategies(ctx)
	if err != nil {
		t.Fatalf("Strategies: %v", err)
	}
	if len(strategies) != 0 {
		t.Errorf("empty table strategies = %v", strategies)
	}

	other := record("x", []float32{1}, false)
	other.Strategy = quarry.Descriptor{Kind: quarry.StrategyBySentence}.String()
	if err := s.InsertBatch(ctx, []quarry.ChunkRecord{
		record("a", []float32{1}, false),
		record("b", []float32{1}, false),
		other,
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	strategies, err = s.Strategies(ctx)
	if err != nil {
		t.Fatalf("Strategies: %v", err)
	}
	if len(strategies) != 2 {
		t.Errorf("strategies = %v, want 2 distinct labels", strategies)
	}
}

func TestInsertBatchIdempotentIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []quarry.ChunkRecord{record("same", []float32{1, 0}, false)}
	if err := s.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("re-insert of identical ID: %v", err)
	}

	got, err := s.SearchChunks(ctx, []float32{1, 0}, 10, quarry.SearchFilter{
		Strategy: testStrategy,
		Metric:   quarry.MetricCosineSimilarity,
	})
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("duplicate rows after re-insert: %d", len(got))
	}
}
