package quarry

import (
	"context"
	"sync"
)

// mockStore is a VectorStore backed by an in-memory slice. Search returns
// the configured results regardless of the query embedding.
type mockStore struct {
	mu         sync.Mutex
	records    []ChunkRecord
	strategies []string
	results    []ScoredChunk

	insertErr error
	searchErr error
	listErr   error

	insertCalls int
	lastFilter  SearchFilter
}

func (m *mockStore) Init(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                   { return nil }

func (m *mockStore) InsertBatch(ctx context.Context, records []ChunkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records = append(m.records, records...)
	for _, r := range records {
		if !containsString(m.strategies, r.Strategy) {
			m.strategies = append(m.strategies, r.Strategy)
		}
	}
	return nil
}

func (m *mockStore) SearchChunks(ctx context.Context, embedding []float32, topK int, f SearchFilter) ([]ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = f
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if topK < len(m.results) {
		return m.results[:topK], nil
	}
	return m.results, nil
}

func (m *mockStore) Strategies(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.strategies...), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// mockEmbedding returns a fixed-dimension embedding per input text. Set
// failures > 0 to make the first N calls fail with err.
type mockEmbedding struct {
	mu       sync.Mutex
	dims     int
	calls    int
	failures int
	err      error
}

func (m *mockEmbedding) Name() string { return "mock-embedding" }

func (m *mockEmbedding) Dimensions() int {
	if m.dims == 0 {
		return 4
	}
	return m.dims
}

func (m *mockEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		if m.err != nil {
			return nil, m.err
		}
		return nil, ErrEmbeddingUnavailable
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, m.Dimensions())
		for j := range vec {
			vec[j] = float32(len(texts[i])%7) + float32(j)
		}
		out[i] = vec
	}
	return out, nil
}

// mockCompletion returns a canned response and records the messages it saw.
type mockCompletion struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	lastMsgs []ChatMessage

	// block, when set, makes Complete wait for ctx cancellation.
	block chan struct{}
}

func (m *mockCompletion) Name() string { return "mock-llm" }

func (m *mockCompletion) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastMsgs = append([]ChatMessage(nil), messages...)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	if m.response == "" {
		return "ok", nil
	}
	return m.response, nil
}

// mockHistory is an in-memory HistoryStore.
type mockHistory struct {
	mu      sync.Mutex
	turns   map[string][]Turn
	loadErr error
	saveErr error
}

func newMockHistory() *mockHistory {
	return &mockHistory{turns: make(map[string][]Turn)}
}

func (m *mockHistory) AppendTurn(sessionID string, t Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.turns[sessionID] = append(m.turns[sessionID], t)
	return nil
}

func (m *mockHistory) LoadTurns(sessionID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Turn(nil), m.turns[sessionID]...), nil
}
