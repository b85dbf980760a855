package quarry

import (
	"fmt"
	"strings"
)

// --- Domain types ---

// Document is one file enumerated from a source repository, after text
// extraction. Documents are immutable inputs to the ingestion pipeline and
// are discarded once chunked.
type Document struct {
	ID           string `json:"id"`   // sha256 of the document path
	Name         string `json:"name"` // base filename
	Path         string `json:"path"`
	Repo         string `json:"repo"`
	Text         string `json:"text"`
	InternalOnly bool   `json:"internal_only"`
}

// ChunkRecord is the persisted form of one chunk: the row written to the
// vector store. Records are never mutated in place; the table is only ever
// appended to or rebuilt wholesale.
type ChunkRecord struct {
	ID             string    `json:"id"` // sha256 over document ID, chunk index, and content
	DocumentID     string    `json:"document_id"`
	DocumentName   string    `json:"document_name"`
	Repo           string    `json:"repo"`
	Content        string    `json:"content"`
	ChunkIndex     int       `json:"chunk_index"` // position within the document, source order
	Strategy       string    `json:"strategy"`    // canonical Descriptor label
	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model"`
	InternalOnly   bool      `json:"internal_only"`
	BatchID        string    `json:"batch_id"`
	CreatedAt      int64     `json:"created_at"`
}

// ScoredChunk is a ChunkRecord with its similarity score for one query.
type ScoredChunk struct {
	ChunkRecord
	Score float32 `json:"score"`
}

// Turn is one completed exchange in a session: the user's query, the chunks
// retrieved for it, and the model's response.
type Turn struct {
	Query     string        `json:"query"`
	Chunks    []ScoredChunk `json:"chunks,omitempty"`
	Response  string        `json:"response"`
	CreatedAt int64         `json:"created_at"`
}

// --- Scope ---

// Scope selects which rows a retrieval may see. It is passed explicitly into
// every Retrieve call; there is no shared mutable scope flag.
type Scope int

const (
	// ScopeAll searches internal and external rows alike.
	ScopeAll Scope = iota
	// ScopeExternalOnly excludes rows whose source document is internal-only.
	ScopeExternalOnly
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeExternalOnly:
		return "external-only"
	default:
		return "unknown"
	}
}

// --- Similarity metric ---

// Metric is the similarity measure used to rank stored vectors against a
// query vector.
type Metric int

const (
	MetricCosineSimilarity Metric = iota
	MetricCosineDistance
	MetricInnerProduct
	MetricEuclidean
)

// String returns the metric name as used in configuration.
func (m Metric) String() string {
	switch m {
	case MetricCosineSimilarity:
		return "cosine_similarity"
	case MetricCosineDistance:
		return "cosine_distance"
	case MetricInnerProduct:
		return "inner_product"
	case MetricEuclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// Descending reports whether larger raw values of the metric mean more
// similar. Distance metrics rank ascending.
func (m Metric) Descending() bool {
	return m == MetricCosineSimilarity || m == MetricInnerProduct
}

// ParseMetric maps a configuration name to a Metric.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cosine_similarity", "cosine":
		return MetricCosineSimilarity, nil
	case "cosine_distance":
		return MetricCosineDistance, nil
	case "inner_product", "dot":
		return MetricInnerProduct, nil
	case "euclidean", "l2":
		return MetricEuclidean, nil
	default:
		return 0, fmt.Errorf("unknown similarity metric %q", name)
	}
}

// --- Chat protocol ---

// ChatMessage is one message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(text string) ChatMessage { return ChatMessage{Role: "user", Content: text} }

// SystemMessage builds a system-role message.
func SystemMessage(text string) ChatMessage { return ChatMessage{Role: "system", Content: text} }

// AssistantMessage builds an assistant-role message.
func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}
