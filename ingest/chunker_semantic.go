package ingest

import (
	"context"
	"math"
	"sort"
	"strings"
)

// SemanticChunker splits text where the meaning shifts: it embeds every
// sentence, measures cosine similarity between consecutive sentences, and
// breaks chunks at the largest similarity drops (percentile-based
// breakpoints). Oversized groups are re-split and small groups merged up to
// a byte budget.
type SemanticChunker struct {
	embed      EmbedFunc
	maxBytes   int
	percentile int
	fallback   *RecursiveChunker
}

var _ Chunker = (*SemanticChunker)(nil)
var _ ContextChunker = (*SemanticChunker)(nil)

// SemanticOption configures a SemanticChunker.
type SemanticOption func(*SemanticChunker)

// SemanticMaxBytes caps chunk size in bytes (default 2000).
func SemanticMaxBytes(n int) SemanticOption {
	return func(sc *SemanticChunker) { sc.maxBytes = n }
}

// SemanticBreakpointPercentile sets the similarity percentile below which a
// sentence gap becomes a chunk boundary (default 25: split at the deepest
// quarter of similarity drops). Lower means fewer, larger chunks.
func SemanticBreakpointPercentile(p int) SemanticOption {
	return func(sc *SemanticChunker) { sc.percentile = p }
}

// NewSemanticChunker creates a SemanticChunker. Pass provider.Embed directly
// as embed; the signature matches EmbedFunc. When embedding fails the
// chunker degrades to recursive splitting rather than failing the document.
func NewSemanticChunker(embed EmbedFunc, opts ...SemanticOption) *SemanticChunker {
	sc := &SemanticChunker{
		embed:      embed,
		maxBytes:   2000,
		percentile: 25,
	}
	for _, o := range opts {
		o(sc)
	}
	sc.fallback = NewRecursiveChunker(sc.maxBytes, sc.maxBytes/10)
	return sc
}

// Chunk implements Chunker using context.Background() for the embedding
// call. Prefer ChunkContext when a context is available.
func (sc *SemanticChunker) Chunk(text string) []string {
	chunks, _ := sc.ChunkContext(context.Background(), text)
	return chunks
}

// ChunkContext splits text at semantic boundaries.
func (sc *SemanticChunker) ChunkContext(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(text) <= sc.maxBytes {
		return []string{text}, nil
	}

	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		return []string{text}, nil
	}

	embeddings, err := sc.embed(ctx, sentences)
	if err != nil || len(embeddings) != len(sentences) {
		// Degrade gracefully: the document still gets chunked.
		return sc.fallback.Chunk(text), nil
	}

	similarities := make([]float32, len(sentences)-1)
	for i := range similarities {
		similarities[i] = cosineSim(embeddings[i], embeddings[i+1])
	}
	threshold := percentileThreshold(similarities, sc.percentile)

	var groups []string
	var current strings.Builder
	for i, s := range sentences {
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)

		if i < len(similarities) && similarities[i] < threshold {
			groups = append(groups, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		groups = append(groups, strings.TrimSpace(current.String()))
	}

	return sc.boundGroups(groups), nil
}

// boundGroups merges small groups up to maxBytes and re-splits oversized
// ones through the recursive fallback.
func (sc *SemanticChunker) boundGroups(groups []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, g := range groups {
		if len(g) > sc.maxBytes {
			flush()
			chunks = append(chunks, sc.fallback.Chunk(g)...)
			continue
		}

		needed := len(g)
		if current.Len() > 0 {
			needed = current.Len() + 1 + len(g)
		}
		if needed > sc.maxBytes {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(g)
	}
	flush()
	return chunks
}

// cosineSim computes cosine similarity between two vectors.
func cosineSim(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// percentileThreshold computes the Nth percentile of values with linear
// interpolation.
func percentileThreshold(values []float32, percentile int) float32 {
	if len(values) == 0 {
		return 0
	}
	percentile = max(0, min(percentile, 100))
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := float64(percentile) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := float32(idx - float64(lower))
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
