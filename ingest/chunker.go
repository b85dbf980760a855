// Package ingest turns source documents into embedded chunk records: it
// enumerates repositories, extracts plain text, splits it under a single
// chunking strategy, and writes embedding batches to a vector store.
package ingest

import (
	"context"
	"strings"
)

// Chunker splits text into ordered spans suitable for embedding. Chunking is
// deterministic: the same text always yields the same spans in the same
// order. Non-empty input yields at least one span; empty or whitespace-only
// input yields none.
type Chunker interface {
	Chunk(text string) []string
}

// EmbedFunc embeds texts into vectors. Matches the EmbeddingProvider.Embed
// method signature so provider.Embed can be passed directly.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// ContextChunker extends Chunker for implementations that call external
// services while splitting. The pipeline uses ChunkContext when available,
// falling back to Chunk otherwise.
type ContextChunker interface {
	Chunker
	ChunkContext(ctx context.Context, text string) ([]string, error)
}

// --- RecursiveChunker ---

// RecursiveChunker splits text to a character budget by preferring the
// largest natural boundary that fits: paragraphs, then sentences, then
// words. Adjacent chunks share a configurable character overlap.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
}

var _ Chunker = (*RecursiveChunker)(nil)

// NewRecursiveChunker creates a RecursiveChunker with the given chunk size
// and overlap, both in characters. Overlap must be smaller than the size.
func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	return &RecursiveChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into chunks of at most the configured size.
func (rc *RecursiveChunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= rc.chunkSize {
		return []string{text}
	}
	segments := splitRecursive(text, rc.chunkSize)
	return mergeWithOverlap(segments, rc.chunkSize, rc.chunkOverlap)
}

// splitRecursive breaks text into segments no larger than maxChars, trying
// paragraph boundaries first, then sentences, then words.
func splitRecursive(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	if len(paragraphs) > 1 {
		var segments []string
		for _, p := range paragraphs {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if len(p) <= maxChars {
				segments = append(segments, p)
			} else {
				segments = append(segments, splitOnSentences(p, maxChars)...)
			}
		}
		return segments
	}

	if segments := splitOnSentences(text, maxChars); len(segments) > 1 {
		return segments
	}

	return splitOnWords(text, maxChars)
}

// splitOnSentences groups whole sentences into segments of at most maxChars,
// falling back to word splitting for sentences that alone exceed the budget.
func splitOnSentences(text string, maxChars int) []string {
	var segments []string
	emit := func(seg string) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return
		}
		if len(seg) <= maxChars {
			segments = append(segments, seg)
		} else {
			segments = append(segments, splitOnWords(seg, maxChars)...)
		}
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return splitOnWords(text, maxChars)
	}

	var current strings.Builder
	for _, s := range sentences {
		needed := len(s)
		if current.Len() > 0 {
			needed = current.Len() + 1 + len(s)
		}
		if needed > maxChars && current.Len() > 0 {
			emit(current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
	}
	emit(current.String())
	return segments
}

// splitOnWords packs whitespace-separated words into segments of at most
// maxChars, hard-splitting any single word that alone exceeds the budget.
func splitOnWords(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var segments []string
	var current strings.Builder

	for _, word := range words {
		if len(word) > maxChars {
			if current.Len() > 0 {
				segments = append(segments, current.String())
				current.Reset()
			}
			for i := 0; i < len(word); i += maxChars {
				end := min(i+maxChars, len(word))
				segments = append(segments, word[i:end])
			}
			continue
		}

		needed := len(word)
		if current.Len() > 0 {
			needed = current.Len() + 1 + len(word)
		}
		if needed > maxChars {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

// mergeWithOverlap packs segments into chunks of at most maxChars and seeds
// each new chunk with the word-aligned tail of the previous one.
func mergeWithOverlap(segments []string, maxChars, overlapChars int) []string {
	if len(segments) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	for _, seg := range segments {
		needed := len(seg)
		if current.Len() > 0 {
			needed = current.Len() + 1 + len(seg)
		}

		if needed <= maxChars {
			if current.Len() > 0 {
				current.WriteByte('\n')
			}
			current.WriteString(seg)
			continue
		}

		if current.Len() > 0 {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()

			overlap := overlapSuffix(chunk, overlapChars)
			if overlap != "" && len(overlap)+1+len(seg) <= maxChars {
				current.WriteString(overlap)
				current.WriteByte('\n')
			}
		}
		current.WriteString(seg)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// overlapSuffix returns the last n characters of text, trimmed forward to
// the next word boundary so the overlap never starts mid-word.
func overlapSuffix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	suffix := text[len(text)-n:]
	if idx := strings.Index(suffix, " "); idx >= 0 {
		return strings.TrimSpace(suffix[idx+1:])
	}
	return strings.TrimSpace(suffix)
}
