package ingest

import (
	"regexp"
	"strings"
)

// Compile-time interface checks.
var (
	_ Chunker = (*ParagraphChunker)(nil)
	_ Chunker = (*SentenceChunker)(nil)
	_ Chunker = (*SentenceWindowChunker)(nil)
	_ Chunker = (*WordChunker)(nil)
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// ParagraphChunker makes one chunk per paragraph. Paragraphs are separated
// by two or more consecutive newlines.
type ParagraphChunker struct{}

// NewParagraphChunker creates a ParagraphChunker.
func NewParagraphChunker() *ParagraphChunker { return &ParagraphChunker{} }

// Chunk splits text on blank lines.
func (*ParagraphChunker) Chunk(text string) []string {
	var chunks []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}

// SentenceChunker makes one chunk per sentence, using the same boundary
// detection as RecursiveChunker.
type SentenceChunker struct{}

// NewSentenceChunker creates a SentenceChunker.
func NewSentenceChunker() *SentenceChunker { return &SentenceChunker{} }

// Chunk splits text into sentences.
func (*SentenceChunker) Chunk(text string) []string {
	return splitSentences(text)
}

// SentenceWindowChunker makes chunks of n consecutive sentences with a
// stride-one sliding window, so each sentence appears in up to n chunks.
// Text with fewer sentences than the window yields a single chunk.
type SentenceWindowChunker struct {
	window int
}

// NewSentenceWindowChunker creates a SentenceWindowChunker over windows of
// n sentences. n must be positive.
func NewSentenceWindowChunker(n int) *SentenceWindowChunker {
	return &SentenceWindowChunker{window: n}
}

// Chunk slides a window of sentences across the text.
func (c *SentenceWindowChunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if len(sentences) <= c.window {
		return []string{strings.Join(sentences, " ")}
	}
	chunks := make([]string, 0, len(sentences)-c.window+1)
	for i := 0; i+c.window <= len(sentences); i++ {
		chunks = append(chunks, strings.Join(sentences[i:i+c.window], " "))
	}
	return chunks
}

// WordChunker makes fixed chunks of n whitespace-separated words with no
// overlap. A trailing group of fewer than n words is kept as a final
// shorter chunk.
type WordChunker struct {
	words int
}

// NewWordChunker creates a WordChunker emitting n words per chunk. n must
// be positive.
func NewWordChunker(n int) *WordChunker {
	return &WordChunker{words: n}
}

// Chunk groups the text's words n at a time.
func (c *WordChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+c.words-1)/c.words)
	for i := 0; i < len(words); i += c.words {
		end := min(i+c.words, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
