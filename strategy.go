package quarry

import (
	"fmt"
	"strings"
)

// StrategyKind enumerates the supported chunking algorithms.
type StrategyKind int

const (
	// StrategyRecursive splits on paragraph, sentence, then word boundaries
	// until every chunk fits ChunkSize characters, with ChunkOverlap
	// characters shared between adjacent chunks.
	StrategyRecursive StrategyKind = iota
	// StrategySemantic groups consecutive sentences while their embedding
	// similarity stays high, breaking chunks where similarity drops.
	StrategySemantic
	// StrategyByParagraph makes one chunk per blank-line-delimited paragraph.
	StrategyByParagraph
	// StrategyBySentence makes one chunk per sentence.
	StrategyBySentence
	// StrategySentenceWindow makes chunks of SentencesPerChunk sentences with
	// a stride-one sliding window, so adjacent chunks overlap.
	StrategySentenceWindow
	// StrategyEveryNWords makes fixed chunks of WordsPerChunk words with no
	// overlap; a trailing partial group is kept as a final shorter chunk.
	StrategyEveryNWords
)

// String returns the strategy kind's configuration name.
func (k StrategyKind) String() string {
	switch k {
	case StrategyRecursive:
		return "recursive"
	case StrategySemantic:
		return "semantic"
	case StrategyByParagraph:
		return "by_paragraph"
	case StrategyBySentence:
		return "by_sentence"
	case StrategySentenceWindow:
		return "by_sentence_window"
	case StrategyEveryNWords:
		return "every_n_words"
	default:
		return "unknown"
	}
}

// ParseStrategyKind maps a configuration name to a StrategyKind.
func ParseStrategyKind(name string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "recursive", "recursive_character_text_splitting":
		return StrategyRecursive, nil
	case "semantic", "semantic_chunking":
		return StrategySemantic, nil
	case "by_paragraph", "paragraph":
		return StrategyByParagraph, nil
	case "by_sentence", "sentence":
		return StrategyBySentence, nil
	case "by_sentence_window", "sentence_window":
		return StrategySentenceWindow, nil
	case "every_n_words", "words":
		return StrategyEveryNWords, nil
	default:
		return 0, fmt.Errorf("unknown chunking strategy %q", name)
	}
}

// Descriptor is the canonical identity of a chunking configuration: the
// algorithm plus every parameter that changes its output. Two descriptors are
// equal iff the kind and all parameters match exactly, so the comparable
// struct equality is the equality the consistency checks rely on.
//
// A Descriptor is built once at configuration load and carried as a value;
// it is never re-resolved from ambient configuration mid-operation.
type Descriptor struct {
	Kind StrategyKind

	// ChunkSize and ChunkOverlap apply to StrategyRecursive (characters).
	ChunkSize    int
	ChunkOverlap int

	// WordsPerChunk applies to StrategyEveryNWords.
	WordsPerChunk int

	// SentencesPerChunk applies to StrategySentenceWindow.
	SentencesPerChunk int
}

// String returns the descriptor's canonical human-readable label. The label
// is what is stored in the strategy column, and ParseDescriptor is its exact
// inverse, so label equality is descriptor equality.
func (d Descriptor) String() string {
	switch d.Kind {
	case StrategyRecursive:
		return fmt.Sprintf("Recursive character text splitting with chunk size = %d and chunk overlap = %d",
			d.ChunkSize, d.ChunkOverlap)
	case StrategySemantic:
		return "Semantic chunking"
	case StrategyByParagraph:
		return "By paragraph"
	case StrategyBySentence:
		return "By sentence"
	case StrategySentenceWindow:
		return fmt.Sprintf("By %d sentences with a sliding window", d.SentencesPerChunk)
	case StrategyEveryNWords:
		return fmt.Sprintf("Every %d words", d.WordsPerChunk)
	default:
		return "unknown"
	}
}

// ParseDescriptor parses a canonical label back into a Descriptor. It is the
// inverse of Descriptor.String and is used to interpret the strategy column
// of an existing table.
func ParseDescriptor(label string) (Descriptor, error) {
	label = strings.TrimSpace(label)
	switch {
	case label == "Semantic chunking":
		return Descriptor{Kind: StrategySemantic}, nil
	case label == "By paragraph":
		return Descriptor{Kind: StrategyByParagraph}, nil
	case label == "By sentence":
		return Descriptor{Kind: StrategyBySentence}, nil
	}

	var size, overlap int
	if n, err := fmt.Sscanf(label, "Recursive character text splitting with chunk size = %d and chunk overlap = %d",
		&size, &overlap); err == nil && n == 2 {
		return Descriptor{Kind: StrategyRecursive, ChunkSize: size, ChunkOverlap: overlap}, nil
	}

	var sentences int
	if n, err := fmt.Sscanf(label, "By %d sentences with a sliding window", &sentences); err == nil && n == 1 &&
		strings.HasSuffix(label, "sentences with a sliding window") {
		return Descriptor{Kind: StrategySentenceWindow, SentencesPerChunk: sentences}, nil
	}

	var words int
	if n, err := fmt.Sscanf(label, "Every %d words", &words); err == nil && n == 1 &&
		strings.HasSuffix(label, "words") {
		return Descriptor{Kind: StrategyEveryNWords, WordsPerChunk: words}, nil
	}

	return Descriptor{}, fmt.Errorf("unrecognized strategy label %q", label)
}

// Validate reports whether the descriptor's parameters are usable.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case StrategyRecursive:
		if d.ChunkSize <= 0 {
			return fmt.Errorf("recursive strategy: chunk size must be > 0, got %d", d.ChunkSize)
		}
		if d.ChunkOverlap < 0 || d.ChunkOverlap >= d.ChunkSize {
			return fmt.Errorf("recursive strategy: overlap must be in [0, chunk size), got %d", d.ChunkOverlap)
		}
	case StrategyEveryNWords:
		if d.WordsPerChunk <= 0 {
			return fmt.Errorf("every-n-words strategy: words per chunk must be > 0, got %d", d.WordsPerChunk)
		}
	case StrategySentenceWindow:
		if d.SentencesPerChunk <= 0 {
			return fmt.Errorf("sentence-window strategy: sentences per chunk must be > 0, got %d", d.SentencesPerChunk)
		}
	case StrategySemantic, StrategyByParagraph, StrategyBySentence:
	default:
		return fmt.Errorf("unknown strategy kind %d", d.Kind)
	}
	return nil
}
