package ingest

import (
	"fmt"

	quarry "github.com/quarryhq/quarry"
)

// ForDescriptor builds the chunker a descriptor describes. embed is only
// used by the semantic strategy and may be nil for the others.
func ForDescriptor(d quarry.Descriptor, embed EmbedFunc) (Chunker, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	switch d.Kind {
	case quarry.StrategyRecursive:
		return NewRecursiveChunker(d.ChunkSize, d.ChunkOverlap), nil
	case quarry.StrategySemantic:
		if embed == nil {
			return nil, fmt.Errorf("semantic strategy requires an embedding function")
		}
		return NewSemanticChunker(embed), nil
	case quarry.StrategyByParagraph:
		return NewParagraphChunker(), nil
	case quarry.StrategyBySentence:
		return NewSentenceChunker(), nil
	case quarry.StrategySentenceWindow:
		return NewSentenceWindowChunker(d.SentencesPerChunk), nil
	case quarry.StrategyEveryNWords:
		return NewWordChunker(d.WordsPerChunk), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %d", d.Kind)
	}
}
