package ingest

import (
	"strings"
)

// Extractor converts raw file content to plain text ready for chunking.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ForExtension returns the extractor for a file extension (without the dot).
// Unknown extensions get the plain text extractor; whether a file is read at
// all is decided earlier by the source's allowed-extension list.
func ForExtension(ext string) Extractor {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "md", "markdown":
		return MarkdownExtractor{}
	case "html", "htm":
		return NewHTMLExtractor()
	case "docx":
		return DOCXExtractor{}
	case "pdf":
		return PDFExtractor{}
	case "csv":
		return CSVExtractor{}
	default:
		return PlainTextExtractor{}
	}
}

// PlainTextExtractor returns content as-is.
type PlainTextExtractor struct{}

var _ Extractor = PlainTextExtractor{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}

// collapseWhitespace trims every line and collapses runs of blank lines to a
// single paragraph break.
func collapseWhitespace(text string) string {
	var result strings.Builder
	empty := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if result.Len() > 0 {
				empty++
			}
			continue
		}
		if result.Len() > 0 {
			result.WriteByte('\n')
			if empty > 0 {
				result.WriteByte('\n')
			}
		}
		result.WriteString(trimmed)
		empty = 0
	}
	return strings.TrimSpace(result.String())
}
