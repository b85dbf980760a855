package ingest

import (
	"bytes"
	"fmt"
	"net/url"

	readability "github.com/go-shiori/go-readability"
)

// HTMLExtractor extracts the readable article text from an HTML document,
// dropping navigation, scripts, and boilerplate.
type HTMLExtractor struct {
	base *url.URL
}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor {
	base, _ := url.Parse("file:///document")
	return &HTMLExtractor{base: base}
}

// Extract returns the readable text content of an HTML page.
func (e *HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), e.base)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return collapseWhitespace(article.TextContent), nil
}
