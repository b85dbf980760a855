package ingest

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor converts markdown to plain text by walking the parsed
// AST. Formatting is dropped; code blocks keep their literal lines; tables
// are flattened into "Table:" rows with header-labeled, comma-separated
// cells so tabular facts survive as searchable prose.
type MarkdownExtractor struct{}

var _ Extractor = MarkdownExtractor{}

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// Extract renders markdown content as plain text paragraphs.
func (MarkdownExtractor) Extract(content []byte) (string, error) {
	doc := markdownParser.Parser().Parse(text.NewReader(content))

	var out strings.Builder
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(s)
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *east.Table:
			for _, row := range flattenTable(t, content) {
				emit(row)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			emit(blockLines(t, content))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			emit(blockLines(t, content))
			return ast.WalkSkipChildren, nil
		case *ast.Heading, *ast.ListItem:
			emit(inlineText(n, content))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			emit(inlineText(n, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}
	return out.String(), nil
}

// flattenTable turns a markdown table into one "Table:" line per data row,
// labeling each cell with its column header.
func flattenTable(table *east.Table, source []byte) []string {
	var headers []string
	var rows []string

	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *east.TableHeader:
			headers = tableCells(row, source)
		case *east.TableRow:
			cells := tableCells(row, source)
			var fields []string
			for i, val := range cells {
				if val == "" {
					continue
				}
				if i < len(headers) && headers[i] != "" {
					fields = append(fields, fmt.Sprintf("%s: %s", headers[i], val))
				} else {
					fields = append(fields, val)
				}
			}
			if len(fields) > 0 {
				rows = append(rows, "Table: "+strings.Join(fields, ", "))
			}
		}
	}
	return rows
}

func tableCells(row ast.Node, source []byte) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, strings.TrimSpace(inlineText(cell, source)))
	}
	return cells
}

// inlineText concatenates the text content of n's inline children.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.AutoLink:
			b.Write(t.URL(source))
		case *ast.CodeSpan:
			for span := t.FirstChild(); span != nil; span = span.NextSibling() {
				if txt, ok := span.(*ast.Text); ok {
					b.Write(txt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// blockLines returns the literal lines of a code block.
func blockLines(n interface{ Lines() *text.Segments }, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
