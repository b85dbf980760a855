package ingest

import (
	"strings"
	"testing"
)

func TestForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Extractor
	}{
		{"md", MarkdownExtractor{}},
		{".markdown", MarkdownExtractor{}},
		{"TXT", PlainTextExtractor{}},
		{"docx", DOCXExtractor{}},
		{"pdf", PDFExtractor{}},
		{"csv", CSVExtractor{}},
		{"unknown", PlainTextExtractor{}},
	}
	for _, tt := range tests {
		got := ForExtension(tt.ext)
		if _, isHTML := got.(*HTMLExtractor); isHTML {
			t.Errorf("ForExtension(%q) unexpectedly returned HTML extractor", tt.ext)
		}
		if got != tt.want {
			t.Errorf("ForExtension(%q) = %T, want %T", tt.ext, got, tt.want)
		}
	}
	if _, ok := ForExtension("html").(*HTMLExtractor); !ok {
		t.Error("ForExtension(html) should return the HTML extractor")
	}
}

func TestPlainTextExtractor(t *testing.T) {
	got, err := PlainTextExtractor{}.Extract([]byte("as is\ncontent"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "as is\ncontent" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdownExtractorStripsFormatting(t *testing.T) {
	md := "# Heading\n\nSome **bold** and *italic* text with a [link](https://example.com).\n\n- item one\n- item two\n"
	got, err := MarkdownExtractor{}.Extract([]byte(md))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, marker := range []string{"#", "**", "](", "- "} {
		if strings.Contains(got, marker) {
			t.Errorf("output still contains %q: %q", marker, got)
		}
	}
	for _, want := range []string{"Heading", "bold", "italic", "link", "item one", "item two"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestMarkdownExtractorFlattensTables(t *testing.T) {
	md := "Intro paragraph.\n\n" +
		"| Region | Latency |\n" +
		"| ------ | ------- |\n" +
		"| east   | 12ms    |\n" +
		"| west   | 48ms    |\n"
	got, err := MarkdownExtractor{}.Extract([]byte(md))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "Table: Region: east, Latency: 12ms") {
		t.Errorf("missing flattened first row: %q", got)
	}
	if !strings.Contains(got, "Table: Region: west, Latency: 48ms") {
		t.Errorf("missing flattened second row: %q", got)
	}
	if strings.Contains(got, "|") {
		t.Errorf("pipes survived flattening: %q", got)
	}
}

func TestMarkdownExtractorKeepsCodeBlocks(t *testing.T) {
	md := "Before.\n\n```go\nfunc main() {}\n```\n\nAfter.\n"
	got, err := MarkdownExtractor{}.Extract([]byte(md))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "func main() {}") {
		t.Errorf("code content lost: %q", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fence markers survived: %q", got)
	}
}

func TestCSVExtractor(t *testing.T) {
	csv := "name,team\nalice,storage\nbob,transport\n"
	got, err := CSVExtractor{}.Extract([]byte(csv))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "Table: name: alice, team: storage") {
		t.Errorf("missing first row: %q", got)
	}
	if !strings.Contains(got, "Table: name: bob, team: transport") {
		t.Errorf("missing second row: %q", got)
	}
}

func TestCSVExtractorEmpty(t *testing.T) {
	got, err := CSVExtractor{}.Extract([]byte("  \n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  line one  \n\n\n\n  line two \n"
	got := collapseWhitespace(in)
	if got != "line one\n\nline two" {
		t.Errorf("got %q", got)
	}
}
