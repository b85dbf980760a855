package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docxMaxEntrySize caps the decompressed size of a zip entry (100 MB).
const docxMaxEntrySize = 100 << 20

// DOCXExtractor extracts plain text from DOCX documents by streaming the
// OOXML token stream of word/document.xml. Tables are flattened into
// "Table:" rows with header-labeled cells, matching the markdown extractor.
type DOCXExtractor struct{}

var _ Extractor = DOCXExtractor{}

// Extract returns the document's paragraphs and flattened tables.
func (DOCXExtractor) Extract(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty docx content")
	}
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = readZipEntry(f)
			if err != nil {
				return "", fmt.Errorf("read document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("missing word/document.xml")
	}
	return docxText(docXML)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, docxMaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > docxMaxEntrySize {
		return nil, fmt.Errorf("zip entry %s exceeds %d byte limit", f.Name, docxMaxEntrySize)
	}
	return data, nil
}

// docxScan is the streaming decoder state for word/document.xml.
type docxScan struct {
	out strings.Builder

	inParagraph bool
	paragraph   strings.Builder

	inTable  bool
	inRow    bool
	headers  []string
	rowIndex int
	cells    []string
	cell     strings.Builder
}

func docxText(data []byte) (string, error) {
	s := &docxScan{}
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				s.inParagraph = true
				s.paragraph.Reset()
			case "tbl":
				s.inTable = true
				s.headers = nil
				s.rowIndex = 0
			case "tr":
				s.inRow = true
				s.cells = nil
			case "tc":
				s.cell.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				s.endParagraph()
			case "tc":
				s.cells = append(s.cells, strings.TrimSpace(s.cell.String()))
			case "tr":
				s.endRow()
			case "tbl":
				s.inTable = false
			}
		case xml.CharData:
			s.text(string(t))
		}
	}
	return strings.TrimSpace(s.out.String()), nil
}

func (s *docxScan) text(content string) {
	if s.inTable && s.inRow {
		s.cell.WriteString(content)
		return
	}
	if s.inParagraph {
		s.paragraph.WriteString(content)
	}
}

func (s *docxScan) endParagraph() {
	s.inParagraph = false
	if s.inTable {
		return
	}
	text := strings.TrimSpace(s.paragraph.String())
	if text == "" {
		return
	}
	s.emit(text)
}

// endRow records the first table row as headers and flattens each
// subsequent row into a "Table:" line.
func (s *docxScan) endRow() {
	s.inRow = false
	if !s.inTable {
		return
	}
	if s.rowIndex == 0 {
		s.headers = append([]string(nil), s.cells...)
		s.rowIndex++
		return
	}
	s.rowIndex++

	var fields []string
	for i, val := range s.cells {
		if val == "" {
			continue
		}
		if i < len(s.headers) && s.headers[i] != "" {
			fields = append(fields, fmt.Sprintf("%s: %s", s.headers[i], val))
		} else {
			fields = append(fields, val)
		}
	}
	if len(fields) > 0 {
		s.emit("Table: " + strings.Join(fields, ", "))
	}
}

func (s *docxScan) emit(line string) {
	if s.out.Len() > 0 {
		s.out.WriteString("\n\n")
	}
	s.out.WriteString(line)
}
