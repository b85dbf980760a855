package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor converts CSV content to searchable prose. The first row is
// taken as headers; each data row becomes one "Table:" line with
// header-labeled cells, matching the other tabular extractors.
type CSVExtractor struct{}

var _ Extractor = CSVExtractor{}

// Extract converts CSV rows to labeled lines.
func (CSVExtractor) Extract(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(content)) == 0 {
		return "", nil
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("read headers: %w", err)
	}

	var lines []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}
		var fields []string
		for i, val := range record {
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
				fields = append(fields, fmt.Sprintf("%s: %s", strings.TrimSpace(headers[i]), val))
			} else {
				fields = append(fields, val)
			}
		}
		if len(fields) > 0 {
			lines = append(lines, "Table: "+strings.Join(fields, ", "))
		}
	}
	return strings.Join(lines, "\n\n"), nil
}
