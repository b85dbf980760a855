package ingest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SanitizeText validates and normalizes extracted document text before
// chunking. Text containing NUL bytes or invalid UTF-8 is rejected — the
// persistence layer cannot store it — and valid text is NFC-normalized with
// non-printing control characters stripped.
func SanitizeText(s string) (string, error) {
	if strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("text contains NUL bytes")
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}

	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}
