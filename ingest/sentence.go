package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// isAbbreviation reports whether the word ending at the '.' at dotPos is a
// common abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	return abbreviations[strings.ToLower(text[start:dotPos])]
}

// isDecimalDot reports whether the dot at dotPos sits inside a number
// (3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prev := text[dotPos-1]
	next := text[dotPos+1]
	return prev >= '0' && prev <= '9' && next >= '0' && next <= '9'
}

// findSentenceBoundaries returns byte positions where the text may be split
// into sentences. ASCII terminators (.!?) are boundary candidates unless they
// end an abbreviation or a decimal number; CJK terminators (。！？) are
// always boundaries.
func findSentenceBoundaries(text string) []int {
	var boundaries []int
	runes := []rune(text)
	n := len(runes)

	byteOffsets := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]

		if r == '。' || r == '！' || r == '？' {
			boundaries = append(boundaries, byteOffsets[i+1])
			continue
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		pos := byteOffsets[i]
		if r == '.' && (isDecimalDot(text, pos) || isAbbreviation(text, pos)) {
			continue
		}

		// Terminator must be followed by whitespace, and for a mid-text
		// space the next sentence must start with an upper-case letter.
		if i+1 >= n {
			boundaries = append(boundaries, byteOffsets[n])
			continue
		}
		switch runes[i+1] {
		case '\n':
			boundaries = append(boundaries, byteOffsets[i+1])
		case ' ':
			if i+2 < n && unicode.IsUpper(runes[i+2]) {
				boundaries = append(boundaries, byteOffsets[i+2])
			} else if i+2 >= n {
				boundaries = append(boundaries, byteOffsets[n])
			}
		}
	}
	return boundaries
}

// splitSentences splits text into sentences using the shared boundary
// detector, falling back to a naive period-space split when it finds none.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	boundaries := findSentenceBoundaries(text)
	if len(boundaries) == 0 {
		parts := strings.Split(text, ". ")
		var out []string
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if i < len(parts)-1 {
				p += "."
			}
			out = append(out, p)
		}
		if len(out) == 0 {
			return []string{text}
		}
		return out
	}

	var sentences []string
	start := 0
	for _, b := range boundaries {
		if s := strings.TrimSpace(text[start:b]); s != "" {
			sentences = append(sentences, s)
		}
		start = b
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
