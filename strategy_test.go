package quarry

import "testing"

func TestDescriptorString(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want string
	}{
		{
			name: "recursive",
			desc: Descriptor{Kind: StrategyRecursive, ChunkSize: 600, ChunkOverlap: 125},
			want: "Recursive character text splitting with chunk size = 600 and chunk overlap = 125",
		},
		{
			name: "semantic",
			desc: Descriptor{Kind: StrategySemantic},
			want: "Semantic chunking",
		},
		{
			name: "paragraph",
			desc: Descriptor{Kind: StrategyByParagraph},
			want: "By paragraph",
		},
		{
			name: "sentence",
			desc: Descriptor{Kind: StrategyBySentence},
			want: "By sentence",
		},
		{
			name: "sentence window",
			desc: Descriptor{Kind: StrategySentenceWindow, SentencesPerChunk: 3},
			want: "By 3 sentences with a sliding window",
		},
		{
			name: "every n words",
			desc: Descriptor{Kind: StrategyEveryNWords, WordsPerChunk: 100},
			want: "Every 100 words",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDescriptorRoundTrip(t *testing.T) {
	descs := []Descriptor{
		{Kind: StrategyRecursive, ChunkSize: 300, ChunkOverlap: 50},
		{Kind: StrategySemantic},
		{Kind: StrategyByParagraph},
		{Kind: StrategyBySentence},
		{Kind: StrategySentenceWindow, SentencesPerChunk: 5},
		{Kind: StrategyEveryNWords, WordsPerChunk: 250},
	}
	for _, d := range descs {
		got, err := ParseDescriptor(d.String())
		if err != nil {
			t.Fatalf("ParseDescriptor(%q): %v", d.String(), err)
		}
		if got != d {
			t.Errorf("round trip of %q = %+v, want %+v", d.String(), got, d)
		}
	}
}

func TestParseDescriptorUnknown(t *testing.T) {
	if _, err := ParseDescriptor("Fixed 512 token windows"); err == nil {
		t.Error("expected error for unknown label")
	}
	if _, err := ParseDescriptor(""); err == nil {
		t.Error("expected error for empty label")
	}
}

func TestDescriptorEquality(t *testing.T) {
	a := Descriptor{Kind: StrategyRecursive, ChunkSize: 600, ChunkOverlap: 125}
	b := Descriptor{Kind: StrategyRecursive, ChunkSize: 600, ChunkOverlap: 125}
	c := Descriptor{Kind: StrategyRecursive, ChunkSize: 600, ChunkOverlap: 100}
	if a != b {
		t.Error("identical descriptors must compare equal")
	}
	if a == c {
		t.Error("descriptors differing in overlap must not compare equal")
	}
	d := Descriptor{Kind: StrategySentenceWindow, SentencesPerChunk: 3}
	e := Descriptor{Kind: StrategySentenceWindow, SentencesPerChunk: 4}
	if d == e {
		t.Error("descriptors differing in window size must not compare equal")
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"valid recursive", Descriptor{Kind: StrategyRecursive, ChunkSize: 300, ChunkOverlap: 50}, false},
		{"zero chunk size", Descriptor{Kind: StrategyRecursive, ChunkOverlap: 50}, true},
		{"overlap equals size", Descriptor{Kind: StrategyRecursive, ChunkSize: 100, ChunkOverlap: 100}, true},
		{"negative overlap", Descriptor{Kind: StrategyRecursive, ChunkSize: 100, ChunkOverlap: -1}, true},
		{"valid semantic", Descriptor{Kind: StrategySemantic}, false},
		{"valid paragraph", Descriptor{Kind: StrategyByParagraph}, false},
		{"valid window", Descriptor{Kind: StrategySentenceWindow, SentencesPerChunk: 2}, false},
		{"zero window", Descriptor{Kind: StrategySentenceWindow}, true},
		{"valid words", Descriptor{Kind: StrategyEveryNWords, WordsPerChunk: 50}, false},
		{"zero words", Descriptor{Kind: StrategyEveryNWords}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseStrategyKind(t *testing.T) {
	tests := []struct {
		in      string
		want    StrategyKind
		wantErr bool
	}{
		{"recursive", StrategyRecursive, false},
		{"rcts", StrategyRecursive, false},
		{"semantic", StrategySemantic, false},
		{"by_paragraph", StrategyByParagraph, false},
		{"paragraph", StrategyByParagraph, false},
		{"by_sentence", StrategyBySentence, false},
		{"sentence", StrategyBySentence, false},
		{"by_sentence_window", StrategySentenceWindow, false},
		{"sentence_window", StrategySentenceWindow, false},
		{"every_n_words", StrategyEveryNWords, false},
		{"words", StrategyEveryNWords, false},
		{"token", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategyKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategyKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseStrategyKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
