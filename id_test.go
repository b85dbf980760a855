package quarry

import "testing"

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 36 {
			t.Fatalf("id %q is not a canonical uuid", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestHashTextDeterministic(t *testing.T) {
	a := HashText("the same chunk content")
	b := HashText("the same chunk content")
	if a != b {
		t.Error("identical input must hash identically")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == HashText("different content") {
		t.Error("different input must hash differently")
	}
}
