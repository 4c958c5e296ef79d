package matching

import "testing"

func TestJaroWinkler(t *testing.T) {
	t.Parallel()

	if got := JaroWinkler("lebron james", "lebron james"); got != 1 {
		t.Fatalf("identical strings = %f, want 1", got)
	}
	if got := JaroWinkler("lebron james", ""); got != 0 {
		t.Fatalf("empty string = %f, want 0", got)
	}
	if got := JaroWinkler("abc", "xyz"); got != 0 {
		t.Fatalf("disjoint strings = %f, want 0", got)
	}

	// A one-character typo on a long name should stay well above the
	// review threshold, a different person well below the accept one.
	typo := JaroWinkler("nikola jokic", "nikola jokik")
	if typo < 0.9 {
		t.Fatalf("typo similarity = %f, want >= 0.9", typo)
	}
	other := JaroWinkler("nikola jokic", "luka doncic")
	if other >= typo {
		t.Fatalf("different name %f should score below a typo %f", other, typo)
	}
}

func TestJaroWinklerSymmetry(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"stephen curry", "steph curry"},
		{"karl anthony towns", "karl-anthony towns"},
		{"a", "ab"},
	}
	for _, p := range pairs {
		if ab, ba := JaroWinkler(p[0], p[1]), JaroWinkler(p[1], p[0]); ab != ba {
			t.Fatalf("JaroWinkler(%q, %q) = %f but reversed = %f", p[0], p[1], ab, ba)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"lakers", "lakers", 0},
		{"lakers", "laker", 1},
		{"celtics", "", 7},
		{"warriors", "worriors", 1},
		{"knicks", "nets", 4},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
