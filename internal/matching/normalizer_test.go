package matching

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		value  string
		suffix string
	}{
		{"lowercase", "LeBron James", "lebron james", ""},
		{"accents fold to ascii", "Nikola Jokić", "nikola jokic", ""},
		{"punctuation stripped", "D'Angelo Russell", "d angelo russell", ""},
		{"dotted jr suffix", "Tim Hardaway Jr.", "tim hardaway", "jr"},
		{"plain sr suffix", "Tim Hardaway Sr", "tim hardaway", "sr"},
		{"roman numeral suffix", "Robert Griffin III", "robert griffin", "iii"},
		{"whitespace collapsed", "  Los   Angeles  Lakers ", "los angeles lakers", ""},
		{"suffix alone is a name", "Jr", "jr", ""},
		{"empty input", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.in)
			if got.Value != tt.value || got.Suffix != tt.suffix {
				t.Fatalf("Normalize(%q) = %+v, want value=%q suffix=%q", tt.in, got, tt.value, tt.suffix)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"Nikola Jokić", "Tim Hardaway Jr.", "P.J. Washington"} {
		first := Normalize(in)
		second := Normalize(first.Value)
		if second.Value != first.Value {
			t.Fatalf("normalizing %q twice changed the value: %q -> %q", in, first.Value, second.Value)
		}
	}
}

func TestSuffixConflict(t *testing.T) {
	t.Parallel()

	if !SuffixConflict("jr", "sr") {
		t.Fatal("jr vs sr should conflict")
	}
	if SuffixConflict("jr", "") {
		t.Fatal("a missing suffix should not conflict")
	}
	if SuffixConflict("", "") {
		t.Fatal("two missing suffixes should not conflict")
	}
	if SuffixConflict("ii", "ii") {
		t.Fatal("equal suffixes should not conflict")
	}
}
