package matching

import (
	"strings"

	"github.com/gosimple/unidecode"
)

// NormalizedName is the canonical lookup form of a person or team name. The
// generational suffix is held apart from the value so "Tim Hardaway Jr."
// and "Tim Hardaway Sr." normalize to the same Value with different
// suffixes, and the conflict stays detectable.
type NormalizedName struct {
	Value  string
	Suffix string
}

var generationalSuffixes = map[string]string{
	"jr":  "jr",
	"sr":  "sr",
	"ii":  "ii",
	"iii": "iii",
}

// Normalize lowercases, transliterates accents to ASCII, strips punctuation,
// collapses whitespace and extracts a trailing generational suffix. It is a
// pure function: equal inputs always produce equal outputs.
func Normalize(raw string) NormalizedName {
	s := strings.ToLower(unidecode.Unidecode(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	suffix := ""
	if n := len(fields); n > 1 {
		if sfx, ok := generationalSuffixes[fields[n-1]]; ok {
			suffix = sfx
			fields = fields[:n-1]
		}
	}

	return NormalizedName{Value: strings.Join(fields, " "), Suffix: suffix}
}

// SuffixConflict reports whether two names carry different generational
// suffixes. A missing suffix on either side is not a conflict.
func SuffixConflict(a, b string) bool {
	return a != "" && b != "" && a != b
}
