package teamregistry

import (
	"context"
	"strings"
)

// Entry maps one source-specific team key to a canonical team code.
type Entry struct {
	Sport     string
	Source    string
	SourceKey string
	TeamCode  string
	TeamName  string
}

type Repository interface {
	List(ctx context.Context) ([]Entry, error)
}

// Registry is an in-memory, read-only index over the team mapping table.
// It is built once at startup and safe for concurrent reads.
type Registry struct {
	bySourceKey map[string]string
	byName      map[string]string
	names       map[string][]nameEntry
}

type nameEntry struct {
	name string
	code string
}

func New(entries []Entry) *Registry {
	r := &Registry{
		bySourceKey: make(map[string]string, len(entries)),
		byName:      make(map[string]string),
		names:       make(map[string][]nameEntry),
	}
	for _, e := range entries {
		code := strings.ToUpper(e.TeamCode)
		r.bySourceKey[sourceKey(e.Sport, e.Source, e.SourceKey)] = code

		for _, name := range []string{e.TeamName, e.SourceKey, e.TeamCode} {
			n := foldKey(name)
			if n == "" {
				continue
			}
			k := nameKey(e.Sport, n)
			if _, ok := r.byName[k]; !ok {
				r.byName[k] = code
			}
			if !r.hasName(e.Sport, n, code) {
				r.names[strings.ToLower(e.Sport)] = append(r.names[strings.ToLower(e.Sport)], nameEntry{name: n, code: code})
			}
		}
	}
	return r
}

func (r *Registry) hasName(sport, name, code string) bool {
	for _, ne := range r.names[strings.ToLower(sport)] {
		if ne.name == name && ne.code == code {
			return true
		}
	}
	return false
}

// Resolve maps a source-specific team key to a canonical code. It tries the
// exact (sport, source, key) entry first, then falls back to a name lookup
// across all sources of the sport.
func (r *Registry) Resolve(sport, source, key string) (string, bool) {
	if code, ok := r.bySourceKey[sourceKey(sport, source, key)]; ok {
		return code, true
	}
	return r.ResolveName(sport, key)
}

// ResolveName maps a team name to a canonical code, ignoring the source.
func (r *Registry) ResolveName(sport, name string) (string, bool) {
	code, ok := r.byName[nameKey(sport, foldKey(name))]
	return code, ok
}

// Names returns every known (normalized name, code) pair for a sport. The
// fuzzy game-matching step scans these when exact resolution fails.
func (r *Registry) Names(sport string) []NamePair {
	entries := r.names[strings.ToLower(sport)]
	out := make([]NamePair, 0, len(entries))
	for _, e := range entries {
		out = append(out, NamePair{Name: e.name, Code: e.code})
	}
	return out
}

type NamePair struct {
	Name string
	Code string
}

func sourceKey(sport, source, key string) string {
	return strings.ToLower(sport) + "|" + strings.ToLower(source) + "|" + foldKey(key)
}

func nameKey(sport, name string) string {
	return strings.ToLower(sport) + "|" + name
}

func foldKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
