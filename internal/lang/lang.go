// Package lang wraps the static Wiktionary language-metadata table
// (spec.md §4.2). The table's content is an external collaborator
// (out of scope per spec.md §1); this package is the Go-native loader
// and read-only lookup surface around it.
package lang

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
)

//go:embed data/languages.json
var embeddedTable embed.FS

// Lang is an opaque small identifier into the Registry. Two Langs
// constructed from the canonical code and the canonical name of the
// same language compare equal.
type Lang uint16

// Kind classifies how a language code relates to a Wiktionary page namespace.
type Kind string

const (
	KindRegular               Kind = "regular"
	KindReconstructed         Kind = "reconstructed"
	KindEtymologyOnly         Kind = "etymology-only"
	KindAppendixConstructed   Kind = "appendix-constructed"
)

type entry struct {
	code          string
	mainCode      string
	canonicalName string
	kind          Kind
	nonEtyAlias   Lang
	ancestors     []Lang // proto-most first, self last
}

// Registry is the immutable, process-wide language table. Construct it
// once via NewRegistry or Load and share it by reference thereafter.
type Registry struct {
	entries  []entry
	byCode   map[string]Lang
	byName   map[string]Lang
}

type rawEntry struct {
	CanonicalName    string   `json:"canonicalName"`
	MainCode         string   `json:"mainCode"`
	Kind             string   `json:"kind"`
	NonEtymologyOnly string   `json:"nonEtymologyOnly"`
	Ancestors        []string `json:"ancestors"`
}

// LoadEmbedded loads the table bundled with this binary. Use this when
// no operator-supplied language-table override is configured.
func LoadEmbedded() (*Registry, error) {
	data, err := embeddedTable.ReadFile("data/languages.json")
	if err != nil {
		return nil, fmt.Errorf("lang: read embedded table: %w", err)
	}
	return parse(data)
}

// Load reads a language table JSON file from disk (config.LanguageConfig.Path).
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lang: read %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var raw map[string]rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lang: parse table: %w", err)
	}

	r := &Registry{
		byCode: make(map[string]Lang, len(raw)),
		byName: make(map[string]Lang, len(raw)),
	}

	// First pass: assign a Lang id to every code so ancestor/alias
	// references below can resolve regardless of JSON key order.
	codes := make([]string, 0, len(raw))
	for code := range raw {
		codes = append(codes, code)
	}
	// Deterministic assignment order keeps Lang values stable across
	// runs over the same table, matching the dump-order stability
	// guarantee spec.md §5 asks of item ids.
	sortStrings(codes)

	for _, code := range codes {
		l := Lang(len(r.entries))
		r.entries = append(r.entries, entry{code: code})
		r.byCode[code] = l
	}

	for _, code := range codes {
		re := raw[code]
		l := r.byCode[code]
		mainCode := re.MainCode
		if mainCode == "" {
			mainCode = code
		}
		nonEty, ok := r.byCode[re.NonEtymologyOnly]
		if !ok {
			nonEty = l
		}
		ancestors := make([]Lang, 0, len(re.Ancestors))
		for _, ac := range re.Ancestors {
			al, ok := r.byCode[ac]
			if !ok {
				return nil, fmt.Errorf("lang: %s: unknown ancestor code %q", code, ac)
			}
			ancestors = append(ancestors, al)
		}
		r.entries[l] = entry{
			code:          code,
			mainCode:      mainCode,
			canonicalName: re.CanonicalName,
			kind:          Kind(re.Kind),
			nonEtyAlias:   nonEty,
			ancestors:     ancestors,
		}
		if re.CanonicalName != "" {
			r.byName[re.CanonicalName] = l
		}
	}

	return r, nil
}

func sortStrings(s []string) {
	// Small insertion sort; avoids importing sort for a handful of entries
	// and keeps this file dependency-free for the one hot loader path.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ByCode looks up a Lang by its Wiktionary code. The second return is
// false when the code is unknown (§7 UnknownCode).
func (r *Registry) ByCode(code string) (Lang, bool) {
	l, ok := r.byCode[code]
	return l, ok
}

// ByName looks up a Lang by its canonical display name.
func (r *Registry) ByName(name string) (Lang, bool) {
	l, ok := r.byName[name]
	return l, ok
}

// Code returns l's canonical Wiktionary code (the ety-only alias's own
// code, not its main code — use MainCode for that).
func (r *Registry) Code(l Lang) string {
	return r.entries[l].code
}

// MainCode returns the canonical main code: identical to Code for a
// language that isn't etymology-only, and the parent's code otherwise.
func (r *Registry) MainCode(l Lang) string {
	return r.entries[l].mainCode
}

// Name returns l's canonical display name.
func (r *Registry) Name(l Lang) string {
	return r.entries[l].canonicalName
}

// URLName returns l's canonical name, percent-encoded for use in a
// reconstruction-namespace title ("Reconstruction:<LanguageName>/<term>").
func (r *Registry) URLName(l Lang) string {
	return url.PathEscape(r.entries[l].canonicalName)
}

// Kind returns l's Kind classification.
func (r *Registry) Kind(l Lang) Kind {
	return r.entries[l].kind
}

// Reconstructed reports whether l is a reconstructed proto-language.
func (r *Registry) Reconstructed(l Lang) bool {
	return r.entries[l].kind == KindReconstructed
}

// NonEtyAlias returns the nearest non-etymology-only parent of l, or l
// itself if l is already a normal language (§3 Lang).
func (r *Registry) NonEtyAlias(l Lang) Lang {
	return r.entries[l].nonEtyAlias
}

// Ancestors returns l's ordered ancestor chain, proto-most first, l
// itself last. Callers must not mutate the returned slice.
func (r *Registry) Ancestors(l Lang) []Lang {
	return r.entries[l].ancestors
}

// DescendsFrom reports whether b appears anywhere in a's ancestor chain.
func (r *Registry) DescendsFrom(a, b Lang) bool {
	for _, anc := range r.entries[a].ancestors {
		if anc == b {
			return true
		}
	}
	return false
}

// StrictlyDescendsFrom reports whether a descends from b and the two
// are distinct languages (used by root imputation, §4.4.3, to avoid
// treating a term as its own root source).
func (r *Registry) StrictlyDescendsFrom(a, b Lang) bool {
	return a != b && r.DescendsFrom(a, b)
}

// Distance returns the sum of hops from a and b to their nearest
// common ancestor. ok is false when the two chains share no ancestor
// (should not happen for a well-formed table rooted at a single
// proto-language, but a defensively-written table could omit it).
func (r *Registry) Distance(a, b Lang) (dist int, ok bool) {
	if a == b {
		return 0, true
	}
	achain := r.entries[a].ancestors
	bchain := r.entries[b].ancestors
	if achain[0] != bchain[0] {
		return 0, false
	}
	longer, shorter := achain, bchain
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	dist = len(achain) + len(bchain)
	for i, l := range shorter {
		if l != longer[i] {
			return dist, true
		}
		dist -= 2
	}
	return dist, true
}
