// Package redirects implements the redirect resolver of spec.md §4.3:
// a table of two maps built from the dump's redirect records, used to
// rectify a (lang, term) query to its canonical form before the
// disambiguator looks up candidates.
package redirects

import (
	"strings"

	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/logging"
	"wetygraph/internal/strpool"
)

// skippedNamespaces lists colon-namespace prefixes whose redirects are
// never etymologically meaningful and are ignored outright (§4.3).
var skippedNamespaces = map[string]bool{
	"Index": true, "Help": true, "MediaWiki": true, "Citations": true,
	"Concordance": true, "Rhymes": true, "Thread": true, "Summary": true,
	"File": true, "Transwiki": true, "Category": true, "Appendix": true,
	"Wiktionary": true, "Thesaurus": true, "Module": true, "Template": true,
}

// Table holds the reconstruction-namespace redirects and the flat,
// lang-independent term aliases parsed from the dump's redirect
// records.
type Table struct {
	reconstruction map[langterm.LangTerm]langterm.LangTerm
	regular        map[langterm.Term]langterm.Term
}

// New creates an empty Table.
func New() *Table {
	return &Table{
		reconstruction: make(map[langterm.LangTerm]langterm.LangTerm),
		regular:        make(map[langterm.Term]langterm.Term),
	}
}

// Add parses one dump redirect record's title and target, inserting it
// into whichever map applies, or ignoring it entirely if its namespace
// is in the skip list.
func (t *Table) Add(pool *strpool.Pool, langs *lang.Registry, title, target string) {
	if ns, _, ok := splitNamespace(title); ok && skippedNamespaces[ns] {
		logging.Get(logging.CategoryIngest).Debug("redirects: skipping namespaced title %q", title)
		return
	}

	srcLT, srcOK := parseReconstructionTitle(pool, langs, title)
	dstLT, dstOK := parseReconstructionTitle(pool, langs, target)
	if srcOK && dstOK {
		t.reconstruction[srcLT] = dstLT
		return
	}

	// Otherwise, treat both sides as bare terms (lang-independent alias
	// of one spelling to another).
	srcTerm := langterm.Term(pool.GetOrIntern(title))
	dstTerm := langterm.Term(pool.GetOrIntern(target))
	t.regular[srcTerm] = dstTerm
}

// splitNamespace splits "NS:Rest" into ("NS", "Rest", true), or
// returns ok=false if title carries no colon-namespace prefix.
func splitNamespace(title string) (ns, rest string, ok bool) {
	idx := strings.IndexByte(title, ':')
	if idx < 0 {
		return "", title, false
	}
	return title[:idx], title[idx+1:], true
}

// parseReconstructionTitle parses "Reconstruction:<LanguageName>/<term>".
func parseReconstructionTitle(pool *strpool.Pool, langs *lang.Registry, title string) (langterm.LangTerm, bool) {
	ns, rest, ok := splitNamespace(title)
	if !ok || ns != "Reconstruction" {
		return langterm.LangTerm{}, false
	}
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return langterm.LangTerm{}, false
	}
	langName, term := rest[:slash], rest[slash+1:]
	if term == "" {
		return langterm.LangTerm{}, false
	}
	l, ok := langs.ByName(langName)
	if !ok {
		return langterm.LangTerm{}, false
	}
	return langterm.LangTerm{Lang: l, Term: langterm.Term(pool.GetOrIntern(term))}, true
}

// Rectify resolves lt through the ety→non-ety alias and the two
// redirect maps, in the order spec.md §4.3 describes: replace lang
// with its non-ety alias; if the reconstruction map has an entry,
// return its image; else if the regular map has an entry for the bare
// term, return (lang, redirected term); else return unchanged.
func (t *Table) Rectify(langs *lang.Registry, lt langterm.LangTerm) langterm.LangTerm {
	lt.Lang = langs.NonEtyAlias(lt.Lang)

	if dst, ok := t.reconstruction[lt]; ok {
		return dst
	}
	if dst, ok := t.regular[lt.Term]; ok {
		return langterm.LangTerm{Lang: lt.Lang, Term: dst}
	}
	return lt
}
