package templates

import (
	"regexp"

	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/strpool"
	"wetygraph/internal/wikitext"
)

// RawRoot is a record's {{root}} template or categories-regex fallback
// (§4.4.3): the langterm it names as root, and an optional sense id
// disambiguating which sense of a polysemous root term is meant.
type RawRoot struct {
	LangTerm langterm.LangTerm
	SenseID  string
}

// rootCategoryPattern matches category strings of the form "English
// terms derived from the Proto-Indo-European root *dʰeh₁-" or
// "... root *bʰel- (shiny)". Captures: (1) term lang name, (2) root
// lang name, (3) root term, (4) optional parenthesized sense id.
//
// Grounded on the original processor's ROOT_CAT regex; stdlib regexp
// is used here rather than a third-party engine because none of the
// example repos wire one in and Go's regexp package already covers
// this single anchored pattern.
var rootCategoryPattern = regexp.MustCompile(`^(.+) terms derived from the (.+) root \*([^ ]+)(?: \((.+)\))?$`)

func processRootTemplate(pool *strpool.Pool, langs *lang.Registry, args map[string]string, itemLang lang.Lang) (RawRoot, bool) {
	if !validateTemplateLang(langs, args, itemLang) {
		return RawRoot{}, false
	}
	rootLangCode, ok := validStr(args, "2")
	if !ok {
		return RawRoot{}, false
	}
	rootLang, ok := langs.ByCode(rootLangCode)
	if !ok {
		return RawRoot{}, false
	}
	rawRootTerm, hasRaw := args["3"]
	rootTerm, ok := validStr(args, "3")
	if !ok {
		return RawRoot{}, false
	}
	// We don't deal with multi-roots for now.
	if _, ok := validStr(args, "4"); ok {
		return RawRoot{}, false
	}

	senseID := ""
	// Sometimes a root's sense id is given in parentheses after the term
	// in the "3" arg slot, e.g. "bʰel- (shiny)".
	if hasRaw {
		if right := lastIndexByte(rawRootTerm, ')'); right >= 0 {
			if left := lastIndex(rawRootTerm, " ("); left >= 0 && left+2 <= right {
				senseID = rawRootTerm[left+2 : right]
				if term, ok := cleanTerm(rawRootTerm[:left]); ok {
					rootTerm = term
				}
			}
		}
	}
	if senseID == "" {
		if id, ok := validStr(args, "id"); ok {
			senseID = id
		}
	}

	return RawRoot{LangTerm: langTerm(pool, rootLang, rootTerm), SenseID: senseID}, true
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func lastIndex(s, substr string) int {
	if len(substr) == 0 {
		return len(s)
	}
	for i := len(s) - len(substr); i >= 0; i-- {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func processRootCategory(pool *strpool.Pool, langs *lang.Registry, category string, itemLang lang.Lang) (RawRoot, bool) {
	m := rootCategoryPattern.FindStringSubmatch(category)
	if m == nil {
		return RawRoot{}, false
	}
	termLangName, rootLangName, rootTermRaw, senseID := m[1], m[2], m[3], m[4]
	termLang, ok := langs.ByName(termLangName)
	if !ok || termLang != itemLang {
		return RawRoot{}, false
	}
	rootLang, ok := langs.ByName(rootLangName)
	if !ok {
		return RawRoot{}, false
	}
	rootTerm, ok := cleanTerm(rootTermRaw)
	if !ok {
		return RawRoot{}, false
	}
	return RawRoot{LangTerm: langTerm(pool, rootLang, rootTerm), SenseID: senseID}, true
}

// ParseRoot parses rec's {{root}} template if present, falling back to
// the "<Lang> terms derived from the <Lang> root *<term>" category
// convention (§4.4.3). Only the first matching root is used in either
// case; multi-root templates/categories are not handled.
func ParseRoot(pool *strpool.Pool, langs *lang.Registry, rec *wikitext.Record, itemLang lang.Lang) (RawRoot, bool) {
	for _, t := range rec.EtymologyTemplates {
		if t.Name != "root" {
			continue
		}
		if root, ok := processRootTemplate(pool, langs, t.Args, itemLang); ok {
			return root, true
		}
	}
	for _, category := range rec.Categories {
		if root, ok := processRootCategory(pool, langs, category, itemLang); ok {
			return root, true
		}
	}
	return RawRoot{}, false
}
