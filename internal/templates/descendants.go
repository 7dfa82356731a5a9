package templates

import (
	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/strpool"
	"wetygraph/internal/wikitext"
)

// DescLineKind classifies one line of a descendants tree.
type DescLineKind int

const (
	// DescLineDesc: one or more desc/l/desctree templates naming a
	// single descendant language and one or more terms in it.
	DescLineDesc DescLineKind = iota
	// DescLineBareLang: a desc template naming only a language, no term
	// (e.g. {{desc|osp|-}}), used to mark a lang with unlisted descendants.
	DescLineBareLang
	// DescLineBareText: a line with no templates at all, just prose
	// (e.g. "Unsorted formations").
	DescLineBareText
	// DescLineOther: anything else (unhandled templates, malformed shape).
	DescLineOther
)

// RawDesc is the unified result of however many desc/l/desctree
// templates appear on one line: a single descendant language, and one
// term+mode pair per template match.
type RawDesc struct {
	Lang  lang.Lang
	Terms []langterm.Term
	Modes []EtyMode
}

// RawDescLine is one line of a record's descendants tree.
type RawDescLine struct {
	Depth    int
	Kind     DescLineKind
	Desc     RawDesc // valid when Kind == DescLineDesc
	BareLang lang.Lang
	BareText string
}

// RawDescendants is a record's full descendants tree, in document order.
type RawDescendants struct {
	Lines []RawDescLine
}

// descModeShortcuts lists the {{desc}} argument flags that override
// the default "inherited" relationship, checked both bare ("bor") and
// position-suffixed ("bor2") per wiktionary's {{desc}} convention.
var descModeShortcuts = []string{"bor", "lbor", "slb", "clq", "pclq", "sml", "translit"}

func descMode(args map[string]string, n int) EtyMode {
	for _, shortcut := range descModeShortcuts {
		if _, ok := args[shortcut]; ok {
			if m, ok := modeFromShortcut(shortcut); ok {
				return m
			}
		}
		if _, ok := args[argKey(shortcut, n)]; ok {
			if m, ok := modeFromShortcut(shortcut); ok {
				return m
			}
		}
	}
	return ModeInherited
}

func processDescTemplate(pool *strpool.Pool, langs *lang.Registry, args map[string]string) (lang.Lang, []langterm.Term, []EtyMode, bool) {
	langCode, ok := validStr(args, "1")
	if !ok {
		return 0, nil, nil, false
	}
	l, ok := langs.ByCode(langCode)
	if !ok {
		return 0, nil, nil, false
	}
	var terms []langterm.Term
	var modes []EtyMode
	// Confusingly, "2" is the first term and "alt" is its alt, while "3"
	// is the second term and "alt2" is its alt, etc.
	n := 1
	nKey, altKey := "2", "alt"
	for {
		term, ok := validStr(args, nKey)
		if !ok {
			term, ok = validStr(args, altKey)
		}
		if !ok {
			break
		}
		terms = append(terms, langterm.Term(pool.GetOrIntern(term)))
		modes = append(modes, descMode(args, n))
		n++
		nKey = itoa(n + 1)
		altKey = argKey("alt", n)
	}
	return l, terms, modes, true
}

func processLinkTemplate(pool *strpool.Pool, langs *lang.Registry, args map[string]string, isDerivation bool) (lang.Lang, []langterm.Term, []EtyMode, bool) {
	langCode, ok := validStr(args, "1")
	if !ok {
		return 0, nil, nil, false
	}
	l, ok := langs.ByCode(langCode)
	if !ok {
		return 0, nil, nil, false
	}
	term, ok := validStr(args, "2")
	if !ok {
		term, ok = validStr(args, "3")
	}
	if !ok {
		return 0, nil, nil, false
	}
	// Wiktionary defaults {{l}} to an unspecified "derived" relationship;
	// we follow that convention, except within a descendants tree marked
	// as morphological derivation, where the more specific mode applies.
	mode := ModeDerived
	if isDerivation {
		mode = ModeMorphologicalDerivation
	}
	return l, []langterm.Term{langterm.Term(pool.GetOrIntern(term))}, []EtyMode{mode}, true
}

// processDesctreeTemplate handles {{desctree}}. Docs claim it supports
// all {{desc}} args, but in practice it's always just lang+term, so we
// only handle that simple one-descendant-generates-the-tree case.
func processDesctreeTemplate(pool *strpool.Pool, langs *lang.Registry, args map[string]string) (lang.Lang, []langterm.Term, []EtyMode, bool) {
	langCode, ok := validStr(args, "1")
	if !ok {
		return 0, nil, nil, false
	}
	l, ok := langs.ByCode(langCode)
	if !ok {
		return 0, nil, nil, false
	}
	term, ok := validStr(args, "2")
	if !ok {
		return 0, nil, nil, false
	}
	mode := descMode(args, 1)
	return l, []langterm.Term{langterm.Term(pool.GetOrIntern(term))}, []EtyMode{mode}, true
}

func processDescLineTemplate(pool *strpool.Pool, langs *lang.Registry, t wikitext.Template, isDerivation bool) (lang.Lang, []langterm.Term, []EtyMode, bool) {
	switch t.Name {
	case "desc", "descendant":
		return processDescTemplate(pool, langs, t.Args)
	case "l", "link":
		return processLinkTemplate(pool, langs, t.Args, isDerivation)
	case "desctree", "descendants tree":
		return processDesctreeTemplate(pool, langs, t.Args)
	default:
		return 0, nil, nil, false
	}
}

func hasDerivedTag(line wikitext.DescendantLine) bool {
	for _, tag := range line.Tags {
		if tag == "derived" {
			return true
		}
	}
	return false
}

func processDescLine(pool *strpool.Pool, langs *lang.Registry, line wikitext.DescendantLine) RawDescLine {
	depth := line.Depth
	if len(line.Templates) == 0 {
		if line.Text != "" {
			return RawDescLine{Depth: depth, Kind: DescLineBareText, BareText: line.Text}
		}
		return RawDescLine{Depth: depth, Kind: DescLineOther}
	}
	if len(line.Templates) == 1 {
		t := line.Templates[0]
		if t.Name == "desc" || t.Name == "descendant" {
			if langCode, ok := validStr(t.Args, "1"); ok {
				if l, ok := langs.ByCode(langCode); ok {
					_, hasTerm := validStr(t.Args, "2")
					_, hasAlt := validStr(t.Args, "alt")
					if !hasTerm && !hasAlt {
						return RawDescLine{Depth: depth, Kind: DescLineBareLang, BareLang: l}
					}
				}
			}
		}
	}

	isDerivation := hasDerivedTag(line)
	var descLang lang.Lang
	langs_ := map[lang.Lang]bool{}
	var terms []langterm.Term
	var modes []EtyMode
	for _, t := range line.Templates {
		l, templateTerms, templateModes, ok := processDescLineTemplate(pool, langs, t, isDerivation)
		if !ok {
			continue
		}
		descLang = l
		langs_[l] = true
		terms = append(terms, templateTerms...)
		modes = append(modes, templateModes...)
	}
	if len(langs_) == 1 && len(terms) > 0 && len(terms) == len(modes) {
		return RawDescLine{
			Depth: depth,
			Kind:  DescLineDesc,
			Desc:  RawDesc{Lang: descLang, Terms: terms, Modes: modes},
		}
	}
	return RawDescLine{Depth: depth, Kind: DescLineOther}
}

// ParseDescendants parses rec's descendants tree, or ok=false if the
// record carries no descendants section.
func ParseDescendants(pool *strpool.Pool, langs *lang.Registry, rec *wikitext.Record) (RawDescendants, bool) {
	if len(rec.Descendants) == 0 {
		return RawDescendants{}, false
	}
	lines := make([]RawDescLine, 0, len(rec.Descendants))
	for _, line := range rec.Descendants {
		lines = append(lines, processDescLine(pool, langs, line))
	}
	return RawDescendants{Lines: lines}, true
}
