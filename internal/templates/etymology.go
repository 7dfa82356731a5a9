package templates

import (
	"strings"

	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/strpool"
	"wetygraph/internal/wikitext"
)

// RawEtyTemplate models one parsed etymology-section template: the
// (lang, term) pairs it names, the mode it expresses, and which
// langterm (if any) is the morphological head.
type RawEtyTemplate struct {
	LangTerms []langterm.LangTerm
	Mode      EtyMode
	Head      *int // index into LangTerms, nil when there is no true head
}

// RawEtymology is the ordered sequence of templates parsed from one
// record's etymology section (§4.4.1).
type RawEtymology struct {
	Templates []RawEtyTemplate
}

func newSingleEtyTemplate(lt langterm.LangTerm, mode EtyMode) RawEtyTemplate {
	head := 0
	return RawEtyTemplate{LangTerms: []langterm.LangTerm{lt}, Mode: mode, Head: &head}
}

// cleanTerm strips a leading reconstruction asterisk (wiktextract's
// "word" field omits it, but hand-written template args sometimes
// include it) and rejects the empty/placeholder "-" spelling.
func cleanTerm(s string) (string, bool) {
	s = strings.TrimPrefix(s, "*")
	if s == "" || s == "-" {
		return "", false
	}
	return s, true
}

func validStr(args map[string]string, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	return cleanTerm(v)
}

func langTerm(pool *strpool.Pool, l lang.Lang, term string) langterm.LangTerm {
	return langterm.LangTerm{Lang: l, Term: langterm.Term(pool.GetOrIntern(term))}
}

func processDerivedKind(pool *strpool.Pool, langs *lang.Registry, args map[string]string, mode EtyMode) (RawEtyTemplate, bool) {
	etyLangCode, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	// borrowed and its siblings allow a comma-separated list of source
	// langs, e.g. {{bor|lv|sv,da,no|Gunnar}}; we take the first.
	if i := strings.IndexByte(etyLangCode, ','); i >= 0 {
		etyLangCode = etyLangCode[:i]
	}
	etyLang, ok := langs.ByCode(etyLangCode)
	if !ok {
		return RawEtyTemplate{}, false
	}
	etyTerm, ok := validStr(args, "3")
	if !ok {
		return RawEtyTemplate{}, false
	}
	return newSingleEtyTemplate(langTerm(pool, etyLang, etyTerm), mode), true
}

func processAbbrevKind(pool *strpool.Pool, args map[string]string, mode EtyMode, itemLang lang.Lang) (RawEtyTemplate, bool) {
	etyTerm, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	return newSingleEtyTemplate(langTerm(pool, itemLang, etyTerm), mode), true
}

func processPrefix(pool *strpool.Pool, args map[string]string, itemLang lang.Lang) (RawEtyTemplate, bool) {
	prefix, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	term, ok := validStr(args, "3")
	if !ok {
		return RawEtyTemplate{}, false
	}
	head := 1
	return RawEtyTemplate{
		LangTerms: []langterm.LangTerm{langTerm(pool, itemLang, prefix+"-"), langTerm(pool, itemLang, term)},
		Mode:      ModePrefix,
		Head:      &head,
	}, true
}

func processSuffix(pool *strpool.Pool, args map[string]string, itemLang lang.Lang) (RawEtyTemplate, bool) {
	term, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	suffix, ok := validStr(args, "3")
	if !ok {
		return RawEtyTemplate{}, false
	}
	head := 0
	return RawEtyTemplate{
		LangTerms: []langterm.LangTerm{langTerm(pool, itemLang, term), langTerm(pool, itemLang, "-"+suffix)},
		Mode:      ModeSuffix,
		Head:      &head,
	}, true
}

func processCircumfix(pool *strpool.Pool, args map[string]string, itemLang lang.Lang) (RawEtyTemplate, bool) {
	prefix, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	term, ok := validStr(args, "3")
	if !ok {
		return RawEtyTemplate{}, false
	}
	suffix, ok := validStr(args, "4")
	if !ok {
		return RawEtyTemplate{}, false
	}
	head := 0
	circumfix := prefix + "- -" + suffix
	return RawEtyTemplate{
		LangTerms: []langterm.LangTerm{langTerm(pool, itemLang, term), langTerm(pool, itemLang, circumfix)},
		Mode:      ModeCircumfix,
		Head:      &head,
	}, true
}

func processInfix(pool *strpool.Pool, args map[string]string, itemLang lang.Lang) (RawEtyTemplate, bool) {
	term, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	infix, ok := validStr(args, "3")
	if !ok {
		return RawEtyTemplate{}, false
	}
	head := 0
	return RawEtyTemplate{
		LangTerms: []langterm.LangTerm{langTerm(pool, itemLang, term), langTerm(pool, itemLang, "-"+infix+"-")},
		Mode:      ModeInfix,
		Head:      &head,
	}, true
}

func processConfix(pool *strpool.Pool, args map[string]string, itemLang lang.Lang) (RawEtyTemplate, bool) {
	prefix, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	ety2, ok := validStr(args, "3")
	if !ok {
		return RawEtyTemplate{}, false
	}
	prefixLT := langTerm(pool, itemLang, prefix+"-")
	if ety3, ok := validStr(args, "4"); ok {
		head := 1
		return RawEtyTemplate{
			LangTerms: []langterm.LangTerm{prefixLT, langTerm(pool, itemLang, ety2), langTerm(pool, itemLang, "-"+ety3)},
			Mode:      ModeConfix,
			Head:      &head,
		}, true
	}
	return RawEtyTemplate{
		LangTerms: []langterm.LangTerm{prefixLT, langTerm(pool, itemLang, "-"+ety2)},
		Mode:      ModeConfix,
		Head:      nil, // no true head
	}, true
}

func argKey(prefix string, n int) string {
	return prefix + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func processCompoundKind(pool *strpool.Pool, langs *lang.Registry, args map[string]string, mode EtyMode, itemLang lang.Lang) (RawEtyTemplate, bool) {
	n := 2
	var langTerms []langterm.LangTerm
	var head *int
	for {
		etyTerm, ok := validStr(args, itoa(n))
		if !ok {
			break
		}
		// Arbitrarily take the first ety term not itself decorated as a
		// *fix as the head; most compound-kind templates (affix being the
		// most common) have no true head at all.
		if head == nil && !strings.HasPrefix(etyTerm, "-") && !strings.HasSuffix(etyTerm, "-") {
			h := n - 2
			head = &h
		}
		lt := itemLang
		if langCode, ok := validStr(args, argKey("lang", n)); ok {
			if l, ok := langs.ByCode(langCode); ok {
				lt = l
			}
		}
		langTerms = append(langTerms, langTerm(pool, lt, etyTerm))
		n++
	}
	if len(langTerms) == 0 {
		return RawEtyTemplate{}, false
	}
	return RawEtyTemplate{LangTerms: langTerms, Mode: mode, Head: head}, true
}

func processVrddhiKind(pool *strpool.Pool, langs *lang.Registry, args map[string]string, mode EtyMode) (RawEtyTemplate, bool) {
	etyLangCode, ok := validStr(args, "1")
	if !ok {
		return RawEtyTemplate{}, false
	}
	etyLang, ok := langs.ByCode(etyLangCode)
	if !ok {
		return RawEtyTemplate{}, false
	}
	etyTerm, ok := validStr(args, "2")
	if !ok {
		return RawEtyTemplate{}, false
	}
	return newSingleEtyTemplate(langTerm(pool, etyLang, etyTerm), mode), true
}

// validateTemplateLang reports whether the template's "1" arg names
// the item's own language, the invariant every non-vrddhi ety template
// is supposed to satisfy.
func validateTemplateLang(langs *lang.Registry, args map[string]string, itemLang lang.Lang) bool {
	code, ok := validStr(args, "1")
	if !ok {
		return false
	}
	return code == langs.Code(itemLang)
}

func processEtyTemplate(pool *strpool.Pool, langs *lang.Registry, tmpl wikitext.Template, itemLang lang.Lang) (RawEtyTemplate, bool) {
	mode, ok := modeFromShortcut(tmpl.Name)
	if !ok {
		return RawEtyTemplate{}, false
	}
	kind, hasKind := templateKind(mode)
	if !hasKind {
		return RawEtyTemplate{}, false
	}
	// vrddhi-kind templates are unusual in that their "1" arg is not the
	// lang of the term whose ety is being described, so we skip the
	// usual lang-match validation for them.
	if kind == ModeKindVrddhi {
		return processVrddhiKind(pool, langs, tmpl.Args, mode)
	}
	if !validateTemplateLang(langs, tmpl.Args, itemLang) {
		return RawEtyTemplate{}, false
	}
	switch kind {
	case ModeKindDerived:
		return processDerivedKind(pool, langs, tmpl.Args, mode)
	case ModeKindAbbreviation:
		return processAbbrevKind(pool, tmpl.Args, mode, itemLang)
	case ModeKindCompound:
		switch mode {
		case ModePrefix:
			return processPrefix(pool, tmpl.Args, itemLang)
		case ModeSuffix:
			return processSuffix(pool, tmpl.Args, itemLang)
		case ModeCircumfix:
			return processCircumfix(pool, tmpl.Args, itemLang)
		case ModeInfix:
			return processInfix(pool, tmpl.Args, itemLang)
		case ModeConfix:
			return processConfix(pool, tmpl.Args, itemLang)
		default:
			return processCompoundKind(pool, langs, tmpl.Args, mode, itemLang)
		}
	}
	return RawEtyTemplate{}, false
}

// getSingleMentionEty handles the common case where an ety section
// contains exactly one non-root template, it is a bare {{m}}/{{mention}},
// and the display text starts with "From " — e.g. "From {{m|enm|pipe}}."
func getSingleMentionEty(pool *strpool.Pool, langs *lang.Registry, rec *wikitext.Record) (RawEtymology, bool) {
	var nonRoot []wikitext.Template
	for _, t := range rec.EtymologyTemplates {
		if t.Name != "root" {
			nonRoot = append(nonRoot, t)
		}
	}
	if len(nonRoot) != 1 {
		return RawEtymology{}, false
	}
	t := nonRoot[0]
	if t.Name != "mention" && t.Name != "m" {
		return RawEtymology{}, false
	}
	if !strings.HasPrefix(rec.EtymologyText, "From ") {
		return RawEtymology{}, false
	}
	mentionLangCode, ok := validStr(t.Args, "1")
	if !ok {
		return RawEtymology{}, false
	}
	mentionLang, ok := langs.ByCode(mentionLangCode)
	if !ok {
		return RawEtymology{}, false
	}
	mentionTerm, ok := validStr(t.Args, "2")
	if !ok {
		return RawEtymology{}, false
	}
	lt := langTerm(pool, mentionLang, mentionTerm)
	return RawEtymology{Templates: []RawEtyTemplate{newSingleEtyTemplate(lt, ModeMention)}}, true
}

func getStandardEty(pool *strpool.Pool, langs *lang.Registry, rec *wikitext.Record, itemLang lang.Lang) (RawEtymology, bool) {
	if len(rec.EtymologyTemplates) == 0 {
		return RawEtymology{}, false
	}
	var templates []RawEtyTemplate
	for _, t := range rec.EtymologyTemplates {
		if rt, ok := processEtyTemplate(pool, langs, t, itemLang); ok {
			templates = append(templates, rt)
		}
	}
	if len(templates) == 0 {
		return RawEtymology{}, false
	}
	return RawEtymology{Templates: templates}, true
}

// getFormEty falls back to treating term as an alt-of/form-of another
// term, e.g. "happenin'" listed as an alt_of of "happening".
func getFormEty(pool *strpool.Pool, rec *wikitext.Record, itemLang lang.Lang) (RawEtymology, bool) {
	if len(rec.Senses) == 0 {
		return RawEtymology{}, false
	}
	sense := rec.Senses[0]
	alts := sense.AltOf
	if len(alts) == 0 {
		alts = sense.FormOf
	}
	if len(alts) == 0 {
		return RawEtymology{}, false
	}
	altTerm, ok := cleanTerm(alts[0].Word)
	if !ok {
		return RawEtymology{}, false
	}
	lt := langTerm(pool, itemLang, altTerm)
	return RawEtymology{Templates: []RawEtyTemplate{newSingleEtyTemplate(lt, ModeForm)}}, true
}

// ParseEtymology parses rec's etymology section, trying the
// single-mention fallback first, then the standard per-template pass,
// then the alt-of/form-of fallback, in that priority order (§4.4.1).
func ParseEtymology(pool *strpool.Pool, langs *lang.Registry, rec *wikitext.Record, itemLang lang.Lang) (RawEtymology, bool) {
	if ety, ok := getSingleMentionEty(pool, langs, rec); ok {
		return ety, ok
	}
	if ety, ok := getStandardEty(pool, langs, rec, itemLang); ok {
		return ety, ok
	}
	return getFormEty(pool, rec, itemLang)
}
