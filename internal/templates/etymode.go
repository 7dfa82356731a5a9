// Package templates parses the three families of Wiktionary wikitext
// templates spec.md §4.4 cares about — etymology, descendants, and
// root — out of a decoded wikitext.Record into the raw, unresolved
// shapes the item store and pipeline driver turn into graph edges.
package templates

// EtyMode is the closed set of etymological relationship kinds a
// Wiktionary etymology/descendants/root template can express. The
// to_string column below is the canonical display spelling; ModeKind
// groups modes by shared argument shape for parsing.
type EtyMode uint8

const (
	// derived-kind modes: 3 main params (term lang, source lang, source term).
	ModeDerived EtyMode = iota
	ModeInherited
	ModeBorrowed
	ModeLearnedBorrowing
	ModeSemiLearnedBorrowing
	ModeUnadaptedBorrowing
	ModeOrthographicBorrowing
	ModeSemanticLoan
	ModeCalque
	ModePartialCalque
	ModePhonoSemanticMatching
	ModeUndefinedDerivation
	ModeTransliteration

	// abbreviation-kind modes: 2 main params (term lang, source term).
	ModeAbbreviation
	ModeAdverbialAccusative
	ModeContraction
	ModeReduplication
	ModeSyncopicForm
	ModeRebracketing
	ModeNominalization
	ModeEllipsis
	ModeAcronym
	ModeInitialism
	ModeConversion
	ModeClipping
	ModeCausative
	ModeBackFormation
	ModeDeverbal
	ModeApocopicForm
	ModeApheticForm

	// compound-kind modes: N source terms, each arg-position/*fix decorated.
	ModeCompound
	ModeUniverbation
	ModeTransfix
	ModeSurfaceAnalysis
	ModeSuffix
	ModePrefix
	ModeInfix
	ModeConfix
	ModeCircumfix
	ModeBlend
	ModeAffix

	// vrddhi-kind modes: 2 params, but "1" is the *source* lang, not the term's.
	ModeVrddhi
	ModeVrddhiYa

	// special/ad-hoc modes, not handled by the generic template dispatcher.
	ModeRoot                    // imputed root source (§4.4.3)
	ModeForm                    // wiktextract alt-of/form-of fallback (§4.4.1)
	ModeMorphologicalDerivation // within-language descendants-tree derivation (§4.4.2)
	ModeMention                 // bare {{m}}/{{mention}} single-template ety fallback
)

// String returns the canonical display spelling of m, matching the
// "to_string" column a writer would use (and %q-friendly for logging).
func (m EtyMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

var modeNames = map[EtyMode]string{
	ModeDerived:                 "derived",
	ModeInherited:               "inherited",
	ModeBorrowed:                "borrowed",
	ModeLearnedBorrowing:        "learned borrowing",
	ModeSemiLearnedBorrowing:    "semi-learned borrowing",
	ModeUnadaptedBorrowing:      "unadapted borrowing",
	ModeOrthographicBorrowing:   "orthographic borrowing",
	ModeSemanticLoan:            "semantic loan",
	ModeCalque:                  "calque",
	ModePartialCalque:           "partial calque",
	ModePhonoSemanticMatching:   "phono-semantic matching",
	ModeUndefinedDerivation:     "undefined derivation",
	ModeTransliteration:         "transliteration",
	ModeAbbreviation:            "abbreviation",
	ModeAdverbialAccusative:     "adverbial accusative",
	ModeContraction:             "contraction",
	ModeReduplication:           "reduplication",
	ModeSyncopicForm:            "syncopic form",
	ModeRebracketing:            "rebracketing",
	ModeNominalization:          "nominalization",
	ModeEllipsis:                "ellipsis",
	ModeAcronym:                 "acronym",
	ModeInitialism:              "initialism",
	ModeConversion:              "conversion",
	ModeClipping:                "clipping",
	ModeCausative:               "causative",
	ModeBackFormation:           "back-formation",
	ModeDeverbal:                "deverbal",
	ModeApocopicForm:            "apocopic form",
	ModeApheticForm:             "aphetic form",
	ModeCompound:                "compound",
	ModeUniverbation:            "univerbation",
	ModeTransfix:                "transfix",
	ModeSurfaceAnalysis:         "surface analysis",
	ModeSuffix:                  "suffix",
	ModePrefix:                  "prefix",
	ModeInfix:                   "infix",
	ModeConfix:                  "confix",
	ModeCircumfix:               "circumfix",
	ModeBlend:                   "blend",
	ModeAffix:                   "affix",
	ModeVrddhi:                  "vṛddhi",
	ModeVrddhiYa:                "vṛddhi-ya",
	ModeRoot:                    "root",
	ModeForm:                    "form",
	ModeMorphologicalDerivation: "morphological derivation",
	ModeMention:                 "mention",
}

// modeByShortcut is the template-name/shortcut -> EtyMode table. Every
// accepted spelling is listed, including the undocumented-but-used
// "suf" shortcut for {{suffix}}. The commented-out "der+"/"inh+"/
// "bor+"/"com+" variants wiktionary also generates are deliberately
// absent: their expansions always emit a sibling der/inh/bor/com
// template right alongside them, so recognizing the "+" name too would
// double-count the same relationship.
var modeByShortcut = map[string]EtyMode{
	"derived":  ModeDerived,
	"der":      ModeDerived,
	"der-lite": ModeDerived,

	"inherited": ModeInherited,
	"inh":       ModeInherited,
	"inh-lite":  ModeInherited,

	"borrowed": ModeBorrowed,
	"bor":      ModeBorrowed,

	"learned borrowing": ModeLearnedBorrowing,
	"lbor":              ModeLearnedBorrowing,

	"semi-learned borrowing": ModeSemiLearnedBorrowing,
	"slbor":                  ModeSemiLearnedBorrowing,
	"slb":                    ModeSemiLearnedBorrowing,

	"unadapted borrowing": ModeUnadaptedBorrowing,
	"ubor":                ModeUnadaptedBorrowing,

	"orthographic borrowing": ModeOrthographicBorrowing,
	"obor":                   ModeOrthographicBorrowing,

	"semantic loan": ModeSemanticLoan,
	"sl":            ModeSemanticLoan,
	"sml":           ModeSemanticLoan,

	"calque": ModeCalque,
	"cal":    ModeCalque,
	"clq":    ModeCalque,

	"partial calque": ModePartialCalque,
	"pcal":           ModePartialCalque,
	"pclq":           ModePartialCalque,

	"phono-semantic matching": ModePhonoSemanticMatching,
	"psm":                     ModePhonoSemanticMatching,

	"undefined derivation": ModeUndefinedDerivation,
	"uder":                 ModeUndefinedDerivation,
	"der?":                 ModeUndefinedDerivation,

	"transliteration": ModeTransliteration,
	"translit":        ModeTransliteration,

	"abbreviation": ModeAbbreviation,
	"abbrev":       ModeAbbreviation,

	"adverbial accusative": ModeAdverbialAccusative,

	"contraction": ModeContraction,
	"contr":       ModeContraction,

	"reduplication": ModeReduplication,
	"rdp":           ModeReduplication,

	"syncopic form": ModeSyncopicForm,
	"sync":          ModeSyncopicForm,

	"rebracketing": ModeRebracketing,

	"nominalization": ModeNominalization,
	"nom":            ModeNominalization,

	"ellipsis":  ModeEllipsis,
	"acronym":   ModeAcronym,
	"initialism": ModeInitialism,
	"conversion": ModeConversion,
	"clipping":  ModeClipping,
	"causative": ModeCausative,

	"back-formation": ModeBackFormation,
	"back-form":      ModeBackFormation,
	"bf":             ModeBackFormation,

	"deverbal":      ModeDeverbal,
	"apocopic form": ModeApocopicForm,
	"aphetic form":  ModeApheticForm,

	"compound": ModeCompound,
	"com":      ModeCompound,

	"univerbation": ModeUniverbation,
	"univ":         ModeUniverbation,

	"transfix": ModeTransfix,

	"surface analysis": ModeSurfaceAnalysis,
	"surf":             ModeSurfaceAnalysis,

	"suffix": ModeSuffix,
	"suf":    ModeSuffix, // undocumented, but used

	"prefix": ModePrefix,
	"pre":    ModePrefix,

	"infix": ModeInfix,

	"confix": ModeConfix,
	"con":    ModeConfix,

	"circumfix": ModeCircumfix,
	"blend":     ModeBlend,

	"affix": ModeAffix,
	"af":    ModeAffix,

	"vṛddhi":  ModeVrddhi,
	"vrddhi":  ModeVrddhi,
	"vrd":     ModeVrddhi,

	"vṛddhi-ya": ModeVrddhiYa,
	"vrddhi-ya": ModeVrddhiYa,
	"vrd-ya":    ModeVrddhiYa,

	"root": ModeRoot,
	"form": ModeForm,

	"morphological derivation": ModeMorphologicalDerivation,

	"mention": ModeMention,
	"m":       ModeMention,
}

// modeFromShortcut looks up a template name or ad-hoc shortcut,
// reporting ok=false for anything not in the closed set.
func modeFromShortcut(name string) (EtyMode, bool) {
	m, ok := modeByShortcut[name]
	return m, ok
}

// ModeKind groups EtyMode values by the argument shape their
// originating template takes, per the original processor's
// process_json_ety_template dispatch.
type ModeKind int

const (
	// ModeKindDerived templates: "1" term lang, "2" source lang, "3"
	// source term, "4"/alt and "5"/t and "tr"/"pos" all optional.
	ModeKindDerived ModeKind = iota
	// ModeKindAbbreviation templates: "1" term lang, "2" source term.
	ModeKindAbbreviation
	// ModeKindCompound templates: "1" term lang, "2".."N" source terms,
	// with optional per-slot "langN"/"altN"/"tN"/"trN"/"posN".
	ModeKindCompound
	// ModeKindVrddhi templates: "1" source lang, "2" source term (note
	// the term lang is NOT arg "1" here, unlike every other kind).
	ModeKindVrddhi
)

// templateKind reports the argument-shape kind for m, or ok=false for
// the special/ad-hoc modes that process_json_ety_template never
// dispatches on (Root, Form, MorphologicalDerivation, Mention).
func templateKind(m EtyMode) (kind ModeKind, ok bool) {
	switch m {
	case ModeDerived, ModeInherited, ModeBorrowed, ModeLearnedBorrowing,
		ModeSemiLearnedBorrowing, ModeUnadaptedBorrowing, ModeOrthographicBorrowing,
		ModeSemanticLoan, ModeCalque, ModePartialCalque, ModePhonoSemanticMatching,
		ModeUndefinedDerivation, ModeTransliteration:
		return ModeKindDerived, true
	case ModeAbbreviation, ModeAdverbialAccusative, ModeContraction, ModeReduplication,
		ModeSyncopicForm, ModeRebracketing, ModeNominalization, ModeEllipsis,
		ModeAcronym, ModeInitialism, ModeConversion, ModeClipping, ModeCausative,
		ModeBackFormation, ModeDeverbal, ModeApocopicForm, ModeApheticForm:
		return ModeKindAbbreviation, true
	case ModeCompound, ModeUniverbation, ModeTransfix, ModeSurfaceAnalysis,
		ModeSuffix, ModePrefix, ModeInfix, ModeConfix, ModeCircumfix, ModeBlend, ModeAffix:
		return ModeKindCompound, true
	case ModeVrddhi, ModeVrddhiYa:
		return ModeKindVrddhi, true
	default:
		return 0, false
	}
}
