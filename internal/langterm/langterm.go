// Package langterm defines the primary word-in-a-language identity
// used throughout the pipeline (spec.md §3: Term, LangTerm).
package langterm

import (
	"wetygraph/internal/lang"
	"wetygraph/internal/strpool"
)

// Term is a Symbol tagged as naming a lexical form.
type Term strpool.Symbol

// LangTerm pairs a Lang with a Term: the primary identity of a
// word-in-a-language, used as a map key throughout the item store,
// redirect table, and disambiguator.
type LangTerm struct {
	Lang lang.Lang
	Term Term
}
