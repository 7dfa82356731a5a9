package templates

import (
	"testing"

	"wetygraph/internal/lang"
	"wetygraph/internal/strpool"
	"wetygraph/internal/wikitext"
)

func setup(t *testing.T) (*strpool.Pool, *lang.Registry) {
	t.Helper()
	r, err := lang.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	return strpool.New(), r
}

func TestParseEtymologySingleMentionFallback(t *testing.T) {
	pool, langs := setup(t)
	rec := &wikitext.Record{
		LangCode:      "en",
		EtymologyText: "From Middle English pipe.",
		EtymologyTemplates: []wikitext.Template{
			{Name: "m", Args: map[string]string{"1": "enm", "2": "pipe"}},
		},
	}
	en, _ := langs.ByCode("en")
	ety, ok := ParseEtymology(pool, langs, rec, en)
	if !ok {
		t.Fatal("expected single-mention ety to be recognized")
	}
	if len(ety.Templates) != 1 || ety.Templates[0].Mode != ModeMention {
		t.Fatalf("unexpected ety: %+v", ety)
	}
	enm, _ := langs.ByCode("enm")
	if ety.Templates[0].LangTerms[0].Lang != enm {
		t.Fatalf("expected mention lang enm, got %+v", ety.Templates[0].LangTerms[0])
	}
}

func TestParseEtymologyPrefixTemplate(t *testing.T) {
	pool, langs := setup(t)
	rec := &wikitext.Record{
		LangCode: "en",
		EtymologyTemplates: []wikitext.Template{
			{Name: "prefix", Args: map[string]string{"1": "en", "2": "re", "3": "do"}},
		},
	}
	en, _ := langs.ByCode("en")
	ety, ok := ParseEtymology(pool, langs, rec, en)
	if !ok {
		t.Fatal("expected standard ety pass to recognize {{prefix}}")
	}
	tmpl := ety.Templates[0]
	if tmpl.Mode != ModePrefix {
		t.Fatalf("expected ModePrefix, got %v", tmpl.Mode)
	}
	if len(tmpl.LangTerms) != 2 {
		t.Fatalf("expected 2 langterms, got %d", len(tmpl.LangTerms))
	}
	if got := pool.Resolve(strpool.Symbol(tmpl.LangTerms[0].Term)); got != "re-" {
		t.Fatalf("expected decorated prefix %q, got %q", "re-", got)
	}
	if tmpl.Head == nil || *tmpl.Head != 1 {
		t.Fatalf("expected head index 1, got %+v", tmpl.Head)
	}
}

func TestParseEtymologyRejectsMismatchedLang(t *testing.T) {
	pool, langs := setup(t)
	rec := &wikitext.Record{
		LangCode: "en",
		EtymologyTemplates: []wikitext.Template{
			{Name: "der", Args: map[string]string{"1": "enm", "2": "ang", "3": "pipe"}},
		},
	}
	en, _ := langs.ByCode("en")
	_, ok := ParseEtymology(pool, langs, rec, en)
	if ok {
		t.Fatal("expected ety template with mismatched lang arg to be rejected")
	}
}

func TestParseEtymologyFormFallback(t *testing.T) {
	pool, langs := setup(t)
	rec := &wikitext.Record{
		LangCode: "en",
		Senses: []wikitext.Sense{
			{AltOf: []wikitext.AltOrFormOf{{Word: "happening"}}},
		},
	}
	en, _ := langs.ByCode("en")
	ety, ok := ParseEtymology(pool, langs, rec, en)
	if !ok {
		t.Fatal("expected form fallback to apply")
	}
	if ety.Templates[0].Mode != ModeForm {
		t.Fatalf("expected ModeForm, got %v", ety.Templates[0].Mode)
	}
}

func TestParseEtymologyVrddhiDoesNotValidateLang(t *testing.T) {
	pool, langs := setup(t)
	rec := &wikitext.Record{
		LangCode: "enm",
		EtymologyTemplates: []wikitext.Template{
			{Name: "vrddhi", Args: map[string]string{"1": "ang", "2": "wyrm"}},
		},
	}
	enm, _ := langs.ByCode("enm")
	ety, ok := ParseEtymology(pool, langs, rec, enm)
	if !ok {
		t.Fatal("expected vrddhi template to parse despite lang mismatch")
	}
	if ety.Templates[0].Mode != ModeVrddhi {
		t.Fatalf("expected ModeVrddhi, got %v", ety.Templates[0].Mode)
	}
}
