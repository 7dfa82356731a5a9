package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"wetygraph/internal/embedding"
	"wetygraph/internal/etygraph"
	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/strpool"
	"wetygraph/internal/templates"
	"wetygraph/internal/wikitext"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newSliceSource marshals records as dump lines and wraps them in a
// wikitext.SliceSource, replayable across passes via Reset.
func newSliceSource(records ...wikitext.Record) *wikitext.SliceSource {
	lines := make([]string, len(records))
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			panic(err)
		}
		lines[i] = string(b)
	}
	return wikitext.NewSliceSource(lines...)
}

// fakeEncoder returns a fixed vector per exact text match, falling
// back to the zero vector (similarity 0) for anything unregistered.
type fakeEncoder struct{ vecs map[string][]float32 }

func (f *fakeEncoder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vecs[text], nil
}

func (f *fakeEncoder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vecs[t]
	}
	return out, nil
}

func (f *fakeEncoder) Dimensions() int { return 2 }

func newTestDriver(t *testing.T, vecs map[string][]float32, threshold float64) *Driver {
	t.Helper()
	langs, err := lang.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	cache, err := embedding.OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	mgr := embedding.NewManager(&fakeEncoder{vecs: vecs}, cache, 10)
	return New(strpool.New(), langs, mgr, threshold, embedding.DefaultAncestorDiscount)
}

func mustLang(t *testing.T, langs *lang.Registry, code string) lang.Lang {
	t.Helper()
	l, ok := langs.ByCode(code)
	if !ok {
		t.Fatalf("unknown lang code %q", code)
	}
	return l
}

// TestPipelineResolvesSingleMentionEtymology runs all three passes
// over a two-line dump: an Old English "pipe" whose etymology section
// is a lone "From {{m|gmw-pro|*pīpā}}." mention, and the Proto-West
// Germanic ancestor it names. Ground: spec.md §8's "pipe"/"pīpā" worked
// example.
func TestPipelineResolvesSingleMentionEtymology(t *testing.T) {
	d := newTestDriver(t, nil, 0)

	ancestor := wikitext.Record{
		Word:     "pīpā",
		LangCode: "gmw-pro",
		Pos:      "noun",
		Senses:   []wikitext.Sense{{Glosses: []string{"a pipe"}}},
	}
	descendant := wikitext.Record{
		Word:          "pipe",
		LangCode:      "ang",
		Pos:           "noun",
		Senses:        []wikitext.Sense{{Glosses: []string{"a tube"}}},
		EtymologyText: "From *pīpā.",
		EtymologyTemplates: []wikitext.Template{
			{Name: "m", Args: map[string]string{"1": "gmw-pro", "2": "pīpā"}},
		},
	}

	src := newSliceSource(ancestor, descendant)
	if err := d.Pass1(src); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	src.Reset()
	ctx := context.Background()
	if err := d.Pass2(ctx, src); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if err := d.Pass3(ctx); err != nil {
		t.Fatalf("Pass3: %v", err)
	}

	var pipeID etygraph.ItemID
	var pipeFound bool
	var ancestorID etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, it *etygraph.Item) {
		if d.Pool.Resolve(strpool.Symbol(it.Term)) == "pipe" {
			pipeID, pipeFound = id, true
		}
		if d.Pool.Resolve(strpool.Symbol(it.Term)) == "pīpā" {
			ancestorID = id
		}
	})
	if !pipeFound {
		t.Fatal("expected a pipe item")
	}
	immediate, ok := d.Items.Graph.ImmediateEty(pipeID)
	if !ok || len(immediate.Items) != 1 || immediate.Items[0] != ancestorID {
		t.Fatalf("expected pipe's sole parent to be the resolved ancestor, got %+v ok=%v", immediate, ok)
	}
}

// TestPipelineDisambiguatesHomographByGlossSimilarity seeds two
// same-spelling "bank" items in different ety_nums (river bank vs.
// financial bank) and an etymology that names "bank" ambiguously,
// checking that the candidate whose gloss embedding is closer wins.
func TestPipelineDisambiguatesHomographByGlossSimilarity(t *testing.T) {
	vecs := map[string][]float32{
		"a riverside slope":      {1, 0},
		"a financial institution": {0, 1},
		"a place to keep money":   {0, 0.9},
	}
	d := newTestDriver(t, vecs, 0)
	langs := d.Langs
	en := mustLang(t, langs, "en")

	river := wikitext.Record{Word: "bank", LangCode: "en", Pos: "noun",
		Senses: []wikitext.Sense{{Glosses: []string{"a riverside slope"}}}}
	financial := wikitext.Record{Word: "bank", LangCode: "en", Pos: "noun", EtymologyNumber: 2,
		Senses: []wikitext.Sense{{Glosses: []string{"a financial institution"}}}}
	// "-ing" is seeded so the suffix template's second slot resolves to a
	// real item; an imputed slot in a two-term template records no edge.
	ingSuffix := wikitext.Record{Word: "-ing", LangCode: "en", Pos: "suffix",
		Senses: []wikitext.Sense{{Glosses: []string{"forms gerunds"}}}}
	child := wikitext.Record{Word: "banking", LangCode: "en", Pos: "noun",
		Senses:        []wikitext.Sense{{Glosses: []string{"a place to keep money"}}},
		EtymologyText: "From bank.",
		EtymologyTemplates: []wikitext.Template{
			{Name: "suf", Args: map[string]string{"1": "en", "2": "bank", "3": "ing"}},
		},
	}

	src := newSliceSource(river, financial, ingSuffix, child)
	if err := d.Pass1(src); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	src.Reset()
	ctx := context.Background()
	if err := d.Pass2(ctx, src); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if err := d.Pass3(ctx); err != nil {
		t.Fatalf("Pass3: %v", err)
	}

	bankLT := langterm.LangTerm{Lang: en, Term: langterm.Term(d.Pool.GetOrIntern("bank"))}
	candidates, ok := d.Items.TermDupes(bankLT)
	if !ok || len(candidates) != 2 {
		t.Fatalf("expected two bank candidates, got %v ok=%v", candidates, ok)
	}

	var childID etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, it *etygraph.Item) {
		if d.Pool.Resolve(strpool.Symbol(it.Term)) == "banking" {
			childID = id
		}
	})
	immediate, ok := d.Items.Graph.ImmediateEty(childID)
	if !ok || len(immediate.Items) != 2 {
		t.Fatalf("expected banking to resolve a suffix template's two slots, got %+v ok=%v", immediate, ok)
	}
	financialID := candidates[1]
	if immediate.Head == nil || *immediate.Head != financialID {
		t.Fatalf("expected the financial-institution sense to win on gloss similarity as the head, got head=%v", immediate.Head)
	}
}

// TestPipelineRemovesMutualCycleDuringPass3 seeds two items whose raw
// etymologies each name the other, a pathological case that must not
// survive RemoveCycles after pass 3 (spec.md §8's acyclicity invariant).
func TestPipelineRemovesMutualCycleDuringPass3(t *testing.T) {
	d := newTestDriver(t, nil, 0)
	en := mustLang(t, d.Langs, "en")

	aTerm := langterm.Term(d.Pool.GetOrIntern("alpha"))
	bTerm := langterm.Term(d.Pool.GetOrIntern("beta"))
	aID, _ := d.Items.AddReal(etygraph.Item{EtyNum: 1, Lang: en, Term: aTerm, Pos: []string{"noun"}}, nil)
	bID, _ := d.Items.AddReal(etygraph.Item{EtyNum: 1, Lang: en, Term: bTerm, Pos: []string{"noun"}}, nil)

	d.Items.SetRawEtymology(aID, templates.RawEtymology{Templates: []templates.RawEtyTemplate{
		{LangTerms: []langterm.LangTerm{{Lang: en, Term: bTerm}}, Mode: templates.ModeInherited, Head: intp(0)},
	}})
	d.Items.SetRawEtymology(bID, templates.RawEtymology{Templates: []templates.RawEtyTemplate{
		{LangTerms: []langterm.LangTerm{{Lang: en, Term: aTerm}}, Mode: templates.ModeInherited, Head: intp(0)},
	}})

	if err := d.Pass3(context.Background()); err != nil {
		t.Fatalf("Pass3: %v", err)
	}

	_, aHas := d.Items.Graph.ImmediateEty(aID)
	_, bHas := d.Items.Graph.ImmediateEty(bID)
	if aHas && bHas {
		t.Fatal("expected RemoveCycles to have broken the mutual cycle")
	}
}

// TestPipelineResolvesPrefixTemplateWithCorrectHead runs the "redo"
// worked example: a {{prefix|en|re|do}} etymology, which must resolve
// to two parents ("re-" and "do") with the prefix template's head
// pointing at index 1, the base term rather than the affix.
func TestPipelineResolvesPrefixTemplateWithCorrectHead(t *testing.T) {
	d := newTestDriver(t, nil, 0)

	do := wikitext.Record{Word: "do", LangCode: "en", Pos: "verb",
		Senses: []wikitext.Sense{{Glosses: []string{"to perform"}}}}
	rePrefix := wikitext.Record{Word: "re-", LangCode: "en", Pos: "prefix",
		Senses: []wikitext.Sense{{Glosses: []string{"again"}}}}
	redo := wikitext.Record{Word: "redo", LangCode: "en", Pos: "verb",
		Senses:        []wikitext.Sense{{Glosses: []string{"to do again"}}},
		EtymologyText: "From re- + do.",
		EtymologyTemplates: []wikitext.Template{
			{Name: "prefix", Args: map[string]string{"1": "en", "2": "re", "3": "do"}},
		},
	}

	src := newSliceSource(do, rePrefix, redo)
	if err := d.Pass1(src); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	src.Reset()
	ctx := context.Background()
	if err := d.Pass2(ctx, src); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if err := d.Pass3(ctx); err != nil {
		t.Fatalf("Pass3: %v", err)
	}

	var doID, prefixID, redoID etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, it *etygraph.Item) {
		switch d.Pool.Resolve(strpool.Symbol(it.Term)) {
		case "do":
			doID = id
		case "re-":
			prefixID = id
		case "redo":
			redoID = id
		}
	})

	immediate, ok := d.Items.Graph.ImmediateEty(redoID)
	if !ok || len(immediate.Items) != 2 {
		t.Fatalf("expected redo to resolve a prefix template's two slots, got %+v ok=%v", immediate, ok)
	}
	if immediate.Items[0] != prefixID || immediate.Items[1] != doID {
		t.Fatalf("expected parent order [re-, do], got %v", immediate.Items)
	}
	if immediate.Head == nil || *immediate.Head != doID {
		t.Fatalf("expected the base term \"do\" to be the head, got head=%v", immediate.Head)
	}
}

// TestPipelineSkipsWithinLanguageCompoundInDescendants seeds a
// Proto-Indo-European root whose descendants tree contains a
// compound-term line naming two terms in the root's own language
// alongside a normal single-term descendant in a different language,
// and checks the compound line is skipped (spec.md §8.5's "men-"
// within-language-compound example) while the ordinary descendant
// still resolves.
func TestPipelineSkipsWithinLanguageCompoundInDescendants(t *testing.T) {
	d := newTestDriver(t, nil, 0)

	root := wikitext.Record{
		Word: "men-", LangCode: "ine-pro", Pos: "root",
		Senses: []wikitext.Sense{{Glosses: []string{"to think"}}},
		Descendants: []wikitext.DescendantLine{
			{Depth: 1, Templates: []wikitext.Template{
				{Name: "desc", Args: map[string]string{"1": "ine-pro", "2": "kom-men-tos"}},
				{Name: "desc", Args: map[string]string{"1": "ine-pro", "2": "men-tis"}},
			}},
			{Depth: 1, Templates: []wikitext.Template{
				{Name: "desc", Args: map[string]string{"1": "gem-pro", "2": "mun-"}},
			}},
		},
	}

	src := newSliceSource(root)
	if err := d.Pass1(src); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	src.Reset()
	ctx := context.Background()
	if err := d.Pass2(ctx, src); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if err := d.Pass3(ctx); err != nil {
		t.Fatalf("Pass3: %v", err)
	}

	if got := d.Items.Len(); got != 2 {
		t.Fatalf("expected only the root and its single-term descendant to exist, got %d items", got)
	}

	var rootID, munID etygraph.ItemID
	var munFound bool
	d.Items.Iter(func(id etygraph.ItemID, it *etygraph.Item) {
		switch d.Pool.Resolve(strpool.Symbol(it.Term)) {
		case "men-":
			rootID = id
		case "mun-":
			munID, munFound = id, true
		}
	})
	if !munFound {
		t.Fatal("expected the gem-pro descendant to have been imputed")
	}
	immediate, ok := d.Items.Graph.ImmediateEty(munID)
	if !ok || len(immediate.Items) != 1 || immediate.Items[0] != rootID {
		t.Fatalf("expected mun-'s sole parent to be the root, got %+v ok=%v", immediate, ok)
	}
}

// TestPipelineRefusesImputationInCompoundTemplate seeds an "undo"
// whose {{prefix|en|un|do}} etymology names a "do" that resolves to a
// real seeded item but an "un-" that has no candidate anywhere in the
// dump, so it can only be imputed. Since the template is compound-kind
// (two langterms), this is the disqualified-imputation case: the
// etymology chain must terminate with no edge recorded at all, rather
// than recording a spuriously confident edge to the imputed "un-".
func TestPipelineRefusesImputationInCompoundTemplate(t *testing.T) {
	d := newTestDriver(t, nil, 0)

	do := wikitext.Record{Word: "do", LangCode: "en", Pos: "verb",
		Senses: []wikitext.Sense{{Glosses: []string{"to perform"}}}}
	undo := wikitext.Record{Word: "undo", LangCode: "en", Pos: "verb",
		Senses:        []wikitext.Sense{{Glosses: []string{"to reverse"}}},
		EtymologyText: "From un- + do.",
		EtymologyTemplates: []wikitext.Template{
			{Name: "prefix", Args: map[string]string{"1": "en", "2": "un", "3": "do"}},
		},
	}

	src := newSliceSource(do, undo)
	if err := d.Pass1(src); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	src.Reset()
	ctx := context.Background()
	if err := d.Pass2(ctx, src); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if err := d.Pass3(ctx); err != nil {
		t.Fatalf("Pass3: %v", err)
	}

	var undoID etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, it *etygraph.Item) {
		if d.Pool.Resolve(strpool.Symbol(it.Term)) == "undo" {
			undoID = id
		}
	})

	if _, ok := d.Items.Graph.ImmediateEty(undoID); ok {
		t.Fatal("expected no ety edge for a compound template with a disqualified imputed slot")
	}
}
