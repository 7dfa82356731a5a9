package disambig

import (
	"context"
	"path/filepath"
	"testing"

	"wetygraph/internal/embedding"
	"wetygraph/internal/etygraph"
	"wetygraph/internal/items"
	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/redirects"
	"wetygraph/internal/strpool"
)

type fixedEncoder struct{ vecs map[string][]float32 }

func (f *fixedEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vecs[text], nil
}
func (f *fixedEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vecs[t]
	}
	return out, nil
}
func (f *fixedEncoder) Dimensions() int { return 2 }

func setup(t *testing.T) (*strpool.Pool, *lang.Registry, *items.Store, *embedding.Manager, *redirects.Table) {
	t.Helper()
	pool := strpool.New()
	langs, err := lang.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	cache, err := embedding.OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	enc := &fixedEncoder{vecs: map[string][]float32{
		"query":   {1, 0},
		"near":    {0.99, 0.01},
		"far":     {0, 1},
		"current": {1, 0},
	}}
	mgr := embedding.NewManager(enc, cache, 10)
	return pool, langs, items.New(), mgr, redirects.New()
}

func seedCandidate(t *testing.T, pool *strpool.Pool, mgr *embedding.Manager, store *items.Store, l lang.Lang, term string, etyNum uint8, glossText string) etygraph.ItemID {
	t.Helper()
	sym := langterm.Term(pool.GetOrIntern(term))
	id, _ := store.AddReal(etygraph.Item{EtyNum: etyNum, Lang: l, Term: sym, Pos: []string{"noun"}}, nil)
	ctx := context.Background()
	if err := mgr.UpdateGlosses(ctx, id, glossText); err != nil {
		t.Fatalf("UpdateGlosses: %v", err)
	}
	if err := mgr.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return id
}

func TestResolvePicksHighestSimilarityCandidate(t *testing.T) {
	pool, langs, store, mgr, redirectsTable := setup(t)
	en, _ := langs.ByCode("en")

	nearID := seedCandidate(t, pool, mgr, store, en, "bank", 1, "near")
	seedCandidate(t, pool, mgr, store, en, "bank", 2, "far")

	r := &Resolver{Items: store, Embeddings: mgr, Redirects: redirectsTable, Langs: langs, Threshold: 0}
	ctx := context.Background()
	_ = mgr.UpdateGlosses(ctx, 999, "query")
	_ = mgr.Flush(ctx)

	term := langterm.Term(pool.GetOrIntern("bank"))
	queryEmb := mgr.Get(etygraph.ItemID(999))
	id, sim, ok := r.Resolve(langterm.LangTerm{Lang: en, Term: term}, ItemContext{Embedding: queryEmb})
	if !ok {
		t.Fatal("expected a resolved candidate")
	}
	if id != nearID {
		t.Fatalf("expected the near candidate to win, got %v (sim=%v)", id, sim)
	}
}

func TestResolveNoCandidatesReturnsFalse(t *testing.T) {
	pool, langs, store, mgr, redirectsTable := setup(t)
	en, _ := langs.ByCode("en")
	r := &Resolver{Items: store, Embeddings: mgr, Redirects: redirectsTable, Langs: langs, Threshold: 0}

	term := langterm.Term(pool.GetOrIntern("nonexistent"))
	if _, _, ok := r.Resolve(langterm.LangTerm{Lang: en, Term: term}, ItemContext{}); ok {
		t.Fatal("expected no candidates to resolve")
	}
}

func TestGetOrImputeCreatesImputedItemAtThreshold(t *testing.T) {
	pool, langs, store, mgr, redirectsTable := setup(t)
	en, _ := langs.ByCode("en")
	r := &Resolver{Items: store, Embeddings: mgr, Redirects: redirectsTable, Langs: langs, Threshold: 0.42}

	parentID, _ := store.AddReal(etygraph.Item{EtyNum: 1, Lang: en, Term: langterm.Term(pool.GetOrIntern("child")), Pos: []string{"noun"}}, nil)
	term := langterm.Term(pool.GetOrIntern("unattested-ancestor"))

	id, confidence, isNew := r.GetOrImpute(langterm.LangTerm{Lang: en, Term: term}, parentID, ItemContext{})
	if !isNew {
		t.Fatal("expected imputation")
	}
	if confidence != 0.42 {
		t.Fatalf("expected imputed confidence to equal Threshold, got %v", confidence)
	}
	got := store.Get(id)
	if !got.IsImputed() || got.ImputedFrom != parentID {
		t.Fatalf("unexpected imputed item: %+v", got)
	}
}
