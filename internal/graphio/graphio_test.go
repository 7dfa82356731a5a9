package graphio

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"wetygraph/internal/etygraph"
	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/strpool"
	"wetygraph/internal/templates"
)

func buildFixture(t *testing.T) (*strpool.Pool, *etygraph.Graph, *lang.Registry) {
	t.Helper()
	langs, err := lang.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	inePro, _ := langs.ByCode("ine-pro")
	enm, _ := langs.ByCode("enm")
	en, _ := langs.ByCode("en")

	pool := strpool.New()
	intern := func(s string) langterm.Term { return langterm.Term(pool.GetOrIntern(s)) }

	g := etygraph.New()
	root := g.Add(etygraph.Item{Lang: inePro, Term: intern("men-")})
	mid := g.Add(etygraph.Item{Lang: enm, Term: intern("remembren")})
	leaf := g.Add(etygraph.Item{Lang: en, Term: intern("remember")})

	zero := 0
	g.AddEty(mid, templates.ModeInherited, &zero, []etygraph.ItemID{root}, []float64{1})
	g.AddEty(leaf, templates.ModeInherited, &zero, []etygraph.ItemID{mid}, []float64{1})

	return pool, g, langs
}

func TestEncodeDecodeRoundTripsGraphAndDerivedViews(t *testing.T) {
	pool, g, langs := buildFixture(t)
	blob := Build(pool, g, langs)

	data, err := Encode(blob)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(blob, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeIsDeterministicAcrossRuns(t *testing.T) {
	pool, g, langs := buildFixture(t)
	blob := Build(pool, g, langs)

	a, err := Encode(blob)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(blob)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytesEqual(a, b) {
		t.Fatal("expected two encodes of the same blob to produce identical bytes")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRehydrateRestoresSymbolIdentity(t *testing.T) {
	pool, g, langs := buildFixture(t)
	blob := Build(pool, g, langs)

	restoredPool, restoredGraph := blob.Rehydrate()
	if restoredPool.Len() != pool.Len() {
		t.Fatalf("expected %d interned strings, got %d", pool.Len(), restoredPool.Len())
	}
	if restoredGraph.Len() != g.Len() {
		t.Fatalf("expected %d nodes, got %d", g.Len(), restoredGraph.Len())
	}
}
