// Package graphio implements the graph output codec of spec.md §6: a
// single self-describing blob holding the interned string pool, the
// etymology graph, and the derived progenitor/head-progeny-language
// views, so a downstream reader needs nothing but this one blob.
//
// Ground: the teacher's persistence is SQLite-resident (internal/store),
// with no single-blob analog; this component is built directly from
// spec.md §6's explicit requirement using the standard library's gob
// package — the one place this repo reaches for stdlib serialization
// instead of a third-party codec, recorded in DESIGN.md.
package graphio

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	"wetygraph/internal/etygraph"
	"wetygraph/internal/lang"
	"wetygraph/internal/strpool"
)

// Blob is the full contents of one graph-output file.
type Blob struct {
	Pool             []string
	Graph            etygraph.GraphData
	Progenitors      map[etygraph.ItemID]etygraph.Progenitors
	HeadProgenyLangs map[etygraph.ItemID][]lang.Lang
}

// Build snapshots pool and graph, and computes every item's
// progenitor set and head-progeny languages, into one Blob.
func Build(pool *strpool.Pool, graph *etygraph.Graph, langs *lang.Registry) Blob {
	blob := Blob{
		Pool:             pool.Strings(),
		Graph:            graph.Snapshot(),
		Progenitors:      make(map[etygraph.ItemID]etygraph.Progenitors),
		HeadProgenyLangs: make(map[etygraph.ItemID][]lang.Lang),
	}
	graph.Iter(func(id etygraph.ItemID, _ *etygraph.Item) {
		if prog, ok := graph.Progenitors(id); ok {
			blob.Progenitors[id] = prog
		}
		if hpl, ok := graph.HeadProgenyLangs(langs, id); ok {
			blob.HeadProgenyLangs[id] = hpl
		}
	})
	return blob
}

// Rehydrate reconstructs a usable Pool and Graph from blob.
func (b Blob) Rehydrate() (*strpool.Pool, *etygraph.Graph) {
	return strpool.FromStrings(b.Pool), etygraph.FromData(b.Graph)
}

// progenitorEntry and headProgenyEntry are the wire-format rows a map
// is flattened to before encoding, sorted by item id, so two encodes
// of the same semantic Blob produce byte-identical output (spec.md
// §8's round-trip invariant — Go map iteration order is otherwise
// unspecified and would defeat it).
type progenitorEntry struct {
	Item etygraph.ItemID
	Set  etygraph.Progenitors
}

type headProgenyEntry struct {
	Item  etygraph.ItemID
	Langs []lang.Lang
}

type wireBlob struct {
	Pool             []string
	Graph            etygraph.GraphData
	Progenitors      []progenitorEntry
	HeadProgenyLangs []headProgenyEntry
}

func toWire(b Blob) wireBlob {
	w := wireBlob{Pool: b.Pool, Graph: b.Graph}

	progIDs := make([]etygraph.ItemID, 0, len(b.Progenitors))
	for id := range b.Progenitors {
		progIDs = append(progIDs, id)
	}
	sort.Slice(progIDs, func(i, j int) bool { return progIDs[i] < progIDs[j] })
	for _, id := range progIDs {
		w.Progenitors = append(w.Progenitors, progenitorEntry{Item: id, Set: b.Progenitors[id]})
	}

	hplIDs := make([]etygraph.ItemID, 0, len(b.HeadProgenyLangs))
	for id := range b.HeadProgenyLangs {
		hplIDs = append(hplIDs, id)
	}
	sort.Slice(hplIDs, func(i, j int) bool { return hplIDs[i] < hplIDs[j] })
	for _, id := range hplIDs {
		w.HeadProgenyLangs = append(w.HeadProgenyLangs, headProgenyEntry{Item: id, Langs: b.HeadProgenyLangs[id]})
	}
	return w
}

func fromWire(w wireBlob) Blob {
	b := Blob{
		Pool:             w.Pool,
		Graph:            w.Graph,
		Progenitors:      make(map[etygraph.ItemID]etygraph.Progenitors, len(w.Progenitors)),
		HeadProgenyLangs: make(map[etygraph.ItemID][]lang.Lang, len(w.HeadProgenyLangs)),
	}
	for _, e := range w.Progenitors {
		b.Progenitors[e.Item] = e.Set
	}
	for _, e := range w.HeadProgenyLangs {
		b.HeadProgenyLangs[e.Item] = e.Langs
	}
	return b
}

// Encode gob-serializes blob into a self-contained byte slice.
func Encode(blob Blob) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toWire(blob)); err != nil {
		return nil, fmt.Errorf("graphio: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Blob, error) {
	var w wireBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return Blob{}, fmt.Errorf("graphio: decode: %w", err)
	}
	return fromWire(w), nil
}
