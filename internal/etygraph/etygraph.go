// Package etygraph implements the etymology graph assembler of
// spec.md §4.8: a concrete adjacency structure over Item nodes, with
// confidence-based edge replacement, greedy feedback-arc-set cycle
// removal, and the progenitor/head-progeny derived views the graph
// output (§6) serializes.
//
// Ground: no graph library is wired here (see DESIGN.md) — the
// teacher repo favors concrete, inspectable structs over generic
// containers (e.g. internal/store.VectorEntry), so the graph is a
// plain slice-of-nodes-plus-adjacency-lists rather than a generic
// graph package, matching that house style.
package etygraph

import (
	"sort"

	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/templates"
)

// ItemID is a dense, append-only index into a Graph's node slice.
type ItemID uint32

// Item is an etymologically distinct item: either a Real item backed
// by a dump record, or an Imputed item the disambiguator invented
// because no real item matched a referenced langterm closely enough.
type Item struct {
	EtyNum          uint8
	Lang            lang.Lang
	Term            langterm.Term
	Pos             []string // empty for an Imputed item
	Gloss           []string // empty for an Imputed item
	PageTerm        *langterm.Term
	Romanization    *langterm.Term
	IsReconstructed bool
	Imputed         bool
	ImputedFrom     ItemID // only meaningful when Imputed
	DebugID         string // uuid.New().String(), stamped only on Imputed items
}

// IsImputed reports whether the item was invented by the
// disambiguator rather than read from the dump.
func (it *Item) IsImputed() bool { return it.Imputed }

// RootPos is the part-of-speech Wiktionary uses for root-only pages
// (e.g. a PIE root page with no Etymology section), the special case
// AddReal must split into a distinct item rather than merge.
const RootPos = "root"

// Edge is one etymological parent link out of a child item.
type Edge struct {
	Mode       templates.EtyMode
	Order      uint8 // position among this item's parents at insertion time
	Head       bool  // whether this parent is the morphological head
	Confidence float64
	Target     ItemID // the parent
}

// Graph is the directed graph of etymological relationships: an edge
// runs from a child item to each of its etymological parents.
type Graph struct {
	nodes []Item
	out   [][]Edge // out[child] = parent edges, in Order
	in    [][]Edge // in[parent] = {Target: child} edges pointing at it
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{}
}

// Add appends item as a new node and returns its id.
func (g *Graph) Add(item Item) ItemID {
	id := ItemID(len(g.nodes))
	g.nodes = append(g.nodes, item)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id
}

// Get returns the item previously added as id.
func (g *Graph) Get(id ItemID) *Item {
	return &g.nodes[id]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Iter calls fn for every (id, item) pair in id order.
func (g *Graph) Iter(fn func(ItemID, *Item)) {
	for i := range g.nodes {
		fn(ItemID(i), &g.nodes[i])
	}
}

// GraphData is Graph's serializable snapshot: the node arena plus the
// forward adjacency lists, enough to rebuild the reverse lists on
// load. Ground: spec.md §6's graph output blob.
type GraphData struct {
	Nodes []Item
	Out   [][]Edge
}

// Snapshot returns g's serializable form.
func (g *Graph) Snapshot() GraphData {
	nodes := make([]Item, len(g.nodes))
	copy(nodes, g.nodes)
	out := make([][]Edge, len(g.out))
	for i, edges := range g.out {
		out[i] = append([]Edge(nil), edges...)
	}
	return GraphData{Nodes: nodes, Out: out}
}

// FromData rebuilds a Graph from a snapshot, recomputing the reverse
// adjacency lists from Out.
func FromData(data GraphData) *Graph {
	g := &Graph{
		nodes: append([]Item(nil), data.Nodes...),
		out:   make([][]Edge, len(data.Out)),
		in:    make([][]Edge, len(data.Nodes)),
	}
	for i, edges := range data.Out {
		g.out[i] = append([]Edge(nil), edges...)
		for _, e := range edges {
			g.in[e.Target] = append(g.in[e.Target], Edge{
				Mode: e.Mode, Order: e.Order, Head: e.Head, Confidence: e.Confidence, Target: ItemID(i),
			})
		}
	}
	return g
}

// ImmediateEty is the set of parents immediately etymologically linked
// from one item, in template-argument order.
type ImmediateEty struct {
	Items []ItemID
	Head  *ItemID
	Mode  templates.EtyMode
}

// ImmediateEty returns item's immediate etymological parents, or
// ok=false if item has none.
func (g *Graph) ImmediateEty(item ItemID) (ImmediateEty, bool) {
	edges := g.out[item]
	if len(edges) == 0 {
		return ImmediateEty{}, false
	}
	items := make([]ItemID, len(edges))
	var head *ItemID
	var mode templates.EtyMode
	for _, e := range edges {
		items[e.Order] = e.Target
		mode = e.Mode
		if e.Head {
			h := e.Target
			head = &h
		}
	}
	return ImmediateEty{Items: items, Head: head, Mode: mode}, true
}

// AddEty links item to ety_items as its etymological parents, with
// mode/head describing the relationship and confidences[i] the
// disambiguation confidence for ety_items[i]. A StableGraph-style
// multi-edge guard applies: if item already has parent edges, the new
// set only replaces them when its minimum confidence exceeds the old
// set's maximum; otherwise AddEty is a no-op (§4.8).
func (g *Graph) AddEty(item ItemID, mode templates.EtyMode, head *int, etyItems []ItemID, confidences []float64) {
	if old := g.out[item]; len(old) > 0 {
		minNew := confidences[0]
		for _, c := range confidences[1:] {
			if c < minNew {
				minNew = c
			}
		}
		maxOld := old[0].Confidence
		for _, e := range old[1:] {
			if e.Confidence > maxOld {
				maxOld = e.Confidence
			}
		}
		if minNew <= maxOld {
			return
		}
		g.removeOutEdges(item)
	}

	edges := make([]Edge, len(etyItems))
	for i, target := range etyItems {
		edges[i] = Edge{
			Mode:       mode,
			Order:      uint8(i),
			Head:       head != nil && *head == i,
			Confidence: confidences[i],
			Target:     target,
		}
	}
	g.out[item] = edges
	for _, e := range edges {
		g.in[e.Target] = append(g.in[e.Target], Edge{
			Mode: e.Mode, Order: e.Order, Head: e.Head, Confidence: e.Confidence, Target: item,
		})
	}
}

// removeOutEdges deletes all of item's current parent edges, fixing up
// the reverse adjacency lists of their targets.
func (g *Graph) removeOutEdges(item ItemID) {
	for _, e := range g.out[item] {
		g.in[e.Target] = removeEdgeTo(g.in[e.Target], item)
	}
	g.out[item] = nil
}

func removeEdgeTo(edges []Edge, target ItemID) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.Target != target {
			out = append(out, e)
		}
	}
	return out
}

// Progenitors are the terminal (parent-less) items at the root of an
// item's ancestry tree, plus the one reached by always following the
// head parent (when that chain itself terminates in one).
type Progenitors struct {
	Items []ItemID
	Head  *ItemID
}

// Progenitors computes item's Progenitors, or ok=false if item has no
// etymological parents at all.
func (g *Graph) Progenitors(item ItemID) (Progenitors, bool) {
	immediate, ok := g.ImmediateEty(item)
	if !ok {
		return Progenitors{}, false
	}
	head := immediate.Head
	seen := map[ItemID]bool{}
	unexpanded := append([]ItemID(nil), immediate.Items...)
	for len(unexpanded) > 0 {
		n := len(unexpanded) - 1
		cur := unexpanded[n]
		unexpanded = unexpanded[:n]
		if next, ok := g.ImmediateEty(cur); ok {
			if head != nil && *head == cur && next.Head != nil {
				head = next.Head
			}
			unexpanded = append(unexpanded, next.Items...)
		} else {
			seen[cur] = true
		}
	}
	items := make([]ItemID, 0, len(seen))
	for id := range seen {
		items = append(items, id)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return Progenitors{Items: items, Head: head}, true
}

// RemoveCycles removes every cycle in the graph. It walks the graph
// depth-first in node-id order; any edge to a node currently on the
// DFS stack (a back edge) marks that edge's source as part of the
// feedback arc set. For every such source, ALL of its outgoing edges
// are dropped (not just the back edge itself), so no item is left with
// a degenerate partial etymology once cycles are broken (§4.8).
func (g *Graph) RemoveCycles() {
	const white, gray, black = 0, 1, 2
	color := make([]uint8, len(g.nodes))
	fasSources := map[ItemID]bool{}

	var visit func(ItemID)
	visit = func(u ItemID) {
		color[u] = gray
		for _, e := range g.out[u] {
			switch color[e.Target] {
			case gray:
				fasSources[u] = true
			case white:
				visit(e.Target)
			}
		}
		color[u] = black
	}
	for i := range g.nodes {
		if color[i] == white {
			visit(ItemID(i))
		}
	}

	sources := make([]ItemID, 0, len(fasSources))
	for src := range fasSources {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	for _, src := range sources {
		g.removeOutEdges(src)
	}
}

// HeadChildren returns the items for which item is the head parent.
func (g *Graph) HeadChildren(item ItemID) []ItemID {
	var children []ItemID
	for _, e := range g.in[item] {
		if e.Head {
			children = append(children, e.Target)
		}
	}
	return children
}

// HeadProgenyLangs returns the set of languages reachable from item by
// following head-parentage edges downward (i.e. every lang that has at
// least one item descended from item through the head chain), or
// ok=false if item has no head children.
func (g *Graph) HeadProgenyLangs(langs *lang.Registry, item ItemID) ([]lang.Lang, bool) {
	seen := map[lang.Lang]bool{}
	unexpanded := g.HeadChildren(item)
	for len(unexpanded) > 0 {
		n := len(unexpanded) - 1
		cur := unexpanded[n]
		unexpanded = unexpanded[:n]
		seen[g.Get(cur).Lang] = true
		unexpanded = append(unexpanded, g.HeadChildren(cur)...)
	}
	if len(seen) == 0 {
		return nil, false
	}
	out := make([]lang.Lang, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}
