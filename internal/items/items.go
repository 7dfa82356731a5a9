// Package items implements the item store of spec.md §4.5: dedup
// buckets keyed by (lang, term), dense per-langterm ety numbering, and
// the merge/insert rules AddReal and AddImputed apply when a langterm
// has already been seen.
//
// Ground: the teacher's own store package (internal/store) models a
// different domain (vector/session persistence); this package instead
// follows the original processor's items.rs Items/Dupes split, wrapped
// around an etygraph.Graph exactly the way Items wraps EtyGraph there.
package items

import (
	"github.com/google/uuid"

	"wetygraph/internal/etygraph"
	"wetygraph/internal/langterm"
	"wetygraph/internal/templates"
)

// ItemID re-exports etygraph's node identifier so callers don't need
// to import etygraph just to hold one.
type ItemID = etygraph.ItemID

// Store owns the etymology graph's node arena and the dedup indexes
// used to resolve a (lang, term) query to the item(s) that share it.
type Store struct {
	Graph         *etygraph.Graph
	dupes         map[langterm.LangTerm][]ItemID
	pageTermDupes map[langterm.LangTerm][]ItemID

	rawEty  map[ItemID]templates.RawEtymology
	rawDesc map[ItemID]templates.RawDescendants
	rawRoot map[ItemID]templates.RawRoot
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		Graph:         etygraph.New(),
		dupes:         make(map[langterm.LangTerm][]ItemID),
		pageTermDupes: make(map[langterm.LangTerm][]ItemID),
		rawEty:        make(map[ItemID]templates.RawEtymology),
		rawDesc:       make(map[ItemID]templates.RawDescendants),
		rawRoot:       make(map[ItemID]templates.RawRoot),
	}
}

// SetRawEtymology records item's unresolved etymology templates, to be
// disambiguated in pass 3 and consulted by GetItemsNeedingEmbedding.
func (s *Store) SetRawEtymology(item ItemID, ety templates.RawEtymology) { s.rawEty[item] = ety }

// SetRawDescendants records item's unresolved descendants tree.
func (s *Store) SetRawDescendants(item ItemID, desc templates.RawDescendants) {
	s.rawDesc[item] = desc
}

// SetRawRoot records item's unresolved root template.
func (s *Store) SetRawRoot(item ItemID, root templates.RawRoot) { s.rawRoot[item] = root }

// RawEtymology returns item's recorded raw etymology, if any.
func (s *Store) RawEtymology(item ItemID) (templates.RawEtymology, bool) {
	e, ok := s.rawEty[item]
	return e, ok
}

// RawDescendants returns item's recorded raw descendants tree, if any.
func (s *Store) RawDescendants(item ItemID) (templates.RawDescendants, bool) {
	d, ok := s.rawDesc[item]
	return d, ok
}

// RawRoot returns item's recorded raw root template, if any.
func (s *Store) RawRoot(item ItemID) (templates.RawRoot, bool) {
	r, ok := s.rawRoot[item]
	return r, ok
}

// Len returns the number of items in the store.
func (s *Store) Len() int { return s.Graph.Len() }

// Get returns a previously added item.
func (s *Store) Get(id ItemID) *etygraph.Item { return s.Graph.Get(id) }

// Iter calls fn for every (id, item) pair in insertion order.
func (s *Store) Iter(fn func(ItemID, *etygraph.Item)) { s.Graph.Iter(fn) }

// GetDupes returns every item sharing langterm, checking the term-dupe
// index first and falling back to the page-term index (an item whose
// page title, stripped of diacritics, differs from its cited term).
func (s *Store) GetDupes(lt langterm.LangTerm) ([]ItemID, bool) {
	if ids, ok := s.dupes[lt]; ok {
		return ids, true
	}
	ids, ok := s.pageTermDupes[lt]
	return ids, ok
}

func (s *Store) addPageTermDupe(lt langterm.LangTerm, id ItemID) {
	s.pageTermDupes[lt] = append(s.pageTermDupes[lt], id)
}

// TermDupes returns only the term-keyed dedup bucket for lt, without
// falling back to the page-term index. The disambiguator (§4.7) tries
// these two buckets as separate candidate pools in order, rather than
// treating GetDupes' merged view as a single candidate set.
func (s *Store) TermDupes(lt langterm.LangTerm) ([]ItemID, bool) {
	ids, ok := s.dupes[lt]
	return ids, ok
}

// PageTermDupes returns only the page-term-keyed dedup bucket for lt.
func (s *Store) PageTermDupes(lt langterm.LangTerm) ([]ItemID, bool) {
	ids, ok := s.pageTermDupes[lt]
	return ids, ok
}

// AddReal inserts a Real item, merging it into an existing item of the
// same (lang, term, etyNum) unless both are pos "root" — the special
// case of PIE root pages carrying multiple distinct "Root" sections
// with no Etymology header, which all nominally share etyNum 1 but are
// in fact etymologically distinct. The returned bool is true when a
// new ItemID was minted, false when item was merged into an existing one.
func (s *Store) AddReal(item etygraph.Item, pageTerm *langterm.Term) (ItemID, bool) {
	lt := langterm.LangTerm{Lang: item.Lang, Term: item.Term}
	var pageLT *langterm.LangTerm
	if pageTerm != nil {
		plt := langterm.LangTerm{Lang: item.Lang, Term: *pageTerm}
		pageLT = &plt
	}

	dupes, seen := s.dupes[lt]
	if seen {
		maxEty := uint8(0)
		var sameEtyID ItemID
		haveSameEty := false
		for _, id := range dupes {
			other := s.Get(id)
			if other.EtyNum == item.EtyNum {
				sameEtyID, haveSameEty = id, true
			}
			if other.EtyNum > maxEty {
				maxEty = other.EtyNum
			}
		}
		if haveSameEty {
			same := s.Get(sameEtyID)
			newIsRoot := len(item.Pos) > 0 && item.Pos[0] == etygraph.RootPos
			sameHasRoot := hasPos(same.Pos, etygraph.RootPos)
			if !(newIsRoot && sameHasRoot) {
				if len(item.Pos) > 0 {
					same.Pos = append(same.Pos, item.Pos[0])
				}
				if len(item.Gloss) > 0 {
					same.Gloss = append(same.Gloss, item.Gloss[0])
				}
				return sameEtyID, false
			}
		}
		item.EtyNum = maxEty + 1
		id := s.Graph.Add(item)
		s.dupes[lt] = append(s.dupes[lt], id)
		if pageLT != nil {
			s.addPageTermDupe(*pageLT, id)
		}
		return id, true
	}

	id := s.Graph.Add(item)
	s.dupes[lt] = []ItemID{id}
	if pageLT != nil {
		s.addPageTermDupe(*pageLT, id)
	}
	return id, true
}

func hasPos(pos []string, target string) bool {
	for _, p := range pos {
		if p == target {
			return true
		}
	}
	return false
}

// AddImputed inserts an Imputed item, densely numbering it past any
// real or imputed items already seen at the same langterm.
func (s *Store) AddImputed(item etygraph.Item) ItemID {
	item.Imputed = true
	item.DebugID = uuid.New().String()
	lt := langterm.LangTerm{Lang: item.Lang, Term: item.Term}

	if dupes, seen := s.dupes[lt]; seen {
		maxEty := uint8(0)
		for _, id := range dupes {
			if e := s.Get(id).EtyNum; e > maxEty {
				maxEty = e
			}
		}
		item.EtyNum = maxEty + 1
		id := s.Graph.Add(item)
		s.dupes[lt] = append(s.dupes[lt], id)
		return id
	}

	item.EtyNum = 1
	id := s.Graph.Add(item)
	s.dupes[lt] = []ItemID{id}
	return id
}

// ancestorStack tracks, per current descendants-tree depth, the most
// recent set of candidate items that could be the parent of a line at
// a given depth — the frontier a new shallower depth prunes back to.
// Ground: descendants.rs's generic Ancestors<T>, specialized here to
// T = []ItemID (the only instantiation the original ever used).
type ancestorStack struct {
	items  [][]ItemID
	depths []int
}

func newAncestorStack(item ItemID) *ancestorStack {
	return &ancestorStack{items: [][]ItemID{{item}}, depths: []int{0}}
}

func (a *ancestorStack) pruneAndGetParent(depth int) []ItemID {
	for len(a.depths) > 1 && depth <= a.depths[len(a.depths)-1] {
		a.items = a.items[:len(a.items)-1]
		a.depths = a.depths[:len(a.depths)-1]
	}
	return a.items[len(a.items)-1]
}

func (a *ancestorStack) add(items []ItemID, depth int) {
	a.items = append(a.items, items)
	a.depths = append(a.depths, depth)
}

func insertAll(set map[ItemID]bool, ids []ItemID) {
	for _, id := range ids {
		set[id] = true
	}
}

// etyItemsNeedingEmbedding walks item's raw etymology templates,
// chaining each template's candidate ety-items forward as the next
// template's "parent" set, and flags every item along a chain that
// touches an ambiguous (len > 1) or as-yet-unseen langterm as needing
// an embedding so the disambiguator can later compare it.
//
// Ground: etymology.rs get_ety_items_needing_embedding.
func (s *Store) etyItemsNeedingEmbedding(item ItemID, ety templates.RawEtymology) map[ItemID]bool {
	needing := map[ItemID]bool{}
	parents := []ItemID{item}
	for _, tmpl := range ety.Templates {
		var ambiguous, imputedChild bool
		var next []ItemID
		for _, lt := range tmpl.LangTerms {
			ltKey := langterm.LangTerm{Lang: lt.Lang, Term: lt.Term}
			if candidates, ok := s.GetDupes(ltKey); ok {
				if len(candidates) > 1 {
					ambiguous = true
					insertAll(needing, candidates)
				}
				next = append(next, candidates...)
			} else {
				imputedChild = true
			}
		}
		if ambiguous || imputedChild {
			insertAll(needing, parents)
		}
		parents = next
	}
	return needing
}

// descItemsNeedingEmbedding mirrors etyItemsNeedingEmbedding for a
// descendants tree, using an ancestorStack to track each line's
// candidate parent set by depth rather than a flat template sequence.
//
// Ground: descendants.rs get_desc_items_needing_embedding.
func (s *Store) descItemsNeedingEmbedding(item ItemID, desc templates.RawDescendants) map[ItemID]bool {
	needing := map[ItemID]bool{}
	ancestors := newAncestorStack(item)
	for _, line := range desc.Lines {
		possibleParents := ancestors.pruneAndGetParent(line.Depth)
		if line.Kind != templates.DescLineDesc {
			continue
		}
		var ambiguous, imputedChild bool
		for i, term := range line.Desc.Terms {
			ltKey := langterm.LangTerm{Lang: line.Desc.Lang, Term: term}
			candidates, ok := s.GetDupes(ltKey)
			if !ok {
				imputedChild = true
				continue
			}
			if i == 0 {
				ancestors.add(candidates, line.Depth)
			}
			if len(candidates) > 1 {
				ambiguous = true
				insertAll(needing, candidates)
			}
		}
		if ambiguous || imputedChild {
			insertAll(needing, possibleParents)
		}
	}
	return needing
}

// GetItemsNeedingEmbedding returns the set of items that must have an
// embedding computed before pass 3 can disambiguate item's raw
// etymology, descendants, and root templates. Items are flagged only
// around an ambiguous (more than one candidate) or not-yet-seen
// reference: the candidates themselves, plus the item or chain parents
// they would be compared against. A section whose references all
// resolve to a single existing candidate flags nothing.
func (s *Store) GetItemsNeedingEmbedding(item ItemID) map[ItemID]bool {
	needing := map[ItemID]bool{}
	if ety, ok := s.RawEtymology(item); ok {
		for id := range s.etyItemsNeedingEmbedding(item, ety) {
			needing[id] = true
		}
	}
	if desc, ok := s.RawDescendants(item); ok {
		for id := range s.descItemsNeedingEmbedding(item, desc) {
			needing[id] = true
		}
	}
	if root, ok := s.RawRoot(item); ok {
		rootKey := langterm.LangTerm{Lang: root.LangTerm.Lang, Term: root.LangTerm.Term}
		if rootItems, ok := s.GetDupes(rootKey); ok && len(rootItems) > 1 {
			needing[item] = true
			insertAll(needing, rootItems)
		}
	}
	return needing
}

// GetAllItemsNeedingEmbedding returns the union of GetItemsNeedingEmbedding
// across every item in the store, the full candidate set pass 2 embeds.
func (s *Store) GetAllItemsNeedingEmbedding() map[ItemID]bool {
	needing := map[ItemID]bool{}
	s.Iter(func(id ItemID, _ *etygraph.Item) {
		for other := range s.GetItemsNeedingEmbedding(id) {
			needing[other] = true
		}
	})
	return needing
}
