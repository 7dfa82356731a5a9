// Package disambig implements the disambiguator of spec.md §4.7:
// resolving a referenced langterm to the concrete item it most likely
// names, falling back to inventing (imputing) one when no real
// candidate is close enough.
//
// Ground: items.rs's Items::get_disambiguated_item_id/get_or_impute_item
// (original_source/processor/src/items.rs) — this package is the Go
// home for that logic, kept out of internal/items itself so the item
// store has no dependency on the embedding manager (the package split
// recorded in DESIGN.md).
package disambig

import (
	"wetygraph/internal/embedding"
	"wetygraph/internal/etygraph"
	"wetygraph/internal/items"
	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/logging"
	"wetygraph/internal/redirects"
)

// DefaultSimilarityThreshold is the minimum cosine similarity a
// candidate must reach to be accepted instead of triggering
// imputation, absent an operator override (SPEC_FULL.md §4's Open
// Question decision: accept the best candidate whenever one exists).
const DefaultSimilarityThreshold = 0.0

// Context is the similarity comparand a candidate item is measured
// against: either a single item's embedding, or an ancestor chain, the
// two shapes embedding.Similarity/AncestorSimilarity accept.
type Context interface {
	similarityTo(candidate embedding.ItemEmbedding) float64
}

// ItemContext compares a candidate against one fixed item embedding
// (used when resolving an etymology template's own referenced parent).
type ItemContext struct{ Embedding embedding.ItemEmbedding }

func (c ItemContext) similarityTo(candidate embedding.ItemEmbedding) float64 {
	return embedding.Similarity(c.Embedding, candidate)
}

// AncestorContext compares a candidate against an ancestor chain
// (proto-most first, immediate parent last), used when resolving a
// descendants-tree line against its accumulated ancestor frontier.
// Discount is the per-hop decay AncestorSimilarity applies; zero falls
// back to embedding.DefaultAncestorDiscount.
type AncestorContext struct {
	Chain    []embedding.ItemEmbedding
	Discount float64
}

func (c AncestorContext) similarityTo(candidate embedding.ItemEmbedding) float64 {
	return embedding.AncestorSimilarity(candidate, c.Chain, c.Discount)
}

// Resolver disambiguates langterm references against an item store,
// applying redirect rectification before every lookup.
type Resolver struct {
	Items      *items.Store
	Embeddings *embedding.Manager
	Redirects  *redirects.Table
	Langs      *lang.Registry

	// Threshold is the minimum similarity a candidate must reach to be
	// accepted rather than triggering imputation. Defaults to 0.0
	// (accept the best candidate whenever one exists) per SPEC_FULL.md
	// §4's Open Question decision.
	Threshold float64
}

// Resolve finds the best real candidate item for lt under ctx, or
// ok=false if lt has no real candidates at all or none clears
// Threshold. Ground: get_disambiguated_item_id, which tries the
// term-keyed dupe bucket first and only falls back to the page-term
// bucket if the term bucket yields no acceptable candidate.
func (r *Resolver) Resolve(lt langterm.LangTerm, ctx Context) (etygraph.ItemID, float64, bool) {
	rectified := r.Redirects.Rectify(r.Langs, lt)

	if candidates, ok := r.Items.TermDupes(rectified); ok {
		if id, sim, ok := r.bestCandidate(candidates, ctx); ok {
			return id, sim, true
		}
	}
	if candidates, ok := r.Items.PageTermDupes(rectified); ok {
		if id, sim, ok := r.bestCandidate(candidates, ctx); ok {
			return id, sim, true
		}
	}
	return 0, 0, false
}

func (r *Resolver) bestCandidate(candidates []etygraph.ItemID, ctx Context) (etygraph.ItemID, float64, bool) {
	var best etygraph.ItemID
	var bestSim float64
	found := false
	for _, candidate := range candidates {
		sim := ctx.similarityTo(r.Embeddings.Get(candidate))
		if !found || sim > bestSim {
			best, bestSim, found = candidate, sim, true
		}
	}
	if !found || bestSim < r.Threshold {
		return 0, 0, false
	}
	return best, bestSim, true
}

// GetOrImpute resolves lt, imputing a new item parented at fromItem
// when no real candidate clears Threshold. An imputed item's edge
// confidence is reported as exactly Threshold, so it competes on equal
// footing with a freshly-accepted real match in AddEty's min/max
// confidence comparison (recorded once here per SPEC_FULL.md §4's
// Open Question decision, rather than re-derived at each call site).
func (r *Resolver) GetOrImpute(lt langterm.LangTerm, fromItem etygraph.ItemID, ctx Context) (id etygraph.ItemID, confidence float64, isNew bool) {
	if id, sim, ok := r.Resolve(lt, ctx); ok {
		return id, sim, false
	}
	imputed := etygraph.Item{
		Lang:        lt.Lang,
		Term:        lt.Term,
		ImputedFrom: fromItem,
	}
	id = r.Items.AddImputed(imputed)
	logging.Get(logging.CategoryDisambig).Debug("imputed item %d for unresolved langterm from item %d", id, fromItem)
	return id, r.Threshold, true
}
