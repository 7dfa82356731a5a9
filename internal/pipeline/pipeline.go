// Package pipeline implements the three-pass driver of spec.md §4.9:
// pass 1 ingests the dump into the item store and redirect table,
// pass 2 embeds every item the disambiguator will need to compare,
// and pass 3 resolves raw etymology/descendants/root templates into
// graph edges and removes cycles.
//
// Ground: original_source/processor/src/main.rs's three-phase
// generate_ety_graph driver (read via items.rs/etymology.rs/
// descendants.rs) — this package is the Go home for that overall
// control flow, one step per spec.md §4.9's pseudocode block.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"wetygraph/internal/disambig"
	"wetygraph/internal/embedding"
	"wetygraph/internal/etygraph"
	"wetygraph/internal/items"
	"wetygraph/internal/lang"
	"wetygraph/internal/langterm"
	"wetygraph/internal/logging"
	"wetygraph/internal/redirects"
	"wetygraph/internal/strpool"
	"wetygraph/internal/templates"
	"wetygraph/internal/wikitext"
)

// Driver owns every component one pass through the dump touches. The
// graph itself is reachable via Items.Graph, so it isn't named here
// separately.
type Driver struct {
	Pool       *strpool.Pool
	Langs      *lang.Registry
	Redirects  *redirects.Table
	Items      *items.Store
	Embeddings *embedding.Manager
	Resolver   *disambig.Resolver

	// lineItem maps a pass 1 dump-line index to the item it produced
	// (invalid for redirect lines and lines pass 1 skipped), so pass 2
	// can re-walk the same dump without re-deciding dedup merges.
	lineItem []itemRef

	// ancestorDiscount is the per-hop decay passed to every
	// disambig.AncestorContext this driver builds (spec.md §4.6).
	ancestorDiscount float64
}

type itemRef struct {
	id    etygraph.ItemID
	valid bool
}

// New creates a Driver with a fresh item store and redirect table over
// the given pool, language registry, and embedding manager/resolver.
// ancestorDiscount <= 0 falls back to embedding.DefaultAncestorDiscount.
func New(pool *strpool.Pool, langs *lang.Registry, mgr *embedding.Manager, threshold, ancestorDiscount float64) *Driver {
	store := items.New()
	redirectTable := redirects.New()
	return &Driver{
		Pool:       pool,
		Langs:      langs,
		Redirects:  redirectTable,
		Items:      store,
		Embeddings: mgr,
		Resolver: &disambig.Resolver{
			Items:      store,
			Embeddings: mgr,
			Redirects:  redirectTable,
			Langs:      langs,
			Threshold:  threshold,
		},
		ancestorDiscount: ancestorDiscount,
	}
}

// Pass1 scans src once, routing each line to the redirect table or the
// item store and recording every record's raw etymology/descendants/
// root templates for pass 3 (spec.md §4.9).
func (d *Driver) Pass1(src wikitext.LineSource) error {
	timer := logging.StartTimer(logging.CategoryPipeline, "pass1")
	defer timer.Stop()

	var malformed, unknownLang int
	var skipErrs error
	lineNo := 0
	for {
		line, ok, err := src.Next()
		if err != nil {
			return fmt.Errorf("pipeline: pass1: %w", err)
		}
		if !ok {
			break
		}
		lineNo++

		rec, err := wikitext.Decode(line)
		if err != nil {
			malformed++
			skipErrs = multierr.Append(skipErrs, fmt.Errorf("line %d: malformed record: %w", lineNo, err))
			d.lineItem = append(d.lineItem, itemRef{})
			continue
		}

		if rec.IsRedirect() {
			d.Redirects.Add(d.Pool, d.Langs, rec.Title, rec.Redirect)
			d.lineItem = append(d.lineItem, itemRef{})
			continue
		}

		l, ok := d.Langs.ByCode(rec.LangCode)
		if !ok {
			unknownLang++
			skipErrs = multierr.Append(skipErrs, fmt.Errorf("line %d: unknown language code %q", lineNo, rec.LangCode))
			d.lineItem = append(d.lineItem, itemRef{})
			continue
		}

		id := d.addItem(l, &rec)
		d.lineItem = append(d.lineItem, itemRef{id: id, valid: true})

		if ety, ok := templates.ParseEtymology(d.Pool, d.Langs, &rec, l); ok {
			d.Items.SetRawEtymology(id, ety)
		}
		if desc, ok := templates.ParseDescendants(d.Pool, d.Langs, &rec); ok {
			d.Items.SetRawDescendants(id, desc)
		}
		if root, ok := templates.ParseRoot(d.Pool, d.Langs, &rec, l); ok {
			d.Items.SetRawRoot(id, root)
		}
	}

	log := logging.Get(logging.CategoryIngest)
	log.Info("pass1: ingested %d items (%d malformed lines skipped, %d unknown-lang lines skipped)",
		d.Items.Len(), malformed, unknownLang)
	// Skip reasons are combined into one summary rather than logged per
	// line (spec.md §7: the driver doesn't log every skip).
	if skipErrs != nil {
		log.Debug("pass1: skip summary: %v", skipErrs)
	}
	return nil
}

func (d *Driver) addItem(l lang.Lang, rec *wikitext.Record) etygraph.ItemID {
	term := d.Pool.GetOrIntern(rec.Word)
	etyNum := uint8(rec.EtymologyNumber)
	if etyNum == 0 {
		etyNum = 1
	}

	var pageTerm *langterm.Term
	if rec.Title != "" && rec.Title != rec.Word {
		pt := langterm.Term(d.Pool.GetOrIntern(rec.Title))
		pageTerm = &pt
	}

	item := etygraph.Item{
		EtyNum:          etyNum,
		Lang:            l,
		Term:            langterm.Term(term),
		Pos:             firstNonEmpty(rec.Pos),
		Gloss:           firstGloss(rec),
		PageTerm:        pageTerm,
		IsReconstructed: d.Langs.Reconstructed(l),
	}
	id, _ := d.Items.AddReal(item, pageTerm)
	return id
}

func firstNonEmpty(pos string) []string {
	if pos == "" {
		return nil
	}
	return []string{pos}
}

func firstGloss(rec *wikitext.Record) []string {
	for _, sense := range rec.Senses {
		if len(sense.Glosses) > 0 && sense.Glosses[0] != "" {
			return []string{sense.Glosses[0]}
		}
	}
	return nil
}

// Pass2 re-walks src, embedding the ety text and glosses text of every
// item GetAllItemsNeedingEmbedding flags, then flushes the batch
// (spec.md §4.9 and §4.6).
func (d *Driver) Pass2(ctx context.Context, src wikitext.LineSource) error {
	timer := logging.StartTimer(logging.CategoryPipeline, "pass2")
	defer timer.Stop()

	needing := d.Items.GetAllItemsNeedingEmbedding()
	logging.Get(logging.CategoryEmbed).Info("pass2: %d items need an embedding", len(needing))

	idx := 0
	for {
		line, ok, err := src.Next()
		if err != nil {
			return fmt.Errorf("pipeline: pass2: %w", err)
		}
		if !ok {
			break
		}
		ref := itemRef{}
		if idx < len(d.lineItem) {
			ref = d.lineItem[idx]
		}
		idx++
		if !ref.valid || !needing[ref.id] {
			continue
		}

		rec, err := wikitext.Decode(line)
		if err != nil {
			continue
		}
		if etyText := etyEmbedText(d.Langs, &rec); etyText != "" {
			if err := d.Embeddings.UpdateEty(ctx, ref.id, etyText); err != nil {
				return fmt.Errorf("pipeline: pass2: update ety: %w", err)
			}
		}
		if glossesText := glossesEmbedText(&rec); glossesText != "" {
			if err := d.Embeddings.UpdateGlosses(ctx, ref.id, glossesText); err != nil {
				return fmt.Errorf("pipeline: pass2: update glosses: %w", err)
			}
		}
	}
	return d.Embeddings.Flush(ctx)
}

// etyEmbedText builds the "{lang} {term}. {etymology text}" string
// spec.md §4.6 specifies as an item's ety embedding input.
func etyEmbedText(langs *lang.Registry, rec *wikitext.Record) string {
	if rec.EtymologyText == "" {
		return ""
	}
	l, ok := langs.ByCode(rec.LangCode)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s. %s", langs.Name(l), rec.Word, rec.EtymologyText)
}

// glossesEmbedText joins each sense's first gloss, space-separated,
// the glosses embedding input of spec.md §4.6.
func glossesEmbedText(rec *wikitext.Record) string {
	var parts []string
	for _, sense := range rec.Senses {
		if len(sense.Glosses) > 0 && sense.Glosses[0] != "" {
			parts = append(parts, sense.Glosses[0])
		}
	}
	return strings.Join(parts, " ")
}

// Pass3 resolves every item's raw templates into graph edges, running
// RemoveCycles after each of the three stages spec.md §4.9 names
// (descendants, etymologies, root imputation) since each stage can
// introduce new cycles the next stage must not walk through.
func (d *Driver) Pass3(_ context.Context) error {
	timer := logging.StartTimer(logging.CategoryPipeline, "pass3")
	defer timer.Stop()

	d.processDescendants()
	d.Items.Graph.RemoveCycles()

	d.processEtymologies()
	d.Items.Graph.RemoveCycles()

	d.imputeRootEtys()
	d.Items.Graph.RemoveCycles()

	return nil
}

// descendantsAncestors tracks the single current-ancestor candidate at
// each descendants-tree depth, the first term of a line becoming the
// new ancestor for deeper lines beneath it (spec.md §4.9).
//
// Ground: descendants.rs's Ancestors<T> walk, specialized here to one
// item rather than items.ancestorStack's candidate-set form, since
// pass 3 resolves an exact parent rather than flags a needing-set.
type descendantsAncestors struct {
	items  []etygraph.ItemID
	langs  []lang.Lang
	depths []int
}

func newDescendantsAncestors(item etygraph.ItemID, itemLang lang.Lang) *descendantsAncestors {
	return &descendantsAncestors{items: []etygraph.ItemID{item}, langs: []lang.Lang{itemLang}, depths: []int{0}}
}

func (a *descendantsAncestors) prune(depth int) (etygraph.ItemID, []etygraph.ItemID) {
	for len(a.depths) > 1 && depth <= a.depths[len(a.depths)-1] {
		a.items = a.items[:len(a.items)-1]
		a.langs = a.langs[:len(a.langs)-1]
		a.depths = a.depths[:len(a.depths)-1]
	}
	chain := make([]etygraph.ItemID, len(a.items))
	copy(chain, a.items)
	return a.items[len(a.items)-1], chain
}

func (a *descendantsAncestors) push(item etygraph.ItemID, itemLang lang.Lang, depth int) {
	a.items = append(a.items, item)
	a.langs = append(a.langs, itemLang)
	a.depths = append(a.depths, depth)
}

func (d *Driver) ancestorEmbeddings(chain []etygraph.ItemID) []embedding.ItemEmbedding {
	out := make([]embedding.ItemEmbedding, len(chain))
	for i, id := range chain {
		out[i] = d.Embeddings.Get(id)
	}
	return out
}

// processDescendants resolves every item's descendants tree into
// child-to-parent edges, skipping compound descendant terms that stay
// within the parent's own language (§4.2's "men-" example: a
// within-language compound isn't a distinct etymological descendant,
// it's a derivative already reachable through its own etymology).
func (d *Driver) processDescendants() {
	var ids []etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, _ *etygraph.Item) { ids = append(ids, id) })

	for _, id := range ids {
		desc, ok := d.Items.RawDescendants(id)
		if !ok {
			continue
		}
		itemLang := d.Items.Get(id).Lang
		ancestors := newDescendantsAncestors(id, itemLang)

		for _, line := range desc.Lines {
			parent, chain := ancestors.prune(line.Depth)
			if line.Kind != templates.DescLineDesc {
				continue
			}
			if len(line.Desc.Terms) > 1 && line.Desc.Lang == itemLang {
				continue
			}

			ctx := disambig.AncestorContext{Chain: d.ancestorEmbeddings(chain), Discount: d.ancestorDiscount}
			for i, term := range line.Desc.Terms {
				lt := langterm.LangTerm{Lang: line.Desc.Lang, Term: term}
				childID, confidence, _ := d.Resolver.GetOrImpute(lt, parent, ctx)
				mode := templates.ModeInherited
				if i < len(line.Desc.Modes) {
					mode = line.Desc.Modes[i]
				}
				d.Items.Graph.AddEty(childID, mode, intp(0), []etygraph.ItemID{parent}, []float64{confidence})
				if i == 0 {
					ancestors.push(childID, line.Desc.Lang, line.Depth)
				}
			}
		}
	}
}

// processEtymologies resolves every item's raw etymology templates.
// Ordinarily only the first template is needed; the loop continues
// past it only to chase an imputation chain — a single-term template
// whose referenced langterm had no real candidate and whose item
// strictly descends from the imputed item's language, in which case
// the imputed item becomes the next template's subject in search of
// the nearest real ancestor.
//
// Ground: the "for now we'll just take the first template, unless
// imputation is required" comment in etymology.rs's
// process_item_raw_etymology.
func (d *Driver) processEtymologies() {
	var ids []etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, _ *etygraph.Item) { ids = append(ids, id) })

	for _, id := range ids {
		ety, ok := d.Items.RawEtymology(id)
		if !ok {
			continue
		}
		d.processItemEtymology(id, ety)
	}
}

func (d *Driver) processItemEtymology(id etygraph.ItemID, ety templates.RawEtymology) {
	current := id
	for _, tmpl := range ety.Templates {
		ctx := disambig.ItemContext{Embedding: d.Embeddings.Get(current)}
		etyItems := make([]etygraph.ItemID, len(tmpl.LangTerms))
		confidences := make([]float64, len(tmpl.LangTerms))
		chainContinues := false
		next := current
		for i, lt := range tmpl.LangTerms {
			childID, confidence, isNew := d.Resolver.GetOrImpute(lt, current, ctx)
			if isNew {
				if len(tmpl.LangTerms) == 1 && d.Langs.StrictlyDescendsFrom(d.Items.Get(current).Lang, d.Items.Get(childID).Lang) {
					// Single-term template imputing into the current
					// item's own ancestry: record the edge to the imputed
					// item, then continue the chain from it.
					chainContinues = true
					next = childID
				} else {
					// Imputed slot in a compound-kind template, or one
					// whose language doesn't descend from the item's:
					// the chain terminates cleanly here with no edge.
					return
				}
			}
			etyItems[i] = childID
			confidences[i] = confidence
		}
		d.Items.Graph.AddEty(current, tmpl.Mode, tmpl.Head, etyItems, confidences)

		if !chainContinues {
			return
		}
		current = next
	}
}

// imputeRootEtys attaches a PIE-style root template's langterm as the
// progenitor of items that don't already have one, or as an additional
// parent of the head progenitor when they do but it doesn't already
// descend from the cited root (spec.md §4.4.3/§4.9: "mnemonic" ->
// "men-" imputed through the head chain).
func (d *Driver) imputeRootEtys() {
	var ids []etygraph.ItemID
	d.Items.Iter(func(id etygraph.ItemID, _ *etygraph.Item) { ids = append(ids, id) })

	for _, id := range ids {
		root, ok := d.Items.RawRoot(id)
		if !ok {
			continue
		}
		d.imputeItemRoot(id, root)
	}
}

func (d *Driver) imputeItemRoot(id etygraph.ItemID, root templates.RawRoot) {
	itemLang := d.Items.Get(id).Lang
	ctx := disambig.ItemContext{Embedding: d.Embeddings.Get(id)}
	rootID, confidence, _ := d.Resolver.GetOrImpute(root.LangTerm, id, ctx)

	prog, hasProg := d.Items.Graph.Progenitors(id)
	if !hasProg {
		if d.Langs.StrictlyDescendsFrom(itemLang, d.Items.Get(rootID).Lang) {
			d.Items.Graph.AddEty(id, templates.ModeRoot, intp(0), []etygraph.ItemID{rootID}, []float64{confidence})
		}
		return
	}

	for _, existing := range prog.Items {
		if existing == rootID {
			return
		}
	}
	if prog.Head == nil {
		return
	}
	headLang := d.Items.Get(*prog.Head).Lang
	if !d.Langs.StrictlyDescendsFrom(headLang, d.Items.Get(rootID).Lang) {
		return
	}
	sim := embedding.Similarity(d.Embeddings.Get(*prog.Head), d.Embeddings.Get(rootID))
	d.Items.Graph.AddEty(*prog.Head, templates.ModeRoot, intp(0), []etygraph.ItemID{rootID}, []float64{sim})
}

func intp(i int) *int { return &i }
