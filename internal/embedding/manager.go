package embedding

import (
	"context"
	"fmt"

	"wetygraph/internal/etygraph"
	"wetygraph/internal/logging"
	"wetygraph/pkg/xxhash3"
)

// DefaultBatchSize is the number of pending texts Manager.Update
// accumulates before invoking the encoder, per spec.md §4.6.
const DefaultBatchSize = 800

// DefaultAncestorDiscount is the per-ancestor-step decay
// AncestorSimilarity applies absent an operator override, compounding
// from the nearest ancestor outward (spec.md §4.6).
const DefaultAncestorDiscount = 0.95

// ItemEmbedding holds an item's two independently-cached embeddings.
// Either field may be nil if that text was empty for the item.
type ItemEmbedding struct {
	Ety     []float32
	Glosses []float32
}

// HasEty reports whether e carries an ety embedding.
func (e ItemEmbedding) HasEty() bool { return len(e.Ety) > 0 }

// Manager batches item texts into encoder calls and caches the
// resulting vectors by content hash, so identical texts (including
// identical texts reused across items) are only ever encoded once.
//
// Ground: teacher has no batching component of this shape; the
// batch-then-cache control flow here follows spec.md §4.6's update/
// flush description directly, using the teacher's Cache (sqlite) and
// logging conventions for the supporting plumbing.
type Manager struct {
	encoder   Encoder
	cache     *Cache
	batchSize int

	pendingTexts  []string
	pendingHashes []xxhash3.TextHash

	etyHash     map[etygraph.ItemID]xxhash3.TextHash
	glossesHash map[etygraph.ItemID]xxhash3.TextHash
}

// NewManager creates a Manager over encoder and cache, batching up to
// batchSize pending texts (DefaultBatchSize if batchSize <= 0).
func NewManager(encoder Encoder, cache *Cache, batchSize int) *Manager {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Manager{
		encoder:     encoder,
		cache:       cache,
		batchSize:   batchSize,
		etyHash:     make(map[etygraph.ItemID]xxhash3.TextHash),
		glossesHash: make(map[etygraph.ItemID]xxhash3.TextHash),
	}
}

// UpdateEty registers item's ety text for encoding. A cache hit records
// only the item->hash mapping; a miss queues the text and flushes the
// batch once it reaches batchSize.
func (m *Manager) UpdateEty(ctx context.Context, item etygraph.ItemID, text string) error {
	return m.update(ctx, item, text, m.etyHash)
}

// UpdateGlosses registers item's glosses text for encoding.
func (m *Manager) UpdateGlosses(ctx context.Context, item etygraph.ItemID, text string) error {
	return m.update(ctx, item, text, m.glossesHash)
}

func (m *Manager) update(ctx context.Context, item etygraph.ItemID, text string, hashes map[etygraph.ItemID]xxhash3.TextHash) error {
	if text == "" {
		return nil
	}
	hash := xxhash3.Sum(text)
	hashes[item] = hash
	if _, hit := m.cache.Get(hash); hit {
		return nil
	}
	m.pendingTexts = append(m.pendingTexts, text)
	m.pendingHashes = append(m.pendingHashes, hash)
	if len(m.pendingTexts) >= m.batchSize {
		return m.Flush(ctx)
	}
	return nil
}

// Flush encodes any partial batch and stores the results in the cache.
func (m *Manager) Flush(ctx context.Context) error {
	if len(m.pendingTexts) == 0 {
		return nil
	}
	logging.Get(logging.CategoryEmbed).Info("Flushing embedding batch of %d texts", len(m.pendingTexts))
	vecs, err := m.encoder.EmbedBatch(ctx, m.pendingTexts)
	if err != nil {
		return fmt.Errorf("embedding: batch encode: %w", err)
	}
	if len(vecs) != len(m.pendingTexts) {
		return fmt.Errorf("embedding: encoder returned %d vectors for %d texts", len(vecs), len(m.pendingTexts))
	}
	for i, hash := range m.pendingHashes {
		if err := m.cache.Put(hash, vecs[i]); err != nil {
			return fmt.Errorf("embedding: cache put: %w", err)
		}
	}
	m.pendingTexts = m.pendingTexts[:0]
	m.pendingHashes = m.pendingHashes[:0]
	return nil
}

// Get returns item's cached embeddings via two independent lookups.
func (m *Manager) Get(item etygraph.ItemID) ItemEmbedding {
	var e ItemEmbedding
	if hash, ok := m.etyHash[item]; ok {
		e.Ety, _ = m.cache.Get(hash)
	}
	if hash, ok := m.glossesHash[item]; ok {
		e.Glosses, _ = m.cache.Get(hash)
	}
	return e
}

// Similarity is the combined item-to-item similarity of spec.md §4.6:
// a 0.4/0.6 weighting of ety vs. glosses similarity when both items
// have an ety embedding, otherwise glosses-only.
func Similarity(a, b ItemEmbedding) float64 {
	glossSim := CosineSimilarity(a.Glosses, b.Glosses)
	if a.HasEty() && b.HasEty() {
		etySim := CosineSimilarity(a.Ety, b.Ety)
		return 0.4*etySim + 0.6*glossSim
	}
	return glossSim
}

// AncestorSimilarity compares item against chain, an ancestor chain
// ordered proto-most-first/immediate-parent-last. It walks the chain
// in reverse (near to far), weighting each ancestor's similarity by
// discount^k*quality (k=0 at the immediate parent), where quality is
// 1.0 when both sides have an ety embedding, 0.5 when at least one
// side is missing its ety embedding (but the ancestor is non-empty),
// and 0.0 when the ancestor has neither embedding at all. Returns 0
// when every ancestor has zero weight. discount <= 0 falls back to
// DefaultAncestorDiscount.
func AncestorSimilarity(item ItemEmbedding, chain []ItemEmbedding, discount float64) float64 {
	if discount <= 0 {
		discount = DefaultAncestorDiscount
	}
	var weightedSum, totalWeight float64
	for k := 0; k < len(chain); k++ {
		ancestor := chain[len(chain)-1-k]
		quality := ancestorQuality(item, ancestor)
		if quality == 0 {
			continue
		}
		weight := pow(discount, k) * quality
		weightedSum += weight * Similarity(item, ancestor)
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

func ancestorQuality(item, ancestor ItemEmbedding) float64 {
	if len(ancestor.Ety) == 0 && len(ancestor.Glosses) == 0 {
		return 0
	}
	if item.HasEty() && ancestor.HasEty() {
		return 1.0
	}
	return 0.5
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
