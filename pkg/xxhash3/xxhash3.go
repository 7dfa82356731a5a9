// Package xxhash3 wraps github.com/cespare/xxhash/v2 (the XXH64
// algorithm, not XXH3) behind the narrow TextHash contract the
// embedding cache depends on: a stable 64-bit content hash of UTF-8 text,
// independent of item ids so repeated pipeline runs over differing
// dumps can still share cached embeddings (SPEC_FULL.md §4.6).
package xxhash3

import "github.com/cespare/xxhash/v2"

// TextHash is the content hash used as the embedding cache key.
type TextHash uint64

// Sum hashes s into a TextHash.
func Sum(s string) TextHash {
	return TextHash(xxhash.Sum64String(s))
}

// SumBytes hashes b into a TextHash.
func SumBytes(b []byte) TextHash {
	return TextHash(xxhash.Sum64(b))
}

// Bytes returns the big-endian encoding of h, the on-disk key format
// for the embedding cache (§6).
func (h TextHash) Bytes() []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(h)
		h >>= 8
	}
	return b
}

// FromBytes decodes a big-endian TextHash key.
func FromBytes(b []byte) TextHash {
	var h TextHash
	for _, v := range b {
		h = h<<8 | TextHash(v)
	}
	return h
}
