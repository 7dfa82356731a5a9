package embedding

import (
	"path/filepath"
	"testing"

	"wetygraph/pkg/xxhash3"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachePutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	hash := xxhash3.Sum("reconstructed term text")
	want := []float32{0.25, -0.5, 1.0, 2.75}

	if err := c.Put(hash, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := c.Get(hash)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vector mismatch at %d: want %v got %v", i, want, got)
		}
	}
}

func TestCacheMissReturnsFalse(t *testing.T) {
	c := openTestCache(t)
	if _, ok := c.Get(xxhash3.Sum("never stored")); ok {
		t.Fatal("expected a cache miss")
	}
}

func TestCachePutOverwritesExistingHash(t *testing.T) {
	c := openTestCache(t)
	hash := xxhash3.Sum("same text")
	_ = c.Put(hash, []float32{1, 2, 3})
	_ = c.Put(hash, []float32{9, 9, 9})

	got, _ := c.Get(hash)
	if got[0] != 9 {
		t.Fatalf("expected overwrite to stick, got %v", got)
	}
}
