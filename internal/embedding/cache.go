package embedding

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"wetygraph/internal/logging"
	"wetygraph/pkg/xxhash3"
)

// CurrentSchemaVersion is the embedding cache's schema version. Ground:
// teacher's migrations.go versions an evolving multi-table knowledge
// base; this cache has exactly one table and has never needed a
// second version, so OpenCache creates it idempotently rather than
// running a migration list.
const CurrentSchemaVersion = 1

// Cache is the persistent key-value byte store backing the embedding
// manager: TextHash -> encoded float32 vector, keyed so identical
// texts across pipeline runs (or across an item's ety/glosses text)
// share one cached encoding.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if absent) a sqlite-backed Cache at path.
// Ground: teacher's migrations.go tableExists/columnExists idempotent
// schema pattern, trimmed to the cache's single table.
func OpenCache(path string) (*Cache, error) {
	timer := logging.StartTimer(logging.CategoryEmbed, "OpenCache")
	defer timer.Stop()

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("embedding: open cache: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS embedding_cache (
		text_hash BLOB PRIMARY KEY,
		vector    BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("embedding: create cache table: %w", err)
	}
	logging.Get(logging.CategoryEmbed).Info("Opened embedding cache at %s (schema v%d)", path, CurrentSchemaVersion)
	return &Cache{db: db}, nil
}

// Close closes the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached vector for hash, or ok=false on a miss.
func (c *Cache) Get(hash xxhash3.TextHash) ([]float32, bool) {
	var blob []byte
	err := c.db.QueryRow(`SELECT vector FROM embedding_cache WHERE text_hash = ?`, hash.Bytes()).Scan(&blob)
	if err != nil {
		return nil, false
	}
	return decodeVector(blob), true
}

// Put stores vec under hash, overwriting any existing entry (the same
// hash always maps to the same text, so this is purely idempotent).
func (c *Cache) Put(hash xxhash3.TextHash, vec []float32) error {
	_, err := c.db.Exec(
		`INSERT INTO embedding_cache (text_hash, vector) VALUES (?, ?)
		 ON CONFLICT(text_hash) DO UPDATE SET vector = excluded.vector`,
		hash.Bytes(), encodeVector(vec),
	)
	return err
}

// NearestCached is a diagnostic: it scans every cached vector and
// returns the hash with the highest cosine similarity to query, using
// the vector_distance_cos SQL function (registered in
// vecfunc_modernc.go for the default build).
// Ground: teacher's vec_compat.go registers the same function for its
// ANN virtual table; here it backs a brute-force diagnostic query
// instead of an index, since the cache has no ANN-scale requirement.
func (c *Cache) NearestCached(query []float32) (xxhash3.TextHash, float64, bool) {
	row := c.db.QueryRow(
		`SELECT text_hash, 1 - vector_distance_cos(vector, ?) AS sim
		 FROM embedding_cache ORDER BY sim DESC LIMIT 1`,
		encodeVector(query),
	)
	var hashBytes []byte
	var sim float64
	if err := row.Scan(&hashBytes, &sim); err != nil {
		return 0, 0, false
	}
	return xxhash3.FromBytes(hashBytes), sim, true
}

func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.BigEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return v
}
