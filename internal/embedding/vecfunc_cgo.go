//go:build sqlite_vec && cgo

package embedding

import (
	_ "github.com/mattn/go-sqlite3"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// driverName overrides vecfunc_modernc.go's default for callers who
// already pay the cgo cost and want the real sqlite-vec extension
// (ANN-capable, rather than just the vector_distance_cos scalar
// function modernc's build substitutes it with).
const driverName = "sqlite3"

// init auto-loads the sqlite-vec extension for go-sqlite3. This build
// does not register vector_distance_cos itself, and
// Cache.NearestCached's query is a full-table scan under either driver.
// Ground: teacher's init_vec.go does exactly this for its vec0 virtual
// table; no vec0 table is created here, so nothing else from that file
// is carried over.
func init() {
	vec.Auto()
}
