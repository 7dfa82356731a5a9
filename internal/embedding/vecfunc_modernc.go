//go:build !sqlite_vec || !cgo

package embedding

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"

	sqlite "modernc.org/sqlite"
)

// driverName selects the sql.DB driver OpenCache uses. The default,
// cgo-free build uses modernc.org/sqlite; the sqlite_vec+cgo build
// (vecfunc_cgo.go) overrides it to mattn/go-sqlite3.
const driverName = "sqlite"

// init registers vector_distance_cos against the default, pure-Go
// modernc.org/sqlite driver so Cache.NearestCached works without cgo.
// Ground: teacher's vec_compat.go registers the same function name
// for its vec0 virtual-table workflows; this cache has no ANN index,
// only the scalar function, so the vtab half of vec_compat.go is not
// carried over (see DESIGN.md).
func init() {
	_ = sqlite.RegisterDeterministicScalarFunction("vector_distance_cos", 2, vectorDistanceCos)
}

func vectorDistanceCos(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vector_distance_cos expects 2 arguments")
	}
	a, err := decodeFloat32BE(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeFloat32BE(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return float64(1), nil
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

func decodeFloat32BE(v driver.Value) ([]float32, error) {
	b, ok := v.([]byte)
	if !ok {
		if s, ok := v.(string); ok {
			b = []byte(s)
		} else {
			return nil, nil
		}
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector_distance_cos: blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
