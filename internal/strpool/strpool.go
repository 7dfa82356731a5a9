// Package strpool implements the append-only string interner described
// in SPEC_FULL.md §4.1 / spec.md §4.1. A Pool is owned by the pipeline
// driver and mutated only during pass 1 and pass 3 (§5); after that it
// may be shared read-only.
package strpool

// Symbol is an opaque compact identifier for an interned byte string.
// Equality of Symbols implies equality of the underlying strings;
// resolving the string back requires the Pool that minted it.
type Symbol uint32

// Pool interns strings, handing back a Symbol, and resolves a Symbol
// back to its original (borrowed) string.
type Pool struct {
	strings []string
	index   map[string]Symbol
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{index: make(map[string]Symbol)}
}

// GetOrIntern returns the Symbol for s, interning it if this is the
// first time s has been seen by this Pool.
func (p *Pool) GetOrIntern(s string) Symbol {
	if sym, ok := p.index[s]; ok {
		return sym
	}
	sym := Symbol(len(p.strings))
	p.strings = append(p.strings, s)
	p.index[s] = sym
	return sym
}

// Resolve returns the string a Symbol was interned from. It panics if
// sym is out of range for this Pool; a Symbol minted by a different
// Pool that happens to be in range resolves to this Pool's string at
// that index.
func (p *Pool) Resolve(sym Symbol) string {
	return p.strings[sym]
}

// Len returns the number of distinct interned strings.
func (p *Pool) Len() int {
	return len(p.strings)
}

// Strings returns the pool's backing slice in Symbol order (index i
// holds the string for Symbol(i)). The caller must not mutate it; it
// is exposed for the graph blob codec (§6) to serialize directly.
func (p *Pool) Strings() []string {
	return p.strings
}

// FromStrings rebuilds a Pool from a previously-serialized string
// slice, preserving Symbol assignment (index i gets Symbol(i)). Used
// by the graph blob decoder to restore identical Symbol identities
// after a round trip (§8.1.6).
func FromStrings(strs []string) *Pool {
	p := &Pool{
		strings: append([]string(nil), strs...),
		index:   make(map[string]Symbol, len(strs)),
	}
	for i, s := range p.strings {
		p.index[s] = Symbol(i)
	}
	return p
}
