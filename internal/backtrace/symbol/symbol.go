// Package symbol implements interned name symbols for backtrace records.
//
// The backtrace store keeps a method-name symbol in every frame record,
// deliberately redundant with the method table: after a class is redefined
// the method may be gone from the live table, and the stored symbol is the
// durable source of truth for the name.
//
// Symbols are interned through a global hash-keyed canonical store so that
// the thousands of identical names a deep trace records share one backing
// string. The store is bounded: eviction only loses sharing, never
// correctness, because a Symbol stays valid regardless of what the
// canonical store does afterwards.
//
// Design:
//   - xxhash (64-bit) keys the canonical store
//   - 2Q LRU bounds it (CanonicalCapacity entries)
//   - Collisions fall back to the caller's string, uncanonicalized
package symbol

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Symbol is an interned name (method name, source file name).
//
// Symbols compare with ==. Two symbols spelled the same are equal whether
// or not they share a canonical backing string.
type Symbol string

// None is the zero Symbol, used for unwritten name columns.
const None Symbol = ""

// CanonicalCapacity bounds the canonical store. A running VM sees a few
// thousand distinct method names; 8192 entries keep effectively all of
// them resident while capping worst-case memory.
const CanonicalCapacity = 8192

var (
	mu        sync.Mutex
	canonical *lru.Cache[uint64, string]
)

func table() *lru.Cache[uint64, string] {
	if canonical == nil {
		// lru.New only fails for non-positive sizes.
		canonical, _ = lru.New[uint64, string](CanonicalCapacity)
	}
	return canonical
}

// Intern returns the canonical Symbol for s.
//
// If an equal string is already in the canonical store its backing memory
// is reused; otherwise s is stored and returned as-is. A 64-bit hash
// collision (different string, same key) leaves the resident entry in
// place and returns s uncanonicalized, so collisions cost sharing, not
// correctness.
//
// Thread Safety: safe for concurrent calls.
func Intern(s string) Symbol {
	if s == "" {
		return None
	}
	key := xxhash.Sum64String(s)

	mu.Lock()
	defer mu.Unlock()

	t := table()
	if prev, ok := t.Get(key); ok {
		if prev == s {
			return Symbol(prev)
		}
		// Hash collision. Keep the resident entry.
		return Symbol(s)
	}
	t.Add(key, s)
	return Symbol(s)
}

// Stats returns the number of entries in the canonical store.
//
// Only used by tests and diagnostics; do not call on a capture path.
func Stats() (entries int) {
	mu.Lock()
	defer mu.Unlock()
	return table().Len()
}

// Reset clears the canonical store (for testing).
//
// Symbols handed out earlier remain valid; they simply no longer share
// backing storage with future Intern calls.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	canonical = nil
}
