// Package store implements the chunked columnar backtrace record.
//
// A backtrace is a singly linked sequence of fixed-capacity chunks, each
// holding four parallel columns per frame:
//
//   - methods: redefinition-stable original-method-table indices
//   - bcis:    packed byte-code index + class version (bcv.Packed)
//   - mirrors: strong class references keeping declaring classes alive
//   - names:   interned method-name symbols
//
// # Why chunks, not a growable array
//
// Capture runs inside exception construction, at unknown depth, in a
// context where a failed allocation must not take down the runtime.
// Fixed-size chunks bound every individual allocation, tolerate partial
// failure (a failed Expand leaves all completed chunks intact), and make
// chunk allocation the single point in a capture pass where the collector
// may run.
//
// # Lifecycle
//
// Written once by the capturing thread, published by storing the handle
// into the throwable's backtrace slot with release semantics, then
// immutable and freely shared between reading threads. Ordinary garbage
// collection reclaims the chunks, and with them the strong class
// references, when the throwable becomes unreachable.
package store
