// Package capture builds backtrace stores from live call frames.
//
// Capture runs synchronously on the thread raising the exception, with no
// locks and no I/O. Two modes exist:
//
//   - Fresh capture (Fill): grow a new store chunk by chunk while walking
//     the stack, applying the elision policy, until the walker is
//     exhausted or MaxDepth is reached.
//   - Preallocated reuse (Allocate + FillPreallocated): a single-chunk
//     store attached at a calm point is later refilled in place with no
//     allocation and no elision, truncating at chunk capacity.
//
// # Elision policy
//
// The leading frames of a capture belong to the exception machinery
// itself and are removed before anything is recorded:
//
//  1. Contiguous frames whose method is the fill-in-trace entry point
//     declared on the throwable's class or a superclass.
//  2. Then contiguous constructor frames of the throwable's hierarchy.
//
// Each skip is "skip while matching, then never re-check": once a
// non-matching frame is seen the skip is off for the rest of the capture,
// even if a later frame would match again. Hidden methods are dropped
// when suppression is on; only a hidden frame at the very top of the
// logical trace sets the store's one-shot marker.
//
// # Failure model
//
// Chunk allocation is the single fallible step. A failed expansion keeps
// every completed chunk and truncates; any other fault during a capture
// is caught and leaves the trace absent. Nothing a capture does may
// replace the exception being constructed with a secondary failure.
package capture
