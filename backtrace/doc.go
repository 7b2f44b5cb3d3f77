// Package backtrace implements exception stack-trace capture and
// materialization for the Amber VM, in pure Go.
//
// When an exception is raised, the engine records the calling sequence of
// executing methods in a compact, collector-safe form, and later
// reconstructs that record into structured, user-visible stack trace
// elements.
//
// # Quick Start
//
// The embedding runtime supplies a stack walker and object-model
// capabilities (see the interface types on this package) and calls Fill
// at the point an exception is constructed:
//
//	backtrace.Fill(th, nil, thread.Walker())
//
// Later, on demand:
//
//	elems, err := backtrace.Elements(th)   // structured
//	backtrace.Print(os.Stderr, th)         // human-readable, cause chain
//
// # API Overview
//
// The package provides functions for:
//   - Capture: [Fill], [Allocate], [FillPreallocated]
//   - Materialization: [Elements], [CopyElements], [TopFrame]
//   - Rendering: [Print], [PrintVerbose]
//   - Policy: [Configure], [CurrentConfig]
//   - Version information: [GetInfo], [Version]
//
// # How It Works
//
// A capture walks live frames innermost-first, elides the leading frames
// of the exception machinery itself (the fill-in-trace entry point and
// the throwable's constructor chain), optionally suppresses hidden
// frames, and appends the survivors to a chunked columnar store that
// grows by fixed-size chunks. Each record keeps redefinition-stable
// identity (declaring class, original method table index, class
// version) plus the interned method name and a strong class reference
// that keeps the class alive as long as the trace.
//
// Materialization resolves each record back through the class mirror. If
// the class was redefined and the captured version is gone, the element
// degrades to a redefined/unknown source marker; it never fails and
// never reports a stale line number.
//
// # Operational Characteristics
//
//	Capture:      synchronous, lock-free, no I/O; the only fallible
//	              step is chunk allocation, which truncates gracefully
//	Publication:  release store of the backtrace handle; readers use
//	              an acquire load, then share the store freely
//	Bounds:       MaxDepth (0 = unlimited); chunked growth keeps every
//	              single allocation fixed-size
//
// # Compatibility
//
// The engine consumes the runtime through interfaces only and is
// independent of the interpreter, the compiled-frame format, and the
// object layout. internal/backtrace/testvm carries a complete in-memory
// implementation used by the tests, the examples, and the amber CLI.
package backtrace
