// Package frame declares the interfaces through which the backtrace
// engine consumes the rest of the runtime.
//
// The engine has three external collaborators, all modeled here as
// capabilities rather than concrete types:
//
//   - The stack walker (Walker, PhysicalFrame, InlineCursor), which
//     enumerates live frames innermost-first and decodes compiled
//     inlining chains into logical frames.
//   - The method/class descriptor layer (Method, Class, Module), which
//     exposes redefinition-stable method identity, version-aware
//     resolution, and source/module metadata.
//   - The object model of the throwable itself (Throwable), which owns
//     the backtrace slot, the recorded depth, and cause resolution.
//
// Keeping these behind interfaces is what lets the store hold
// redefinition-stable (class, slot, version) tuples instead of raw
// method pointers: resolution is a function call that may legitimately
// fail, not a stored pointer that can dangle.
//
// The package intentionally has no behavior beyond constants. The real
// implementations live in the embedding runtime; internal/backtrace/testvm
// provides the in-memory implementation used by tests, examples and the
// amber CLI.
package frame
