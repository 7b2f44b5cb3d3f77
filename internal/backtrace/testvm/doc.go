// Package testvm is a miniature in-memory runtime for exercising the
// backtrace engine without an interpreter behind it.
//
// It implements every consumer-side interface of internal/backtrace/frame:
// classes with versioned method tables and line tables, named modules,
// class loaders, scripted call stacks (including compiled frames with
// inlined scopes), and throwables with an atomic backtrace slot.
//
// Redefinition is modeled destructively, the way the engine experiences
// it: Class.Redefine bumps the version, re-stamps the live methods, and
// discards older generations, so a lookup at a captured version fails
// afterwards.
//
// The package is shared by the unit tests, the examples and the amber
// CLI; it is not part of the engine itself.
package testvm
