// Package backtrace provides the public API of the Amber backtrace
// engine.
//
// See doc.go for detailed documentation and examples.
package backtrace

import (
	"io"
	"sync/atomic"

	"github.com/hseigel/amber/internal/backtrace/capture"
	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/materialize"
	"github.com/hseigel/amber/internal/backtrace/store"
)

// ChunkCapacity is the number of frame records per store chunk.
const ChunkCapacity = store.ChunkCapacity

// Names re-exported from the internal packages so embedders of the
// engine work against one import.
type (
	// Config is the capture policy. See Configure.
	Config = capture.Config

	// Element is one structured, user-visible stack trace entry.
	Element = materialize.Element

	// Throwable is the object-model capability of the exception being
	// captured or materialized.
	Throwable = frame.Throwable

	// Walker enumerates live frames, innermost first.
	Walker = frame.Walker

	// Method is the method descriptor capability.
	Method = frame.Method

	// Class is the class mirror capability.
	Class = frame.Class
)

// Line-number sentinels of materialized elements.
const (
	// LineUnknown marks an element with no line information (missing
	// line table, or class redefined since capture).
	LineUnknown = materialize.LineUnknown

	// LineNative marks an element for a natively implemented method.
	LineNative = materialize.LineNative
)

// Boundary-violation errors reported by CopyElements and Elements.
var (
	ErrNilThrowable  = materialize.ErrNilThrowable
	ErrNoBacktrace   = materialize.ErrNoBacktrace
	ErrDepthMismatch = materialize.ErrDepthMismatch
)

// config holds the engine-wide capture policy. Captures snapshot it once
// at entry; nothing re-reads it mid-pass.
var config atomic.Pointer[Config]

func init() {
	def := capture.Default()
	config.Store(&def)
}

// Configure installs a new engine-wide capture policy.
//
// The policy applies to captures that start after Configure returns;
// in-flight captures finish under the policy they snapshotted.
func Configure(cfg Config) {
	config.Store(&cfg)
}

// CurrentConfig returns the capture policy new captures will snapshot.
func CurrentConfig() Config {
	return *config.Load()
}

// Fill captures a fresh backtrace for th from the given walker and
// attaches it to th.
//
// ctx is the synthetic method context recorded alone (at bci 0) when the
// raising thread has no live frames at all, signalled by a nil walker;
// it may be nil.
//
// Fill is a no-op when tracing is disabled or th carries a preallocated
// store, and it never fails: faults during capture leave the trace
// partial or absent, never corrupt.
func Fill(th Throwable, ctx Method, walker Walker) {
	capture.Fill(th, ctx, walker, CurrentConfig())
}

// Allocate attaches an empty preallocated (single chunk, non-growing)
// store to th, for throwables that must not allocate during capture.
// Call it at a calm point before the fault window.
func Allocate(th Throwable) error {
	return capture.Allocate(th, CurrentConfig())
}

// FillPreallocated fills th's preallocated store in place, without
// elision, truncating at chunk capacity.
func FillPreallocated(th Throwable, walker Walker) {
	capture.FillPreallocated(th, walker, CurrentConfig())
}

// CopyElements materializes th's trace into dst, whose length must equal
// th's recorded depth exactly; mismatches are boundary errors.
func CopyElements(th Throwable, dst []Element) error {
	return materialize.CopyElements(th, dst)
}

// Elements materializes th's trace into a new slice sized to the
// recorded depth.
func Elements(th Throwable) ([]Element, error) {
	return materialize.Elements(th)
}

// TopFrame resolves the innermost recorded frame to a live method and
// bci. ok=false when no trace exists, the top frame was hidden, or the
// class was redefined since capture.
func TopFrame(th Throwable) (m Method, bci int, ok bool) {
	return materialize.TopFrame(th)
}

// Print renders th's message, stack trace and cause chain to w.
// Throwables without a trace render the no-stack-trace marker.
func Print(w io.Writer, th Throwable) {
	materialize.Print(w, th, materialize.PrintOptions{})
}

// PrintVerbose is Print plus low-level code-location annotations for
// frames whose method currently has compiled code.
func PrintVerbose(w io.Writer, th Throwable) {
	materialize.Print(w, th, materialize.PrintOptions{Verbose: true})
}
