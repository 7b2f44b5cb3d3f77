package capture

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/hseigel/amber/internal/backtrace/bcv"
	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/store"
	"github.com/hseigel/amber/internal/backtrace/symbol"
)

// Config carries the capture policy, snapshotted once per operation.
// Captures never re-read ambient state mid-pass: the whole pass runs
// against one immutable Config value.
type Config struct {
	// Enabled gates all capture. When false every entry point is a no-op
	// and printing renders the no-stack-trace marker.
	Enabled bool

	// MaxDepth bounds the number of recorded frames; 0 means unlimited.
	MaxDepth int

	// SuppressHidden elides frames of hidden (synthetic/internal)
	// methods from the user-visible trace.
	SuppressHidden bool

	// FillerName is the name symbol of the trace-capture entry point.
	// Contiguous leading frames with this name declared on the
	// throwable's own class hierarchy are always elided.
	FillerName symbol.Symbol

	// CtorName is the name symbol of instance initializers. Contiguous
	// leading constructor frames of the throwable's hierarchy are elided
	// after the filler frames.
	CtorName symbol.Symbol

	// Allocator provides backtrace chunks; nil selects the heap
	// allocator. Chunk allocation is the only step of a capture that can
	// fail or trigger collector activity.
	Allocator store.Allocator

	// Logger receives one debug line per completed capture and one per
	// suppressed capture fault; nil silences both.
	Logger log.Logger
}

// Default returns the capture policy a freshly booted VM runs with.
func Default() Config {
	return Config{
		Enabled:        true,
		MaxDepth:       1024,
		SuppressHidden: true,
		FillerName:     symbol.Intern("fillInStackTrace"),
		CtorName:       symbol.Intern("<init>"),
	}
}

func (c Config) logger() log.Logger {
	if c.Logger == nil {
		return log.NewNopLogger()
	}
	return c.Logger
}

// Fill captures a fresh backtrace for th and attaches it.
//
// ctx is the synthetic method context to record when the thread has no
// live frames at all (walker == nil), as happens during very early
// startup; it may be nil.
//
// Fill never fails: it runs inside exception construction, so allocation
// failures truncate the trace and any incidental fault while resolving
// frame data leaves the trace absent rather than replacing the exception
// being constructed. Throwables carrying a preallocated store are left
// untouched; they are filled through FillPreallocated instead.
func Fill(th frame.Throwable, ctx frame.Method, walker frame.Walker, cfg Config) {
	if !cfg.Enabled {
		return
	}
	if st, ok := th.Backtrace().(*store.Store); ok && st.Preallocated() {
		return
	}

	// Start by detaching any previous trace, so running out of memory
	// mid-capture leaves an absent trace, never a corrupt one.
	th.SetBacktrace(nil)
	th.ClearElements()

	defer func() {
		if r := recover(); r != nil {
			level.Debug(cfg.logger()).Log(
				"msg", "backtrace capture suppressed a fault",
				"class", th.Class().Name(),
				"fault", r,
			)
		}
	}()

	st, err := store.New(cfg.Allocator)
	if err != nil {
		// Could not even allocate the first chunk. Leave the trace
		// absent.
		level.Debug(cfg.logger()).Log(
			"msg", "backtrace allocation failed",
			"class", th.Class().Name(),
			"err", err,
		)
		return
	}

	if walker == nil {
		// No live frames: record the supplied method context alone, at
		// bci 0.
		if ctx == nil {
			return
		}
		push(st, ctx, 0)
		finish(th, st, 1, cfg)
		return
	}

	depth := fill(th, walker, st, cfg)
	finish(th, st, depth, cfg)
}

// fill walks the live frames and pushes every surviving one. It returns
// the recorded depth; allocation failure mid-walk truncates and returns
// the depth reached.
func fill(th frame.Throwable, walker frame.Walker, st *store.Store, cfg Config) int {
	// The throwable's class is read once up front: nothing after this
	// point may assume heap state is stable across a chunk allocation
	// except the values already copied into locals.
	throwClass := th.Class()

	// The format of the stack is:
	// - 1 or more filler frames for the exception class (skipped)
	// - 0 or more constructor frames for the exception class (skipped)
	// - rest of the stack
	// Both skips flip off permanently at the first non-matching frame.
	skipFillerDone := false
	skipCtorDone := false

	depth := 0
	walkLogical(walker, func(m frame.Method, bci int) bool {
		if !skipFillerDone {
			if m.Name() == cfg.FillerName && throwClass.IsSubclassOf(m.DeclaringClass()) {
				return true
			}
			skipFillerDone = true // gone past them all
		}
		if !skipCtorDone {
			if m.Name() == cfg.CtorName && throwClass.IsSubclassOf(m.DeclaringClass()) {
				return true
			}
			// There are none or we've seen them all.
			skipCtorDone = true
		}
		if m.IsHidden() && cfg.SuppressHidden {
			if depth == 0 {
				// The top frame will be invisible in the trace; the
				// marker changes message extraction, not counting.
				st.MarkHiddenTopFrame()
			}
			return true
		}
		if st.Full() {
			if err := st.Expand(); err != nil {
				// Keep the completed chunks and stop here.
				return false
			}
		}
		push(st, m, bci)
		depth++
		return cfg.MaxDepth == 0 || depth < cfg.MaxDepth
	})
	return depth
}

// push writes one frame record. The record keeps redefinition-stable
// identity (original table index + version) plus the name symbol and the
// strong mirror reference; it never stores the Method itself.
func push(st *store.Store, m frame.Method, bci int) {
	// Smear the synchronization-entry sentinel to 0: the column holds
	// unsigned values, and line lookup would smear it anyway.
	if bci == frame.SyncEntryBCI {
		bci = 0
	}
	st.Push(m.OrigTableIndex(), bcv.Pack(bci, m.CurrentVersion()), m.DeclaringClass(), m.Name())
}

// finish records the depth and publishes the completed store.
func finish(th frame.Throwable, st *store.Store, depth int, cfg Config) {
	th.SetDepth(depth)
	th.SetBacktrace(st)
	level.Debug(cfg.logger()).Log(
		"msg", "filled backtrace",
		"class", th.Class().Name(),
		"depth", depth,
	)
}

// Allocate creates an empty single-chunk store and attaches it to th
// ahead of a fault window, so a later capture can run without growing.
//
// Unlike Fill this may report failure: allocation happens at a calm point
// where the caller can still react.
func Allocate(th frame.Throwable, cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	st, err := store.NewPreallocated(cfg.Allocator)
	if err != nil {
		return err
	}
	th.SetBacktrace(st)
	return nil
}

// FillPreallocated fills th's preallocated store in place.
//
// Unlike Fill no frames are elided: preallocated throwables are not
// created by user code, so there are no filler or constructor frames to
// skip. The store never grows; the trace truncates at chunk capacity.
func FillPreallocated(th frame.Throwable, walker frame.Walker, cfg Config) {
	if !cfg.Enabled {
		return
	}
	st, ok := th.Backtrace().(*store.Store)
	if !ok || !st.Preallocated() {
		// The backtrace should have been preallocated; without one there
		// is nothing safe to fill.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			level.Debug(cfg.logger()).Log(
				"msg", "preallocated backtrace capture suppressed a fault",
				"class", th.Class().Name(),
				"fault", r,
			)
		}
	}()

	st.Reset()
	depth := 0
	if walker != nil {
		walkLogical(walker, func(m frame.Method, bci int) bool {
			if st.Full() {
				return false // bail out for deep stacks
			}
			push(st, m, bci)
			depth++
			return true
		})
	}
	th.SetDepth(depth)
	th.ClearElements()
	level.Debug(cfg.logger()).Log(
		"msg", "filled preallocated backtrace",
		"class", th.Class().Name(),
		"depth", depth,
	)
}

// walkLogical flattens the walker's physical frames into logical frames,
// innermost first: interpreted frames directly, compiled frames one
// logical frame per inlined scope. The callback returns false to stop.
func walkLogical(walker frame.Walker, visit func(m frame.Method, bci int) bool) {
	for {
		pf, ok := walker.Next()
		if !ok {
			return
		}
		if pf.Interpreted() {
			m, bci := pf.Location()
			if !visit(m, bci) {
				return
			}
			continue
		}
		cur := pf.Inlined()
		for {
			m, bci, ok := cur.Next()
			if !ok {
				break
			}
			if !visit(m, bci) {
				return
			}
		}
	}
}
