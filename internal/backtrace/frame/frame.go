package frame

import "github.com/hseigel/amber/internal/backtrace/symbol"

// Byte-code index sentinels produced by the stack walker and the
// line-number lookup.
const (
	// SyncEntryBCI marks a frame suspended in a synchronization entry
	// stub rather than at a real byte-code index. The capture builder
	// smears it to 0 because the store column is unsigned.
	SyncEntryBCI = -1

	// LineUnknown is returned by Method.LineNumber when the method has
	// no line-number table covering the bci.
	LineUnknown = -1

	// LineNative is returned by Method.LineNumber for natively
	// implemented methods, which have no byte-code at all.
	LineNative = -2
)

// Method is the descriptor capability for one method of a loaded class.
//
// The backtrace engine never stores a Method across a capture: it extracts
// the redefinition-stable pieces (original table index, version, name
// symbol, declaring class) and resolves back through Class.MethodAt on
// demand.
type Method interface {
	// OrigTableIndex is the method's index in its declaring class's
	// original method table. Unlike a Method reference, the index stays
	// meaningful across redefinition.
	OrigTableIndex() uint16

	// DeclaringClass returns the runtime mirror of the class that
	// declares this method.
	DeclaringClass() Class

	// CurrentVersion returns the class-file version this descriptor
	// belongs to.
	CurrentVersion() int

	// Name returns the method's interned name symbol.
	Name() symbol.Symbol

	// IsNative reports whether the method is natively implemented.
	IsNative() bool

	// IsHidden reports whether the method is synthetic/internal and
	// eligible for suppression from user-visible traces.
	IsHidden() bool

	// LineNumber maps a byte-code index to a source line, or LineUnknown
	// / LineNative.
	LineNumber(bci int) int
}

// Compiled is an optional extension of Method for methods that currently
// have compiled code. The printer's verbose mode annotates elements with
// the code address when available.
type Compiled interface {
	// CodeAddress returns the entry address of the method's compiled
	// code, if any.
	CodeAddress() (uint64, bool)
}

// Class is the runtime mirror capability for a loaded class.
//
// A Class reference held by a backtrace store is a strong reference: it is
// the mechanism that keeps the class (and transitively its method table
// and symbols) alive for as long as the trace exists.
type Class interface {
	// Name returns the class's user-visible (external) name.
	Name() string

	// MethodAt resolves the method with the given original-table index at
	// the given class-file version. Resolution fails (ok=false) when the
	// class has been redefined and the requested version is gone.
	MethodAt(orig uint16, version int) (m Method, ok bool)

	// SourceFile returns the source file symbol for the given version.
	// Implementations cache the symbol per class and invalidate the cache
	// on redefinition; ok=false means no source information.
	SourceFile(version int) (s symbol.Symbol, ok bool)

	// Module returns the declaring module, ok=false when the class lives
	// in the unnamed module.
	Module() (m Module, ok bool)

	// LoaderName returns the display name of the defining class loader,
	// ok=false for the bootstrap loader.
	LoaderName() (name string, ok bool)

	// IsSubclassOf reports whether this class is other or a subclass of
	// other.
	IsSubclassOf(other Class) bool
}

// Module is the named-module capability of a class mirror.
type Module interface {
	// Name returns the module's name.
	Name() string

	// Version returns the module's version string, ok=false when the
	// module carries no version.
	Version() (v string, ok bool)
}

// PhysicalFrame is one machine-level activation yielded by the stack
// walker. An interpreted frame carries exactly one logical frame; a
// compiled frame may represent several inlined logical calls, exposed
// through Inlined.
type PhysicalFrame interface {
	// Interpreted reports whether the frame executes in the interpreter.
	Interpreted() bool

	// Location returns the method and bci of an interpreted frame.
	// Undefined for compiled frames.
	Location() (Method, int)

	// Inlined returns a cursor over the logical frames of a compiled
	// frame, innermost scope first. Undefined for interpreted frames.
	Inlined() InlineCursor
}

// InlineCursor yields the inlined logical frames of one compiled physical
// frame, innermost first.
type InlineCursor interface {
	// Next returns the next logical frame, ok=false once every inlined
	// scope has been yielded.
	Next() (m Method, bci int, ok bool)
}

// Walker enumerates the live frames of the raising thread, innermost
// physical frame first.
//
// The engine consumes a Walker exactly once, synchronously, on the thread
// that raised the exception. Next returning ok=false means the outermost
// frame has been passed.
type Walker interface {
	Next() (f PhysicalFrame, ok bool)
}

// Backtrace is the opaque handle a capture attaches to its throwable.
// Only the backtrace engine looks inside (by type assertion), mirroring
// the untyped backtrace slot on the original throwable object.
type Backtrace interface{}

// Throwable is the object-model capability for the exception being
// captured or materialized.
//
// Backtrace/SetBacktrace form the publication handoff: SetBacktrace must
// be a release store and Backtrace an acquire load, so a reader that
// observes the handle observes fully written chunks.
type Throwable interface {
	// Class returns the throwable's own class mirror.
	Class() Class

	// Message returns the detail message, ok=false when absent.
	Message() (msg string, ok bool)

	// Backtrace loads the attached backtrace handle (acquire), nil when
	// no trace has been captured.
	Backtrace() Backtrace

	// SetBacktrace publishes (release) or detaches (nil) the backtrace.
	SetBacktrace(bt Backtrace)

	// Depth returns the number of recorded frames.
	Depth() int

	// SetDepth records the number of recorded frames.
	SetDepth(d int)

	// ClearElements discards any lazily materialized element array so a
	// refill cannot leave stale user-visible state behind.
	ClearElements()

	// Cause resolves the next throwable in the cause chain by invoking
	// user-level logic. It may fail or panic; printing treats both as
	// "no further cause".
	Cause() (Throwable, error)
}
