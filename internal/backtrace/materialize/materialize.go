package materialize

import (
	"errors"

	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/store"
	"github.com/hseigel/amber/internal/backtrace/symbol"
)

// Line-number values of a materialized element, re-exported from frame so
// callers of this package need only one import.
const (
	// LineUnknown marks an element whose line is unavailable: no line
	// table, or the declaring class was redefined since capture.
	LineUnknown = frame.LineUnknown

	// LineNative marks an element for a natively implemented method.
	LineNative = frame.LineNative
)

// Boundary-violation errors for structured extraction. These are
// caller-visible, recoverable conditions, never panics.
var (
	// ErrNilThrowable reports a nil throwable handle.
	ErrNilThrowable = errors.New("materialize: nil throwable")

	// ErrNoBacktrace reports that the throwable carries no backtrace
	// store.
	ErrNoBacktrace = errors.New("materialize: throwable has no backtrace")

	// ErrDepthMismatch reports that the destination length differs from
	// the throwable's recorded depth.
	ErrDepthMismatch = errors.New("materialize: destination length does not match recorded depth")
)

// Element is one structured, user-visible stack trace entry.
type Element struct {
	// ClassName is the declaring class's external name.
	ClassName string

	// DeclaringClass is the declaring class's runtime mirror.
	DeclaringClass frame.Class

	// LoaderName is the defining loader's display name, "" for the
	// bootstrap loader.
	LoaderName string

	// ModuleName and ModuleVersion identify the declaring module;
	// both are "" for the unnamed module, ModuleVersion alone may be ""
	// for an unversioned named module.
	ModuleName    string
	ModuleVersion string

	// MethodName comes from the stored name symbol, not from the live
	// method table, so it survives redefinition.
	MethodName string

	// FileName is the source file, "" when unknown or redefined.
	FileName string

	// LineNumber is the source line, or LineUnknown / LineNative.
	LineNumber int
}

// resolution is the outcome of resolving one stored record against the
// live runtime. Both element extraction and printing share it.
type resolution struct {
	method    frame.Method  // nil when the version is gone
	matches   bool          // method exists and still has the stored version
	source    symbol.Symbol // source file at the stored version
	hasSource bool
}

// resolve looks the record's method up at the stored version. The lookup
// is a function of (class, slot, version): after a redefinition it
// legitimately fails, and the element degrades instead of dangling.
func resolve(r store.Record) resolution {
	var res resolution
	m, ok := r.Mirror.MethodAt(r.MethodID, r.Version)
	if ok && m != nil && m.CurrentVersion() == r.Version {
		res.method = m
		res.matches = true
	}
	res.source, res.hasSource = r.Mirror.SourceFile(r.Version)
	return res
}

// fillElement materializes one stored record.
func fillElement(r store.Record) Element {
	e := Element{
		ClassName:      r.Mirror.Name(),
		DeclaringClass: r.Mirror,
		MethodName:     string(r.Name),
		LineNumber:     LineUnknown,
	}
	if name, ok := r.Mirror.LoaderName(); ok {
		e.LoaderName = name
	}
	if mod, ok := r.Mirror.Module(); ok {
		e.ModuleName = mod.Name()
		if v, ok := mod.Version(); ok {
			e.ModuleVersion = v
		}
	}

	res := resolve(r)
	if !res.matches {
		// The class was redefined and the stored version is gone.
		// Accurate source information no longer exists; degrade, never
		// fail.
		return e
	}
	if res.hasSource {
		e.FileName = string(res.source)
	}
	e.LineNumber = res.method.LineNumber(r.BCI)
	return e
}

// CopyElements materializes the full trace into dst, one element per
// recorded frame, innermost first.
//
// The destination length must equal the throwable's recorded depth
// exactly; any mismatch, a nil throwable, or an absent store is reported
// as a boundary error and dst is left untouched.
func CopyElements(th frame.Throwable, dst []Element) error {
	if th == nil {
		return ErrNilThrowable
	}
	st, ok := th.Backtrace().(*store.Store)
	if !ok {
		return ErrNoBacktrace
	}
	if len(dst) != th.Depth() {
		return ErrDepthMismatch
	}

	it := st.Iterate()
	i := 0
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		dst[i] = fillElement(r)
		i++
	}
	return nil
}

// Elements materializes the full trace into a freshly allocated slice
// sized to the recorded depth.
func Elements(th frame.Throwable) ([]Element, error) {
	if th == nil {
		return nil, ErrNilThrowable
	}
	dst := make([]Element, th.Depth())
	if err := CopyElements(th, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// TopFrame resolves the innermost recorded frame to a live method and
// bci, for callers that compute messages from the faulting location.
//
// ok=false when there is no backtrace, when the true top frame was
// hidden (the recorded top is not the faulting frame), or when the top
// frame's class was redefined since capture.
func TopFrame(th frame.Throwable) (m frame.Method, bci int, ok bool) {
	if th == nil {
		return nil, 0, false
	}
	st, sok := th.Backtrace().(*store.Store)
	if !sok {
		return nil, 0, false
	}
	if st.HasHiddenTopFrame() {
		return nil, 0, false
	}
	it := st.Iterate()
	r, rok := it.Next()
	if !rok {
		return nil, 0, false
	}
	res := resolve(r)
	if !res.matches {
		return nil, 0, false
	}
	return res.method, r.BCI, true
}
