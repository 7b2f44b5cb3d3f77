package testvm

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/symbol"
)

// Compile-time interface conformance.
var (
	_ frame.Class     = (*Class)(nil)
	_ frame.Method    = (*Method)(nil)
	_ frame.Compiled  = (*Method)(nil)
	_ frame.Module    = (*Module)(nil)
	_ frame.Throwable = (*Throwable)(nil)
	_ frame.Walker    = (*walker)(nil)
)

// VM is a miniature in-memory runtime: named classes with versioned
// method tables, modules, and throwables. It exists so the backtrace
// engine can be exercised without a real interpreter behind it.
type VM struct {
	classes map[string]*Class
}

// New creates an empty VM.
func New() *VM {
	return &VM{classes: make(map[string]*Class)}
}

// Module is a named module with an optional version.
type Module struct {
	name    string
	version string
}

// DefineModule creates a module after validating its metadata: the name
// must be a well-formed import path and the version, when present, must
// be canonical semver.
func DefineModule(name, version string) (*Module, error) {
	if err := module.CheckImportPath(name); err != nil {
		return nil, fmt.Errorf("testvm: bad module name: %w", err)
	}
	if version != "" && !semver.IsValid(version) {
		return nil, fmt.Errorf("testvm: bad module version %q", version)
	}
	return &Module{name: name, version: version}, nil
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Version returns the module version, ok=false when unversioned.
func (m *Module) Version() (string, bool) {
	return m.version, m.version != ""
}

// Class is a loaded class with a versioned method table.
//
// Redefine bumps the version and re-stamps the method table; method
// lookups at older versions then fail, exactly the situation the
// backtrace engine must degrade through.
type Class struct {
	name       string
	super      *Class
	mod        *Module
	loaderName string
	sourceFile string
	version    int
	methods    []*Method

	// sourceSym caches the interned source file symbol per version,
	// invalidated on redefinition.
	sourceSym    symbol.Symbol
	sourceCached bool
}

// DefineClass registers a class. super may be nil; sourceFile may be ""
// for classes without source information.
func (vm *VM) DefineClass(name, sourceFile string, super *Class) *Class {
	c := &Class{name: name, super: super, sourceFile: sourceFile, version: 1}
	vm.classes[name] = c
	return c
}

// SetModule places the class in a named module.
func (c *Class) SetModule(m *Module) { c.mod = m }

// SetLoaderName records the defining loader's display name.
func (c *Class) SetLoaderName(name string) { c.loaderName = name }

// AddMethod appends a method to the class's original method table and
// returns it. The original-table index is the append position.
func (c *Class) AddMethod(name string, lines []LineEntry) *Method {
	m := &Method{
		class:   c,
		orig:    uint16(len(c.methods)),
		version: c.version,
		name:    symbol.Intern(name),
		lines:   lines,
	}
	c.methods = append(c.methods, m)
	return m
}

// Redefine replaces the class's byte-code generation: the version is
// bumped, every method is re-stamped at the new version, and the cached
// source symbol is dropped. Old versions are gone afterwards; lookups
// against them fail.
func (c *Class) Redefine() {
	c.version++
	for _, m := range c.methods {
		m.version = c.version
	}
	c.sourceSym = symbol.None
	c.sourceCached = false
}

// Name returns the class's external name.
func (c *Class) Name() string { return c.name }

// Version returns the current class-file version.
func (c *Class) Version() int { return c.version }

// MethodAt resolves a method by original-table index at a given version.
// Only the current version is resolvable; redefinition discards older
// generations.
func (c *Class) MethodAt(orig uint16, version int) (frame.Method, bool) {
	if version != c.version || int(orig) >= len(c.methods) {
		return nil, false
	}
	return c.methods[orig], true
}

// SourceFile returns the interned source file symbol for the given
// version. The symbol is cached per class and the cache is dropped on
// redefinition.
func (c *Class) SourceFile(version int) (symbol.Symbol, bool) {
	if version != c.version || c.sourceFile == "" {
		return symbol.None, false
	}
	if !c.sourceCached {
		c.sourceSym = symbol.Intern(c.sourceFile)
		c.sourceCached = true
	}
	return c.sourceSym, true
}

// Module returns the declaring module, ok=false for the unnamed module.
func (c *Class) Module() (frame.Module, bool) {
	if c.mod == nil {
		return nil, false
	}
	return c.mod, true
}

// LoaderName returns the loader display name, ok=false for bootstrap.
func (c *Class) LoaderName() (string, bool) {
	return c.loaderName, c.loaderName != ""
}

// IsSubclassOf reports whether c is other or inherits from other.
func (c *Class) IsSubclassOf(other frame.Class) bool {
	for s := c; s != nil; s = s.super {
		if frame.Class(s) == other {
			return true
		}
	}
	return false
}

// LineEntry maps the byte-code range starting at StartBCI to Line.
type LineEntry struct {
	StartBCI int
	Line     int
}

// Method is one entry of a class's method table.
type Method struct {
	class    *Class
	orig     uint16
	version  int
	name     symbol.Symbol
	native   bool
	hidden   bool
	lines    []LineEntry
	codeAddr uint64
}

// SetNative marks the method natively implemented.
func (m *Method) SetNative() *Method { m.native = true; return m }

// SetHidden marks the method synthetic/internal.
func (m *Method) SetHidden() *Method { m.hidden = true; return m }

// SetCodeAddress gives the method compiled code at the given address.
func (m *Method) SetCodeAddress(addr uint64) *Method { m.codeAddr = addr; return m }

// OrigTableIndex returns the original method table index.
func (m *Method) OrigTableIndex() uint16 { return m.orig }

// DeclaringClass returns the declaring class mirror.
func (m *Method) DeclaringClass() frame.Class { return m.class }

// CurrentVersion returns the class-file version this method belongs to.
func (m *Method) CurrentVersion() int { return m.version }

// Name returns the interned method name symbol.
func (m *Method) Name() symbol.Symbol { return m.name }

// IsNative reports whether the method is natively implemented.
func (m *Method) IsNative() bool { return m.native }

// IsHidden reports whether the method is synthetic/internal.
func (m *Method) IsHidden() bool { return m.hidden }

// LineNumber maps a bci to a source line using the method's line table.
func (m *Method) LineNumber(bci int) int {
	if m.native {
		return frame.LineNative
	}
	line := frame.LineUnknown
	for _, e := range m.lines {
		if e.StartBCI > bci {
			break
		}
		line = e.Line
	}
	return line
}

// CodeAddress returns the compiled entry address, ok=false when the
// method has no compiled code.
func (m *Method) CodeAddress() (uint64, bool) {
	return m.codeAddr, m.codeAddr != 0
}

// Scope is one logical frame of a compiled physical frame.
type Scope struct {
	Method *Method
	BCI    int
}

// physFrame is one physical activation on a test stack.
type physFrame struct {
	interpreted bool
	method      *Method
	bci         int
	scopes      []Scope
}

// Stack is a scripted call stack, listed innermost frame first.
type Stack struct {
	frames []physFrame
}

// NewStack creates an empty stack.
func NewStack() *Stack { return &Stack{} }

// PushInterpreted appends an interpreted frame. Frames are appended in
// innermost-first order, matching walker order.
func (s *Stack) PushInterpreted(m *Method, bci int) *Stack {
	s.frames = append(s.frames, physFrame{interpreted: true, method: m, bci: bci})
	return s
}

// PushCompiled appends a compiled frame holding one logical frame per
// inlined scope, innermost scope first.
func (s *Stack) PushCompiled(scopes ...Scope) *Stack {
	s.frames = append(s.frames, physFrame{scopes: scopes})
	return s
}

// Walker returns a fresh walker over the stack.
func (s *Stack) Walker() frame.Walker {
	return &walker{frames: s.frames}
}

type walker struct {
	frames []physFrame
	index  int
}

func (w *walker) Next() (frame.PhysicalFrame, bool) {
	if w.index >= len(w.frames) {
		return nil, false
	}
	f := &w.frames[w.index]
	w.index++
	return (*walkFrame)(f), true
}

type walkFrame physFrame

func (f *walkFrame) Interpreted() bool { return f.interpreted }

func (f *walkFrame) Location() (frame.Method, int) { return f.method, f.bci }

func (f *walkFrame) Inlined() frame.InlineCursor {
	return &inlineCursor{scopes: f.scopes}
}

type inlineCursor struct {
	scopes []Scope
	index  int
}

func (c *inlineCursor) Next() (frame.Method, int, bool) {
	if c.index >= len(c.scopes) {
		return nil, 0, false
	}
	s := c.scopes[c.index]
	c.index++
	return s.Method, s.BCI, true
}

// backtraceBox wraps the backtrace handle so atomic.Value can hold a nil
// detach as well as a live store.
type backtraceBox struct {
	bt frame.Backtrace
}

// Throwable is a test exception object. The backtrace slot uses
// atomic.Value for the release/acquire publication handoff the engine
// requires.
type Throwable struct {
	class    *Class
	message  string
	hasMsg   bool
	bt       atomic.Value // backtraceBox
	depth    atomic.Int32
	clears   atomic.Int32
	causeFn  func() (frame.Throwable, error)
	elements atomic.Bool // lazily materialized elements present
}

// NewThrowable creates a throwable of the given class. msg == "" means
// no detail message.
func NewThrowable(c *Class, msg string) *Throwable {
	return &Throwable{class: c, message: msg, hasMsg: msg != ""}
}

// SetCauseFunc installs the user-level cause resolution hook. The hook
// may return an error or panic; the engine must tolerate both.
func (t *Throwable) SetCauseFunc(fn func() (frame.Throwable, error)) {
	t.causeFn = fn
}

// Class returns the throwable's class mirror.
func (t *Throwable) Class() frame.Class { return t.class }

// Message returns the detail message, ok=false when absent.
func (t *Throwable) Message() (string, bool) { return t.message, t.hasMsg }

// Backtrace loads the attached backtrace handle (acquire).
func (t *Throwable) Backtrace() frame.Backtrace {
	v := t.bt.Load()
	if v == nil {
		return nil
	}
	return v.(backtraceBox).bt
}

// SetBacktrace publishes or detaches the backtrace handle (release).
func (t *Throwable) SetBacktrace(bt frame.Backtrace) {
	t.bt.Store(backtraceBox{bt: bt})
}

// Depth returns the recorded frame count.
func (t *Throwable) Depth() int { return int(t.depth.Load()) }

// SetDepth records the frame count.
func (t *Throwable) SetDepth(d int) { t.depth.Store(int32(d)) }

// ClearElements drops any lazily materialized element state.
func (t *Throwable) ClearElements() {
	t.elements.Store(false)
	t.clears.Add(1)
}

// ClearCount reports how often ClearElements ran (tests only).
func (t *Throwable) ClearCount() int { return int(t.clears.Load()) }

// Cause invokes the installed cause hook; no hook means no cause.
func (t *Throwable) Cause() (frame.Throwable, error) {
	if t.causeFn == nil {
		return nil, nil
	}
	return t.causeFn()
}
