package store

import (
	"errors"

	"github.com/hseigel/amber/internal/backtrace/bcv"
	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/symbol"
)

// ChunkCapacity is the number of frame records per chunk. Growing by
// fixed-size chunks bounds every individual allocation during capture
// regardless of stack depth.
const ChunkCapacity = 32

// ErrAllocFailed reports that the chunk allocator could not provide a new
// chunk. The store stays valid: every previously completed chunk is
// retained and the capture truncates gracefully.
var ErrAllocFailed = errors.New("backtrace store: chunk allocation failed")

// Chunk is one fixed-capacity block of four parallel columns. All four
// columns are written strictly left-to-right at the same cursor; entries
// past the cursor are zero, never garbage.
//
// Chunks chain from the first-allocated chunk (innermost frames) toward
// later chunks (outward frames), so iteration follows next links in
// logical stack order.
type Chunk struct {
	methods [ChunkCapacity]uint16
	bcis    [ChunkCapacity]bcv.Packed
	mirrors [ChunkCapacity]frame.Class
	names   [ChunkCapacity]symbol.Symbol
	next    *Chunk
}

// Allocator produces one chunk. It is the single designated fallible,
// collector-visible operation of a capture pass: everything else the
// builder does is plain computation over already-copied values.
type Allocator func() (*Chunk, error)

// HeapAllocator is the default chunk allocator.
func HeapAllocator() (*Chunk, error) {
	return new(Chunk), nil
}

// Store is the chunked columnar record of one captured backtrace.
//
// A Store is written by exactly one thread, before publication, through
// Expand/Push/MarkHiddenTopFrame. Publication happens when the owning
// throwable's backtrace slot is set with release semantics; from then on
// the store is immutable and arbitrarily many threads may iterate it.
type Store struct {
	root  *Chunk // first chunk, iteration starts here
	head  *Chunk // current write chunk
	index int    // write cursor within head

	// hiddenTop is the one-shot marker telling the materializer that the
	// true top of the logical trace was suppressed. Conceptually it lives
	// on the first chunk; it is only ever set while head == root.
	hiddenTop bool

	// preallocated marks a store created ahead of a fault window. Such a
	// store never grows and is never replaced by a fresh capture.
	preallocated bool

	alloc Allocator
}

// New creates an empty store with one chunk ready for writing.
//
// alloc == nil selects HeapAllocator. New fails only if the first chunk
// cannot be allocated.
func New(alloc Allocator) (*Store, error) {
	if alloc == nil {
		alloc = HeapAllocator
	}
	s := &Store{alloc: alloc}
	if err := s.Expand(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPreallocated creates a single-chunk store flagged for in-place reuse.
//
// Preallocated stores are handed to throwables that must not allocate
// during capture (out-of-memory conditions); filling them later truncates
// at ChunkCapacity instead of growing.
func NewPreallocated(alloc Allocator) (*Store, error) {
	s, err := New(alloc)
	if err != nil {
		return nil, err
	}
	s.preallocated = true
	return s, nil
}

// Expand allocates a new chunk, links it after the current head, and
// rewinds the write cursor.
//
// On allocation failure the store is unchanged apart from returning
// ErrAllocFailed-wrapped error: completed chunks stay intact and the
// caller aborts the remainder of the capture.
func (s *Store) Expand() error {
	c, err := s.alloc()
	if err != nil {
		return errors.Join(ErrAllocFailed, err)
	}
	if s.head != nil {
		s.head.next = c
	} else {
		s.root = c
	}
	s.head = c
	s.index = 0
	return nil
}

// Full reports whether the write cursor has reached the current chunk's
// capacity. Push never checks this itself: the builder calls Expand first.
func (s *Store) Full() bool {
	return s.index >= ChunkCapacity
}

// Push writes one frame record at the write cursor.
//
// The mirror is a strong reference that keeps the declaring class alive
// for the lifetime of the trace; pushing a nil mirror would record a
// dangling attribution, so it panics. Pushing past capacity violates the
// Expand-first contract and also panics.
func (s *Store) Push(methodID uint16, loc bcv.Packed, mirror frame.Class, name symbol.Symbol) {
	if s.Full() {
		panic("backtrace store: push past chunk capacity")
	}
	if mirror == nil {
		panic("backtrace store: never push a nil mirror")
	}
	s.head.methods[s.index] = methodID
	s.head.bcis[s.index] = loc
	s.head.mirrors[s.index] = mirror
	s.head.names[s.index] = name
	s.index++
}

// MarkHiddenTopFrame sets the one-shot hidden-top marker. Idempotent: a
// second call does nothing, so the marker is only ever materialized once.
func (s *Store) MarkHiddenTopFrame() {
	s.hiddenTop = true
}

// HasHiddenTopFrame reports whether the top logical frame was suppressed.
func (s *Store) HasHiddenTopFrame() bool {
	return s.hiddenTop
}

// Preallocated reports whether this store was created for in-place reuse.
func (s *Store) Preallocated() bool {
	return s.preallocated
}

// Reset rewinds a preallocated store for refilling.
//
// Only single-chunk preallocated stores may be reset; a fresh-capture
// store is never reused, so resetting one is a logic error.
func (s *Store) Reset() {
	if !s.preallocated || s.root != s.head {
		panic("backtrace store: reset of a non-preallocated store")
	}
	s.index = 0
	s.hiddenTop = false
	for i := range s.root.mirrors {
		s.root.methods[i] = 0
		s.root.bcis[i] = 0
		s.root.mirrors[i] = nil
		s.root.names[i] = symbol.None
	}
}

// Record is one frame as read back out of the store.
type Record struct {
	Mirror   frame.Class
	MethodID uint16
	BCI      int
	Version  int
	Name     symbol.Symbol
}

// Iterator walks a published store innermost-frame-first, transparently
// crossing chunk boundaries. Safe for concurrent use on distinct Iterator
// values; the underlying store is immutable.
type Iterator struct {
	chunk *Chunk
	index int
}

// Iterate returns an iterator positioned at the first (innermost) frame.
func (s *Store) Iterate() Iterator {
	return Iterator{chunk: s.root}
}

// Next yields the next frame record. ok=false once the current position
// has no written record: either past the last chunk, or at a column entry
// whose mirror was never written.
func (it *Iterator) Next() (r Record, ok bool) {
	if it.chunk == nil || it.chunk.mirrors[it.index] == nil {
		return Record{}, false
	}
	c := it.chunk
	r = Record{
		Mirror:   c.mirrors[it.index],
		MethodID: c.methods[it.index],
		BCI:      c.bcis[it.index].BCI(),
		Version:  c.bcis[it.index].Version(),
		Name:     c.names[it.index],
	}
	it.index++
	if it.index >= ChunkCapacity {
		it.chunk = c.next
		it.index = 0
	}
	return r, true
}

// Chunks counts the chunks currently linked into the store (diagnostics
// and tests only).
func (s *Store) Chunks() int {
	n := 0
	for c := s.root; c != nil; c = c.next {
		n++
	}
	return n
}
