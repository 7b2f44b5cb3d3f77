package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hseigel/amber/internal/backtrace/bcv"
	"github.com/hseigel/amber/internal/backtrace/symbol"
	"github.com/hseigel/amber/internal/backtrace/testvm"
)

func testMirror(t *testing.T) *testvm.Class {
	t.Helper()
	return testvm.New().DefineClass("demo.Worker", "Worker.amb", nil)
}

// failAfter returns an allocator that succeeds n times and then fails.
func failAfter(n int) Allocator {
	calls := 0
	return func() (*Chunk, error) {
		calls++
		if calls > n {
			return nil, fmt.Errorf("simulated heap exhaustion on chunk %d", calls)
		}
		return new(Chunk), nil
	}
}

// TestNewStartsWithOneChunk tests that a fresh store is writable immediately.
func TestNewStartsWithOneChunk(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.Chunks())
	require.False(t, s.Full())
	require.False(t, s.Preallocated())
	require.False(t, s.HasHiddenTopFrame())
}

// TestNewAllocFailure tests that first-chunk failure yields no store at all.
func TestNewAllocFailure(t *testing.T) {
	s, err := New(failAfter(0))
	require.Nil(t, s)
	require.ErrorIs(t, err, ErrAllocFailed)
}

// TestPushAndIterate tests a partial single chunk round trip.
func TestPushAndIterate(t *testing.T) {
	mirror := testMirror(t)
	s, err := New(nil)
	require.NoError(t, err)

	name := symbol.Intern("handle")
	s.Push(7, bcv.Pack(42, 1), mirror, name)
	s.Push(8, bcv.Pack(0, 1), mirror, name)

	it := s.Iterate()
	r, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, uint16(7), r.MethodID)
	require.Equal(t, 42, r.BCI)
	require.Equal(t, 1, r.Version)
	require.Equal(t, name, r.Name)
	require.Same(t, mirror, r.Mirror)

	r, ok = it.Next()
	require.True(t, ok)
	require.Equal(t, uint16(8), r.MethodID)
	require.Equal(t, 0, r.BCI)

	_, ok = it.Next()
	require.False(t, ok)
}

// TestIterateCrossesChunkBoundaries tests order preservation across three
// full chunks plus a partial fourth.
func TestIterateCrossesChunkBoundaries(t *testing.T) {
	mirror := testMirror(t)
	s, err := New(nil)
	require.NoError(t, err)

	const total = 3*ChunkCapacity + 1
	for i := 0; i < total; i++ {
		if s.Full() {
			require.NoError(t, s.Expand())
		}
		s.Push(uint16(i), bcv.Pack(i, 1), mirror, symbol.Intern("run"))
	}
	require.Equal(t, 4, s.Chunks())

	it := s.Iterate()
	for i := 0; i < total; i++ {
		r, ok := it.Next()
		require.True(t, ok, "record %d", i)
		require.Equal(t, uint16(i), r.MethodID, "record %d", i)
		require.Equal(t, i, r.BCI, "record %d", i)
	}
	_, ok := it.Next()
	require.False(t, ok)
}

// TestIterateStopsAtTrailingEmptyChunk tests that a chunk expanded but
// never written does not yield phantom records.
func TestIterateStopsAtTrailingEmptyChunk(t *testing.T) {
	mirror := testMirror(t)
	s, err := New(nil)
	require.NoError(t, err)

	for i := 0; i < ChunkCapacity; i++ {
		s.Push(uint16(i), bcv.Pack(i, 1), mirror, symbol.None)
	}
	require.NoError(t, s.Expand())
	require.Equal(t, 2, s.Chunks())

	it := s.Iterate()
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	require.Equal(t, ChunkCapacity, n)
}

// TestExpandFailureKeepsCompletedChunks tests graceful truncation: a failed
// grow leaves every already-written record readable.
func TestExpandFailureKeepsCompletedChunks(t *testing.T) {
	mirror := testMirror(t)
	s, err := New(failAfter(2))
	require.NoError(t, err)

	for i := 0; i < 2*ChunkCapacity; i++ {
		if s.Full() {
			require.NoError(t, s.Expand())
		}
		s.Push(uint16(i), bcv.Pack(i, 1), mirror, symbol.None)
	}
	require.True(t, s.Full())
	require.ErrorIs(t, s.Expand(), ErrAllocFailed)
	require.Equal(t, 2, s.Chunks())

	it := s.Iterate()
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	require.Equal(t, 2*ChunkCapacity, n)
}

// TestPushPanics tests the two Push contract violations.
func TestPushPanics(t *testing.T) {
	mirror := testMirror(t)
	s, err := New(nil)
	require.NoError(t, err)

	require.PanicsWithValue(t, "backtrace store: never push a nil mirror", func() {
		s.Push(0, 0, nil, symbol.None)
	})

	for i := 0; i < ChunkCapacity; i++ {
		s.Push(uint16(i), 0, mirror, symbol.None)
	}
	require.PanicsWithValue(t, "backtrace store: push past chunk capacity", func() {
		s.Push(0, 0, mirror, symbol.None)
	})
}

// TestMarkHiddenTopFrameIdempotent tests that repeated marking is a no-op.
func TestMarkHiddenTopFrameIdempotent(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	require.False(t, s.HasHiddenTopFrame())
	s.MarkHiddenTopFrame()
	require.True(t, s.HasHiddenTopFrame())
	s.MarkHiddenTopFrame()
	require.True(t, s.HasHiddenTopFrame())
}

// TestResetPreallocated tests refill semantics: cursor rewound, columns
// zeroed, marker cleared.
func TestResetPreallocated(t *testing.T) {
	mirror := testMirror(t)
	s, err := NewPreallocated(nil)
	require.NoError(t, err)
	require.True(t, s.Preallocated())

	s.Push(3, bcv.Pack(9, 1), mirror, symbol.Intern("boom"))
	s.MarkHiddenTopFrame()

	s.Reset()
	require.False(t, s.HasHiddenTopFrame())
	it := s.Iterate()
	_, ok := it.Next()
	require.False(t, ok)

	// Still writable after the rewind.
	s.Push(4, bcv.Pack(1, 1), mirror, symbol.Intern("again"))
	it = s.Iterate()
	r, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, uint16(4), r.MethodID)
}

// TestResetRejectsFreshCaptureStore tests that only preallocated stores
// may be rewound.
func TestResetRejectsFreshCaptureStore(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	require.Panics(t, func() { s.Reset() })
}

// TestExpandWrapsAllocatorError tests that the allocator's own error stays
// inspectable behind ErrAllocFailed.
func TestExpandWrapsAllocatorError(t *testing.T) {
	cause := errors.New("no memory")
	s, err := New(func() (*Chunk, error) { return new(Chunk), nil })
	require.NoError(t, err)

	s.alloc = func() (*Chunk, error) { return nil, cause }
	err = s.Expand()
	require.ErrorIs(t, err, ErrAllocFailed)
	require.ErrorIs(t, err, cause)
}
