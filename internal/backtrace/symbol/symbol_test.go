package symbol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestInternCanonicalizes tests that equal strings intern to equal symbols
// and that the canonical store holds one entry per distinct string.
func TestInternCanonicalizes(t *testing.T) {
	Reset()
	defer Reset()

	a := Intern("processRequest")
	b := Intern("processRequest")
	c := Intern(strings.Clone("processRequest"))

	require.Equal(t, a, b)
	require.Equal(t, a, c)
	require.Equal(t, "processRequest", string(a))
	require.Equal(t, 1, Stats())
}

// TestInternDistinctStrings tests that distinct names stay distinct.
func TestInternDistinctStrings(t *testing.T) {
	Reset()
	defer Reset()

	a := Intern("<init>")
	b := Intern("fillInStackTrace")

	require.NotEqual(t, a, b)
	require.Equal(t, 2, Stats())
}

// TestInternEmpty tests that the empty string maps to None without
// touching the canonical store.
func TestInternEmpty(t *testing.T) {
	Reset()
	defer Reset()

	require.Equal(t, None, Intern(""))
	require.Equal(t, 0, Stats())
}

// TestInternSurvivesEviction tests that symbols handed out before an
// eviction wave stay valid and equal to freshly interned copies.
func TestInternSurvivesEviction(t *testing.T) {
	Reset()
	defer Reset()

	early := Intern("keepMe")

	// Push well past capacity so the early entry is evicted.
	for i := 0; i < CanonicalCapacity*2; i++ {
		Intern(fmt.Sprintf("filler%d", i))
	}
	require.LessOrEqual(t, Stats(), CanonicalCapacity)

	// Equality is by value; losing the canonical entry loses only sharing.
	require.Equal(t, early, Intern("keepMe"))
	require.Equal(t, "keepMe", string(early))
}

// TestReset tests that Reset empties the store and old symbols remain usable.
func TestReset(t *testing.T) {
	Reset()
	s := Intern("before")
	require.Equal(t, 1, Stats())

	Reset()
	require.Equal(t, 0, Stats())
	require.Equal(t, "before", string(s))
	require.Equal(t, s, Intern("before"))
}
