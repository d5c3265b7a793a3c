package cellisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymTabHash(t *testing.T) {
	// The fold is little-endian 16-bit pairs, odd final byte alone,
	// modulo the table size. These vectors pin it bit-exactly.
	tab := NewSymTab(101, 10)
	tests := []struct {
		text string
		slot int
	}{
		{"a", 97},            // 'a'
		{"ab", 36},           // 'a' + 'b'<<8 = 25185
		{"abc", 34},          // 'c' + ('a' + 'b'<<8) = 25284
		{"abcdefghij", tab.hash("abcdefghij")},
		{"abcdefghijklm", tab.hash("abcdefghij")}, // truncated identity
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			p, err := tab.Intern(test.text)
			require.NoError(t, err)
			assert.Equal(t, KindSym, p.Kind)
			assert.Equal(t, test.slot, p.Index)
		})
	}
}

func TestSymTabInternIdempotent(t *testing.T) {
	tab := NewSymTab(101, 10)

	p1, err := tab.Intern("square")
	require.NoError(t, err)
	require.NoError(t, tab.SetValue(p1, SymPtr(42)))

	// Re-interning returns the same slot and leaves the binding
	// alone.
	p2, err := tab.Intern("square")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	v, err := tab.Value(p2)
	require.NoError(t, err)
	assert.Equal(t, SymPtr(42), v)
}

func TestSymTabTruncation(t *testing.T) {
	tab := NewSymTab(101, 10)

	long, err := tab.Intern("abcdefghijklmnop")
	require.NoError(t, err)
	short, err := tab.Intern("abcdefghij")
	require.NoError(t, err)

	assert.Equal(t, short, long)
	assert.Equal(t, "abcdefghij", tab.Text(long))
}

func TestSymTabProbing(t *testing.T) {
	// A three-slot table makes the probe path easy to pin down:
	// 'a'=97 and 'd'=100 both hash to slot 1.
	tab := NewSymTab(3, 10)

	a, err := tab.Intern("a")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Index)

	b, err := tab.Intern("b")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Index)

	// "d" probes 1 -> 2 -> wraps to 0.
	d, err := tab.Intern("d")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Index)

	t.Run("full table raises TableFull", func(t *testing.T) {
		_, err := tab.Intern("e")
		require.Error(t, err)
		assert.IsType(t, TableFullError{}, err)
		assert.True(t, IsFatal(err))
	})

	t.Run("lookup finds probed symbols without inserting", func(t *testing.T) {
		p, ok := tab.Lookup("d")
		require.True(t, ok)
		assert.Equal(t, d, p)

		_, ok = tab.Lookup("z")
		assert.False(t, ok)
	})
}

func TestSymTabLookupStopsAtEmptySlot(t *testing.T) {
	tab := NewSymTab(101, 10)
	_, ok := tab.Lookup("nothing")
	assert.False(t, ok)
}

func TestSymTabBadTag(t *testing.T) {
	tab := NewSymTab(101, 10)
	tests := []struct {
		name string
		ptr  Ptr
	}{
		{"pair pointer", PairPtr(3)},
		{"nil pointer", NilPtr},
		{"out of range slot", SymPtr(500)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := tab.Value(test.ptr)
			assert.IsType(t, BadTagError{}, err)
			err = tab.SetValue(test.ptr, NilPtr)
			assert.IsType(t, BadTagError{}, err)
		})
	}
}

func TestSymTabRoots(t *testing.T) {
	tab := NewSymTab(101, 10)

	x, err := tab.Intern("x")
	require.NoError(t, err)
	y, err := tab.Intern("y")
	require.NoError(t, err)
	z, err := tab.Intern("z")
	require.NoError(t, err)

	require.NoError(t, tab.SetValue(x, PairPtr(7)))
	require.NoError(t, tab.SetValue(y, PairPtr(7))) // duplicate root
	require.NoError(t, tab.SetValue(z, SymPtr(3)))  // not a root

	roots := tab.Roots()
	assert.Equal(t, []Ptr{PairPtr(7)}, roots)
}

func TestSymTabClear(t *testing.T) {
	tab := NewSymTab(101, 10)
	p, err := tab.Intern("x")
	require.NoError(t, err)
	require.NoError(t, tab.SetValue(p, PairPtr(1)))

	tab.Clear()

	_, ok := tab.Lookup("x")
	assert.False(t, ok)
	assert.Empty(t, tab.Roots())
}
