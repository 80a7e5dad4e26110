package klox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func internedKey(t *testing.T, vm *VM, s string) *ObjString {
	t.Helper()
	return vm.copyString(s)
}

func TestTableSetGetDelete(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	tbl := NewTable()
	k := internedKey(t, vm, "answer")

	_, ok := tbl.Get(k)
	assert.False(t, ok)

	isNew := tbl.Set(k, NumberValue(42))
	assert.True(t, isNew)

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, 42.0, v.AsNumber())

	isNew = tbl.Set(k, NumberValue(43))
	assert.False(t, isNew, "overwriting an existing key is not a new insertion")

	require.True(t, tbl.Delete(k))
	_, ok = tbl.Get(k)
	assert.False(t, ok)
}

func TestTableGrowthAndManyKeys(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	tbl := NewTable()

	const n = 500
	for i := 0; i < n; i++ {
		key := internedKey(t, vm, fmt.Sprintf("key-%d", i))
		tbl.Set(key, NumberValue(float64(i)))
	}

	for i := 0; i < n; i++ {
		key := internedKey(t, vm, fmt.Sprintf("key-%d", i))
		v, ok := tbl.Get(key)
		require.True(t, ok)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestTableFindStringMatchesInternedContent(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	s := vm.copyString("probe")
	found := vm.strings.FindString("probe", fnv1a32("probe"))
	require.NotNil(t, found)
	assert.Same(t, s, found)

	assert.Nil(t, vm.strings.FindString("nope", fnv1a32("nope")))
}

func TestTableAddAll(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	src := NewTable()
	dst := NewTable()

	a := internedKey(t, vm, "a")
	b := internedKey(t, vm, "b")
	src.Set(a, NumberValue(1))
	src.Set(b, NumberValue(2))

	dst.AddAll(src)

	v, ok := dst.Get(a)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.AsNumber())
	v, ok = dst.Get(b)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.AsNumber())
}

func TestFNV1a32KnownHash(t *testing.T) {
	// FNV-1a 32-bit hash of the empty string is the offset basis itself.
	assert.Equal(t, uint32(2166136261), fnv1a32(""))
}
