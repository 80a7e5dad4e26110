package klox

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(NilValue(), NilValue()))
	assert.True(t, ValuesEqual(BoolValue(true), BoolValue(true)))
	assert.False(t, ValuesEqual(BoolValue(true), BoolValue(false)))
	assert.True(t, ValuesEqual(NumberValue(1), NumberValue(1)))
	assert.False(t, ValuesEqual(NumberValue(1), NilValue()))

	nan := NumberValue(math.NaN())
	assert.False(t, ValuesEqual(nan, nan), "NaN must not equal itself")
}

func TestIsFalsey(t *testing.T) {
	assert.True(t, IsFalsey(NilValue()))
	assert.True(t, IsFalsey(BoolValue(false)))
	assert.False(t, IsFalsey(BoolValue(true)))
	assert.False(t, IsFalsey(NumberValue(0)))
}

func TestPrintValue(t *testing.T) {
	assert.Equal(t, "nil", PrintValue(NilValue()))
	assert.Equal(t, "true", PrintValue(BoolValue(true)))
	assert.Equal(t, "3.5", PrintValue(NumberValue(3.5)))
	assert.Equal(t, "7", PrintValue(NumberValue(7)))
}

func TestInternedStringReferenceEquality(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	a := vm.copyString("hello")
	b := vm.copyString("hello")
	assert.Same(t, a, b, "identical byte sequences must intern to one object")
	assert.True(t, ValuesEqual(ObjValue(a), ObjValue(b)))
}
