package klox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileLocalsLimit(t *testing.T) {
	// Slot 0 of every function is reserved for the receiver, so the
	// 256-entry locals array holds at most 255 user-declared locals.
	var decls []string
	for i := 0; i < 255; i++ {
		decls = append(decls, "var a"+itoa(i)+" = 0;")
	}
	src := "{ " + strings.Join(decls, " ") + " }"

	vm := NewVM(Flags{}, nil)
	_, err := Compile(vm, src)
	require.NoError(t, err, "255 user locals plus the reserved slot must be accepted")

	decls = append(decls, "var oneTooMany = 0;")
	src = "{ " + strings.Join(decls, " ") + " }"
	vm2 := NewVM(Flags{}, nil)
	_, err = Compile(vm2, src)
	require.Error(t, err, "256 user locals must be rejected")
	assert.Contains(t, err.Error(), "Too many local variables in function.")
}

func TestCompileConstantPoolLimit(t *testing.T) {
	var stmts []string
	for i := 0; i < 257; i++ {
		stmts = append(stmts, "print "+itoa(i)+";")
	}
	src := strings.Join(stmts, " ")

	vm := NewVM(Flags{}, nil)
	_, err := Compile(vm, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too many constants in one chunk.")
}

func TestCompileSynchronizeAfterError(t *testing.T) {
	// Two independent statement-level errors should both surface,
	// proving panic-mode recovery finds the next statement boundary.
	src := "print ; print ;"
	vm := NewVM(Flags{}, nil)
	_, err := Compile(vm, src)
	require.Error(t, err)
	ce, ok := err.(*CompileError)
	require.True(t, ok)
	assert.Len(t, ce.Errs, 2)
}
