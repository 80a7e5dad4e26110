package klox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run compiles and executes source against a fresh VM, returning
// everything printed plus the interpret outcome.
func run(t *testing.T, source string) (string, InterpretResult, error) {
	t.Helper()
	vm := NewVM(Flags{}, nil)
	var out bytes.Buffer
	vm.Out = &out
	result, err := vm.Interpret(source)
	return out.String(), result, err
}

func TestEndToEndScenarios(t *testing.T) {
	t.Run("arithmetic and print", func(t *testing.T) {
		out, result, err := run(t, "print 1 + 2 * 3;")
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
		assert.Equal(t, "7\n", out)
	})

	t.Run("string concatenation", func(t *testing.T) {
		out, result, err := run(t, `print "foo" + "bar";`)
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
		assert.Equal(t, "foobar\n", out)
	})

	t.Run("closure capture across return", func(t *testing.T) {
		src := `
			fun makeCounter() {
				var i = 0;
				fun inc() { i = i + 1; print i; }
				return inc;
			}
			var c = makeCounter();
			c(); c(); c();
		`
		out, result, err := run(t, src)
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
		assert.Equal(t, "1\n2\n3\n", out)
	})

	t.Run("class method and this", func(t *testing.T) {
		src := `
			class Greeter { greet(name) { print "hi " + name; } }
			Greeter().greet("world");
		`
		out, result, err := run(t, src)
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
		assert.Equal(t, "hi world\n", out)
	})

	t.Run("inheritance and super", func(t *testing.T) {
		src := `
			class A { m() { print "A"; } }
			class B < A { m() { super.m(); print "B"; } }
			B().m();
		`
		out, result, err := run(t, src)
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
		assert.Equal(t, "A\nB\n", out)
	})

	t.Run("fibonacci recursion", func(t *testing.T) {
		src := `
			fun fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
			print fib(10);
		`
		out, result, err := run(t, src)
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
		assert.Equal(t, "55\n", out)
	})
}

func TestFailureScenarios(t *testing.T) {
	t.Run("undefined global", func(t *testing.T) {
		_, result, err := run(t, "print x;")
		require.Error(t, err)
		assert.Equal(t, InterpretRuntimeError, result)
		assert.Contains(t, err.Error(), "Undefined variable 'x'.")
	})

	t.Run("mismatched add operands", func(t *testing.T) {
		_, result, err := run(t, `"a" + 1;`)
		require.Error(t, err)
		assert.Equal(t, InterpretRuntimeError, result)
		assert.Contains(t, err.Error(), "Operands must be two numbers or two strings.")
	})

	t.Run("stack overflow on deep recursion", func(t *testing.T) {
		_, result, err := run(t, `fun rec(n) { return rec(n+1); } rec(0);`)
		require.Error(t, err)
		assert.Equal(t, InterpretRuntimeError, result)
		assert.Contains(t, err.Error(), "Stack overflow.")
	})
}

func TestCompileErrors(t *testing.T) {
	t.Run("read local in its own initializer", func(t *testing.T) {
		_, result, err := run(t, "{ var x = x; }")
		require.Error(t, err)
		assert.Equal(t, InterpretCompileError, result)
		assert.Contains(t, err.Error(), "Can't read local variable in its own initializer.")
	})

	t.Run("class cannot inherit from itself", func(t *testing.T) {
		_, result, err := run(t, "class A < A {}")
		require.Error(t, err)
		assert.Equal(t, InterpretCompileError, result)
		assert.Contains(t, err.Error(), "A class can't inherit from itself.")
	})

	t.Run("return from top level", func(t *testing.T) {
		_, result, err := run(t, "return 1;")
		require.Error(t, err)
		assert.Equal(t, InterpretCompileError, result)
		assert.Contains(t, err.Error(), "Can't return from top-level code.")
	})

	t.Run("more than 255 parameters rejected", func(t *testing.T) {
		var params []string
		for i := 0; i < 256; i++ {
			params = append(params, "a"+itoa(i))
		}
		src := "fun f(" + strings.Join(params, ",") + ") {}"
		_, result, err := run(t, src)
		require.Error(t, err)
		assert.Equal(t, InterpretCompileError, result)
		assert.Contains(t, err.Error(), "Can't have more than 255 parameters.")
	})

	t.Run("255 parameters accepted", func(t *testing.T) {
		var params []string
		for i := 0; i < 255; i++ {
			params = append(params, "a"+itoa(i))
		}
		src := "fun f(" + strings.Join(params, ",") + ") {}"
		_, result, err := run(t, src)
		require.NoError(t, err)
		assert.Equal(t, InterpretOK, result)
	})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestGlobalRedefinitionRoundTrip(t *testing.T) {
	out, result, err := run(t, `
		var x = 1;
		print x;
		x = 2;
		print x;
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "1\n2\n", out)
}

func TestClosureIdentity(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	var out bytes.Buffer
	vm.Out = &out
	result, err := vm.Interpret(`
		fun f() {}
		var g = f;
		print g == f;
	`)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "true\n", out.String())
}
