package klox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCStressKeepsProgramCorrect(t *testing.T) {
	vm := NewVM(Flags{GCStress: true}, nil)
	var out bytes.Buffer
	vm.Out = &out

	src := `
		class Node {
			init(value) { this.value = value; }
			describe() { print this.value; }
		}
		fun build(n) {
			var i = 0;
			while (i < n) {
				var node = Node(i);
				node.describe();
				i = i + 1;
			}
		}
		build(20);
	`
	result, err := vm.Interpret(src)
	require.NoError(t, err)
	assert.Equal(t, InterpretOK, result)
	assert.Equal(t, "0\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\n14\n15\n16\n17\n18\n19\n", out.String())
}

func TestCollectGarbageFreesUnreachableStrings(t *testing.T) {
	vm := NewVM(Flags{}, nil)

	vm.push(ObjValue(vm.copyString("transient")))
	vm.pop()

	before := vm.gc.bytesAllocated
	vm.collectGarbage()
	assert.Less(t, vm.gc.bytesAllocated, before, "an unreachable string should be swept")
	assert.Nil(t, vm.strings.FindString("transient", fnv1a32("transient")), "intern table must drop weak entries for collected strings")
}

func TestCollectGarbageKeepsGlobalsReachable(t *testing.T) {
	vm := NewVM(Flags{}, nil)
	var out bytes.Buffer
	vm.Out = &out

	_, err := vm.Interpret(`var kept = "i am reachable";`)
	require.NoError(t, err)

	vm.collectGarbage()

	name := vm.copyString("kept")
	v, ok := vm.globals.Get(name)
	require.True(t, ok)
	assert.Equal(t, "i am reachable", v.AsString().Chars)
}
