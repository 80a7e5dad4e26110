package klox

import (
	"reflect"

	"github.com/chucktilbury/klox/internal/diag"
)

// gcState holds the allocator/collector's bookkeeping: the intrusive
// all-objects list, the heap-growth policy counters, and the gray
// worklist used by the trace phase.
type gcState struct {
	vm *VM

	objects Obj // head of the all-live-objects list

	bytesAllocated int64
	nextGC         int64

	gray []Obj

	// Per-collection counters, reset at the top of collectGarbage and
	// reported through the gc.mark / gc.blacken / gc.free log events.
	marked    int64
	blackened int64
	freed     int64
}

// Rough, size-class-free accounting: every heap object is charged a
// flat cost proportional to its kind. This is a policy knob for the
// heap-growth threshold, not a guarantee about any object's real size.
func objCost(t ObjType) int64 {
	switch t {
	case ObjTString:
		return 48
	case ObjTUpvalue:
		return 32
	case ObjTBoundMethod:
		return 32
	case ObjTInstance:
		return 56
	case ObjTClass:
		return 64
	case ObjTClosure:
		return 40
	case ObjTFunction:
		return 96
	case ObjTNative:
		return 32
	default:
		return 32
	}
}

// track charges a freshly allocated object to the heap accounting, logs
// a gc.allocate event, runs a collection if the allocator's threshold
// (or stress-test mode) demands it, and only then links the object
// into the all-objects list, so the collection its own allocation
// triggered cannot sweep it. This is the *only* place a collection is
// initiated.
func track[T Obj](vm *VM, o T) T {
	var asObj Obj = o
	cost := objCost(asObj.objType())
	vm.gc.bytesAllocated += cost
	vm.log.GCEvent("allocate", diag.Int("objType", int(asObj.objType())), diag.Int64("bytes", cost))

	if vm.flags.GCStress || vm.gc.bytesAllocated > vm.gc.nextGC {
		vm.collectGarbage()
	}
	asObj.setNextObj(vm.gc.objects)
	vm.gc.objects = asObj
	return o
}

func (vm *VM) newFunction() *ObjFunction {
	fn := &ObjFunction{objHeader: objHeader{typ: ObjTFunction}}
	return track(vm, fn)
}

func (vm *VM) newNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{objHeader: objHeader{typ: ObjTNative}, Name: name, Fn: fn}
	return track(vm, n)
}

func (vm *VM) newClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{
		objHeader: objHeader{typ: ObjTClosure},
		Function:  fn,
		Upvalues:  make([]*ObjUpvalue, fn.UpvalueCount),
	}
	return track(vm, c)
}

func (vm *VM) newUpvalue(slot *Value) *ObjUpvalue {
	uv := &ObjUpvalue{objHeader: objHeader{typ: ObjTUpvalue}, Location: slot}
	return track(vm, uv)
}

func (vm *VM) newClass(name *ObjString) *ObjClass {
	c := &ObjClass{objHeader: objHeader{typ: ObjTClass}, Name: name}
	return track(vm, c)
}

func (vm *VM) newInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{objHeader: objHeader{typ: ObjTInstance}, Class: class}
	return track(vm, i)
}

func (vm *VM) newBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{objHeader: objHeader{typ: ObjTBoundMethod}, Receiver: receiver, Method: method}
	return track(vm, b)
}

// fnv1a32 is FNV-1a, 32-bit variant: offset basis 2166136261, prime
// 16777619, applied byte-by-byte. Computed inline rather than via
// hash/fnv so Table's masking and capacity-growth code can stay next
// to the one place this value is produced.
func fnv1a32(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// copyString interns chars: a cache hit returns the existing
// *ObjString, a miss allocates, inserts into the intern table with a
// Nil placeholder value, and tracks it for GC. The new string is
// pushed onto the stack before the table insert so that if the insert
// itself rehashes and allocates, the string is still a reachable root.
func (vm *VM) copyString(chars string) *ObjString {
	hash := fnv1a32(chars)
	if interned := vm.gc.strings().FindString(chars, hash); interned != nil {
		return interned
	}

	s := &ObjString{objHeader: objHeader{typ: ObjTString}, Chars: chars, Hash: hash}
	vm.push(ObjValue(s))
	tracked := track(vm, s)
	vm.strings.Set(tracked, NilValue())
	vm.pop()
	return tracked
}

func (g *gcState) strings() *Table { return &g.vm.strings }

// CopyString exposes string interning to host-provided native
// functions, which must construct any heap value they return through
// engine constructors to preserve the rooting discipline.
func (vm *VM) CopyString(chars string) *ObjString { return vm.copyString(chars) }

// collectGarbage runs one full stop-the-world mark–sweep cycle.
// Allocation never happens between markRoots and sweep.
func (vm *VM) collectGarbage() {
	vm.log.GCEvent("begin", diag.Int64("bytesAllocated", vm.gc.bytesAllocated))

	vm.gc.marked, vm.gc.blackened, vm.gc.freed = 0, 0, 0

	vm.markRoots()
	vm.log.GCEvent("mark", diag.Int64("marked", vm.gc.marked))

	vm.traceReferences()
	vm.log.GCEvent("blacken", diag.Int64("blackened", vm.gc.blackened))

	vm.strings.removeWhite()
	before := vm.gc.bytesAllocated
	vm.sweep()

	vm.log.GCEvent("free",
		diag.Int64("objectsFreed", vm.gc.freed),
		diag.Int64("bytesFreed", before-vm.gc.bytesAllocated),
	)

	vm.gc.nextGC = vm.gc.bytesAllocated * 2
	if vm.gc.nextGC < 1024*1024 {
		vm.gc.nextGC = 1024 * 1024
	}

	vm.log.GCEvent("summary",
		diag.Int64("freed", before-vm.gc.bytesAllocated),
		diag.Int64("bytesAllocated", vm.gc.bytesAllocated),
		diag.Int64("nextGC", vm.gc.nextGC),
	)
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.gc.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.gc.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		vm.gc.markObject(uv)
	}
	MarkTable(&vm.gc, &vm.globals)
	vm.markCompilerRoots()
	vm.gc.markObject(vm.initString)
}

// markCompilerRoots walks the chain of in-progress compiles, each of
// which owns a Function not yet reachable from any running VM value.
func (vm *VM) markCompilerRoots() {
	for c := vm.compiler; c != nil; c = c.enclosing {
		vm.gc.markObject(c.function)
	}
}

func (g *gcState) markValue(v Value) {
	if v.IsObj() {
		g.markObject(v.AsObj())
	}
}

// isNilObj reports whether o is nil, accounting for the case where o
// holds a typed nil pointer (e.g. a nil *ObjString boxed into Obj) —
// such a value is != nil as an interface but must still be treated as
// absent, the same way clox's markObject(NULL) is a no-op.
func isNilObj(o Obj) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (g *gcState) markObject(o Obj) {
	if isNilObj(o) || o.marked() {
		return
	}
	o.setMarked(true)
	g.marked++
	g.gray = append(g.gray, o)
}

// traceReferences pops objects off the gray worklist, blackening each
// by marking everything it references.
func (vm *VM) traceReferences() {
	for len(vm.gc.gray) > 0 {
		o := vm.gc.gray[len(vm.gc.gray)-1]
		vm.gc.gray = vm.gc.gray[:len(vm.gc.gray)-1]
		vm.blackenObject(o)
		vm.gc.blackened++
	}
}

func (vm *VM) blackenObject(o Obj) {
	switch ov := o.(type) {
	case *ObjString, *ObjNative:
		// no outgoing references
	case *ObjUpvalue:
		vm.gc.markValue(ov.Closed)
	case *ObjFunction:
		vm.gc.markObject(ov.Name)
		for _, c := range ov.Chunk.Constants {
			vm.gc.markValue(c)
		}
	case *ObjClosure:
		vm.gc.markObject(ov.Function)
		for _, uv := range ov.Upvalues {
			vm.gc.markObject(uv)
		}
	case *ObjClass:
		vm.gc.markObject(ov.Name)
		MarkTable(&vm.gc, &ov.Methods)
	case *ObjInstance:
		vm.gc.markObject(ov.Class)
		MarkTable(&vm.gc, &ov.Fields)
	case *ObjBoundMethod:
		vm.gc.markValue(ov.Receiver)
		vm.gc.markObject(ov.Method)
	}
}

// sweep walks the all-objects list, dropping anything left white and
// clearing the mark bit on every survivor.
func (vm *VM) sweep() {
	var prev Obj
	obj := vm.gc.objects
	for obj != nil {
		if obj.marked() {
			obj.setMarked(false)
			prev = obj
			obj = obj.nextObj()
			continue
		}
		unreached := obj
		obj = obj.nextObj()
		if prev != nil {
			prev.setNextObj(obj)
		} else {
			vm.gc.objects = obj
		}
		vm.gc.bytesAllocated -= objCost(unreached.objType())
		vm.gc.freed++
	}
}
