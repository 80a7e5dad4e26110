package klox

// ObjType tags the variant of a heap object.
type ObjType uint8

const (
	ObjTString ObjType = iota
	ObjTFunction
	ObjTNative
	ObjTClosure
	ObjTUpvalue
	ObjTClass
	ObjTInstance
	ObjTBoundMethod
)

// Obj is satisfied by every heap-object variant. The common header
// (type tag, mark bit, intrusive "next" link threading every live
// object into one allocator bookkeeping list) lives in objHeader and
// is promoted into each concrete type by embedding.
type Obj interface {
	objType() ObjType
	marked() bool
	setMarked(bool)
	nextObj() Obj
	setNextObj(Obj)
}

type objHeader struct {
	typ      ObjType
	isMarked bool
	next     Obj
}

func (h *objHeader) objType() ObjType  { return h.typ }
func (h *objHeader) marked() bool      { return h.isMarked }
func (h *objHeader) setMarked(b bool)  { h.isMarked = b }
func (h *objHeader) nextObj() Obj      { return h.next }
func (h *objHeader) setNextObj(o Obj)  { h.next = o }

// ObjString is an interned, immutable byte sequence. Interned
// invariant: at most one *ObjString exists per distinct byte
// sequence, so string equality reduces to pointer equality — enforced
// by always allocating strings through copyString (gc.go), never via
// a bare struct literal anywhere else.
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

// ObjFunction is a compiled unit: its own Chunk, an arity, an upvalue
// count, and an optional name (nil for the top-level script).
type ObjFunction struct {
	objHeader
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString
}

// NativeFn is the signature a host function must implement: it
// receives the argument slice and returns a Value or an error. An
// error is reported as a VM runtime error at the call site. A native
// must not allocate heap objects itself outside the engine's
// rooting-safe constructors.
type NativeFn func(vm *VM, args []Value) (Value, error)

type ObjNative struct {
	objHeader
	Name string
	Fn   NativeFn
}

// ObjClosure pairs a Function with its captured upvalues. It is the
// VM's only callable-producing form for user code — a bare
// *ObjFunction is never invoked directly, it's wrapped by OP_CLOSURE
// the moment it's produced by the compiler (the top-level script
// function is wrapped by Interpret).
type ObjClosure struct {
	objHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

// ObjUpvalue captures either a live stack slot ("open": Location
// points into the VM's value stack) or a migrated Value ("closed":
// Location points at Closed itself). Next threads the VM's
// open-upvalue list, kept sorted by descending stack address.
type ObjUpvalue struct {
	objHeader
	Location *Value
	Closed   Value
	Next     *ObjUpvalue
}

// ObjClass holds a name and its method table (string -> closure).
type ObjClass struct {
	objHeader
	Name    *ObjString
	Methods Table
}

// ObjInstance holds a reference to its class and an instance-local
// field table.
type ObjInstance struct {
	objHeader
	Class  *ObjClass
	Fields Table
}

// ObjBoundMethod pairs a receiver with one of its class's closures.
// Created lazily on property access.
type ObjBoundMethod struct {
	objHeader
	Receiver Value
	Method   *ObjClosure
}
