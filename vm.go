package klox

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/chucktilbury/klox/internal/diag"
)

const FramesMax = 64
const StackMax = FramesMax * 256

// CallFrame is one activation record: the running closure, its
// instruction pointer into that closure's chunk, and the base offset
// of its window onto the VM's value stack.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	base    int
}

// VM is the whole runtime singleton: the value stack, call frames,
// globals, the intern table, the open-upvalue list, and the garbage
// collector's bookkeeping. Everything below runs on a single thread;
// there is no locking.
type VM struct {
	stack    [StackMax]Value
	stackTop int

	frames     [FramesMax]CallFrame
	frameCount int

	globals Table
	strings Table

	openUpvalues *ObjUpvalue

	initString *ObjString

	compiler *compilerState // chain of in-progress compiles, a GC root

	gc gcState

	log   *diag.Logger
	flags Flags

	// Out receives everything `print` writes. Defaults to os.Stdout;
	// tests substitute a buffer.
	Out io.Writer
}

func NewVM(flags Flags, log *diag.Logger) *VM {
	if log == nil {
		log = diag.New(false)
	}
	vm := &VM{flags: flags, log: log, Out: os.Stdout}
	vm.gc.vm = vm
	vm.gc.nextGC = 1024 * 1024
	vm.initString = vm.copyString("init")
	return vm
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) pushCompiler(c *compilerState) { c.enclosing = vm.compiler; vm.compiler = c }
func (vm *VM) popCompiler()                   { vm.compiler = vm.compiler.enclosing }

// Interpret compiles source and runs it to completion, the engine's
// only entry point.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := Compile(vm, source)
	if err != nil {
		return InterpretCompileError, err
	}

	vm.push(ObjValue(fn))
	closure := vm.newClosure(fn)
	vm.pop()
	vm.push(ObjValue(closure))
	if ok, callErr := vm.callValue(ObjValue(closure), 0); !ok {
		return InterpretRuntimeError, callErr
	}

	return vm.run()
}

func (vm *VM) runtimeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	backtrace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		line := fn.Chunk.Lines[frame.ip-1]
		if fn.Name == nil {
			backtrace = append(backtrace, fmt.Sprintf("[line %d] in script", line))
		} else {
			backtrace = append(backtrace, fmt.Sprintf("[line %d] in %s()", line, fn.Name.Chars))
		}
	}
	vm.resetStack()
	return &RuntimeError{Message: msg, Backtrace: backtrace}
}

func (vm *VM) callValue(callee Value, argCount int) (bool, error) {
	if callee.IsObj() {
		switch callee.AsObj().objType() {
		case ObjTClosure:
			return vm.call(callee.AsClosure(), argCount)
		case ObjTNative:
			native := callee.AsNative()
			args := vm.stack[vm.stackTop-argCount : vm.stackTop]
			result, err := native.Fn(vm, args)
			if err != nil {
				return false, vm.runtimeError("%s", err.Error())
			}
			vm.stackTop -= argCount + 1
			vm.push(result)
			return true, nil
		case ObjTClass:
			class := callee.AsClass()
			vm.stack[vm.stackTop-argCount-1] = ObjValue(vm.newInstance(class))
			if initializer, ok := class.Methods.Get(vm.initString); ok {
				return vm.call(initializer.AsClosure(), argCount)
			} else if argCount != 0 {
				return false, vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			}
			return true, nil
		case ObjTBoundMethod:
			bound := callee.AsBoundMethod()
			vm.stack[vm.stackTop-argCount-1] = bound.Receiver
			return vm.call(bound.Method, argCount)
		}
	}
	return false, vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) call(closure *ObjClosure, argCount int) (bool, error) {
	if argCount != closure.Function.Arity {
		return false, vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return false, vm.runtimeError("Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.stackTop - argCount - 1
	return true, nil
}

func (vm *VM) invoke(name *ObjString, argCount int) (bool, error) {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		return false, vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.AsInstance()

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}

	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) (bool, error) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false, vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsClosure(), argCount)
}

func (vm *VM) bindMethod(class *ObjClass, name *ObjString) (bool, error) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return false, vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), method.AsClosure())
	vm.pop()
	vm.push(ObjValue(bound))
	return true, nil
}

func (vm *VM) captureUpvalue(slotIndex int) *ObjUpvalue {
	var prev *ObjUpvalue
	upvalue := vm.openUpvalues
	for upvalue != nil && upvalueSlot(vm, upvalue) > slotIndex {
		prev = upvalue
		upvalue = upvalue.Next
	}
	if upvalue != nil && upvalueSlot(vm, upvalue) == slotIndex {
		return upvalue
	}

	created := vm.newUpvalue(&vm.stack[slotIndex])
	created.Next = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// upvalueSlot recovers the stack index an open upvalue's Location
// points at, used to keep the open-upvalue list ordered by descending
// slot address. Location always points into vm.stack while the
// upvalue is open, so the offset is a plain pointer subtraction.
func upvalueSlot(vm *VM, uv *ObjUpvalue) int {
	base := uintptr(unsafe.Pointer(&vm.stack[0]))
	loc := uintptr(unsafe.Pointer(uv.Location))
	return int((loc - base) / unsafe.Sizeof(vm.stack[0]))
}

func (vm *VM) closeUpvalues(lastIndex int) {
	for vm.openUpvalues != nil && upvalueSlot(vm, vm.openUpvalues) >= lastIndex {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.Next
	}
}

func (vm *VM) defineMethod(name *ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsClass()
	class.Methods.Set(name, method)
	vm.pop()
}

// DefineNative registers a host function under name in globals.
// Called by the driver, never by engine code itself.
func (vm *VM) DefineNative(name string, fn NativeFn) {
	vm.push(ObjValue(vm.copyString(name)))
	vm.push(ObjValue(vm.newNative(name, fn)))
	vm.globals.Set(vm.peek(1).AsString(), vm.peek(0))
	vm.pop()
	vm.pop()
}

func (vm *VM) run() (InterpretResult, error) {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.closure.Function.Chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() Value {
		return frame.closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() *ObjString { return readConstant().AsString() }

	for {
		if vm.flags.TraceExecution {
			vm.traceInstruction(frame)
		}

		op := OpCode(readByte())
		switch op {
		case OpConstant:
			vm.push(readConstant())
		case OpNil:
			vm.push(NilValue())
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))
		case OpPop:
			vm.pop()
		case OpGetLocal:
			vm.push(vm.stack[frame.base+int(readByte())])
		case OpSetLocal:
			vm.stack[frame.base+int(readByte())] = vm.peek(0)
		case OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return InterpretRuntimeError, vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return InterpretRuntimeError, vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
		case OpGetUpvalue:
			vm.push(*frame.closure.Upvalues[readByte()].Location)
		case OpSetUpvalue:
			*frame.closure.Upvalues[readByte()].Location = vm.peek(0)
		case OpGetProperty:
			if !vm.peek(0).IsInstance() {
				return InterpretRuntimeError, vm.runtimeError("Only instances have properties.")
			}
			instance := vm.peek(0).AsInstance()
			name := readString()
			if v, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if ok, err := vm.bindMethod(instance.Class, name); !ok {
				return InterpretRuntimeError, err
			}
		case OpSetProperty:
			if !vm.peek(1).IsInstance() {
				return InterpretRuntimeError, vm.runtimeError("Only instances have fields.")
			}
			instance := vm.peek(1).AsInstance()
			instance.Fields.Set(readString(), vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)
		case OpGetSuper:
			name := readString()
			superclass := vm.pop().AsClass()
			if ok, err := vm.bindMethod(superclass, name); !ok {
				return InterpretRuntimeError, err
			}
		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(ValuesEqual(a, b)))
		case OpGreater:
			if res, err := vm.binaryNumberOp(func(a, b float64) Value { return BoolValue(a > b) }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}
		case OpLess:
			if res, err := vm.binaryNumberOp(func(a, b float64) Value { return BoolValue(a < b) }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}
		case OpAdd:
			if err := vm.add(); err != nil {
				return InterpretRuntimeError, err
			}
		case OpSubtract:
			if res, err := vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a - b) }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}
		case OpMultiply:
			if res, err := vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a * b) }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}
		case OpDivide:
			if res, err := vm.binaryNumberOp(func(a, b float64) Value { return NumberValue(a / b) }); err != nil {
				return InterpretRuntimeError, err
			} else {
				vm.push(res)
			}
		case OpNot:
			vm.push(BoolValue(IsFalsey(vm.pop())))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return InterpretRuntimeError, vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))
		case OpPrint:
			fmt.Fprintln(vm.Out, PrintValue(vm.pop()))
		case OpJump:
			frame.ip += readShort()
		case OpJumpIfFalse:
			offset := readShort()
			if IsFalsey(vm.peek(0)) {
				frame.ip += offset
			}
		case OpLoop:
			frame.ip -= readShort()
		case OpCall:
			argCount := int(readByte())
			ok, err := vm.callValue(vm.peek(argCount), argCount)
			if !ok {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]
		case OpInvoke:
			name := readString()
			argCount := int(readByte())
			ok, err := vm.invoke(name, argCount)
			if !ok {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]
		case OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsClass()
			ok, err := vm.invokeFromClass(superclass, name, argCount)
			if !ok {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]
		case OpClosure:
			fn := readConstant().AsFunction()
			closure := vm.newClosure(fn)
			vm.push(ObjValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()
		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK, nil
			}
			vm.stackTop = frame.base
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
		case OpClass:
			vm.push(ObjValue(vm.newClass(readString())))
		case OpInherit:
			superVal := vm.peek(1)
			if !superVal.IsClass() {
				return InterpretRuntimeError, vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsClass()
			subclass.Methods.AddAll(&superVal.AsClass().Methods)
			vm.pop()
		case OpMethod:
			vm.defineMethod(readString())
		default:
			return InterpretRuntimeError, vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) binaryNumberOp(op func(a, b float64) Value) (Value, error) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return Value{}, vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	return op(a, b), nil
}

func (vm *VM) add() error {
	switch {
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop().AsString()
		a := vm.pop().AsString()
		vm.push(ObjValue(vm.copyString(a.Chars + b.Chars)))
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(NumberValue(a + b))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}
