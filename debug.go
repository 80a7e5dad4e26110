package klox

import (
	"fmt"
	"os"

	"github.com/chucktilbury/klox/ascii"
)

var debugTheme = ascii.DefaultTheme

// DisassembleChunk prints every instruction in chunk under a labeled
// header, used by the --print-code diagnostic flag.
func DisassembleChunk(chunk *Chunk, name string) {
	fmt.Fprintf(os.Stdout, "%s\n", ascii.Color(debugTheme.Label, "== %s ==", name))
	for offset := 0; offset < len(chunk.Code); {
		offset = disassembleInstruction(chunk, offset)
	}
}

func disassembleInstruction(chunk *Chunk, offset int) int {
	fmt.Fprintf(os.Stdout, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(os.Stdout, "   | ")
	} else {
		fmt.Fprintf(os.Stdout, "%4d ", chunk.Lines[offset])
	}

	op := OpCode(chunk.Code[offset])
	switch op {
	case OpConstant:
		return constantInstruction("OP_CONSTANT", chunk, offset)
	case OpNil:
		return simpleInstruction("OP_NIL", offset)
	case OpTrue:
		return simpleInstruction("OP_TRUE", offset)
	case OpFalse:
		return simpleInstruction("OP_FALSE", offset)
	case OpPop:
		return simpleInstruction("OP_POP", offset)
	case OpGetLocal:
		return byteInstruction("OP_GET_LOCAL", chunk, offset)
	case OpSetLocal:
		return byteInstruction("OP_SET_LOCAL", chunk, offset)
	case OpGetGlobal:
		return constantInstruction("OP_GET_GLOBAL", chunk, offset)
	case OpDefineGlobal:
		return constantInstruction("OP_DEFINE_GLOBAL", chunk, offset)
	case OpSetGlobal:
		return constantInstruction("OP_SET_GLOBAL", chunk, offset)
	case OpGetUpvalue:
		return byteInstruction("OP_GET_UPVALUE", chunk, offset)
	case OpSetUpvalue:
		return byteInstruction("OP_SET_UPVALUE", chunk, offset)
	case OpGetProperty:
		return constantInstruction("OP_GET_PROPERTY", chunk, offset)
	case OpSetProperty:
		return constantInstruction("OP_SET_PROPERTY", chunk, offset)
	case OpGetSuper:
		return constantInstruction("OP_GET_SUPER", chunk, offset)
	case OpEqual:
		return simpleInstruction("OP_EQUAL", offset)
	case OpGreater:
		return simpleInstruction("OP_GREATER", offset)
	case OpLess:
		return simpleInstruction("OP_LESS", offset)
	case OpAdd:
		return simpleInstruction("OP_ADD", offset)
	case OpSubtract:
		return simpleInstruction("OP_SUBTRACT", offset)
	case OpMultiply:
		return simpleInstruction("OP_MULTIPLY", offset)
	case OpDivide:
		return simpleInstruction("OP_DIVIDE", offset)
	case OpNot:
		return simpleInstruction("OP_NOT", offset)
	case OpNegate:
		return simpleInstruction("OP_NEGATE", offset)
	case OpPrint:
		return simpleInstruction("OP_PRINT", offset)
	case OpJump:
		return jumpInstruction("OP_JUMP", 1, chunk, offset)
	case OpJumpIfFalse:
		return jumpInstruction("OP_JUMP_IF_FALSE", 1, chunk, offset)
	case OpLoop:
		return jumpInstruction("OP_LOOP", -1, chunk, offset)
	case OpCall:
		return byteInstruction("OP_CALL", chunk, offset)
	case OpInvoke:
		return invokeInstruction("OP_INVOKE", chunk, offset)
	case OpSuperInvoke:
		return invokeInstruction("OP_SUPER_INVOKE", chunk, offset)
	case OpClosure:
		return closureInstruction(chunk, offset)
	case OpCloseUpvalue:
		return simpleInstruction("OP_CLOSE_UPVALUE", offset)
	case OpReturn:
		return simpleInstruction("OP_RETURN", offset)
	case OpClass:
		return constantInstruction("OP_CLASS", chunk, offset)
	case OpInherit:
		return simpleInstruction("OP_INHERIT", offset)
	case OpMethod:
		return constantInstruction("OP_METHOD", chunk, offset)
	default:
		fmt.Fprintf(os.Stdout, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(name string, offset int) int {
	fmt.Fprintf(os.Stdout, "%s\n", ascii.Color(debugTheme.Operator, "%s", name))
	return offset + 1
}

func byteInstruction(name string, chunk *Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(os.Stdout, "%-16s %s\n", ascii.Color(debugTheme.Operator, "%s", name), ascii.Color(debugTheme.Operand, "%4d", slot))
	return offset + 2
}

func jumpInstruction(name string, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(os.Stdout, "%-16s %s -> %d\n", ascii.Color(debugTheme.Operator, "%s", name), ascii.Color(debugTheme.Operand, "%4d", offset), target)
	return offset + 3
}

func constantInstruction(name string, chunk *Chunk, offset int) int {
	constant := chunk.Code[offset+1]
	fmt.Fprintf(os.Stdout, "%-16s %s '%s'\n",
		ascii.Color(debugTheme.Operator, "%s", name),
		ascii.Color(debugTheme.Operand, "%4d", constant),
		ascii.Color(debugTheme.Literal, "%s", PrintValue(chunk.Constants[constant])))
	return offset + 2
}

func invokeInstruction(name string, chunk *Chunk, offset int) int {
	constant := chunk.Code[offset+1]
	argCount := chunk.Code[offset+2]
	fmt.Fprintf(os.Stdout, "%-16s (%d args) %4d '%s'\n", name, argCount, constant, PrintValue(chunk.Constants[constant]))
	return offset + 3
}

func closureInstruction(chunk *Chunk, offset int) int {
	offset++
	constant := chunk.Code[offset]
	offset++
	fmt.Fprintf(os.Stdout, "%-16s %4d '%s'\n", "OP_CLOSURE", constant, PrintValue(chunk.Constants[constant]))

	fn := chunk.Constants[constant].AsFunction()
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		offset++
		index := chunk.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(os.Stdout, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}

// traceInstruction prints the current value stack and the next
// instruction about to run, the --trace diagnostic hook.
func (vm *VM) traceInstruction(frame *CallFrame) {
	fmt.Fprint(os.Stdout, ascii.Color(debugTheme.Muted, "          "))
	for i := 0; i < vm.stackTop; i++ {
		fmt.Fprintf(os.Stdout, "[ %s ]", PrintValue(vm.stack[i]))
	}
	fmt.Fprintln(os.Stdout)
	disassembleInstruction(&frame.closure.Function.Chunk, frame.ip)
}
