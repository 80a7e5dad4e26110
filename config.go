package klox

// Flags holds the optional compile/run-time diagnostic toggles. All
// default off; a driver wires them to CLI flags (cmd/klox).
type Flags struct {
	// TraceExecution prints the stack and the disassembled instruction
	// before each opcode runs.
	TraceExecution bool
	// PrintCode disassembles each function's chunk right after it
	// finishes compiling.
	PrintCode bool
	// GCStress forces a full collection on every single allocation.
	GCStress bool
	// GCLog emits structured allocate/mark/blacken/free/collection
	// events through the engine's diag.Logger.
	GCLog bool
}
