// Command klox runs source files (or stdin) through the klox engine.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chucktilbury/klox"
	"github.com/chucktilbury/klox/internal/diag"
)

// Exit codes are a driver convention, not a core engine contract.
const (
	exitOK           = 0
	exitUsageError   = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var flags klox.Flags
	var repl bool

	cmd := &cobra.Command{
		Use:   "klox [script]",
		Short: "klox runs scripts written in the klox scripting language",
		Args:  cobra.MaximumNArgs(1),
	}

	exitCode := exitOK
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		vm := klox.NewVM(flags, diag.New(flags.GCLog))
		registerNatives(vm)

		switch {
		case len(args) == 1:
			code, err := runFile(vm, args[0])
			exitCode = code
			return err
		case repl:
			exitCode = runPrompt(vm)
			return nil
		default:
			code, err := runStdin(vm)
			exitCode = code
			return err
		}
	}

	cmd.Flags().BoolVar(&flags.TraceExecution, "trace", false, "print the stack and each instruction before it executes")
	cmd.Flags().BoolVar(&flags.PrintCode, "print-code", false, "disassemble each compiled function")
	cmd.Flags().BoolVar(&flags.GCStress, "gc-stress", false, "collect garbage on every allocation")
	cmd.Flags().BoolVar(&flags.GCLog, "gc-log", false, "log garbage collector phases")
	cmd.Flags().BoolVar(&repl, "repl", false, "read statements interactively from stdin")

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == exitOK {
			exitCode = exitUsageError
		}
	}
	return exitCode
}

func runFile(vm *klox.VM, path string) (int, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return exitIOError, err
	}
	return interpret(vm, string(source))
}

func runStdin(vm *klox.VM) (int, error) {
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		return exitIOError, err
	}
	return interpret(vm, string(source))
}

func runPrompt(vm *klox.VM) int {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return exitOK
		}
		code, err := interpret(vm, scanner.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		_ = code
	}
}

func interpret(vm *klox.VM, source string) (int, error) {
	result, err := vm.Interpret(source)
	switch result {
	case klox.InterpretCompileError:
		return exitCompileError, err
	case klox.InterpretRuntimeError:
		return exitRuntimeError, err
	default:
		return exitOK, nil
	}
}

// registerNatives wires two demo native functions. Only the mechanism
// for registering and invoking natives lives in the engine package;
// choosing which built-ins exist is a driver concern.
func registerNatives(vm *klox.VM) {
	vm.DefineNative("clock", func(vm *klox.VM, args []klox.Value) (klox.Value, error) {
		return klox.NumberValue(float64(time.Now().UnixNano()) / 1e9), nil
	})
	vm.DefineNative("str", func(vm *klox.VM, args []klox.Value) (klox.Value, error) {
		if len(args) != 1 {
			return klox.Value{}, errors.New("str() takes exactly one argument")
		}
		return klox.ObjValue(vm.CopyString(klox.PrintValue(args[0]))), nil
	})
}
