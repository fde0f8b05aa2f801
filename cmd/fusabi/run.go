package main

import (
	"fmt"
	"os"

	"github.com/fusabi-lang/fusabi/internal/bytecode"
	"github.com/fusabi-lang/fusabi/internal/config"
	"github.com/fusabi-lang/fusabi/internal/vm"
	"github.com/fusabi-lang/fusabi/pkg/fusabi"
)

// isBytecodeFile decides source-vs-bytecode by extension first,
// falling back to sniffing the magic bytes for a file with no (or an
// unrecognized) extension.
func isBytecodeFile(path string, data []byte) bool {
	if config.HasSourceExt(path) {
		return false
	}
	if len(path) >= len(config.BytecodeExt) && path[len(path)-len(config.BytecodeExt):] == config.BytecodeExt {
		return true
	}
	return len(data) >= 4 && data[0] == bytecode.Magic[0] && data[1] == bytecode.Magic[1] && data[2] == bytecode.Magic[2]
}

func newEngine() (*fusabi.Engine, error) {
	e := fusabi.New()
	proj, err := config.LoadProject("fusabi.yaml")
	if err != nil {
		return nil, err
	}
	if err := e.PreloadStdlib(proj.PreloadStdlib); err != nil {
		return nil, err
	}
	return e, nil
}

func runCmd(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: fusabi run <path>")
		return exitIO
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fusabi: reading %s: %v\n", path, err)
		return exitIO
	}

	e, err := newEngine()
	if err != nil {
		return reportError(err)
	}

	var result vm.Value
	if isBytecodeFile(path, data) {
		chunk, unresolved, err := e.LoadBytecode(data)
		if err != nil {
			return reportError(err)
		}
		if len(unresolved) > 0 {
			fmt.Fprintf(os.Stderr, "fusabi: unresolved host bindings: %v\n", unresolved)
			return exitRuntime
		}
		v, err := e.Execute(chunk)
		if err != nil {
			return reportError(err)
		}
		result = v
	} else {
		v, err := e.Eval(string(data))
		if err != nil {
			return reportError(err)
		}
		result = v
	}

	fmt.Println(result.Inspect())
	return exitOK
}
