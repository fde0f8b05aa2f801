package main

import (
	"fmt"
	"os"

	"github.com/fusabi-lang/fusabi/internal/config"
	"github.com/fusabi-lang/fusabi/internal/vm"
	"github.com/fusabi-lang/fusabi/pkg/fusabi"
)

func disasmCmd(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: fusabi disasm <path>")
		return exitIO
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fusabi: reading %s: %v\n", path, err)
		return exitIO
	}

	e := fusabi.New()
	var chunk *vm.Chunk
	if isBytecodeFile(path, data) {
		c, unresolved, err := e.LoadBytecode(data)
		if err != nil {
			return reportError(err)
		}
		for _, name := range unresolved {
			fmt.Fprintf(os.Stderr, "fusabi: note: %q has no registered host binding\n", name)
		}
		chunk = c
	} else {
		c, err := e.Compile(string(data))
		if err != nil {
			return reportError(err)
		}
		chunk = c
	}

	fmt.Print(e.Disassemble(chunk, config.TrimSourceExt(path)))
	return exitOK
}
