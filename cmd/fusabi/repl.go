package main

import (
	"bufio"
	"fmt"
	"os"
)

// replCmd reads a line at a time, compiles it as a standalone program
// and runs it against one persistent Engine, so VM globals (bindings a
// line brings in with `open`, or globals the embedder set) are visible
// to the next line. A `let ... in` binding is local to its own line.
func replCmd(args []string) int {
	e, err := newEngine()
	if err != nil {
		return reportError(err)
	}

	prompt := paint("36", "fusabi> ")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stdout, prompt)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			result, err := e.Eval(line)
			if err != nil {
				reportError(err)
			} else {
				fmt.Fprintln(os.Stdout, result.Inspect())
			}
		}
		fmt.Fprint(os.Stdout, prompt)
	}
	fmt.Fprintln(os.Stdout)
	return exitOK
}
