package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// colorEnabled applies the usual NO_COLOR/isatty checks, trimmed to
// the on/off decision cmd/fusabi needs for its own diagnostic output
// (it has no 256-color path to pick between, unlike a script's own
// term.color builtin would).
func colorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func paint(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// reportError prints err in the family/kind/message shape common to
// the three error taxonomies, and returns the exit code that family
// maps to (exitCompile for CompileError, exitRuntime for RuntimeError
// and DeserializeError, exitIO for anything else — an I/O failure
// opening the file, for instance).
func reportError(err error) int {
	switch e := err.(type) {
	case *vm.CompileError:
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", paint("31", "compile error"), e.Kind, e.Message)
		return exitCompile
	case *vm.DeserializeError:
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", paint("31", "bytecode error"), e.Kind, e.Message)
		return exitRuntime
	case *vm.RuntimeError:
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", paint("31", "runtime error"), e.Kind, e.Message)
		return exitRuntime
	default:
		fmt.Fprintf(os.Stderr, "%s %v\n", paint("31", "error:"), err)
		return exitIO
	}
}
