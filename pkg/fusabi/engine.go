// Package fusabi is the embedding façade: a high-level wrapper over
// internal/vm, internal/bytecode, internal/host, and internal/stdlib
// that an embedding Go program drives without touching any internal
// package directly — Eval/Call/Register/SetGlobal/GetGlobal over a
// bytecode VM.
package fusabi

import (
	"fmt"

	"github.com/fusabi-lang/fusabi/internal/bytecode"
	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/parser"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

// Engine wraps a vm.VM and its host registry, presenting the single
// entry point an embedder needs: compile/execute source or bytecode,
// register host functions and modules, and read/write/call globals.
type Engine struct {
	machine  *vm.VM
	registry *host.Registry
	opts     vm.Options
}

// New returns an Engine with an empty global table and an empty host
// registry installed.
func New() *Engine {
	machine := vm.New()
	registry := host.New()
	machine.SetHost(registry)
	return &Engine{machine: machine, registry: registry}
}

// SetTypeCheck sets the TypeCheck option passed to future Compile/Eval
// calls. The compiler runs no typing pass, so the flag has no effect on
// compilation.
func (e *Engine) SetTypeCheck(on bool) { e.opts.TypeCheck = on }

// Compile parses and compiles source into a Chunk without executing
// it, for callers that want to inspect or persist bytecode separately
// from running it (cmd/fusabi's `grind`, `disasm`).
func (e *Engine) Compile(source string) (*vm.Chunk, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("fusabi: parse: %w", err)
	}
	chunk, err := vm.Compile(prog, e.opts)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// Eval compiles and immediately executes source against this Engine's
// VM, returning the resulting Value. Globals set by source persist on
// the Engine for subsequent Eval calls (the REPL's contract).
func (e *Engine) Eval(source string) (vm.Value, error) {
	chunk, err := e.Compile(source)
	if err != nil {
		return vm.Value{}, err
	}
	return e.machine.Execute(chunk)
}

// Execute runs an already-compiled Chunk, as Run does for bytecode
// loaded from disk.
func (e *Engine) Execute(chunk *vm.Chunk) (vm.Value, error) {
	return e.machine.Execute(chunk)
}

// EncodeChunk serializes chunk to the on-disk bytecode format (C3).
func (e *Engine) EncodeChunk(chunk *vm.Chunk) ([]byte, error) {
	return bytecode.Encode(chunk)
}

// LoadBytecode decodes a previously serialized chunk and re-binds
// every embedded NativeFn prototype against this Engine's host
// registry before returning it, so Execute won't hit a nil Impl for
// any binding the registry already knows about. Names the registry
// has no binding for are returned in `unresolved` — the caller may
// choose to treat that as fatal (a script using a missing stdlib
// module) or let it surface lazily as UndefinedGlobal at first call.
func (e *Engine) LoadBytecode(data []byte) (chunk *vm.Chunk, unresolved []string, err error) {
	chunk, err = bytecode.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	unresolved = bytecode.ResolveNatives(chunk, e.registry.Resolve)
	return chunk, unresolved, nil
}

// Register installs a single raw host callback under name with a
// declared fixed arity.
func (e *Engine) Register(name string, arity int, fn host.Fn) error {
	return e.registry.Register(name, arity, fn)
}

// RegisterModule bulk-installs every binding a *host.Module
// accumulated (internal/stdlib's Core/Option/Result/Encoding/Db/Grpc
// constructors return one of these).
func (e *Engine) RegisterModule(m *host.Module) error {
	return e.registry.RegisterModule(m)
}

// SetGlobal and GetGlobal read and write the VM's global table
// directly, for embedders that want to pass data in or out without
// going through a host function.
func (e *Engine) SetGlobal(name string, v vm.Value) { e.machine.SetGlobal(name, v) }

func (e *Engine) GetGlobal(name string) (vm.Value, bool) { return e.machine.GetGlobal(name) }

// Call invokes a callable Value (typically a global previously set by
// Eval or SetGlobal) with args, going through the VM's own call
// machinery so currying and over-application behave exactly as they
// do for a script-side call expression.
func (e *Engine) Call(callee vm.Value, args []vm.Value) (vm.Value, error) {
	return e.machine.CallValue(callee, args)
}

// CreateHostData wraps data as a HostData Value carrying typeName for
// later host.As[T] downcasting.
func (e *Engine) CreateHostData(typeName string, data interface{}) vm.Value {
	return host.NewData(typeName, data)
}

// Disassemble returns a human-readable listing of chunk, for
// cmd/fusabi's `disasm` subcommand.
func (e *Engine) Disassemble(chunk *vm.Chunk, name string) string {
	return vm.Disassemble(chunk, name)
}
