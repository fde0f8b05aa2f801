// Package host implements the native-function registry and the
// Value-to-Go marshalling boundary (C6): a name-keyed table of host
// callbacks reachable from script code via LoadGlobal+Call (currying
// supported) or CallHost (exact arity only), wired into the bytecode
// VM through its HostRegistry interface.
package host

import (
	"fmt"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// Fn is a host callback: takes exactly Arity values, returns a Value or
// an error (wrapped as HostError unless it is already a *vm.RuntimeError).
type Fn func(args []vm.Value) (vm.Value, error)

// entry is one registered binding: a name, its declared arity, and the
// Go callable behind it. Every arity-specialized constructor
// (RegisterFn0..RegisterFn3) and the raw Register both reduce to this
// one shape.
type entry struct {
	name  string
	arity int
	fn    Fn
}

// Registry is the name-keyed host-function table the VM consults for
// both CallHost and LoadGlobal's native-binding fallback. It implements
// vm.HostRegistry.
type Registry struct {
	entries map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register installs a raw host callback under name with declared
// arity. Re-registering an existing name is an error — duplicate
// native bindings almost always indicate a wiring mistake, not an
// intentional override.
func (r *Registry) Register(name string, arity int, fn Fn) error {
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("host: %q already registered", name)
	}
	r.entries[name] = entry{name: name, arity: arity, fn: fn}
	return nil
}

// RegisterFn0/1/2/3 are arity-specialized constructors wrapping a
// fixed-arity Go function into the common Fn shape so callers don't
// have to slice-index args themselves.
func (r *Registry) RegisterFn0(name string, fn func() (vm.Value, error)) error {
	return r.Register(name, 0, func(args []vm.Value) (vm.Value, error) { return fn() })
}

func (r *Registry) RegisterFn1(name string, fn func(vm.Value) (vm.Value, error)) error {
	return r.Register(name, 1, func(args []vm.Value) (vm.Value, error) { return fn(args[0]) })
}

func (r *Registry) RegisterFn2(name string, fn func(vm.Value, vm.Value) (vm.Value, error)) error {
	return r.Register(name, 2, func(args []vm.Value) (vm.Value, error) { return fn(args[0], args[1]) })
}

func (r *Registry) RegisterFn3(name string, fn func(vm.Value, vm.Value, vm.Value) (vm.Value, error)) error {
	return r.Register(name, 3, func(args []vm.Value) (vm.Value, error) { return fn(args[0], args[1], args[2]) })
}

// Call implements vm.HostRegistry for OpCallHost: exact arity is
// required, never curried.
func (r *Registry) Call(name string, args []vm.Value) (vm.Value, error) {
	e, ok := r.entries[name]
	if !ok {
		return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrUndefinedGlobal, Message: fmt.Sprintf("undefined host function %q", name)}
	}
	if len(args) != e.arity {
		return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrArityMismatch,
			Message: fmt.Sprintf("%q expects %d arguments, got %d", name, e.arity, len(args))}
	}
	return e.fn(args)
}

// Lookup implements vm.HostRegistry for LoadGlobal's fallback: it
// returns a NativeFn Value so subsequent Calls go through the VM's own
// currying/over-application machinery in vm_calls.go rather than this
// registry's exact-arity Call path.
func (r *Registry) Lookup(name string) (vm.Value, bool) {
	e, ok := r.entries[name]
	if !ok {
		return vm.Value{}, false
	}
	return vm.NativeFnVal(&vm.NativeFn{Name: e.name, Arity: e.arity, Impl: e.fn}), true
}

// Has reports whether name is registered, without allocating a Value.
// Loader-side re-resolution of decoded NativeFn prototypes goes through
// Resolve, not Has.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Resolve re-binds a decoded NativeFn's Impl by name, for bytecode
// loaded from disk whose prototypes were serialized by name only
//. It mutates n in place and returns false if name isn't
// registered, leaving n.Impl nil — a subsequent Call on it then
// surfaces as UndefinedGlobal not as a load-time error.
func (r *Registry) Resolve(n *vm.NativeFn) bool {
	e, ok := r.entries[n.Name]
	if !ok {
		return false
	}
	n.Impl = e.fn
	return true
}
