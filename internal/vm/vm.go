package vm

import "fmt"

// Initial stack/frame capacities, sized generously so the common script
// does not force a reallocation; both grow by ordinary slice append once
// exceeded.
const (
	initialStackSize  = 256
	initialFrameCount = 64
)

// Frame is one in-progress function activation: which closure is
// running, where its instruction pointer sits, and where its local
// slot zero begins on the shared evaluation stack.
type Frame struct {
	closure *Closure
	ip      int
	base    int
}

func (f *Frame) chunk() *Chunk { return f.closure.Fn.Chunk }

func (f *Frame) readU8() byte {
	b := f.chunk().Code[f.ip]
	f.ip++
	return b
}

func (f *Frame) readU16() uint16 {
	v := f.chunk().ReadU16(f.ip)
	f.ip += 2
	return v
}

func (f *Frame) readI16() int16 {
	v := f.chunk().ReadI16(f.ip)
	f.ip += 2
	return v
}

// HostRegistry is the interface the VM consults for CallHost and for
// global lookups that fall through to a native binding.
// internal/host implements this; the VM package never imports it
// directly to keep the compile/execute core free of the marshalling
// layer's own dependencies.
type HostRegistry interface {
	// Call invokes the named host function with exactly len(args)
	// arguments — no currying.
	Call(name string, args []Value) (Value, error)
	// Lookup returns a NativeFn Value for name, for LoadGlobal's
	// fallback when no script global is bound under that name.
	Lookup(name string) (Value, bool)
}

// VM is a single-threaded stack machine: one evaluation stack, one call
// frame stack, a name-keyed global table, and a reference to whatever
// host registry the embedder installed. Multiple VMs may run in
// parallel on separate threads without coordination; a
// single VM instance must never be driven from more than one goroutine
// at a time.
type VM struct {
	stack  []Value
	frames []Frame

	globals map[string]Value

	// openUpvalues is a singly linked list of still-open upvalues,
	// sorted by StackIdx descending, so captureUpvalue/closeUpvalues
	// can walk it in slot order.
	openUpvalues *Upvalue

	host HostRegistry
}

// New returns a VM with empty globals and no host registry installed.
func New() *VM {
	return &VM{
		stack:   make([]Value, 0, initialStackSize),
		frames:  make([]Frame, 0, initialFrameCount),
		globals: make(map[string]Value),
	}
}

// SetHost installs the native-function registry consulted by CallHost
// and by LoadGlobal's fallback path.
func (vm *VM) SetHost(h HostRegistry) { vm.host = h }

// SetGlobal binds name directly in the VM's own global table, shadowing
// any host registry binding of the same name.
func (vm *VM) SetGlobal(name string, v Value) { vm.globals[name] = v }

// GetGlobal returns the current value of a VM global, if bound.
func (vm *VM) GetGlobal(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (Value, error) {
	if len(vm.stack) == 0 {
		return Value{}, &RuntimeError{Kind: ErrStackUnderflow, Message: "pop on empty stack"}
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// Execute runs chunk as a fresh top-level program to completion and
// returns its result.
func (vm *VM) Execute(chunk *Chunk) (Value, error) {
	top := &Closure{Fn: &Function{Chunk: chunk, Name: chunk.Name}}
	vm.frames = append(vm.frames, Frame{closure: top, ip: 0, base: len(vm.stack)})
	result, err := vm.runUntil(len(vm.frames) - 1)
	if err != nil {
		return Value{}, err
	}
	return result, nil
}

// CallValue invokes callee with args and runs it to completion,
// applying the same Call-opcode semantics (currying, over-application)
// a script-level application would. Used by the host façade's Call and
// by stdlib natives that call back into script closures.
func (vm *VM) CallValue(callee Value, args []Value) (Value, error) {
	depth := len(vm.frames)
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.applyCall(len(args), false); err != nil {
		return Value{}, err
	}
	if len(vm.frames) > depth {
		if err := vm.runFrames(depth); err != nil {
			return Value{}, err
		}
	}
	return vm.pop()
}

// runUntil drives the dispatch loop until the frame stack depth drops
// back to target, then returns whatever value is left on top of stack
//.
func (vm *VM) runUntil(target int) (Value, error) {
	if err := vm.runFrames(target); err != nil {
		return Value{}, err
	}
	return vm.pop()
}

func (vm *VM) runFrames(target int) error {
	for len(vm.frames) > target {
		if err := vm.step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) currentFrame() *Frame { return &vm.frames[len(vm.frames)-1] }

// step decodes and executes exactly one instruction of the current
// frame. OpReturn pops its own frame and OpHalt clears the frame stack;
// Call/TailCall may push or rewrite a frame.
func (vm *VM) step() error {
	frame := vm.currentFrame()
	if frame.ip >= len(frame.chunk().Code) {
		return newRuntimeError(ErrStackUnderflow, "frame %q ran off the end of its code without Return", frame.closure.Fn.Name)
	}
	op := Opcode(frame.readU8())
	return vm.dispatch(frame, op)
}

// captureUpvalue finds or creates an open upvalue aliasing stack slot
// loc, inserting it into vm.openUpvalues's descending-by-slot list
//.
func (vm *VM) captureUpvalue(loc int) *Upvalue {
	var prev *Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.StackIdx > loc {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.StackIdx == loc {
		return cur
	}
	created := &Upvalue{Open: true, StackIdx: loc, next: cur}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose StackIdx is >= from,
// materializing its current stack value into owned storage.
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && vm.openUpvalues.StackIdx >= from {
		u := vm.openUpvalues
		u.Close(vm.stack)
		vm.openUpvalues = u.next
		u.next = nil
	}
}

func typeMismatchCallable(k Kind) *RuntimeError {
	return &RuntimeError{Kind: ErrNotCallable, Message: fmt.Sprintf("value of kind %s is not callable", k)}
}

// toRuntimeError normalizes an error returned by a host callback into
// the VM's runtime error sum: a *RuntimeError passes through unchanged
// (stdlib functions may raise specific kinds like IndexOutOfBounds),
// anything else is wrapped opaquely as HostError.
func toRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	return HostErrorMsg(err.Error())
}
