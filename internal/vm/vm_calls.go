package vm

// applyCall implements the Call-opcode semantics of for
// whatever callee sits argc slots below the top of stack: closures
// dispatch to exact/curry/over-apply, NativeFn accumulates partial
// arguments the same way, anything else is NotCallable. tail is true
// only for a closure call the compiler proved to be in tail position;
// it has no effect on NativeFn, which never owns a frame to reuse.
func (vm *VM) applyCall(argc int, tail bool) error {
	calleeIdx := len(vm.stack) - 1 - argc
	if calleeIdx < 0 {
		return newRuntimeError(ErrStackUnderflow, "call with %d args underflows the stack", argc)
	}
	callee := vm.stack[calleeIdx]
	switch callee.Kind {
	case KindClosure:
		return vm.applyClosureCall(callee.AsClosure(), argc, tail)
	case KindNativeFn:
		return vm.applyNativeCall(callee.AsNativeFn(), argc)
	default:
		return typeMismatchCallable(callee.Kind)
	}
}

// applyClosureCall routes to the exact/curry/over-apply case based on
// how cl's already-Bound arguments plus argc new ones compare to its
// declared arity.
func (vm *VM) applyClosureCall(cl *Closure, argc int, tail bool) error {
	total := len(cl.Bound) + argc
	need := cl.Fn.Arity
	switch {
	case total == need:
		return vm.invokeClosure(cl, argc, tail)
	case total < need:
		return vm.curryClosure(cl, argc)
	default:
		firstN := need - len(cl.Bound)
		return vm.overApplyClosure(cl, argc, firstN)
	}
}

// invokeClosure consumes the callee and argc stack args, combines them
// with cl.Bound into the function's full parameter vector, and either
// pushes a new frame or — for a proven tail call — reuses the current
// one in place.
func (vm *VM) invokeClosure(cl *Closure, argc int, tail bool) error {
	calleeIdx := len(vm.stack) - 1 - argc
	newArgs := append([]Value(nil), vm.stack[calleeIdx+1:]...)
	full := make([]Value, 0, len(cl.Bound)+len(newArgs))
	full = append(full, cl.Bound...)
	full = append(full, newArgs...)

	if tail && len(vm.frames) > 0 {
		frame := vm.currentFrame()
		vm.closeUpvalues(frame.base)
		vm.stack = vm.stack[:frame.base]
		vm.stack = append(vm.stack, full...)
		frame.closure = cl
		frame.ip = 0
		return nil
	}

	vm.stack = vm.stack[:calleeIdx]
	base := len(vm.stack)
	vm.stack = append(vm.stack, full...)
	if len(vm.frames) >= maxFrameDepth {
		return newRuntimeError(ErrStackUnderflow, "call stack exceeds %d frames", maxFrameDepth)
	}
	vm.frames = append(vm.frames, Frame{closure: cl, ip: 0, base: base})
	return nil
}

// maxFrameDepth bounds non-tail recursion; tail calls never grow the
// frame stack so loops expressed as tail recursion are unaffected
//.
const maxFrameDepth = 1 << 20

// curryClosure handles argc < remaining-arity: wraps the received
// arguments into cl.Bound on a fresh Closure sharing cl's Fn and
// Upvalues.
func (vm *VM) curryClosure(cl *Closure, argc int) error {
	calleeIdx := len(vm.stack) - 1 - argc
	newArgs := append([]Value(nil), vm.stack[calleeIdx+1:]...)
	bound := make([]Value, 0, len(cl.Bound)+len(newArgs))
	bound = append(bound, cl.Bound...)
	bound = append(bound, newArgs...)
	nc := &Closure{Fn: cl.Fn, Upvalues: cl.Upvalues, Bound: bound}
	vm.stack = vm.stack[:calleeIdx]
	vm.push(ClosureVal(nc))
	return nil
}

// overApplyClosure handles argc args saturating cl and leaving a
// surplus: apply the first firstN synchronously to completion, then
// re-apply the result to the remaining args. The inner call never starts
// a new frame in isolation — it runs to completion via runFrames
// before control returns here, since the surplus application needs the
// inner call's result value, not its frame.
func (vm *VM) overApplyClosure(cl *Closure, argc, firstN int) error {
	calleeIdx := len(vm.stack) - 1 - argc
	allArgs := append([]Value(nil), vm.stack[calleeIdx+1:]...)
	firstArgs := allArgs[:firstN]
	restArgs := allArgs[firstN:]

	vm.stack = vm.stack[:calleeIdx]
	vm.push(ClosureVal(cl))
	vm.stack = append(vm.stack, firstArgs...)

	result, err := vm.callAndRun(firstN)
	if err != nil {
		return err
	}
	vm.push(result)
	vm.stack = append(vm.stack, restArgs...)
	return vm.applyCall(len(restArgs), false)
}

// callAndRun applies whatever callee sits argc args below the top of
// stack and, if that pushed a new frame (a closure call rather than a
// synchronous NativeFn), drives the dispatch loop until that frame
// returns. Used by over-application's first step, which needs the
// saturated call's result in hand before applying the surplus args.
func (vm *VM) callAndRun(argc int) (Value, error) {
	depth := len(vm.frames)
	if err := vm.applyCall(argc, false); err != nil {
		return Value{}, err
	}
	if len(vm.frames) > depth {
		if err := vm.runFrames(depth); err != nil {
			return Value{}, err
		}
	}
	return vm.pop()
}

// applyNativeCall implements the partial-application rule for host callbacks:
// accumulate arguments in n.Args; once total >= n.Arity, invoke the
// host closure with exactly the first n.Arity values and re-apply any
// surplus to its result.
func (vm *VM) applyNativeCall(n *NativeFn, argc int) error {
	calleeIdx := len(vm.stack) - 1 - argc
	newArgs := append([]Value(nil), vm.stack[calleeIdx+1:]...)
	full := make([]Value, 0, len(n.Args)+len(newArgs))
	full = append(full, n.Args...)
	full = append(full, newArgs...)

	if len(full) < n.Arity {
		nn := &NativeFn{Name: n.Name, Arity: n.Arity, Args: full, Impl: n.Impl}
		vm.stack = vm.stack[:calleeIdx]
		vm.push(NativeFnVal(nn))
		return nil
	}

	firstN := full[:n.Arity]
	rest := full[n.Arity:]
	if n.Impl == nil {
		// A NativeFn decoded from bytecode whose prototype was never
		// re-resolved against a host registry.
		return newRuntimeError(ErrUndefinedGlobal, "host function %q was never resolved against a registry", n.Name)
	}
	result, err := n.Impl(firstN)
	if err != nil {
		return toRuntimeError(err)
	}
	vm.stack = vm.stack[:calleeIdx]
	if len(rest) == 0 {
		vm.push(result)
		return nil
	}
	vm.push(result)
	vm.stack = append(vm.stack, rest...)
	return vm.applyCall(len(rest), false)
}
