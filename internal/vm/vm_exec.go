package vm

import "fmt"

// dispatch executes one decoded instruction against frame, the current
// top of vm.frames. Most opcodes only touch the stack; Call/TailCall
// may push or rewrite a frame; Return pops one; Halt pops them all.
func (vm *VM) dispatch(frame *Frame, op Opcode) error {
	switch op {
	case OpLoadConst:
		idx := frame.readU16()
		vm.push(frame.chunk().Constants[idx])
		return nil

	case OpPop:
		_, err := vm.pop()
		return err

	case OpDup:
		vm.push(vm.peek(0))
		return nil

	case OpLoadLocal:
		slot := int(frame.readU8())
		vm.push(vm.stack[frame.base+slot])
		return nil

	case OpStoreLocal:
		slot := int(frame.readU8())
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.stack[frame.base+slot] = v
		return nil

	case OpLoadUpvalue:
		idx := int(frame.readU8())
		u := frame.closure.Upvalues[idx]
		vm.push(u.Get(vm.stack))
		return nil

	case OpStoreUpvalue:
		idx := int(frame.readU8())
		v, err := vm.pop()
		if err != nil {
			return err
		}
		frame.closure.Upvalues[idx].Set(vm.stack, v)
		return nil

	case OpLoadGlobal:
		idx := frame.readU16()
		name := frame.chunk().Constants[idx].S
		if v, ok := vm.globals[name]; ok {
			vm.push(v)
			return nil
		}
		if vm.host != nil {
			if v, ok := vm.host.Lookup(name); ok {
				vm.push(v)
				return nil
			}
		}
		return newRuntimeError(ErrUndefinedGlobal, "undefined global %q", name)

	case OpStoreGlobal:
		idx := frame.readU16()
		name := frame.chunk().Constants[idx].S
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.globals[name] = v
		return nil

	case OpCloseUpvalues:
		slot := int(frame.readU8())
		vm.closeUpvalues(frame.base + slot)
		return nil

	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return vm.arith(op)

	case OpNeg:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindInt {
			return typeMismatch("Int", v.Kind)
		}
		vm.push(Int(-v.I))
		return nil

	case OpEq, OpNeq:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		eq := a.Equals(b)
		if op == OpNeq {
			eq = !eq
		}
		vm.push(Bool(eq))
		return nil

	case OpLt, OpLte, OpGt, OpGte:
		return vm.compare(op)

	case OpAnd, OpOr:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		if a.Kind != KindBool {
			return typeMismatch("Bool", a.Kind)
		}
		if b.Kind != KindBool {
			return typeMismatch("Bool", b.Kind)
		}
		if op == OpAnd {
			vm.push(Bool(a.AsBool() && b.AsBool()))
		} else {
			vm.push(Bool(a.AsBool() || b.AsBool()))
		}
		return nil

	case OpNot:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindBool {
			return typeMismatch("Bool", v.Kind)
		}
		vm.push(Bool(!v.AsBool()))
		return nil

	case OpJump:
		off := frame.readI16()
		frame.ip += int(off)
		return nil

	case OpJumpIfFalse:
		off := frame.readI16()
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindBool {
			return typeMismatch("Bool", v.Kind)
		}
		if !v.AsBool() {
			frame.ip += int(off)
		}
		return nil

	case OpJumpIfTrue:
		off := frame.readI16()
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindBool {
			return typeMismatch("Bool", v.Kind)
		}
		if v.AsBool() {
			frame.ip += int(off)
		}
		return nil

	case OpCall:
		argc := int(frame.readU8())
		return vm.applyCall(argc, false)

	case OpTailCall:
		argc := int(frame.readU8())
		return vm.applyCall(argc, true)

	case OpReturn:
		return vm.doReturn()

	case OpHalt:
		vm.frames = vm.frames[:0]
		return nil

	case OpBuildTuple:
		arity := int(frame.readU8())
		return vm.buildAggregate(arity, TupleVal)

	case OpBuildArray:
		n := int(frame.readU16())
		return vm.buildAggregate(n, ArrayVal)

	case OpBuildList:
		n := int(frame.readU16())
		return vm.buildList(n)

	case OpCons:
		tail, err := vm.pop()
		if err != nil {
			return err
		}
		head, err := vm.pop()
		if err != nil {
			return err
		}
		if tail.Kind != KindCons && tail.Kind != KindNil {
			return typeMismatch("Cons|Nil", tail.Kind)
		}
		vm.push(ConsVal(head, tail))
		return nil

	case OpBuildRecord:
		return vm.buildRecord(int(frame.readU8()))

	case OpGetField:
		idx := frame.readU16()
		name := frame.chunk().Constants[idx].S
		r, err := vm.popRecord()
		if err != nil {
			return err
		}
		v, ok := r.Values[name]
		if !ok {
			return newRuntimeError(ErrFieldNotFound, "field %q not found", name)
		}
		vm.push(v)
		return nil

	case OpSetField:
		idx := frame.readU16()
		name := frame.chunk().Constants[idx].S
		val, err := vm.pop()
		if err != nil {
			return err
		}
		r, err := vm.popRecord()
		if err != nil {
			return err
		}
		nr := r.Clone()
		nr.Set(name, val)
		vm.push(RecordVal(nr))
		return nil

	case OpIsNil:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(Bool(v.Kind == KindNil))
		return nil

	case OpIsCons:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(Bool(v.Kind == KindCons))
		return nil

	case OpIsVariant:
		idx := frame.readU16()
		ctor := frame.chunk().Constants[idx].S
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(Bool(v.Kind == KindVariant && v.AsVariant().Ctor == ctor))
		return nil

	case OpIsTuple:
		arity := int(frame.readU8())
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(Bool(v.Kind == KindTuple && len(v.AsTuple().Elems) == arity))
		return nil

	case OpConsHead:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindCons {
			return typeMismatch("Cons", v.Kind)
		}
		vm.push(v.AsCons().Head)
		return nil

	case OpConsTail:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindCons {
			return typeMismatch("Cons", v.Kind)
		}
		vm.push(v.AsCons().Tail)
		return nil

	case OpTupleElem:
		i := int(frame.readU8())
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindTuple {
			return typeMismatch("Tuple", v.Kind)
		}
		vm.push(v.AsTuple().Elems[i])
		return nil

	case OpVariantArg:
		i := int(frame.readU8())
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindVariant {
			return typeMismatch("Variant", v.Kind)
		}
		vm.push(v.AsVariant().Args[i])
		return nil

	case OpBuildVariant:
		tIdx := frame.readU16()
		cIdx := frame.readU16()
		argc := int(frame.readU8())
		typeName := frame.chunk().Constants[tIdx].S
		ctor := frame.chunk().Constants[cIdx].S
		args := make([]Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		vm.stack = vm.stack[:len(vm.stack)-argc]
		vm.push(VariantVal(typeName, ctor, args))
		return nil

	case OpMakeClosure:
		return vm.makeClosure(frame)

	case OpCallHost:
		return vm.callHost(frame)

	case OpGetIndex:
		idx, err := vm.pop()
		if err != nil {
			return err
		}
		arr, err := vm.pop()
		if err != nil {
			return err
		}
		if arr.Kind != KindArray {
			return typeMismatch("Array", arr.Kind)
		}
		if idx.Kind != KindInt {
			return typeMismatch("Int", idx.Kind)
		}
		a := arr.AsArray()
		if idx.I < 0 || idx.I >= int64(len(a.Elems)) {
			return newRuntimeError(ErrIndexOutOfBounds, "index %d out of bounds for array of length %d", idx.I, len(a.Elems))
		}
		vm.push(a.Elems[idx.I])
		return nil

	case OpSetIndex:
		val, err := vm.pop()
		if err != nil {
			return err
		}
		idx, err := vm.pop()
		if err != nil {
			return err
		}
		arr, err := vm.pop()
		if err != nil {
			return err
		}
		if arr.Kind != KindArray {
			return typeMismatch("Array", arr.Kind)
		}
		if idx.Kind != KindInt {
			return typeMismatch("Int", idx.Kind)
		}
		a := arr.AsArray()
		if idx.I < 0 || idx.I >= int64(len(a.Elems)) {
			return newRuntimeError(ErrIndexOutOfBounds, "index %d out of bounds for array of length %d", idx.I, len(a.Elems))
		}
		a.Elems[idx.I] = val
		vm.push(Unit())
		return nil

	case OpSlide:
		n := int(frame.readU8())
		top, err := vm.pop()
		if err != nil {
			return err
		}
		base := len(vm.stack) - n
		vm.closeUpvalues(base)
		vm.stack = vm.stack[:base]
		vm.push(top)
		return nil

	case OpMatchFail:
		return newRuntimeError(ErrMatchFailure, "no match arm succeeded")

	default:
		return fmt.Errorf("unimplemented opcode %s", op)
	}
}

func (vm *VM) arith(op Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if a.Kind != KindInt {
		return typeMismatch("Int", a.Kind)
	}
	if b.Kind != KindInt {
		return typeMismatch("Int", b.Kind)
	}
	switch op {
	case OpAdd:
		vm.push(Int(a.I + b.I)) // two's-complement wraparound, 
	case OpSub:
		vm.push(Int(a.I - b.I))
	case OpMul:
		vm.push(Int(a.I * b.I))
	case OpDiv:
		if b.I == 0 {
			return newRuntimeError(ErrDivisionByZero, "division by zero")
		}
		vm.push(Int(a.I / b.I))
	case OpMod:
		if b.I == 0 {
			return newRuntimeError(ErrDivisionByZero, "modulo by zero")
		}
		vm.push(Int(a.I % b.I))
	}
	return nil
}

func (vm *VM) compare(op Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	var less, equal bool
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		less, equal = a.I < b.I, a.I == b.I
	case a.Kind == KindStr && b.Kind == KindStr:
		less, equal = a.S < b.S, a.S == b.S
	default:
		return typeMismatch("Int or Str", a.Kind)
	}
	var result bool
	switch op {
	case OpLt:
		result = less
	case OpLte:
		result = less || equal
	case OpGt:
		result = !less && !equal
	case OpGte:
		result = !less
	}
	vm.push(Bool(result))
	return nil
}

func (vm *VM) buildAggregate(n int, ctor func([]Value) Value) error {
	if n > len(vm.stack) {
		return newRuntimeError(ErrStackUnderflow, "build with %d elements underflows the stack", n)
	}
	vals := make([]Value, n)
	copy(vals, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	vm.push(ctor(vals))
	return nil
}

// buildList conses n stack values (pushed in reverse by the compiler,
// ) back into source order: the bottom of the n-window is
// the first value pushed, i.e. the last element of the literal, so it
// becomes the innermost cons cell.
func (vm *VM) buildList(n int) error {
	if n > len(vm.stack) {
		return newRuntimeError(ErrStackUnderflow, "build list of %d underflows the stack", n)
	}
	vals := make([]Value, n)
	copy(vals, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	result := Nil()
	for i := 0; i < n; i++ {
		result = ConsVal(vals[i], result)
	}
	vm.push(result)
	return nil
}

// buildRecord pairs off 2*arity stack values (name, value, name, value,
// ...) emitted left to right by compileRecordLit, preserving insertion
// order in the resulting Record's Keys.
func (vm *VM) buildRecord(arity int) error {
	n := 2 * arity
	if n > len(vm.stack) {
		return newRuntimeError(ErrStackUnderflow, "build record with %d fields underflows the stack", arity)
	}
	vals := make([]Value, n)
	copy(vals, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	r := NewRecord()
	for i := 0; i < arity; i++ {
		r.Set(vals[2*i].S, vals[2*i+1])
	}
	vm.push(RecordVal(r))
	return nil
}

func (vm *VM) popRecord() (*Record, error) {
	v, err := vm.pop()
	if err != nil {
		return nil, err
	}
	if v.Kind != KindRecord {
		return nil, typeMismatch("Record", v.Kind)
	}
	return v.AsRecord(), nil
}

// makeClosure reads the function constant index and its upvalue-source
// descriptor pairs, resolving each against the enclosing frame exactly
// as describes.
func (vm *VM) makeClosure(frame *Frame) error {
	fnIdx := frame.readU16()
	fn := frame.chunk().Functions[fnIdx]
	cl := &Closure{Fn: fn, Upvalues: make([]*Upvalue, len(fn.Upvalues))}
	for i := range fn.Upvalues {
		isLocal := frame.readU8()
		index := int(frame.readU8())
		if isLocal == 1 {
			cl.Upvalues[i] = vm.captureUpvalue(frame.base + index)
		} else {
			cl.Upvalues[i] = frame.closure.Upvalues[index]
		}
	}
	vm.push(ClosureVal(cl))
	return nil
}

func (vm *VM) callHost(frame *Frame) error {
	nameIdx := frame.readU16()
	name := frame.chunk().Constants[nameIdx].S
	argc := int(frame.readU8())
	if argc > len(vm.stack) {
		return newRuntimeError(ErrStackUnderflow, "CallHost %q with %d args underflows the stack", name, argc)
	}
	if vm.host == nil {
		return newRuntimeError(ErrUndefinedGlobal, "no host registry installed, cannot call %q", name)
	}
	args := make([]Value, argc)
	copy(args, vm.stack[len(vm.stack)-argc:])
	vm.stack = vm.stack[:len(vm.stack)-argc]
	result, err := vm.host.Call(name, args)
	if err != nil {
		return toRuntimeError(err)
	}
	vm.push(result)
	return nil
}

// doReturn implements Return: pop the result, close
// upvalues at/above the frame's base, discard the frame, and push the
// result onto the caller's stack (or leave it as the final output if
// the frame stack just emptied).
func (vm *VM) doReturn() error {
	result, err := vm.pop()
	if err != nil {
		return err
	}
	frame := vm.currentFrame()
	vm.closeUpvalues(frame.base)
	vm.stack = vm.stack[:frame.base]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.push(result)
	return nil
}
