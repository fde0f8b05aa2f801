package bytecode

import "github.com/fusabi-lang/fusabi/internal/vm"

// validate walks a freshly decoded chunk's instruction stream and
// checks every operand that indexes into a bounded table — constant
// pool, function table, jump target, local slot, upvalue slot — is
// in range, recursing into nested function prototypes and any Closure
// constants with their own nested chunk.
// A violation anywhere yields CorruptBytecode.
func validate(c *vm.Chunk) error {
	return validateChunk(c, 0, c.LocalCount)
}

// numUpvalues is how many upvalue slots the current function owns (0
// for the synthetic top-level frame); localCount bounds LoadLocal,
// StoreLocal, and CloseUpvalues operands for this chunk's own frame.
func validateChunk(c *vm.Chunk, numUpvalues, localCount int) error {
	code := c.Code
	nConst := len(c.Constants)
	nFns := len(c.Functions)

	pos := 0
	for pos < len(code) {
		op := vm.Opcode(code[pos])
		start := pos
		pos++

		readU8 := func() (byte, bool) {
			if pos >= len(code) {
				return 0, false
			}
			b := code[pos]
			pos++
			return b, true
		}
		readU16 := func() (uint16, bool) {
			if pos+2 > len(code) {
				return 0, false
			}
			v := uint16(code[pos])<<8 | uint16(code[pos+1])
			pos += 2
			return v, true
		}
		readI16 := func() (int16, bool) {
			v, ok := readU16()
			return int16(v), ok
		}

		checkConst := func(idx uint16) error {
			if int(idx) >= nConst {
				return deserr(vm.ErrCorruptBytecode, "constant index %d out of range (pool size %d) at offset %d", idx, nConst, start)
			}
			return nil
		}
		checkLocal := func(idx byte) error {
			if int(idx) >= localCount {
				return deserr(vm.ErrCorruptBytecode, "local index %d out of range (local count %d) at offset %d", idx, localCount, start)
			}
			return nil
		}
		checkUpvalue := func(idx byte) error {
			if int(idx) >= numUpvalues {
				return deserr(vm.ErrCorruptBytecode, "upvalue index %d out of range (upvalue count %d) at offset %d", idx, numUpvalues, start)
			}
			return nil
		}
		fail := func(why string) error {
			return deserr(vm.ErrCorruptBytecode, "%s at offset %d", why, start)
		}

		switch op {
		case vm.OpPop, vm.OpDup, vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpMod, vm.OpNeg,
			vm.OpEq, vm.OpNeq, vm.OpLt, vm.OpLte, vm.OpGt, vm.OpGte, vm.OpAnd, vm.OpOr, vm.OpNot,
			vm.OpReturn, vm.OpCons, vm.OpIsNil, vm.OpIsCons, vm.OpConsHead, vm.OpConsTail,
			vm.OpGetIndex, vm.OpSetIndex, vm.OpMatchFail, vm.OpHalt:
			// no operand

		case vm.OpLoadLocal, vm.OpStoreLocal, vm.OpCloseUpvalues:
			idx, ok := readU8()
			if !ok {
				return fail("truncated operand")
			}
			if err := checkLocal(idx); err != nil {
				return err
			}

		case vm.OpLoadUpvalue, vm.OpStoreUpvalue:
			idx, ok := readU8()
			if !ok {
				return fail("truncated operand")
			}
			if err := checkUpvalue(idx); err != nil {
				return err
			}

		case vm.OpLoadConst, vm.OpLoadGlobal, vm.OpStoreGlobal, vm.OpGetField, vm.OpSetField, vm.OpIsVariant:
			idx, ok := readU16()
			if !ok {
				return fail("truncated operand")
			}
			if err := checkConst(idx); err != nil {
				return err
			}

		case vm.OpCall, vm.OpTailCall, vm.OpBuildTuple, vm.OpBuildRecord, vm.OpIsTuple,
			vm.OpTupleElem, vm.OpVariantArg, vm.OpSlide:
			if _, ok := readU8(); !ok {
				return fail("truncated operand")
			}

		case vm.OpBuildArray, vm.OpBuildList:
			if _, ok := readU16(); !ok {
				return fail("truncated operand")
			}

		case vm.OpJump, vm.OpJumpIfFalse, vm.OpJumpIfTrue:
			off, ok := readI16()
			if !ok {
				return fail("truncated operand")
			}
			target := pos + int(off)
			if target < 0 || target > len(code) {
				return fail("jump target out of range")
			}

		case vm.OpBuildVariant:
			typeIdx, ok := readU16()
			if !ok {
				return fail("truncated operand")
			}
			if err := checkConst(typeIdx); err != nil {
				return err
			}
			ctorIdx, ok := readU16()
			if !ok {
				return fail("truncated operand")
			}
			if err := checkConst(ctorIdx); err != nil {
				return err
			}
			if _, ok := readU8(); !ok {
				return fail("truncated operand")
			}

		case vm.OpMakeClosure:
			fnIdx, ok := readU16()
			if !ok {
				return fail("truncated operand")
			}
			if int(fnIdx) >= nFns {
				return fail("function table index out of range")
			}
			target := c.Functions[fnIdx]
			for range target.Upvalues {
				isLocal, ok := readU8()
				if !ok {
					return fail("truncated upvalue descriptor")
				}
				idx, ok := readU8()
				if !ok {
					return fail("truncated upvalue descriptor")
				}
				if isLocal != 0 {
					if err := checkLocal(idx); err != nil {
						return err
					}
				} else if err := checkUpvalue(idx); err != nil {
					return err
				}
			}

		case vm.OpCallHost:
			nameIdx, ok := readU16()
			if !ok {
				return fail("truncated operand")
			}
			if err := checkConst(nameIdx); err != nil {
				return err
			}
			if _, ok := readU8(); !ok {
				return fail("truncated operand")
			}

		default:
			return fail("unknown opcode")
		}
	}

	for _, fn := range c.Functions {
		if err := validateChunk(fn.Chunk, len(fn.Upvalues), fn.LocalCount); err != nil {
			return err
		}
	}
	for _, v := range c.Constants {
		if v.Kind == vm.KindClosure {
			cl := v.AsClosure()
			if err := validateChunk(cl.Fn.Chunk, len(cl.Fn.Upvalues), cl.Fn.LocalCount); err != nil {
				return err
			}
		}
	}
	return nil
}
