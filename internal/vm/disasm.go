package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of chunk's instruction
// stream, one line per instruction with its source line and decoded
// operand, followed by a recursive listing of every nested function
// prototype — internal/vm/disasm.go, adapted
// to this package's opcode set and operand encodings (documented
// alongside each Opcode in opcodes.go and checked byte-for-byte by
// internal/bytecode's decode-time validator).
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder
	disassembleChunk(&sb, chunk, name)
	return sb.String()
}

func disassembleChunk(sb *strings.Builder, chunk *Chunk, name string) {
	fmt.Fprintf(sb, "== %s ==\n", name)
	pos := 0
	for pos < len(chunk.Code) {
		pos = disassembleInstruction(sb, chunk, pos)
	}
	for i, fn := range chunk.Functions {
		fmt.Fprintf(sb, "\n")
		disassembleChunk(sb, fn.Chunk, fmt.Sprintf("%s/fn[%d] %s(arity %d)", name, i, fn.Name, fn.Arity))
	}
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, pos int) int {
	start := pos
	fmt.Fprintf(sb, "%04d ", start)
	if start > 0 && chunk.Lines[start] == chunk.Lines[start-1] {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", chunk.Lines[start])
	}

	op := Opcode(chunk.Code[pos])
	pos++

	readU8 := func() byte { b := chunk.Code[pos]; pos++; return b }
	readU16 := func() uint16 {
		v := uint16(chunk.Code[pos])<<8 | uint16(chunk.Code[pos+1])
		pos += 2
		return v
	}
	readI16 := func() int16 { return int16(readU16()) }

	switch op {
	case OpPop, OpDup, OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg,
		OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr, OpNot,
		OpReturn, OpCons, OpIsNil, OpIsCons, OpConsHead, OpConsTail,
		OpGetIndex, OpSetIndex, OpMatchFail, OpHalt:
		fmt.Fprintf(sb, "%s\n", op)

	case OpLoadLocal, OpStoreLocal, OpCloseUpvalues, OpLoadUpvalue, OpStoreUpvalue,
		OpCall, OpTailCall, OpBuildTuple, OpBuildRecord, OpIsTuple,
		OpTupleElem, OpVariantArg, OpSlide:
		idx := readU8()
		fmt.Fprintf(sb, "%-16s %d\n", op, idx)

	case OpLoadConst, OpLoadGlobal, OpStoreGlobal, OpGetField, OpSetField, OpIsVariant:
		idx := readU16()
		fmt.Fprintf(sb, "%-16s %d %s\n", op, idx, constantRepr(chunk, idx))

	case OpBuildArray, OpBuildList:
		count := readU16()
		fmt.Fprintf(sb, "%-16s %d\n", op, count)

	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		off := readI16()
		fmt.Fprintf(sb, "%-16s %d -> %d\n", op, off, pos+int(off))

	case OpBuildVariant:
		typeIdx := readU16()
		ctorIdx := readU16()
		argc := readU8()
		fmt.Fprintf(sb, "%-16s %s.%s (%d args)\n", op, constantRepr(chunk, typeIdx), constantRepr(chunk, ctorIdx), argc)

	case OpMakeClosure:
		fnIdx := readU16()
		var upvalues []UpvalueDesc
		if int(fnIdx) < len(chunk.Functions) {
			upvalues = chunk.Functions[fnIdx].Upvalues
		}
		fmt.Fprintf(sb, "%-16s fn[%d]\n", op, fnIdx)
		for range upvalues {
			isLocal := readU8()
			idx := readU8()
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			fmt.Fprintf(sb, "     |                     %s %d\n", kind, idx)
		}

	case OpCallHost:
		nameIdx := readU16()
		argc := readU8()
		fmt.Fprintf(sb, "%-16s %s (%d args)\n", op, constantRepr(chunk, nameIdx), argc)

	default:
		fmt.Fprintf(sb, "UNKNOWN(%d)\n", byte(op))
	}
	return pos
}

func constantRepr(chunk *Chunk, idx uint16) string {
	if int(idx) >= len(chunk.Constants) {
		return "<out of range>"
	}
	return chunk.Constants[idx].Inspect()
}
