package vm

// Opcode is a single VM instruction. The set below is the minimum
// required by named after OP_* convention.
type Opcode byte

const (
	OpLoadConst Opcode = iota // u16 constant pool index
	OpPop
	OpDup

	OpLoadLocal    // u8 slot
	OpStoreLocal   // u8 slot
	OpLoadUpvalue  // u8 slot
	OpStoreUpvalue // u8 slot
	OpLoadGlobal   // u16 constant pool index (name)
	OpStoreGlobal  // u16 constant pool index (name) — engine-level Set, not in spec's core opcode list; emitted to install `open`ed module bindings as globals
	OpCloseUpvalues // u8 slot: close all open upvalues at/above this local slot

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpNot

	OpJump        // i16 relative offset
	OpJumpIfFalse // i16 relative offset
	OpJumpIfTrue  // i16 relative offset
	OpCall        // u8 argc
	OpTailCall    // u8 argc
	OpReturn

	OpBuildTuple  // u8 arity
	OpBuildArray  // u16 count
	OpBuildList   // u16 count
	OpCons
	OpBuildRecord // u8 arity; arg names are constants pushed immediately before each value
	OpGetField    // u16 constant pool index (field name)
	OpSetField    // u16 constant pool index (field name); functional, pushes a new record

	OpIsNil
	OpIsCons
	OpIsVariant // u16 constant index (ctor name); pops a Value, pushes bool
	OpIsTuple   // u8 arity; pops a Value, pushes bool(Kind==Tuple && len(Elems)==arity)

	// Single-field pattern-destructuring accessors: each pops exactly
	// one container Value and pushes exactly one component, so the
	// compiler can re-fetch the subject from its temporary local slot
	// between sibling accesses instead of threading a stack position
	// through sibling bindings that may themselves grow the stack.
	OpConsHead
	OpConsTail
	OpTupleElem   // u8 index
	OpVariantArg  // u8 index
	OpBuildVariant // u16 typeName const idx, u16 ctor const idx, u8 argc

	// OpMakeClosure: u16 index into the chunk's Functions table, followed
	// by Fn.Upvalues-many (u8 isLocal, u8 index) pairs describing how to
	// populate the new Closure's upvalue vector from the enclosing frame.
	OpMakeClosure
	OpCallHost // u16 constant pool index (name), u8 argc

	OpGetIndex // Array index read: [arr, idx] -> [val]
	OpSetIndex // Array index write: [arr, idx, val] -> [Unit]

	// OpSlide u8 n: pop the top value V, discard the n values beneath
	// it, then push V back. Used by the compiler to collapse a let/
	// let-rec/match-binding scope's local slots once its body's result
	// is computed, without disturbing anything further down the stack.
	OpSlide

	// OpMatchFail: no operand. Reached when no arm of a match matched;
	// raises RuntimeError{Kind: MatchFailure}.
	OpMatchFail

	OpHalt
)

var opcodeNames = map[Opcode]string{
	OpLoadConst: "LOAD_CONST", OpPop: "POP", OpDup: "DUP",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpLoadUpvalue: "LOAD_UPVALUE", OpStoreUpvalue: "STORE_UPVALUE",
	OpLoadGlobal: "LOAD_GLOBAL", OpStoreGlobal: "STORE_GLOBAL",
	OpCloseUpvalues: "CLOSE_UPVALUES",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpNeg: "NEG",
	OpEq: "EQ", OpNeq: "NEQ", OpLt: "LT", OpLte: "LTE", OpGt: "GT", OpGte: "GTE",
	OpAnd: "AND", OpOr: "OR", OpNot: "NOT",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpCall: "CALL", OpTailCall: "TAIL_CALL", OpReturn: "RETURN",
	OpBuildTuple: "BUILD_TUPLE", OpBuildArray: "BUILD_ARRAY", OpBuildList: "BUILD_LIST",
	OpCons: "CONS", OpBuildRecord: "BUILD_RECORD", OpGetField: "GET_FIELD", OpSetField: "SET_FIELD",
	OpIsNil: "IS_NIL", OpIsCons: "IS_CONS", OpIsVariant: "IS_VARIANT", OpIsTuple: "IS_TUPLE",
	OpConsHead: "CONS_HEAD", OpConsTail: "CONS_TAIL", OpTupleElem: "TUPLE_ELEM", OpVariantArg: "VARIANT_ARG",
	OpBuildVariant: "BUILD_VARIANT",
	OpMakeClosure: "MAKE_CLOSURE", OpCallHost: "CALL_HOST",
	OpGetIndex: "GET_INDEX", OpSetIndex: "SET_INDEX",
	OpSlide: "SLIDE",
	OpMatchFail: "MATCH_FAIL",
	OpHalt: "HALT",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "UNKNOWN"
}
