package bytecode

import (
	"testing"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

func simpleChunk() *vm.Chunk {
	c := vm.NewChunk("main")
	c.WriteConstant(vm.Int(41), 1)
	c.EmitOp(vm.OpLoadConst, 1)
	c.EmitU16(0, 1)
	c.EmitOp(vm.OpAdd, 1)
	c.EmitOp(vm.OpReturn, 1)
	c.LocalCount = 0
	return c
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	c := simpleChunk()
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if data[0] != 'F' || data[1] != 'Z' || data[2] != 'B' {
		t.Fatalf("bad magic in encoded output: %v", data[:4])
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got.Code) != string(c.Code) {
		t.Errorf("Code mismatch: got %v, want %v", got.Code, c.Code)
	}
	if len(got.Constants) != len(c.Constants) || !got.Constants[0].Equals(c.Constants[0]) {
		t.Errorf("Constants mismatch: got %v, want %v", got.Constants, c.Constants)
	}
	if got.Name != c.Name {
		t.Errorf("Name: got %q, want %q", got.Name, c.Name)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	_, err := Decode([]byte{'X', 'X', 'X', 'X', 1, 0, 0, 0, 0})
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	if e, ok := err.(*vm.DeserializeError); !ok || e.Kind != vm.ErrBadMagic {
		t.Errorf("got %v (%T), want DeserializeError{BadMagic}", err, err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	hdr := append([]byte{}, Magic[0], Magic[1], Magic[2], Magic[3], 99)
	_, err := Decode(hdr)
	e, ok := err.(*vm.DeserializeError)
	if !ok || e.Kind != vm.ErrUnsupportedVersion {
		t.Errorf("got %v, want DeserializeError{UnsupportedVersion}", err)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	c := simpleChunk()
	data, _ := Encode(c)
	_, err := Decode(data[:len(data)-2])
	e, ok := err.(*vm.DeserializeError)
	if !ok || e.Kind != vm.ErrCorruptBytecode {
		t.Errorf("got %v, want DeserializeError{CorruptBytecode}", err)
	}
}

func TestDecodeOutOfRangeConstantIndex(t *testing.T) {
	c := vm.NewChunk("main")
	c.EmitOp(vm.OpLoadConst, 1)
	c.EmitU16(5, 1) // no constants exist
	c.EmitOp(vm.OpReturn, 1)
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data)
	e, ok := err.(*vm.DeserializeError)
	if !ok || e.Kind != vm.ErrCorruptBytecode {
		t.Errorf("got %v, want DeserializeError{CorruptBytecode} for out-of-range constant", err)
	}
}

func TestDecodeOutOfRangeJumpTarget(t *testing.T) {
	c := vm.NewChunk("main")
	c.EmitOp(vm.OpJump, 1)
	c.EmitI16(1000, 1)
	c.EmitOp(vm.OpReturn, 1)
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data)
	e, ok := err.(*vm.DeserializeError)
	if !ok || e.Kind != vm.ErrCorruptBytecode {
		t.Errorf("got %v, want DeserializeError{CorruptBytecode} for out-of-range jump", err)
	}
}

func TestEncodeRejectsArray(t *testing.T) {
	c := vm.NewChunk("main")
	c.Constants = append(c.Constants, vm.ArrayVal([]vm.Value{vm.Int(1)}))
	_, err := Encode(c)
	if err == nil {
		t.Fatal("expected encode to reject an Array constant")
	}
}

func TestEncodeRejectsOpenClosure(t *testing.T) {
	fn := &vm.Function{Name: "f", Chunk: vm.NewChunk("f")}
	cl := &vm.Closure{Fn: fn, Upvalues: []*vm.Upvalue{{Open: true, StackIdx: 0}}}
	c := vm.NewChunk("main")
	c.Constants = append(c.Constants, vm.ClosureVal(cl))
	_, err := Encode(c)
	derr, ok := err.(*vm.DeserializeError)
	if !ok || derr.Kind != vm.ErrCannotSerializeOpenClosure {
		t.Errorf("got %v, want DeserializeError{CannotSerializeOpenClosure}", err)
	}
}

func TestNativeFnRoundtripsByNameOnly(t *testing.T) {
	c := vm.NewChunk("main")
	n := &vm.NativeFn{Name: "List.map", Arity: 2, Impl: func(args []vm.Value) (vm.Value, error) { return vm.Unit(), nil }}
	c.Constants = append(c.Constants, vm.NativeFnVal(n))
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rn := got.Constants[0].AsNativeFn()
	if rn.Name != "List.map" || rn.Arity != 2 {
		t.Errorf("got %+v, want name=List.map arity=2", rn)
	}
	if rn.Impl != nil {
		t.Error("decoded NativeFn.Impl should be nil until re-resolved by a loader through the host registry")
	}
}
