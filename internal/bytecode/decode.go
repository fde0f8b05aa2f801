package bytecode

import (
	"encoding/binary"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// decoder reads the tagged payload sequentially, failing closed: any
// short read or unrecognized tag becomes CorruptBytecode rather than a
// panic or silently-wrong value.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return deserr(vm.ErrCorruptBytecode, "truncated payload: need %d bytes at offset %d, have %d", n, d.pos, len(d.buf))
	}
	return nil
}

func (d *decoder) readByte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readU32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) readU16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) readI64() (int64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return int64(v), nil
}

func (d *decoder) readStr() (string, error) {
	n, err := d.readU32()
	if err != nil {
		return "", err
	}
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	s := string(d.buf[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s, nil
}

func (d *decoder) readBytes() ([]byte, error) {
	n, err := d.readU32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	b := append([]byte(nil), d.buf[d.pos:d.pos+int(n)]...)
	d.pos += int(n)
	return b, nil
}

func (d *decoder) decodeChunk() (*vm.Chunk, error) {
	code, err := d.readBytes()
	if err != nil {
		return nil, err
	}
	nConst, err := d.readU32()
	if err != nil {
		return nil, err
	}
	constants := make([]vm.Value, nConst)
	for i := range constants {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		constants[i] = v
	}
	name, err := d.readStr()
	if err != nil {
		return nil, err
	}
	nFns, err := d.readU32()
	if err != nil {
		return nil, err
	}
	fns := make([]*vm.Function, nFns)
	for i := range fns {
		fn, err := d.decodeFunction()
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	localCount, err := d.readU32()
	if err != nil {
		return nil, err
	}
	// Lines is diagnostic-only and not part of the wire format; fill a
	// zero-valued slice the same length as Code so vm.Disassemble, which
	// indexes Lines by code offset, stays in range.
	lines := make([]int, len(code))
	return &vm.Chunk{
		Code:       code,
		Constants:  constants,
		Name:       name,
		Functions:  fns,
		Lines:      lines,
		LocalCount: int(localCount),
	}, nil
}

func (d *decoder) decodeFunction() (*vm.Function, error) {
	arity, err := d.readU32()
	if err != nil {
		return nil, err
	}
	name, err := d.readStr()
	if err != nil {
		return nil, err
	}
	localCount, err := d.readU32()
	if err != nil {
		return nil, err
	}
	nUp, err := d.readU32()
	if err != nil {
		return nil, err
	}
	ups := make([]vm.UpvalueDesc, nUp)
	for i := range ups {
		isLocal, err := d.readByte()
		if err != nil {
			return nil, err
		}
		idx, err := d.readU32()
		if err != nil {
			return nil, err
		}
		ups[i] = vm.UpvalueDesc{FromLocal: isLocal != 0, Index: int(idx)}
	}
	chunk, err := d.decodeChunk()
	if err != nil {
		return nil, err
	}
	return &vm.Function{
		Arity:      int(arity),
		Name:       name,
		Chunk:      chunk,
		Upvalues:   ups,
		LocalCount: int(localCount),
	}, nil
}

func (d *decoder) decodeValue() (vm.Value, error) {
	t, err := d.readByte()
	if err != nil {
		return vm.Value{}, err
	}
	switch tag(t) {
	case tagUnit:
		return vm.Unit(), nil
	case tagInt:
		i, err := d.readI64()
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Int(i), nil
	case tagBool:
		b, err := d.readByte()
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Bool(b != 0), nil
	case tagStr:
		s, err := d.readStr()
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Str(s), nil
	case tagNil:
		return vm.Nil(), nil
	case tagCons:
		head, err := d.decodeValue()
		if err != nil {
			return vm.Value{}, err
		}
		tail, err := d.decodeValue()
		if err != nil {
			return vm.Value{}, err
		}
		return vm.ConsVal(head, tail), nil
	case tagTuple:
		n, err := d.readU32()
		if err != nil {
			return vm.Value{}, err
		}
		elems := make([]vm.Value, n)
		for i := range elems {
			v, err := d.decodeValue()
			if err != nil {
				return vm.Value{}, err
			}
			elems[i] = v
		}
		return vm.TupleVal(elems), nil
	case tagVariant:
		typeName, err := d.readStr()
		if err != nil {
			return vm.Value{}, err
		}
		ctor, err := d.readStr()
		if err != nil {
			return vm.Value{}, err
		}
		n, err := d.readU32()
		if err != nil {
			return vm.Value{}, err
		}
		args := make([]vm.Value, n)
		for i := range args {
			v, err := d.decodeValue()
			if err != nil {
				return vm.Value{}, err
			}
			args[i] = v
		}
		return vm.VariantVal(typeName, ctor, args), nil
	case tagClosure:
		fn, err := d.decodeFunction()
		if err != nil {
			return vm.Value{}, err
		}
		nUp, err := d.readU32()
		if err != nil {
			return vm.Value{}, err
		}
		upvalues := make([]*vm.Upvalue, nUp)
		for i := range upvalues {
			v, err := d.decodeValue()
			if err != nil {
				return vm.Value{}, err
			}
			upvalues[i] = &vm.Upvalue{Open: false, Closed: v}
		}
		nBound, err := d.readU32()
		if err != nil {
			return vm.Value{}, err
		}
		bound := make([]vm.Value, nBound)
		for i := range bound {
			v, err := d.decodeValue()
			if err != nil {
				return vm.Value{}, err
			}
			bound[i] = v
		}
		return vm.ClosureVal(&vm.Closure{Fn: fn, Upvalues: upvalues, Bound: bound}), nil
	case tagNativeFn:
		name, err := d.readStr()
		if err != nil {
			return vm.Value{}, err
		}
		arity, err := d.readU32()
		if err != nil {
			return vm.Value{}, err
		}
		n, err := d.readU32()
		if err != nil {
			return vm.Value{}, err
		}
		args := make([]vm.Value, n)
		for i := range args {
			v, err := d.decodeValue()
			if err != nil {
				return vm.Value{}, err
			}
			args[i] = v
		}
		// Impl is left nil: the loader must re-resolve it through the
		// host registry before execution.
		return vm.NativeFnVal(&vm.NativeFn{Name: name, Arity: int(arity), Args: args}), nil
	default:
		return vm.Value{}, deserr(vm.ErrCorruptBytecode, "unknown value tag %d", t)
	}
}
