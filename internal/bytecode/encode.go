package bytecode

import (
	"errors"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// ErrNonSerializableValue is returned (unwrapped) when a chunk's constant
// pool holds an Array, Record, or HostData value. Unlike the decode
// side's DeserializeError sum, this is a caller error raised against
// the encoder's own input, so it is a plain sentinel rather than part
// of three runtime error families.
var ErrNonSerializableValue = errors.New("bytecode: value kind cannot be serialized")

type encoder struct {
	buf byteBuf
}

func (e *encoder) encodeChunk(c *vm.Chunk) error {
	e.buf.writeBytes(c.Code)
	e.buf.writeU32(uint32(len(c.Constants)))
	for _, v := range c.Constants {
		if err := e.encodeValue(v); err != nil {
			return err
		}
	}
	e.buf.writeStr(c.Name)
	e.buf.writeU32(uint32(len(c.Functions)))
	for _, fn := range c.Functions {
		if err := e.encodeFunction(fn); err != nil {
			return err
		}
	}
	e.buf.writeU32(uint32(c.LocalCount))
	return nil
}

func (e *encoder) encodeFunction(fn *vm.Function) error {
	e.buf.writeU32(uint32(fn.Arity))
	e.buf.writeStr(fn.Name)
	e.buf.writeU32(uint32(fn.LocalCount))
	e.buf.writeU32(uint32(len(fn.Upvalues)))
	for _, u := range fn.Upvalues {
		if u.FromLocal {
			e.buf.writeByte(1)
		} else {
			e.buf.writeByte(0)
		}
		e.buf.writeU32(uint32(u.Index))
	}
	return e.encodeChunk(fn.Chunk)
}

// encodeValue writes one tagged Value. Array, Record, and HostData are
// rejected outright; Closure requires every upvalue it
// carries to already be closed, else CannotSerializeOpenClosure would
// apply on the decode side of a later round trip — we reject it here
// too, at the point the violation is actually detected, since an
// encoder that silently drops openness information would produce a
// chunk decode could never catch.
func (e *encoder) encodeValue(v vm.Value) error {
	switch v.Kind {
	case vm.KindUnit:
		e.buf.writeByte(byte(tagUnit))
	case vm.KindInt:
		e.buf.writeByte(byte(tagInt))
		e.buf.writeI64(v.I)
	case vm.KindBool:
		e.buf.writeByte(byte(tagBool))
		if v.AsBool() {
			e.buf.writeByte(1)
		} else {
			e.buf.writeByte(0)
		}
	case vm.KindStr:
		e.buf.writeByte(byte(tagStr))
		e.buf.writeStr(v.S)
	case vm.KindNil:
		e.buf.writeByte(byte(tagNil))
	case vm.KindCons:
		c := v.AsCons()
		e.buf.writeByte(byte(tagCons))
		if err := e.encodeValue(c.Head); err != nil {
			return err
		}
		if err := e.encodeValue(c.Tail); err != nil {
			return err
		}
	case vm.KindTuple:
		t := v.AsTuple()
		e.buf.writeByte(byte(tagTuple))
		e.buf.writeU32(uint32(len(t.Elems)))
		for _, el := range t.Elems {
			if err := e.encodeValue(el); err != nil {
				return err
			}
		}
	case vm.KindVariant:
		vr := v.AsVariant()
		e.buf.writeByte(byte(tagVariant))
		e.buf.writeStr(vr.TypeName)
		e.buf.writeStr(vr.Ctor)
		e.buf.writeU32(uint32(len(vr.Args)))
		for _, a := range vr.Args {
			if err := e.encodeValue(a); err != nil {
				return err
			}
		}
	case vm.KindClosure:
		cl := v.AsClosure()
		closed := make([]vm.Value, len(cl.Upvalues))
		for i, u := range cl.Upvalues {
			if u.Open {
				return &vm.DeserializeError{
					Kind:    vm.ErrCannotSerializeOpenClosure,
					Message: "closure " + cl.Fn.Name + " has an open upvalue",
				}
			}
			closed[i] = u.Closed
		}
		e.buf.writeByte(byte(tagClosure))
		if err := e.encodeFunction(cl.Fn); err != nil {
			return err
		}
		e.buf.writeU32(uint32(len(closed)))
		for _, cv := range closed {
			if err := e.encodeValue(cv); err != nil {
				return err
			}
		}
		e.buf.writeU32(uint32(len(cl.Bound)))
		for _, bv := range cl.Bound {
			if err := e.encodeValue(bv); err != nil {
				return err
			}
		}
	case vm.KindNativeFn:
		n := v.AsNativeFn()
		e.buf.writeByte(byte(tagNativeFn))
		e.buf.writeStr(n.Name)
		e.buf.writeU32(uint32(n.Arity))
		e.buf.writeU32(uint32(len(n.Args)))
		for _, a := range n.Args {
			if err := e.encodeValue(a); err != nil {
				return err
			}
		}
	default:
		return ErrNonSerializableValue
	}
	return nil
}
