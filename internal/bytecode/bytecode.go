// Package bytecode implements the on-disk chunk format (C3): magic and
// version framing around a length-prefixed, tag-based structural
// encoding of a vm.Chunk, using an explicit encoder rather than gob
// since gob cannot express the reject-Array/Record/HostData and
// closed-upvalues-only rules this format requires at decode time.
package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// Magic identifies a Fusabi bytecode file; Version is the current
// payload format. Magic+version framing is the only compatibility
// contract — payload encoding itself is versioned via the single
// version byte, so a future format bump need not touch this header.
var Magic = [4]byte{'F', 'Z', 'B', 1}

const Version byte = 1

const headerSize = 5 // 4-byte magic + 1-byte version

// Structural tags, one per serializable Value kind plus the Closure/
// NativeFn object shapes. Fixed-width (1 byte): every sum variant is
// prefixed by a fixed-width tag.
type tag byte

const (
	tagUnit tag = iota
	tagInt
	tagBool
	tagStr
	tagNil
	tagCons
	tagTuple
	tagVariant
	tagClosure
	tagNativeFn
)

// Encode serializes chunk into the framed on-disk format. It fails if
// chunk's constant pool (transitively, through nested function
// prototypes) contains an Array, Record, or HostData value, or a
// Closure with any still-open upvalue.
func Encode(chunk *vm.Chunk) ([]byte, error) {
	e := &encoder{}
	if err := e.encodeChunk(chunk); err != nil {
		return nil, err
	}
	out := make([]byte, 0, headerSize+e.buf.Len())
	out = append(out, Magic[:]...)
	out = append(out, Version)
	out = append(out, e.buf...)
	return out, nil
}

// Decode parses a byte stream produced by Encode. Any structural
// violation — bad magic, unsupported version, truncated payload,
// out-of-range index, unclosed closure — yields a *vm.DeserializeError
// rather than a panic.
func Decode(data []byte) (*vm.Chunk, error) {
	if len(data) < headerSize {
		return nil, deserr(vm.ErrCorruptBytecode, "truncated header: %d bytes", len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] {
		return nil, deserr(vm.ErrBadMagic, "bad magic bytes")
	}
	version := data[4]
	if version > Version {
		return nil, deserr(vm.ErrUnsupportedVersion, "unsupported version %d (max %d)", version, Version)
	}
	d := &decoder{buf: data[headerSize:]}
	chunk, err := d.decodeChunk()
	if err != nil {
		return nil, err
	}
	if err := validate(chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func deserr(kind vm.DeserializeErrorKind, format string, args ...interface{}) *vm.DeserializeError {
	return &vm.DeserializeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// --- low-level buffer helpers shared by encoder/decoder ---

type byteBuf []byte

func (b *byteBuf) writeByte(v byte) { *b = append(*b, v) }

func (b *byteBuf) writeU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	*b = append(*b, tmp[:]...)
}

func (b *byteBuf) writeU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	*b = append(*b, tmp[:]...)
}

func (b *byteBuf) writeI64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	*b = append(*b, tmp[:]...)
}

func (b *byteBuf) writeStr(s string) {
	b.writeU32(uint32(len(s)))
	*b = append(*b, s...)
}

func (b *byteBuf) writeBytes(p []byte) {
	b.writeU32(uint32(len(p)))
	*b = append(*b, p...)
}

func (b byteBuf) Len() int { return len(b) }
