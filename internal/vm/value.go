// Package vm implements the bytecode compiler and stack-based virtual
// machine at the core of Fusabi: the runtime value universe (C1), the
// instruction set and chunk container (C2), the AST-to-chunk compiler
// (C4), and the execution engine (C5). They share one package because
// Value, Chunk, and Closure are mutually referential — a closure's
// function object owns a Chunk, whose constant pool holds Values,
// some of which are themselves closures.
package vm

import (
	"fmt"
	"strings"
)

// Kind identifies which variant of the C1 value sum a Value holds.
type Kind uint8

const (
	KindUnit Kind = iota
	KindInt
	KindBool
	KindStr
	KindNil
	KindCons
	KindTuple
	KindArray
	KindRecord
	KindVariant
	KindClosure
	KindNativeFn
	KindHostData
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindStr:
		return "Str"
	case KindNil:
		return "Nil"
	case KindCons:
		return "Cons"
	case KindTuple:
		return "Tuple"
	case KindArray:
		return "Array"
	case KindRecord:
		return "Record"
	case KindVariant:
		return "Variant"
	case KindClosure:
		return "Closure"
	case KindNativeFn:
		return "NativeFn"
	case KindHostData:
		return "HostData"
	default:
		return "Unknown"
	}
}

// Value is a tagged sum covering every value the VM manipulates.
// Primitives (Unit, Int, Bool, Str, Nil) are carried inline; everything else
// is a pointer to a heap-allocated, reference-counted-by-Go's-GC object,
// so copying a Value is always cheap regardless of variant.
type Value struct {
	Kind Kind
	I    int64 // KindInt, also doubles as KindBool's 0/1
	S    string
	Obj  interface{} // *Cons, *Tuple, *Array, *Record, *Variant, *Closure, *NativeFn, *HostData
}

// Cons is one link of a singly-linked, structurally-immutable list.
// Tail must itself be *Cons (Kind==KindCons) or the Nil value.
type Cons struct {
	Head Value
	Tail Value
}

// Tuple is a fixed-arity, immutable ordered sequence.
type Tuple struct {
	Elems []Value
}

// Array is a fixed-length, mutably indexable sequence with reference
// identity: two Values wrapping the same *Array alias the same storage.
type Array struct {
	Elems []Value
}

// Record is an ordered-insertion, shared, mutable string-keyed map.
// Field order is preserved for display but never affects Equals, which
// compares fields as an unordered map.
type Record struct {
	Keys   []string
	Values map[string]Value
}

func NewRecord() *Record {
	return &Record{Values: make(map[string]Value)}
}

// Set assigns Keys[k]=v, appending k to Keys if it is new. Used both by
// construction (BuildRecord) and host mutation.
func (r *Record) Set(k string, v Value) {
	if _, ok := r.Values[k]; !ok {
		r.Keys = append(r.Keys, k)
	}
	r.Values[k] = v
}

// Clone performs a shallow copy, used by functional update (SetField)
// so the original Record is left untouched.
func (r *Record) Clone() *Record {
	nr := &Record{
		Keys:   append([]string(nil), r.Keys...),
		Values: make(map[string]Value, len(r.Values)),
	}
	for k, v := range r.Values {
		nr.Values[k] = v
	}
	return nr
}

// Variant is a tagged value of a discriminated-union type: a type name,
// a constructor name, and its payload values.
type Variant struct {
	TypeName string
	Ctor     string
	Args     []Value
}

// Function is the compile-time/runtime function object: a Chunk plus
// declared arity, optional name, and upvalue descriptors describing how
// a MakeClosure instruction should populate a concrete closure's
// upvalue vector at the point it is created.
type Function struct {
	Arity      int
	Name       string
	Chunk      *Chunk
	Upvalues   []UpvalueDesc
	LocalCount int
}

// UpvalueDesc says how to obtain one upvalue slot when a closure over
// this function is created: either from a local slot of the immediately
// enclosing frame, or by forwarding an upvalue of the enclosing closure.
type UpvalueDesc struct {
	FromLocal bool // true: Index is a local slot of the enclosing frame
	Index     int
}

// Closure bundles a Function with a concrete, resolved upvalue vector.
// Bound holds arguments already supplied by a prior under-saturated
// Call; a fresh closure from MakeClosure
// always has an empty Bound.
type Closure struct {
	Fn       *Function
	Upvalues []*Upvalue
	Bound    []Value
}

// Upvalue is the binding of a non-local variable captured by a nested
// function. While Open it aliases a live stack slot of a parent frame;
// Close copies the slot's current value in and severs that link.
type Upvalue struct {
	Open     bool
	StackIdx int // valid while Open
	Closed   Value
	next     *Upvalue // VM's open-upvalue list, sorted by StackIdx descending
}

func (u *Upvalue) Get(stack []Value) Value {
	if u.Open {
		return stack[u.StackIdx]
	}
	return u.Closed
}

func (u *Upvalue) Set(stack []Value, v Value) {
	if u.Open {
		stack[u.StackIdx] = v
		return
	}
	u.Closed = v
}

func (u *Upvalue) Close(stack []Value) {
	if !u.Open {
		return
	}
	u.Closed = stack[u.StackIdx]
	u.Open = false
}

// NativeFn is a prototype-and-partial-application record for a host
// callback. Declared arity is fixed; Args accumulates partially applied
// arguments as currying proceeds.
type NativeFn struct {
	Name  string
	Arity int
	Args  []Value
	Impl  func(args []Value) (Value, error)
}

// HostData is an opaque, owning wrapper around a host-language object,
// tagged with a caller-provided type name for runtime-checked downcast.
type HostData struct {
	TypeName string
	ID       string // identity tag, see internal/host
	Data     interface{}
}

// --- Constructors ---

func Unit() Value              { return Value{Kind: KindUnit} }
func Int(v int64) Value        { return Value{Kind: KindInt, I: v} }
func Bool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{Kind: KindBool, I: i}
}
func Str(v string) Value { return Value{Kind: KindStr, S: v} }
func Nil() Value          { return Value{Kind: KindNil} }

func ConsVal(head, tail Value) Value {
	return Value{Kind: KindCons, Obj: &Cons{Head: head, Tail: tail}}
}

func TupleVal(elems []Value) Value {
	return Value{Kind: KindTuple, Obj: &Tuple{Elems: elems}}
}

func ArrayVal(elems []Value) Value {
	return Value{Kind: KindArray, Obj: &Array{Elems: elems}}
}

func RecordVal(r *Record) Value { return Value{Kind: KindRecord, Obj: r} }

func VariantVal(typeName, ctor string, args []Value) Value {
	return Value{Kind: KindVariant, Obj: &Variant{TypeName: typeName, Ctor: ctor, Args: args}}
}

func ClosureVal(c *Closure) Value { return Value{Kind: KindClosure, Obj: c} }

func NativeFnVal(n *NativeFn) Value { return Value{Kind: KindNativeFn, Obj: n} }

func HostDataVal(h *HostData) Value { return Value{Kind: KindHostData, Obj: h} }

// --- Accessors (panic on Kind mismatch; callers must check Kind first,
// exactly as the VM's dispatch loop does before every cast) ---

func (v Value) AsBool() bool    { return v.I != 0 }
func (v Value) AsCons() *Cons   { return v.Obj.(*Cons) }
func (v Value) AsTuple() *Tuple { return v.Obj.(*Tuple) }
func (v Value) AsArray() *Array { return v.Obj.(*Array) }
func (v Value) AsRecord() *Record   { return v.Obj.(*Record) }
func (v Value) AsVariant() *Variant { return v.Obj.(*Variant) }
func (v Value) AsClosure() *Closure { return v.Obj.(*Closure) }
func (v Value) AsNativeFn() *NativeFn { return v.Obj.(*NativeFn) }
func (v Value) AsHostData() *HostData { return v.Obj.(*HostData) }

func (v Value) IsCallable() bool {
	return v.Kind == KindClosure || v.Kind == KindNativeFn
}

// Equals implements structural, element-wise equality: cons
// lists and tuples compare element-wise, records compare as unordered
// maps, variants compare type+ctor+payload, and the remaining heap
// kinds (Array, Closure, NativeFn, HostData) compare by identity since
// they are mutable or opaque.
func (v Value) Equals(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindUnit, KindNil:
		return true
	case KindInt, KindBool:
		return v.I == o.I
	case KindStr:
		return v.S == o.S
	case KindCons:
		a, b := v.AsCons(), o.AsCons()
		return a.Head.Equals(b.Head) && a.Tail.Equals(b.Tail)
	case KindTuple:
		a, b := v.AsTuple(), o.AsTuple()
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !a.Elems[i].Equals(b.Elems[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		a, b := v.AsRecord(), o.AsRecord()
		if len(a.Values) != len(b.Values) {
			return false
		}
		for k, av := range a.Values {
			bv, ok := b.Values[k]
			if !ok || !av.Equals(bv) {
				return false
			}
		}
		return true
	case KindVariant:
		a, b := v.AsVariant(), o.AsVariant()
		if a.TypeName != b.TypeName || a.Ctor != b.Ctor || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !a.Args[i].Equals(b.Args[i]) {
				return false
			}
		}
		return true
	case KindArray:
		return v.Obj.(*Array) == o.Obj.(*Array)
	case KindClosure:
		return v.Obj.(*Closure) == o.Obj.(*Closure)
	case KindNativeFn:
		return v.Obj.(*NativeFn) == o.Obj.(*NativeFn)
	case KindHostData:
		return v.Obj.(*HostData) == o.Obj.(*HostData)
	default:
		return false
	}
}

// Inspect renders a debug/REPL-friendly representation.
func (v Value) Inspect() string {
	switch v.Kind {
	case KindUnit:
		return "()"
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindStr:
		return fmt.Sprintf("%q", v.S)
	case KindNil:
		return "[]"
	case KindCons:
		var sb strings.Builder
		sb.WriteByte('[')
		cur := v
		first := true
		for cur.Kind == KindCons {
			if !first {
				sb.WriteString("; ")
			}
			first = false
			c := cur.AsCons()
			sb.WriteString(c.Head.Inspect())
			cur = c.Tail
		}
		sb.WriteByte(']')
		return sb.String()
	case KindTuple:
		parts := make([]string, len(v.AsTuple().Elems))
		for i, e := range v.AsTuple().Elems {
			parts[i] = e.Inspect()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		parts := make([]string, len(v.AsArray().Elems))
		for i, e := range v.AsArray().Elems {
			parts[i] = e.Inspect()
		}
		return "[|" + strings.Join(parts, "; ") + "|]"
	case KindRecord:
		r := v.AsRecord()
		parts := make([]string, len(r.Keys))
		for i, k := range r.Keys {
			parts[i] = fmt.Sprintf("%s = %s", k, r.Values[k].Inspect())
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	case KindVariant:
		vr := v.AsVariant()
		if len(vr.Args) == 0 {
			return vr.Ctor
		}
		parts := make([]string, len(vr.Args))
		for i, a := range vr.Args {
			parts[i] = a.Inspect()
		}
		return vr.Ctor + "(" + strings.Join(parts, ", ") + ")"
	case KindClosure:
		return fmt.Sprintf("<fun %s>", v.AsClosure().Fn.Name)
	case KindNativeFn:
		return fmt.Sprintf("<native %s>", v.AsNativeFn().Name)
	case KindHostData:
		return fmt.Sprintf("<host %s>", v.AsHostData().TypeName)
	default:
		return "<?>"
	}
}

// IsWellFormedList reports whether v is Nil or a Cons whose tail chain
// ends in Nil.
func IsWellFormedList(v Value) bool {
	for v.Kind == KindCons {
		v = v.AsCons().Tail
	}
	return v.Kind == KindNil
}

// ListToSlice flattens a well-formed cons-list into a Go slice.
func ListToSlice(v Value) []Value {
	var out []Value
	for v.Kind == KindCons {
		c := v.AsCons()
		out = append(out, c.Head)
		v = c.Tail
	}
	return out
}

// SliceToList builds a cons-list from a Go slice, right to left.
func SliceToList(elems []Value) Value {
	v := Nil()
	for i := len(elems) - 1; i >= 0; i-- {
		v = ConsVal(elems[i], v)
	}
	return v
}
