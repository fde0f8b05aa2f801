// Marshalling between vm.Value and the plain interface{} Go values
// host callbacks naturally produce (decoded YAML/JSON, SQL rows, proto
// messages), keeping the conversion rules in one place so every
// stdlib module targets the same Value shapes.
package host

import (
	"fmt"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// ToValue converts a plain Go value into its Value counterpart:
// integers/floats (truncated, Fusabi has no distinct Float) to Int,
// bool to Bool, string to Str, nil to Unit, []interface{} to a Cons
// list, map[string]interface{} to a Record.
func ToValue(v interface{}) (vm.Value, error) {
	switch x := v.(type) {
	case nil:
		return vm.Unit(), nil
	case bool:
		return vm.Bool(x), nil
	case int:
		return vm.Int(int64(x)), nil
	case int64:
		return vm.Int(x), nil
	case float64:
		return vm.Int(int64(x)), nil
	case string:
		return vm.Str(x), nil
	case []byte:
		return vm.Str(string(x)), nil
	case []interface{}:
		elems := make([]vm.Value, len(x))
		for i, e := range x {
			ev, err := ToValue(e)
			if err != nil {
				return vm.Value{}, err
			}
			elems[i] = ev
		}
		return vm.SliceToList(elems), nil
	case map[string]interface{}:
		r := vm.NewRecord()
		for k, e := range x {
			ev, err := ToValue(e)
			if err != nil {
				return vm.Value{}, err
			}
			r.Set(k, ev)
		}
		return vm.RecordVal(r), nil
	case map[interface{}]interface{}:
		r := vm.NewRecord()
		for k, e := range x {
			ev, err := ToValue(e)
			if err != nil {
				return vm.Value{}, err
			}
			r.Set(fmt.Sprintf("%v", k), ev)
		}
		return vm.RecordVal(r), nil
	default:
		return vm.Value{}, fmt.Errorf("host: cannot marshal Go type %T to Value", v)
	}
}

// FromValue is ToValue's inverse, used wherever a host callback needs
// to hand a script-constructed Value to a Go API expecting plain data
// (an SQL parameter, a YAML document to re-encode, a proto field).
func FromValue(v vm.Value) (interface{}, error) {
	switch v.Kind {
	case vm.KindUnit:
		return nil, nil
	case vm.KindInt:
		return v.I, nil
	case vm.KindBool:
		return v.AsBool(), nil
	case vm.KindStr:
		return v.S, nil
	case vm.KindNil:
		return []interface{}{}, nil
	case vm.KindCons:
		elems := vm.ListToSlice(v)
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			ev, err := FromValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case vm.KindTuple:
		elems := v.AsTuple().Elems
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			ev, err := FromValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case vm.KindRecord:
		r := v.AsRecord()
		out := make(map[string]interface{}, len(r.Keys))
		for _, k := range r.Keys {
			ev, err := FromValue(r.Values[k])
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("host: cannot marshal Value kind %s to a Go value", v.Kind)
	}
}

// Int, Str, and Bool are typed extractors host callbacks use instead
// of poking at Value.Kind/Obj themselves; a mismatch is exactly the
// TypeMismatch specifies for a failed marshal.
func Int(v vm.Value) (int64, error) {
	if v.Kind != vm.KindInt {
		return 0, typeMismatchErr("Int", v.Kind)
	}
	return v.I, nil
}

func Str(v vm.Value) (string, error) {
	if v.Kind != vm.KindStr {
		return "", typeMismatchErr("Str", v.Kind)
	}
	return v.S, nil
}

func Bool(v vm.Value) (bool, error) {
	if v.Kind != vm.KindBool {
		return false, typeMismatchErr("Bool", v.Kind)
	}
	return v.AsBool(), nil
}

func typeMismatchErr(expected string, got vm.Kind) error {
	return TypeMismatch(expected, got)
}

// TypeMismatch builds the TypeMismatch RuntimeError host callbacks
// outside this package (internal/stdlib and beyond) raise when an
// argument's Kind doesn't match what the binding expects.
func TypeMismatch(expected string, got vm.Kind) error {
	return &vm.RuntimeError{Kind: vm.ErrTypeMismatch, Expected: expected, Got: got.String(),
		Message: fmt.Sprintf("expected %s, got %s", expected, got)}
}

// Some and None build the Option Variant specifies for
// optional-of-T: Variant("Option","Some",[v]) or Variant("Option","None",[]).
func Some(v vm.Value) vm.Value { return vm.VariantVal("Option", "Some", []vm.Value{v}) }
func None() vm.Value           { return vm.VariantVal("Option", "None", nil) }

// IsSome/IsNone/Unwrap interrogate a Value already known to be an
// Option variant; callers that aren't sure should check Kind first.
func IsSome(v vm.Value) bool {
	return v.Kind == vm.KindVariant && v.AsVariant().Ctor == "Some"
}

func Unwrap(v vm.Value) vm.Value { return v.AsVariant().Args[0] }
