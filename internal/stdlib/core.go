// Package stdlib supplies Fusabi's native modules: core, encoding, db,
// and grpc — enough to exercise every host-interop path without
// building out a full standard library of builtins.
package stdlib

import (
	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

// Core returns the "core" module: cons-list helpers (length, head,
// tail, and map/filter/fold, which call back into scripted closures),
// built against host.Module/vm.VM.CallValue. The Option and Result
// helpers are separate modules, below.
func Core(engine *vm.VM) *host.Module {
	return host.NewModule("").
		Func1("listLength", func(v vm.Value) (vm.Value, error) {
			if v.Kind != vm.KindNil && v.Kind != vm.KindCons {
				return vm.Value{}, host.TypeMismatch("Cons|Nil", v.Kind)
			}
			return vm.Int(int64(len(vm.ListToSlice(v)))), nil
		}).
		Func2("listMap", func(fn, list vm.Value) (vm.Value, error) {
			if !fn.IsCallable() {
				return vm.Value{}, host.TypeMismatch("Closure|NativeFn", fn.Kind)
			}
			elems := vm.ListToSlice(list)
			out := make([]vm.Value, len(elems))
			for i, e := range elems {
				r, err := engine.CallValue(fn, []vm.Value{e})
				if err != nil {
					return vm.Value{}, err
				}
				out[i] = r
			}
			return vm.SliceToList(out), nil
		}).
		Func2("listFilter", func(fn, list vm.Value) (vm.Value, error) {
			if !fn.IsCallable() {
				return vm.Value{}, host.TypeMismatch("Closure|NativeFn", fn.Kind)
			}
			elems := vm.ListToSlice(list)
			out := make([]vm.Value, 0, len(elems))
			for _, e := range elems {
				r, err := engine.CallValue(fn, []vm.Value{e})
				if err != nil {
					return vm.Value{}, err
				}
				if r.Kind != vm.KindBool {
					return vm.Value{}, host.TypeMismatch("Bool", r.Kind)
				}
				if r.AsBool() {
					out = append(out, e)
				}
			}
			return vm.SliceToList(out), nil
		}).
		Func3("listFold", func(fn, init, list vm.Value) (vm.Value, error) {
			if !fn.IsCallable() {
				return vm.Value{}, host.TypeMismatch("Closure|NativeFn", fn.Kind)
			}
			acc := init
			for _, e := range vm.ListToSlice(list) {
				r, err := engine.CallValue(fn, []vm.Value{acc, e})
				if err != nil {
					return vm.Value{}, err
				}
				acc = r
			}
			return acc, nil
		}).
		Func1("listHead", func(v vm.Value) (vm.Value, error) {
			if v.Kind != vm.KindCons {
				return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrEmptyList, Message: "head of an empty list"}
			}
			return v.AsCons().Head, nil
		}).
		Func1("listTail", func(v vm.Value) (vm.Value, error) {
			if v.Kind != vm.KindCons {
				return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrEmptyList, Message: "tail of an empty list"}
			}
			return v.AsCons().Tail, nil
		})
}

// Option returns the "Option" module, grounded name-for-name on
// builtins_option.go's isSome/isNone/unwrap/unwrapOr/unwrapOrElse but
// operating on the Variant("Option", ...) shape host.Some/host.None
// build rather than DataInstance.
func Option(engine *vm.VM) *host.Module {
	isOption := func(v vm.Value) bool {
		return v.Kind == vm.KindVariant && v.AsVariant().TypeName == "Option"
	}
	return host.NewModule("").
		Func1("isSome", func(v vm.Value) (vm.Value, error) {
			return vm.Bool(isOption(v) && host.IsSome(v)), nil
		}).
		Func1("isNone", func(v vm.Value) (vm.Value, error) {
			return vm.Bool(isOption(v) && !host.IsSome(v)), nil
		}).
		Func1("unwrap", func(v vm.Value) (vm.Value, error) {
			if !isOption(v) || !host.IsSome(v) {
				return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrMatchFailure, Message: "unwrap: expected Some, got None"}
			}
			return host.Unwrap(v), nil
		}).
		Func2("unwrapOr", func(v, fallback vm.Value) (vm.Value, error) {
			if isOption(v) && host.IsSome(v) {
				return host.Unwrap(v), nil
			}
			return fallback, nil
		}).
		Func2("unwrapOrElse", func(v, thunk vm.Value) (vm.Value, error) {
			if isOption(v) && host.IsSome(v) {
				return host.Unwrap(v), nil
			}
			if !thunk.IsCallable() {
				return vm.Value{}, host.TypeMismatch("Closure|NativeFn", thunk.Kind)
			}
			return engine.CallValue(thunk, nil)
		})
}

// Result returns the "Result" module: errors represented the same way
// as Option, a two-constructor Variant, here "Ok"/"Err". The
// unwrap-family names are unwrapResult/unwrapError rather than a bare
// "unwrap" for exactly this reason: Option's "unwrap" is registered
// into the same flat global namespace, and a bare "unwrap" here would
// silently shadow it.
func Result(engine *vm.VM) *host.Module {
	isResult := func(v vm.Value) bool {
		return v.Kind == vm.KindVariant && v.AsVariant().TypeName == "Result"
	}
	isOk := func(v vm.Value) bool { return v.AsVariant().Ctor == "Ok" }
	return host.NewModule("").
		Func1("isOk", func(v vm.Value) (vm.Value, error) {
			return vm.Bool(isResult(v) && isOk(v)), nil
		}).
		Func1("isErr", func(v vm.Value) (vm.Value, error) {
			return vm.Bool(isResult(v) && !isOk(v)), nil
		}).
		Func1("unwrapResult", func(v vm.Value) (vm.Value, error) {
			if !isResult(v) || !isOk(v) {
				return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrMatchFailure, Message: "unwrapResult: expected Ok, got Err"}
			}
			return v.AsVariant().Args[0], nil
		}).
		Func1("unwrapError", func(v vm.Value) (vm.Value, error) {
			if !isResult(v) || isOk(v) {
				return vm.Value{}, &vm.RuntimeError{Kind: vm.ErrMatchFailure, Message: "unwrapError: expected Err, got Ok"}
			}
			return v.AsVariant().Args[0], nil
		}).
		Func2("mapOk", func(fn, v vm.Value) (vm.Value, error) {
			if !fn.IsCallable() {
				return vm.Value{}, host.TypeMismatch("Closure|NativeFn", fn.Kind)
			}
			if !isResult(v) || !isOk(v) {
				return v, nil
			}
			r, err := engine.CallValue(fn, []vm.Value{v.AsVariant().Args[0]})
			if err != nil {
				return vm.Value{}, err
			}
			return vm.VariantVal("Result", "Ok", []vm.Value{r}), nil
		})
}
