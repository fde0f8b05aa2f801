package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

func listOf(vs ...vm.Value) vm.Value { return vm.SliceToList(vs) }

func doubleNative() vm.Value {
	return vm.NativeFnVal(&vm.NativeFn{Name: "double", Arity: 1,
		Impl: func(args []vm.Value) (vm.Value, error) { return vm.Int(args[0].I * 2), nil }})
}

func TestCoreListMapLengthHead(t *testing.T) {
	engine := vm.New()
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Core(engine)))
	engine.SetHost(reg)

	mapped, err := reg.Call("listMap", []vm.Value{doubleNative(), listOf(vm.Int(1), vm.Int(2), vm.Int(3))})
	require.NoError(t, err)
	require.Equal(t, []vm.Value{vm.Int(2), vm.Int(4), vm.Int(6)}, vm.ListToSlice(mapped))

	length, err := reg.Call("listLength", []vm.Value{listOf(vm.Int(1), vm.Int(2), vm.Int(3))})
	require.NoError(t, err)
	require.Equal(t, vm.Int(3), length)

	head, err := reg.Call("listHead", []vm.Value{listOf(vm.Int(9), vm.Int(8))})
	require.NoError(t, err)
	require.Equal(t, vm.Int(9), head)

	_, err = reg.Call("listHead", []vm.Value{vm.Nil()})
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrEmptyList, re.Kind)
}

func TestCoreOptionHelpers(t *testing.T) {
	engine := vm.New()
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Option(engine)))

	some := host.Some(vm.Int(42))
	none := host.None()

	isSome, err := reg.Call("isSome", []vm.Value{some})
	require.NoError(t, err)
	require.True(t, isSome.AsBool())

	isNone, err := reg.Call("isNone", []vm.Value{none})
	require.NoError(t, err)
	require.True(t, isNone.AsBool())

	v, err := reg.Call("unwrap", []vm.Value{some})
	require.NoError(t, err)
	require.Equal(t, vm.Int(42), v)

	_, err = reg.Call("unwrap", []vm.Value{none})
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrMatchFailure, re.Kind)

	fallback, err := reg.Call("unwrapOr", []vm.Value{none, vm.Int(7)})
	require.NoError(t, err)
	require.Equal(t, vm.Int(7), fallback)
}

func TestCoreResultHelpers(t *testing.T) {
	engine := vm.New()
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Result(engine)))

	ok := vm.VariantVal("Result", "Ok", []vm.Value{vm.Int(1)})
	errV := vm.VariantVal("Result", "Err", []vm.Value{vm.Str("boom")})

	isOk, err := reg.Call("isOk", []vm.Value{ok})
	require.NoError(t, err)
	require.True(t, isOk.AsBool())

	isErr, err := reg.Call("isErr", []vm.Value{errV})
	require.NoError(t, err)
	require.True(t, isErr.AsBool())

	unwrapped, err := reg.Call("unwrapError", []vm.Value{errV})
	require.NoError(t, err)
	require.Equal(t, vm.Str("boom"), unwrapped)

	_, err = reg.Call("unwrapResult", []vm.Value{errV})
	re, ok2 := err.(*vm.RuntimeError)
	require.True(t, ok2)
	require.Equal(t, vm.ErrMatchFailure, re.Kind)
}
