package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

func TestRegisterAndCallExactArity(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFn1("double", func(v vm.Value) (vm.Value, error) {
		n, err := Int(v)
		if err != nil {
			return vm.Value{}, err
		}
		return vm.Int(n * 2), nil
	}))

	result, err := r.Call("double", []vm.Value{vm.Int(21)})
	require.NoError(t, err)
	require.Equal(t, int64(42), result.I)
}

func TestCallWrongArityIsArityMismatch(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFn2("add", func(a, b vm.Value) (vm.Value, error) {
		return vm.Int(a.I + b.I), nil
	}))

	_, err := r.Call("add", []vm.Value{vm.Int(1)})
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrArityMismatch, re.Kind)
}

func TestCallUndefinedIsUndefinedGlobal(t *testing.T) {
	r := New()
	_, err := r.Call("nope", nil)
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrUndefinedGlobal, re.Kind)
}

func TestLookupReturnsCurryableNativeFn(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFn2("add", func(a, b vm.Value) (vm.Value, error) {
		return vm.Int(a.I + b.I), nil
	}))

	v, ok := r.Lookup("add")
	require.True(t, ok)
	require.Equal(t, vm.KindNativeFn, v.Kind)
	n := v.AsNativeFn()
	require.Equal(t, 2, n.Arity)
	require.NotNil(t, n.Impl)
}

func TestRegisterModuleQualifiesNames(t *testing.T) {
	r := New()
	m := NewModule("List").
		Func1("length", func(v vm.Value) (vm.Value, error) {
			return vm.Int(int64(len(vm.ListToSlice(v)))), nil
		})
	require.NoError(t, r.RegisterModule(m))
	require.True(t, r.Has("List.length"))

	result, err := r.Call("List.length", []vm.Value{vm.SliceToList([]vm.Value{vm.Int(1), vm.Int(2), vm.Int(3)})})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.I)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFn0("now", func() (vm.Value, error) { return vm.Unit(), nil }))
	err := r.RegisterFn0("now", func() (vm.Value, error) { return vm.Unit(), nil })
	require.Error(t, err)
}

func TestResolveRebindsDecodedNativeFn(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterFn0("now", func() (vm.Value, error) { return vm.Int(7), nil }))

	decoded := &vm.NativeFn{Name: "now", Arity: 0}
	require.True(t, r.Resolve(decoded))
	require.NotNil(t, decoded.Impl)

	v, err := decoded.Impl(nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), v.I)
}

func TestResolveUnknownNameLeavesImplNil(t *testing.T) {
	r := New()
	decoded := &vm.NativeFn{Name: "missing", Arity: 0}
	require.False(t, r.Resolve(decoded))
	require.Nil(t, decoded.Impl)
}
