package fusabi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

func TestEvalArithmetic(t *testing.T) {
	e := New()
	result, err := e.Eval("1 + 2 * 3")
	require.NoError(t, err)
	require.Equal(t, vm.Int(7), result)
}

func TestEngineRegisterAndCallHostFunction(t *testing.T) {
	e := New()
	require.NoError(t, e.Register("double", 1, func(args []vm.Value) (vm.Value, error) {
		return vm.Int(args[0].I * 2), nil
	}))

	result, err := e.Eval("double 21")
	require.NoError(t, err)
	require.Equal(t, vm.Int(42), result)
}

func TestEngineSetGetGlobal(t *testing.T) {
	e := New()
	e.SetGlobal("answer", vm.Int(42))
	v, ok := e.GetGlobal("answer")
	require.True(t, ok)
	require.Equal(t, vm.Int(42), v)
}

func TestEngineCompileEncodeLoadExecuteRoundtrip(t *testing.T) {
	e := New()
	chunk, err := e.Compile("21 + 21")
	require.NoError(t, err)

	data, err := e.EncodeChunk(chunk)
	require.NoError(t, err)

	loaded, unresolved, err := e.LoadBytecode(data)
	require.NoError(t, err)
	require.Empty(t, unresolved)

	result, err := e.Execute(loaded)
	require.NoError(t, err)
	require.Equal(t, vm.Int(42), result)
}

func TestEngineLoadBytecodeReportsUnresolvedHostBindings(t *testing.T) {
	producer := New()
	require.NoError(t, producer.Register("double", 1, func(args []vm.Value) (vm.Value, error) {
		return vm.Int(args[0].I * 2), nil
	}))
	// Compiled code reaches host functions through LoadGlobal by name, so
	// embed the NativeFn value itself as a constant for the loader to see.
	chunk, err := producer.Compile("double")
	require.NoError(t, err)
	native, err := producer.Eval("double")
	require.NoError(t, err)
	chunk.Constants = append(chunk.Constants, native)
	data, err := producer.EncodeChunk(chunk)
	require.NoError(t, err)

	consumer := New()
	_, unresolved, err := consumer.LoadBytecode(data)
	require.NoError(t, err)
	require.Contains(t, unresolved, "double")
}

func TestPreloadStdlibCoreAndCallListLength(t *testing.T) {
	e := New()
	require.NoError(t, e.PreloadStdlib([]string{"core"}))

	result, err := e.Eval("listLength [1; 2; 3]")
	require.NoError(t, err)
	require.Equal(t, vm.Int(3), result)
}

func TestPreloadStdlibUnknownNameErrors(t *testing.T) {
	e := New()
	require.Error(t, e.PreloadStdlib([]string{"not-a-real-module"}))
}
