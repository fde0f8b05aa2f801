package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

func TestYamlRoundtrip(t *testing.T) {
	engine := vm.New()
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Encoding(engine)))

	result, err := reg.Call("yamlParse", []vm.Value{vm.Str("name: fusabi\ncount: 3\n")})
	require.NoError(t, err)
	require.Equal(t, "Result", result.AsVariant().TypeName)
	require.Equal(t, "Ok", result.AsVariant().Ctor)

	record := result.AsVariant().Args[0]
	require.Equal(t, vm.KindRecord, record.Kind)
	n, ok := record.AsRecord().Values["name"]
	require.True(t, ok)
	require.Equal(t, vm.Str("fusabi"), n)
	c, ok := record.AsRecord().Values["count"]
	require.True(t, ok)
	require.Equal(t, vm.Int(3), c)
}

func TestYamlParseErrorIsErrNotGoError(t *testing.T) {
	engine := vm.New()
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Encoding(engine)))

	result, err := reg.Call("yamlParse", []vm.Value{vm.Str("- [unterminated")})
	require.NoError(t, err)
	require.Equal(t, "Err", result.AsVariant().Ctor)
}

func TestJsonRoundtrip(t *testing.T) {
	engine := vm.New()
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Encoding(engine)))

	result, err := reg.Call("jsonParse", []vm.Value{vm.Str(`{"a": 1, "b": [1,2,3]}`)})
	require.NoError(t, err)
	require.Equal(t, "Ok", result.AsVariant().Ctor)

	str, err := reg.Call("jsonStringify", []vm.Value{result.AsVariant().Args[0]})
	require.NoError(t, err)
	require.Equal(t, vm.KindStr, str.Kind)
}
