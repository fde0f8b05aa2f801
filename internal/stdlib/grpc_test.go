package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

func TestGrpcConnectAndClose(t *testing.T) {
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Grpc()))

	connected, err := reg.Call("grpcConnect", []vm.Value{vm.Str("localhost:0")})
	require.NoError(t, err)
	require.Equal(t, "Ok", connected.AsVariant().Ctor)

	closed, err := reg.Call("grpcClose", []vm.Value{connected.AsVariant().Args[0]})
	require.NoError(t, err)
	require.Equal(t, "Ok", closed.AsVariant().Ctor)
}

func TestGrpcInvokeUnknownMethodIsErr(t *testing.T) {
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Grpc()))

	connected, err := reg.Call("grpcConnect", []vm.Value{vm.Str("localhost:0")})
	require.NoError(t, err)
	conn := connected.AsVariant().Args[0]

	record := vm.NewRecord()
	result, err := reg.Call("grpcInvoke", []vm.Value{conn, vm.Str("pkg.Service/Method"), vm.RecordVal(record)})
	require.NoError(t, err)
	require.Equal(t, "Err", result.AsVariant().Ctor)
}

func TestGrpcLoadProtoMissingFileIsErr(t *testing.T) {
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Grpc()))

	result, err := reg.Call("grpcLoadProto", []vm.Value{vm.Str("/nonexistent/path.proto")})
	require.NoError(t, err)
	require.Equal(t, "Err", result.AsVariant().Ctor)
}
