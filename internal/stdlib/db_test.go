package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

func TestDbOpenExecQueryRoundtrip(t *testing.T) {
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Db()))

	opened, err := reg.Call("dbOpen", []vm.Value{vm.Str("file::memory:?cache=shared")})
	require.NoError(t, err)
	require.Equal(t, "Ok", opened.AsVariant().Ctor)
	conn := opened.AsVariant().Args[0]

	createResult, err := reg.Call("dbExec", []vm.Value{conn, vm.Str("CREATE TABLE items (id INTEGER, name TEXT)")})
	require.NoError(t, err)
	require.Equal(t, "Ok", createResult.AsVariant().Ctor)

	insertResult, err := reg.Call("dbExecParams", []vm.Value{
		conn, vm.Str("INSERT INTO items (id, name) VALUES ($1, $2)"),
		vm.SliceToList([]vm.Value{vm.Int(1), vm.Str("widget")}),
	})
	require.NoError(t, err)
	require.Equal(t, "Ok", insertResult.AsVariant().Ctor)
	require.Equal(t, vm.Int(1), insertResult.AsVariant().Args[0])

	queryResult, err := reg.Call("dbQuery", []vm.Value{conn, vm.Str("SELECT id, name FROM items")})
	require.NoError(t, err)
	require.Equal(t, "Ok", queryResult.AsVariant().Ctor)
	rows := vm.ListToSlice(queryResult.AsVariant().Args[0])
	require.Len(t, rows, 1)
	require.Equal(t, vm.KindRecord, rows[0].Kind)

	closeResult, err := reg.Call("dbClose", []vm.Value{conn})
	require.NoError(t, err)
	require.Equal(t, "Ok", closeResult.AsVariant().Ctor)
}

func TestDbExecRejectsWrongHandleType(t *testing.T) {
	reg := host.New()
	require.NoError(t, reg.RegisterModule(Db()))

	_, err := reg.Call("dbExec", []vm.Value{vm.Int(1), vm.Str("SELECT 1")})
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrTypeMismatch, re.Kind)
}
