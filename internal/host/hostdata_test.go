package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

type fakeConn struct{ dsn string }

func TestHostDataDowncast(t *testing.T) {
	v := NewData("Db.Conn", &fakeConn{dsn: "file::memory:"})
	require.Equal(t, vm.KindHostData, v.Kind)
	require.NotEmpty(t, v.AsHostData().ID)

	conn, err := As[*fakeConn](v, "Db.Conn")
	require.NoError(t, err)
	require.Equal(t, "file::memory:", conn.dsn)
}

func TestHostDataDowncastWrongTypeName(t *testing.T) {
	v := NewData("Db.Conn", &fakeConn{})
	_, err := As[*fakeConn](v, "Db.Rows")
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrTypeMismatch, re.Kind)
}

func TestHostDataDowncastNonHostData(t *testing.T) {
	_, err := As[*fakeConn](vm.Int(1), "Db.Conn")
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, vm.ErrTypeMismatch, re.Kind)
}

func TestTwoHostDataOfSameGoTypeHaveDistinctIdentity(t *testing.T) {
	a := NewData("Db.Conn", &fakeConn{})
	b := NewData("Db.Conn", &fakeConn{})
	require.NotEqual(t, a.AsHostData().ID, b.AsHostData().ID)
}
