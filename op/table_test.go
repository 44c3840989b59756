package op

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/ps"
)

func setupDatabase(t *testing.T) *DatabaseOp {
	t.Helper()
	catalog, err := core.NewCatalog([]core.Table{
		{Name: "t1", Columns: []core.Column{
			{Name: "id", Type: core.Int()},
			{Name: "label", Type: core.Str(5)},
		}},
		{Name: "t2", Columns: []core.Column{
			{Name: "n", Type: core.Int()},
		}},
	})
	require.NoError(t, err)
	return GetDatabase(catalog, ps.NewMemoryStore(catalog))
}

func TestGetTable(t *testing.T) {
	database := setupDatabase(t)

	tableOp, err := database.Table("t2")
	require.NoError(t, err)
	require.Equal(t, 1, tableOp.Index)
	require.Equal(t, "t2", tableOp.Table.Name)

	_, err = database.Table("nope")
	require.ErrorIs(t, err, core.ErrTableNotFound)

	require.Equal(t, []string{"t1", "t2"}, database.TableNames())
	require.Len(t, database.Tables(), 2)
}

func TestTableOpPutGetDelete(t *testing.T) {
	tableOp, err := setupDatabase(t).Table("t1")
	require.NoError(t, err)

	require.NoError(t, tableOp.PutString("k1", "id 3, label abc", 0))
	rec, err := tableOp.Get("k1")
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.Value[0].Int)
	require.Equal(t, "abc", rec.Value[1].Str)
	require.NotZero(t, rec.Version)
	require.Equal(t, 1, tableOp.Count())

	require.ErrorIs(t, tableOp.PutString("k1", "id 007, label abc", 0), core.ErrInvalidParam)
	require.ErrorIs(t, tableOp.PutString("k1", "id 1, label toolong", 0), core.ErrInvalidParam)

	require.NoError(t, tableOp.Delete("k1"))
	_, err = tableOp.Get("k1")
	require.ErrorIs(t, err, core.ErrKeyNotFound)
	require.Equal(t, 0, tableOp.Count())
}

func TestValidateKey(t *testing.T) {
	require.NoError(t, ValidateKey("k1"))
	require.NoError(t, ValidateKey(strings.Repeat("k", core.MaxKeyLen)))

	for _, key := range []string{"", strings.Repeat("k", core.MaxKeyLen+1), "a:b", "a\nb"} {
		require.ErrorIs(t, ValidateKey(key), core.ErrInvalidParam, "key %q", key)
	}
}

func TestTableOpMatch(t *testing.T) {
	tableOp, err := setupDatabase(t).Table("t1")
	require.NoError(t, err)

	require.NoError(t, tableOp.PutString("a", "id 1, label x", 0))
	require.NoError(t, tableOp.PutString("b", "id 5, label x", 0))
	require.NoError(t, tableOp.PutString("c", "id 9, label y", 0))

	keys, err := tableOp.Match("id>2,label=x")
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, keys)

	keys, err = tableOp.Match("id<100,label=z")
	require.NoError(t, err)
	require.Empty(t, keys)

	_, err = tableOp.Match("id>2")
	require.ErrorIs(t, err, core.ErrInvalidParam)

	all, err := tableOp.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, all)
}
