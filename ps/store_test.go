package ps

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

func testCatalog(t *testing.T) *core.Catalog {
	t.Helper()
	catalog, err := core.NewCatalog([]core.Table{
		{Name: "t1", Columns: []core.Column{
			{Name: "id", Type: core.Int()},
			{Name: "label", Type: core.Str(20)},
		}},
		{Name: "t2", Columns: []core.Column{
			{Name: "n", Type: core.Int()},
		}},
	})
	require.NoError(t, err)
	return catalog
}

func row(id int64, label string) codec.Row {
	return codec.Row{{Int: id}, {Str: label}}
}

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

// runWithBothStores runs fn against a memory store and a file store.
func runWithBothStores(t *testing.T, fn func(t *testing.T, s Store), opts ...Option) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore(testCatalog(t), opts...)
		defer s.Close()
		fn(t, s)
	})
	t.Run("file", func(t *testing.T) {
		s := NewFileStoreFS(memfs.New(), testCatalog(t), opts...)
		defer s.Close()
		fn(t, s)
	})
}

func TestStoreSetGet(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(0, "a", row(1, "one"), 0))

		rec, err := s.Get(0, "a")
		require.NoError(t, err)
		require.Equal(t, "a", rec.Key)
		require.Equal(t, row(1, "one"), rec.Value)
		require.Equal(t, uint64(100), rec.Version)

		slot, ok := s.KeyExists(0, "a")
		require.True(t, ok)
		require.Equal(t, 0, slot)
		require.Equal(t, 1, s.Len(0))
		require.Equal(t, 0, s.Len(1))
	}, WithClock(fixedClock(100)))
}

func TestStoreVersionAdvances(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(0, "a", row(1, "one"), 0))
		require.NoError(t, s.Set(0, "a", row(2, "two"), 0))

		rec, err := s.Get(0, "a")
		require.NoError(t, err)
		require.Equal(t, uint64(101), rec.Version)

		require.NoError(t, s.Set(0, "a", row(3, "three"), 101))
		rec, err = s.Get(0, "a")
		require.NoError(t, err)
		require.Equal(t, uint64(102), rec.Version)
		require.Equal(t, row(3, "three"), rec.Value)
	}, WithClock(fixedClock(100)))
}

func TestStoreVersionConflict(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(0, "a", row(1, "one"), 0))

		err := s.Set(0, "a", row(2, "two"), 42)
		require.ErrorIs(t, err, core.ErrTransactionAbort)

		rec, err := s.Get(0, "a")
		require.NoError(t, err)
		require.Equal(t, row(1, "one"), rec.Value)
		require.Equal(t, uint64(100), rec.Version)

		slot, ok := s.KeyExists(0, "a")
		require.True(t, ok)
		err = s.Update(0, "a", row(2, "two"), 7, slot)
		require.ErrorIs(t, err, core.ErrTransactionAbort)
	}, WithClock(fixedClock(100)))
}

func TestStoreUpdateMissing(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		err := s.Update(0, "ghost", row(1, "x"), 0, 0)
		require.ErrorIs(t, err, core.ErrKeyNotFound)
	})
}

func TestStoreDeleteShiftsRows(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		for i, key := range []string{"a", "b", "c"} {
			require.NoError(t, s.Insert(0, key, row(int64(i), key)))
		}

		require.NoError(t, s.Delete(0, "b"))

		slot, ok := s.KeyExists(0, "c")
		require.True(t, ok)
		require.Equal(t, 1, slot)
		require.Equal(t, 2, s.Len(0))

		var keys []string
		require.NoError(t, s.Scan(0, func(rec Record) bool {
			keys = append(keys, rec.Key)
			return true
		}))
		require.Equal(t, []string{"a", "c"}, keys)

		_, err := s.Get(0, "b")
		require.ErrorIs(t, err, core.ErrKeyNotFound)
		require.ErrorIs(t, s.Delete(0, "b"), core.ErrKeyNotFound)
	})
}

func TestStoreCapacity(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(0, "a", row(1, "a"), 0))
		require.NoError(t, s.Set(0, "b", row(2, "b"), 0))

		err := s.Set(0, "c", row(3, "c"), 0)
		require.ErrorIs(t, err, core.ErrCapacityExceeded)
		require.Equal(t, 2, s.Len(0))

		// Updates still fit.
		require.NoError(t, s.Set(0, "a", row(9, "a"), 0))

		require.NoError(t, s.Delete(0, "b"))
		require.NoError(t, s.Set(0, "c", row(3, "c"), 0))
	}, WithCapacity(2))
}

func TestStoreInsertDuplicate(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Insert(0, "a", row(1, "a")))
		require.ErrorIs(t, s.Insert(0, "a", row(2, "a")), core.ErrInvalidParam)
		require.Equal(t, 1, s.Len(0))
	})
}

func TestStoreUnknownTable(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		_, err := s.Get(5, "a")
		require.ErrorIs(t, err, core.ErrTableNotFound)
		require.ErrorIs(t, s.Set(-1, "a", row(1, "a"), 0), core.ErrTableNotFound)
		require.ErrorIs(t, s.Scan(9, func(Record) bool { return true }), core.ErrTableNotFound)

		_, ok := s.KeyExists(5, "a")
		require.False(t, ok)
		require.Equal(t, 0, s.Len(5))
	})
}

func TestStoreScanStops(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		for i, key := range []string{"a", "b", "c", "d"} {
			require.NoError(t, s.Set(0, key, row(int64(i), key), 0))
		}

		visited := 0
		require.NoError(t, s.Scan(0, func(Record) bool {
			visited++
			return visited < 2
		}))
		require.Equal(t, 2, visited)
	})
}

func TestStoreTablesAreIndependent(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Set(0, "a", row(1, "a"), 0))
		require.NoError(t, s.Set(1, "a", codec.Row{{Int: 7}}, 0))

		rec, err := s.Get(1, "a")
		require.NoError(t, err)
		require.Equal(t, codec.Row{{Int: 7}}, rec.Value)

		require.NoError(t, s.Delete(0, "a"))
		_, ok := s.KeyExists(1, "a")
		require.True(t, ok)
	})
}

func TestNextVersion(t *testing.T) {
	require.Equal(t, uint64(50), nextVersion(0, time.Unix(50, 0)))
	require.Equal(t, uint64(51), nextVersion(50, time.Unix(50, 0)))
	require.Equal(t, uint64(61), nextVersion(60, time.Unix(50, 0)))
	require.Equal(t, uint64(70), nextVersion(60, time.Unix(70, 0)))
}
