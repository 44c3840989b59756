package ps

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nickyhof/tablekv/core"
)

func TestMemoryStoreConcurrentWriters(t *testing.T) {
	s := NewMemoryStore(testCatalog(t))

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("w%dk%d", w, i)
				if err := s.Set(0, key, row(int64(i), key), 0); err != nil {
					return err
				}
				rec, err := s.Get(0, key)
				if err != nil {
					return err
				}
				if rec.Value[0].Int != int64(i) {
					return fmt.Errorf("%s: got %d", key, rec.Value[0].Int)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 400, s.Len(0))
}

func TestMemoryStoreConditionalWritesRace(t *testing.T) {
	s := NewMemoryStore(testCatalog(t), WithClock(fixedClock(1000)))
	require.NoError(t, s.Set(0, "hot", row(0, "start"), 0))
	rec, err := s.Get(0, "hot")
	require.NoError(t, err)

	var wins atomic.Int32
	var g errgroup.Group
	for w := 0; w < 16; w++ {
		g.Go(func() error {
			err := s.Set(0, "hot", row(int64(w), "w"), rec.Version)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, core.ErrTransactionAbort):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), wins.Load())

	after, err := s.Get(0, "hot")
	require.NoError(t, err)
	require.Equal(t, rec.Version+1, after.Version)
}

func TestMemoryStoreScanDuringDeletes(t *testing.T) {
	s := NewMemoryStore(testCatalog(t))
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, s.Insert(0, key, row(int64(i), key)))
	}

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < 200; i += 2 {
			if err := s.Delete(0, fmt.Sprintf("k%d", i)); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for n := 0; n < 20; n++ {
			err := s.Scan(0, func(rec Record) bool {
				return rec.Key != ""
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
	require.Equal(t, 100, s.Len(0))

	_, ok := s.KeyExists(0, "k1")
	require.True(t, ok)
	_, ok = s.KeyExists(0, "k0")
	require.False(t, ok)
}
