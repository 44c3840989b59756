package ps

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

// memoryRow is one slot of a table. The fields are guarded by mu. value is
// replaced on update and never modified in place, so a Row handed out by Get
// stays valid.
type memoryRow struct {
	mu      sync.Mutex
	key     string
	value   codec.Row
	version uint64
}

type memoryTable struct {
	// writer serializes inserts, deletes and Set. Readers never take it.
	writer sync.Mutex
	rows   []memoryRow
	// firstEmpty is the number of occupied slots. Slots [0, firstEmpty) are
	// packed.
	firstEmpty atomic.Int64
}

// MemoryStore keeps every table in a fixed-capacity slot array.
type MemoryStore struct {
	tables []*memoryTable
	opts   options
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(catalog *core.Catalog, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	tables := make([]*memoryTable, catalog.Len())
	for i := range tables {
		tables[i] = &memoryTable{rows: make([]memoryRow, o.capacity)}
	}
	return &MemoryStore{tables: tables, opts: o}
}

func (s *MemoryStore) table(idx int) (*memoryTable, error) {
	if idx < 0 || idx >= len(s.tables) {
		return nil, fmt.Errorf("%w: index %d", core.ErrTableNotFound, idx)
	}
	return s.tables[idx], nil
}

func (s *MemoryStore) KeyExists(table int, key string) (int, bool) {
	t, err := s.table(table)
	if err != nil {
		return -1, false
	}
	return t.find(key)
}

func (t *memoryTable) find(key string) (int, bool) {
	n := int(t.firstEmpty.Load())
	for i := 0; i < n; i++ {
		row := &t.rows[i]
		row.mu.Lock()
		match := row.key == key
		row.mu.Unlock()
		if match {
			return i, true
		}
	}
	return -1, false
}

// lock returns the row holding key with its mutex held. slot is tried first.
func (t *memoryTable) lock(key string, slot int) (*memoryRow, bool) {
	n := int(t.firstEmpty.Load())
	if slot >= 0 && slot < n {
		row := &t.rows[slot]
		row.mu.Lock()
		if row.key == key {
			return row, true
		}
		row.mu.Unlock()
	}
	for i := 0; i < n; i++ {
		row := &t.rows[i]
		row.mu.Lock()
		if row.key == key {
			return row, true
		}
		row.mu.Unlock()
	}
	return nil, false
}

func (s *MemoryStore) Get(table int, key string) (Record, error) {
	t, err := s.table(table)
	if err != nil {
		return Record{}, err
	}
	row, ok := t.lock(key, -1)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	defer row.mu.Unlock()
	return Record{Key: row.key, Value: row.value, Version: row.version}, nil
}

func (s *MemoryStore) Insert(table int, key string, value codec.Row) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	t.writer.Lock()
	defer t.writer.Unlock()

	if _, ok := t.find(key); ok {
		return fmt.Errorf("%w: key %s already exists", core.ErrInvalidParam, key)
	}
	return s.insertLocked(t, key, value)
}

// insertLocked fills the first empty slot. The caller holds t.writer.
func (s *MemoryStore) insertLocked(t *memoryTable, key string, value codec.Row) error {
	n := t.firstEmpty.Load()
	if int(n) >= len(t.rows) {
		return fmt.Errorf("%w: %d rows", core.ErrCapacityExceeded, n)
	}

	row := &t.rows[n]
	row.mu.Lock()
	row.key = key
	row.value = value
	row.version = nextVersion(0, s.opts.clock())
	row.mu.Unlock()

	t.firstEmpty.Store(n + 1)
	return nil
}

func (s *MemoryStore) Update(table int, key string, value codec.Row, expected uint64, slot int) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	row, ok := t.lock(key, slot)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	defer row.mu.Unlock()

	if expected != 0 && expected != row.version {
		return fmt.Errorf("%w: %s is at version %d, not %d", core.ErrTransactionAbort, key, row.version, expected)
	}
	row.value = value
	row.version = nextVersion(row.version, s.opts.clock())
	return nil
}

func (s *MemoryStore) Set(table int, key string, value codec.Row, expected uint64) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	t.writer.Lock()
	defer t.writer.Unlock()

	if slot, ok := t.find(key); ok {
		return s.Update(table, key, value, expected, slot)
	}
	return s.insertLocked(t, key, value)
}

// Delete removes key and shifts the following rows down by one slot.
func (s *MemoryStore) Delete(table int, key string) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	t.writer.Lock()
	defer t.writer.Unlock()

	idx, ok := t.find(key)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}

	n := int(t.firstEmpty.Load())
	for i := idx; i < n-1; i++ {
		next := &t.rows[i+1]
		next.mu.Lock()
		k, v, version := next.key, next.value, next.version
		next.mu.Unlock()

		cur := &t.rows[i]
		cur.mu.Lock()
		cur.key, cur.value, cur.version = k, v, version
		cur.mu.Unlock()
	}

	last := &t.rows[n-1]
	last.mu.Lock()
	last.key, last.value, last.version = "", nil, 0
	last.mu.Unlock()

	t.firstEmpty.Store(int64(n - 1))
	return nil
}

// Scan visits the rows in slot order. Rows are copied one at a time, so a
// scan running alongside writers may miss or repeat a row that moves.
func (s *MemoryStore) Scan(table int, fn func(Record) bool) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	n := int(t.firstEmpty.Load())
	for i := 0; i < n; i++ {
		row := &t.rows[i]
		row.mu.Lock()
		rec := Record{Key: row.key, Value: row.value, Version: row.version}
		row.mu.Unlock()

		if rec.Key == "" {
			continue
		}
		if !fn(rec) {
			break
		}
	}
	return nil
}

func (s *MemoryStore) Len(table int) int {
	t, err := s.table(table)
	if err != nil {
		return 0
	}
	return int(t.firstEmpty.Load())
}

func (s *MemoryStore) Close() error {
	return nil
}
