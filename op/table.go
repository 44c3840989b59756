package op

import (
	"fmt"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/ps"
	"github.com/nickyhof/tablekv/query"
)

type TableOp struct {
	Index int
	Table core.Table
	Store ps.Store
}

func GetTable(catalog *core.Catalog, tableName string, store ps.Store) (*TableOp, error) {
	idx, ok := catalog.FindTable(tableName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, tableName)
	}

	return &TableOp{
		Index: idx,
		Table: catalog.Table(idx),
		Store: store,
	}, nil
}

// ValidateKey checks the length bounds of a row key. The key separator of the
// file format is not allowed either.
func ValidateKey(key string) error {
	if key == "" || len(key) > core.MaxKeyLen {
		return fmt.Errorf("%w: key length %d", core.ErrInvalidParam, len(key))
	}
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case ':', '\n', '\r':
			return fmt.Errorf("%w: key %q", core.ErrInvalidParam, key)
		}
	}
	return nil
}

func (op *TableOp) Get(key string) (ps.Record, error) {
	if err := ValidateKey(key); err != nil {
		return ps.Record{}, err
	}
	return op.Store.Get(op.Index, key)
}

// Put stores value under key. A non-zero expected version makes the write
// conditional.
func (op *TableOp) Put(key string, value codec.Row, expected uint64) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if len(value) != len(op.Table.Columns) {
		return fmt.Errorf("%w: %d values for %d columns", core.ErrInvalidParam, len(value), len(op.Table.Columns))
	}
	return op.Store.Set(op.Index, key, value, expected)
}

// PutString decodes raw against the table schema and stores it.
func (op *TableOp) PutString(key, raw string, expected uint64) error {
	value, err := codec.Decode(raw, op.Table)
	if err != nil {
		return err
	}
	return op.Put(key, value, expected)
}

func (op *TableOp) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return op.Store.Delete(op.Index, key)
}

func (op *TableOp) Count() int {
	return op.Store.Len(op.Index)
}

func (op *TableOp) Scan(fn func(ps.Record) bool) error {
	return op.Store.Scan(op.Index, fn)
}

func (op *TableOp) Keys() ([]string, error) {
	var keys []string
	err := op.Scan(func(rec ps.Record) bool {
		keys = append(keys, rec.Key)
		return true
	})
	return keys, err
}

// Match parses predicates against the table schema and returns the keys of
// the matching rows in storage order. Nothing is scanned when the predicate
// list is invalid.
func (op *TableOp) Match(predicates string) ([]string, error) {
	preds, err := query.Parse(predicates, op.Table)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = op.Scan(func(rec ps.Record) bool {
		if preds.Match(rec.Value) {
			keys = append(keys, rec.Key)
		}
		return true
	})
	return keys, err
}
