package db

import (
	"fmt"
	"time"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/op"
	"github.com/nickyhof/tablekv/ps"
	"github.com/nickyhof/tablekv/wire"
)

type Engine struct {
	database *op.DatabaseOp
}

func NewEngine(catalog *core.Catalog, store ps.Store) *Engine {
	return &Engine{
		database: op.GetDatabase(catalog, store),
	}
}

func (engine *Engine) Catalog() *core.Catalog {
	return engine.database.Catalog
}

// Execute runs one data command. AUTH is handled by the session and is
// rejected here.
func (engine *Engine) Execute(request wire.Request) (Result, error) {
	switch request.Kind {
	case wire.KindGet:
		return engine.Get(request.Table, request.Key)
	case wire.KindSet:
		return engine.Set(request.Table, request.Key, request.Value, request.Version)
	case wire.KindDelete:
		return engine.Delete(request.Table, request.Key)
	case wire.KindQuery:
		return engine.Query(request.Table, request.Predicates)
	default:
		return nil, fmt.Errorf("%w: unsupported command %s", core.ErrUnknown, request.Kind)
	}
}

func (engine *Engine) Get(table, key string) (ValueResult, error) {
	startTime := time.Now()

	tableOp, err := engine.database.Table(table)
	if err != nil {
		return ValueResult{}, err
	}

	record, err := tableOp.Get(key)
	if err != nil {
		return ValueResult{}, err
	}

	return ValueResult{
		Table:            table,
		Key:              key,
		Value:            codec.Encode(record.Value, tableOp.Table),
		Version:          record.Version,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// Set stores value under key. A non-zero version makes the write
// conditional on the stored version.
func (engine *Engine) Set(table, key, value string, version uint64) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := engine.database.Table(table)
	if err != nil {
		return CommitResult{}, err
	}
	if err := op.ValidateKey(key); err != nil {
		return CommitResult{}, err
	}

	if err := tableOp.PutString(key, value, version); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Table:            table,
		Key:              key,
		RecordsWritten:   1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) Delete(table, key string) (CommitResult, error) {
	startTime := time.Now()

	tableOp, err := engine.database.Table(table)
	if err != nil {
		return CommitResult{}, err
	}

	if err := tableOp.Delete(key); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Table:            table,
		Key:              key,
		RecordsDeleted:   1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// Query returns the keys of the rows matching predicates, which must hold
// exactly one clause per column of the table.
func (engine *Engine) Query(table, predicates string) (QueryResult, error) {
	startTime := time.Now()

	tableOp, err := engine.database.Table(table)
	if err != nil {
		return QueryResult{}, err
	}

	keys, err := tableOp.Match(predicates)
	if err != nil {
		return QueryResult{}, err
	}

	return QueryResult{
		Table:            table,
		Keys:             keys,
		Total:            len(keys),
		RecordsRead:      tableOp.Count(),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}
