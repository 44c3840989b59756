package op

import (
	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/ps"
)

// DatabaseOp binds the whole catalog to a row store.
type DatabaseOp struct {
	Catalog *core.Catalog
	Store   ps.Store
}

func GetDatabase(catalog *core.Catalog, store ps.Store) *DatabaseOp {
	return &DatabaseOp{
		Catalog: catalog,
		Store:   store,
	}
}

func (op *DatabaseOp) TableNames() []string {
	tables := op.Catalog.Tables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

func (op *DatabaseOp) Table(name string) (*TableOp, error) {
	return GetTable(op.Catalog, name, op.Store)
}

// Tables returns a TableOp for every catalog entry, in catalog order.
func (op *DatabaseOp) Tables() []*TableOp {
	tables := op.Catalog.Tables()
	ops := make([]*TableOp, len(tables))
	for i, t := range tables {
		ops[i] = &TableOp{Index: i, Table: t, Store: op.Store}
	}
	return ops
}
