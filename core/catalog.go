package core

import (
	"fmt"
)

// Catalog holds the table schemas. It is built once at startup and never
// mutated, so it is safe for concurrent use without locking.
type Catalog struct {
	tables []Table
	byName map[string]int
}

// NewCatalog validates the schemas and builds a catalog from them.
func NewCatalog(tables []Table) (*Catalog, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("catalog: no tables defined")
	}
	if len(tables) > MaxTables {
		return nil, fmt.Errorf("catalog: %d tables exceeds the limit of %d", len(tables), MaxTables)
	}

	catalog := &Catalog{
		tables: make([]Table, 0, len(tables)),
		byName: make(map[string]int, len(tables)),
	}
	for _, table := range tables {
		if err := validateTable(table); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if _, dup := catalog.byName[table.Name]; dup {
			return nil, fmt.Errorf("catalog: table %s defined twice", table.Name)
		}

		columns := make([]Column, len(table.Columns))
		copy(columns, table.Columns)
		catalog.byName[table.Name] = len(catalog.tables)
		catalog.tables = append(catalog.tables, Table{Name: table.Name, Columns: columns})
	}
	return catalog, nil
}

func validateTable(table Table) error {
	if !validName(table.Name, MaxTableLen) {
		return fmt.Errorf("invalid table name %q", table.Name)
	}
	if len(table.Columns) == 0 || len(table.Columns) > MaxColumnsPerTable {
		return fmt.Errorf("table %s: must have 1 to %d columns", table.Name, MaxColumnsPerTable)
	}

	seen := make(map[string]bool, len(table.Columns))
	for _, col := range table.Columns {
		if !validName(col.Name, MaxColNameLen) {
			return fmt.Errorf("table %s: invalid column name %q", table.Name, col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("table %s: column %s defined twice", table.Name, col.Name)
		}
		seen[col.Name] = true

		switch col.Type.Kind {
		case IntKind:
		case StrKind:
			if col.Type.MaxLen <= 0 || col.Type.MaxLen > MaxStrTypeSize {
				return fmt.Errorf("table %s: column %s has invalid size %d", table.Name, col.Name, col.Type.MaxLen)
			}
		default:
			return fmt.Errorf("table %s: column %s has unknown type", table.Name, col.Name)
		}
	}
	return nil
}

// validName reports whether s is a non-empty alphanumeric identifier of at
// most max bytes.
func validName(s string, max int) bool {
	if s == "" || len(s) > max {
		return false
	}
	return IsIdentifier(s)
}

// IsIdentifier reports whether s matches [A-Za-z0-9]+.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	return len(c.tables)
}

// Tables returns the schemas in definition order.
func (c *Catalog) Tables() []Table {
	return c.tables
}

// FindTable returns the index of the named table.
func (c *Catalog) FindTable(name string) (int, bool) {
	idx, ok := c.byName[name]
	return idx, ok
}

// Table returns the schema at the given index.
func (c *Catalog) Table(idx int) Table {
	return c.tables[idx]
}

// FindColumn returns the index of the named column within a table.
func (c *Catalog) FindColumn(table int, name string) (int, bool) {
	return c.tables[table].ColumnIndex(name)
}

func (c *Catalog) ColumnType(table, column int) ColumnType {
	return c.tables[table].Columns[column].Type
}
