// Package core provides core types used throughout tablekv.
//
// The package defines the schema types (Table, Column, ColumnType), the
// read-only Catalog built from them at startup, the storage limits, and the
// error kinds every layer reports.
//
// # Column Types
//
// A column is either an integer or a bounded string:
//
//	core.Int()    // 64-bit signed integer
//	core.Str(10)  // string of at most 10 bytes
//
// Types are parsed once when the configuration is loaded:
//
//	t, err := core.ParseColumnType("char[10]")
//
// # Catalog
//
//	catalog, err := core.NewCatalog([]core.Table{{
//	    Name: "users",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.Int()},
//	        {Name: "name", Type: core.Str(20)},
//	    },
//	}})
//	idx, ok := catalog.FindTable("users")
package core
