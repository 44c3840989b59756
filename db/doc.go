// Package db executes data commands against the catalog and a row store.
//
// The Engine type is the main entry point. It resolves the table, validates
// the key and value, and returns a typed result:
//
//	engine := db.NewEngine(catalog, store)
//	result, err := engine.Execute(request)
//	if err != nil {
//	    return wire.ErrorToken(err)
//	}
//
// # Result Types
//
//   - ValueResult: returned by GET (encoded row and version)
//   - CommitResult: returned by SET and DELETE
//   - QueryResult: returned by QUERY (matching keys in storage order)
//
// # Snapshots
//
// Load and Dump copy every table from or to "<url>/<table>_tbl.txt", where
// url is a local path, a file://, http(s):// (read only) or s3:// location.
package db
