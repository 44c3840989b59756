// Package ps provides the row stores behind the server.
//
// Two backends implement [Store]:
//
//	store := ps.NewMemoryStore(catalog)
//
// keeps every table in a fixed-capacity slot array guarded by per-row locks,
// and
//
//	store, err := ps.NewFileStore("/path/to/data", catalog)
//
// keeps one "<table>_tbl.txt" file per table with one "key:value" line per
// row.
//
// # Versions
//
// Every successful write stamps the row with the current Unix time in
// seconds, or the previous stamp plus one when the clock has not moved past
// it. A write that names an expected version aborts with
// core.ErrTransactionAbort when the stored stamp differs.
//
// # History
//
// The file backend can record every table rewrite as a Git commit, using
// go-git for storage:
//
//	history, err := ps.NewFileHistory("/path/to/data/.history")
//	store, err := ps.NewFileStore(dir, catalog, ps.WithHistory(history, identity))
//	latest := history.Latest()
//
// Tables can be rolled back to any earlier commit:
//
//	asof, err := history.Resolve("v1")
//	err = store.Restore(asof)
package ps
