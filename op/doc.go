// Package op provides table-scoped operations on top of a row store.
//
// A TableOp binds one catalog entry to a [ps.Store]:
//
//	tableOp, err := op.GetTable(catalog, "users", store)
//
//	rec, err := tableOp.Get("key")                     // value and version
//	err = tableOp.PutString("key", "id 1, name a", 0)  // decode and store
//	err = tableOp.PutString("key", "id 2, name a", rec.Version)
//	err = tableOp.Delete("key")
//	keys, err := tableOp.Match("id>1,name=a")          // predicate scan
//
// The layering is:
//
//	Session (server/)
//	     ↓
//	Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Row stores (ps/)
package op
