// Package sagittadb is an embedded document store for Go built on SQLite.
//
// Documents are JSON-like maps stored as JSON text in a single table. Each
// document gets a stable, increasing 64-bit id. Collections answer
// exact-match, regular expression and multi-value queries with pagination,
// and support expression indexes on document fields, all without the caller
// writing SQL. The default driver is modernc.org/sqlite, so no cgo is
// required; build with the sqlite_cgo tag to use mattn/go-sqlite3 instead.
//
// # Quick Start
//
//	db, err := sagittadb.Open("people.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	ctx := context.Background()
//	id, _ := db.Insert(ctx, sagittadb.Document{"name": "Alice", "age": 30})
//
//	docs, _ := db.Search(ctx, sagittadb.Equality{"age": 30})
//	for doc := range docs {
//	    fmt.Println(doc["name"])
//	}
//
// # Concurrency
//
// A Collection may be shared by any number of goroutines. Operations are
// serialized on its single connection, and query results are read in full
// before the call returns.
package sagittadb
