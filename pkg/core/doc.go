// Package core provides the document storage engine of sagittadb.
//
// A Collection stores JSON-like documents in a single SQLite table, one row
// per document, and answers structured queries over their fields without
// the caller writing SQL.
//
// # Key Components
//
//   - Collection: the entry point for all data operations. It owns one
//     database connection and serializes every operation on it.
//   - Filters: Equality, regular expression patterns (SearchPattern) and
//     multi-value membership (FindAny), translated to parameterized SQL over
//     json_extract.
//   - Indexes: expression indexes on document fields (CreateIndex) that the
//     filters use automatically.
//   - Aggregate: count, sum, avg, min and max over a field, optionally
//     grouped by another field.
//   - Dump and Load: JSON and JSON Lines export and import.
//
// # Results
//
// Query results are read completely while the collection lock is held and
// returned as an iter.Seq over that snapshot. A sequence never observes
// writes made after the call returned.
//
// # Observability
//
// Operations log through the Logger interface and record counters and
// latency histograms, exposed by Collection.WritePrometheus.
package core
