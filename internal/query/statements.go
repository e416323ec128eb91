package query

import (
	"fmt"
	"strings"
)

// IndexPrefix prefixes the name of every expression index on a field.
const IndexPrefix = "idx_json_"

// Page selects the window [Offset, Offset+Limit) in id order. Limit is
// ignored unless Limited is set.
type Page struct {
	Limit   int
	Offset  int
	Limited bool
}

// Schema creates the documents table.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	data TEXT NOT NULL
)`

// Select returns the statement reading id and body of the matching
// documents in id order, restricted to page.
func Select(c Clause, page Page) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, %s FROM %s WHERE %s ORDER BY id", Column, Table, c.Where)

	args := append([]any(nil), c.Args...)
	switch {
	case page.Limited:
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, page.Limit, page.Offset)
	case page.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, page.Offset)
	}
	return b.String(), args
}

// Count returns the statement counting the matching documents.
func Count(c Clause) (string, []any) {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", Table, c.Where), c.Args
}

// Delete returns the statement removing the matching documents.
func Delete(c Clause) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", Table, c.Where), c.Args
}

// IndexName returns the name of the expression index on field.
func IndexName(field string) string {
	return IndexPrefix + field
}

// CreateIndex returns the DDL for the expression index on field. field must
// already be validated.
func CreateIndex(field string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", IndexName(field), Table, Extract(field))
}

// DropIndex returns the DDL removing the expression index on field.
func DropIndex(field string) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s", IndexName(field))
}

// ListIndexes returns the statement listing the names of expression indexes
// on the documents table.
func ListIndexes() (string, []any) {
	return "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name GLOB ? ORDER BY name",
		[]any{Table, IndexPrefix + "*"}
}

// Aggregate returns a statement computing fn over field for the documents
// matching c, as (group, value, count) rows. An empty groupBy yields a single
// row with a NULL group. Only numeric values of field feed sum, avg, min and
// max; count ignores field. Both names must already be validated.
func Aggregate(fn, field, groupBy string, c Clause) (string, []any) {
	value := "COUNT(*)"
	if fn != "count" {
		value = fmt.Sprintf("%s(CASE WHEN %s IN ('integer', 'real') THEN %s END)",
			strings.ToUpper(fn), typeOf(field), Extract(field))
	}

	if groupBy == "" {
		return fmt.Sprintf("SELECT NULL, %s, COUNT(*) FROM %s WHERE %s", value, Table, c.Where), c.Args
	}
	group := Extract(groupBy)
	return fmt.Sprintf("SELECT %s, %s, COUNT(*) FROM %s WHERE %s GROUP BY %s ORDER BY COUNT(*) DESC, %s",
		group, value, Table, c.Where, group, group), c.Args
}
