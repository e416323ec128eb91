package core

import (
	"context"
	"strings"
	"time"

	"github.com/liliang-cn/sagittadb/internal/ident"
	"github.com/liliang-cn/sagittadb/internal/query"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// CreateIndex creates an expression index on field. Filters on field use
// the index automatically. Creating an index that already exists is a
// no-op.
func (c *Collection) CreateIndex(ctx context.Context, field string) (err error) {
	defer c.track("create_index", time.Now(), &err)

	if _, err := ident.Validate(field); err != nil {
		return err
	}
	if _, err := c.handle.Exec(ctx, query.CreateIndex(field)); err != nil {
		return err
	}
	c.logger.Info("index created", "field", field, "name", query.IndexName(field))
	return nil
}

// DropIndex removes the expression index on field if it exists.
func (c *Collection) DropIndex(ctx context.Context, field string) (err error) {
	defer c.track("drop_index", time.Now(), &err)

	if _, err := ident.Validate(field); err != nil {
		return err
	}
	if _, err := c.handle.Exec(ctx, query.DropIndex(field)); err != nil {
		return err
	}
	c.logger.Info("index dropped", "field", field)
	return nil
}

// Indexes lists the expression indexes of the collection ordered by name.
func (c *Collection) Indexes(ctx context.Context) (indexes []IndexInfo, err error) {
	defer c.track("indexes", time.Now(), &err)

	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		indexes, err = listIndexes(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return indexes, nil
}

func listIndexes(ctx context.Context, q sqlite.Querier) ([]IndexInfo, error) {
	stmt, args := query.ListIndexes()
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, sqlite.ExecutionError(err)
	}
	defer rows.Close()

	indexes := []IndexInfo{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, sqlite.ExecutionError(err)
		}
		field := strings.TrimPrefix(name, query.IndexPrefix)
		info := IndexInfo{Field: field, Name: name, Expression: query.Extract(field)}
		indexes = append(indexes, info)
	}
	return indexes, sqlite.ExecutionError(rows.Err())
}
