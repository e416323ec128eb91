package core

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/liliang-cn/sagittadb/internal/query"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// queryOptions holds the pagination requested by QueryOption values.
type queryOptions struct {
	limit   int
	offset  int
	limited bool
}

// QueryOption restricts the window of documents a query returns.
type QueryOption func(*queryOptions)

// WithLimit returns at most n documents. n must not be negative.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) {
		o.limit = n
		o.limited = true
	}
}

// WithOffset skips the first n matching documents. n must not be negative.
func WithOffset(n int) QueryOption {
	return func(o *queryOptions) {
		o.offset = n
	}
}

func resolvePage(opts []QueryOption) (query.Page, error) {
	var o queryOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.limited && o.limit < 0 {
		return query.Page{}, fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidArgument, o.limit)
	}
	if o.offset < 0 {
		return query.Page{}, fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidArgument, o.offset)
	}
	return query.Page{Limit: o.limit, Offset: o.offset, Limited: o.limited}, nil
}

// record is a decoded row.
type record struct {
	id  int64
	doc Document
}

// Search returns the documents matching every field of filter, in id
// order. A nil or empty filter matches every document.
func (c *Collection) Search(ctx context.Context, filter Equality, opts ...QueryOption) (docs iter.Seq[Document], err error) {
	defer c.track("search", time.Now(), &err)

	records, err := c.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return documents(records), nil
}

// SearchPattern returns the documents whose field, read as text, matches the
// regular expression pattern. The match is unanchored. Numbers are matched
// against their decimal text and booleans against "true" or "false". Null,
// arrays, objects and missing fields never match.
func (c *Collection) SearchPattern(ctx context.Context, field, pattern string, opts ...QueryOption) (docs iter.Seq[Document], err error) {
	defer c.track("search_pattern", time.Now(), &err)

	records, err := c.find(ctx, query.Pattern{Field: field, Expr: pattern}, opts)
	if err != nil {
		return nil, err
	}
	return documents(records), nil
}

// FindAny returns the documents whose field equals any of values.
// Duplicate values are ignored; an empty values slice is rejected.
func (c *Collection) FindAny(ctx context.Context, field string, values []any, opts ...QueryOption) (docs iter.Seq[Document], err error) {
	defer c.track("find_any", time.Now(), &err)

	records, err := c.find(ctx, query.Membership{Field: field, Values: values}, opts)
	if err != nil {
		return nil, err
	}
	return documents(records), nil
}

// All returns every document in id order.
func (c *Collection) All(ctx context.Context, opts ...QueryOption) (docs iter.Seq[Document], err error) {
	defer c.track("all", time.Now(), &err)

	records, err := c.find(ctx, nil, opts)
	if err != nil {
		return nil, err
	}
	return documents(records), nil
}

// Records returns every document paired with its id, in id order.
func (c *Collection) Records(ctx context.Context, opts ...QueryOption) (seq iter.Seq2[int64, Document], err error) {
	defer c.track("records", time.Now(), &err)

	records, err := c.find(ctx, nil, opts)
	if err != nil {
		return nil, err
	}
	return func(yield func(int64, Document) bool) {
		for _, rec := range records {
			if !yield(rec.id, rec.doc) {
				return
			}
		}
	}, nil
}

// Count returns the number of documents matching filter. A nil or empty
// filter counts every document.
func (c *Collection) Count(ctx context.Context, filter Equality) (n int64, err error) {
	defer c.track("count", time.Now(), &err)

	clause, err := query.Translate(filter)
	if err != nil {
		return 0, err
	}
	stmt, args := query.Count(clause)
	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		return sqlite.ExecutionError(q.QueryRowContext(ctx, stmt, args...).Scan(&n))
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// find translates f and reads the matching records under the lock. The
// result is fully materialized so that no cursor outlives the lock.
func (c *Collection) find(ctx context.Context, f query.Filter, opts []QueryOption) ([]record, error) {
	page, err := resolvePage(opts)
	if err != nil {
		return nil, err
	}
	clause, err := query.Translate(f)
	if err != nil {
		return nil, err
	}

	var records []record
	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		records, err = c.selectRecords(ctx, q, clause, page)
		return err
	})
	return records, err
}

// selectRecords runs the select for clause and decodes every row. Rows are
// closed before it returns.
func (c *Collection) selectRecords(ctx context.Context, q sqlite.Querier, clause query.Clause, page query.Page) ([]record, error) {
	stmt, args := query.Select(clause, page)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, sqlite.ExecutionError(err)
	}
	defer rows.Close()

	var records []record
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, sqlite.ExecutionError(err)
		}
		doc, err := c.decode(id, body)
		if err != nil {
			return nil, err
		}
		records = append(records, record{id: id, doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.ExecutionError(err)
	}
	return records, nil
}

func (c *Collection) decode(id int64, body string) (Document, error) {
	doc, err := c.codec.Decode([]byte(body))
	if err != nil {
		c.logger.Warn("stored document failed to decode", "id", id, "error", err)
		return nil, &CorruptionError{ID: id, Err: err}
	}
	return doc, nil
}

// documents yields the documents of records in order. The sequence can be
// ranged over more than once.
func documents(records []record) iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for _, rec := range records {
			if !yield(rec.doc) {
				return
			}
		}
	}
}
