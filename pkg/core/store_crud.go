package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/liliang-cn/sagittadb/internal/encoding"
	"github.com/liliang-cn/sagittadb/internal/query"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

var (
	insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", query.Table, query.Column)
	updateSQL = fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", query.Table, query.Column)
	getSQL    = fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ?", query.Column, query.Table)
	purgeSQL  = fmt.Sprintf("DELETE FROM %s", query.Table)
)

// Insert stores doc and returns its new id.
func (c *Collection) Insert(ctx context.Context, doc Document) (id int64, err error) {
	defer c.track("insert", time.Now(), &err)

	if doc == nil {
		return 0, ErrInvalidDocument
	}

	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		body, err := c.codec.Encode(doc)
		if err != nil {
			return err
		}
		ids, err := insertBodies(ctx, q, []string{string(body)})
		if err != nil {
			return err
		}
		id = ids[0]
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertMany stores every document of docs in one transaction and returns
// their ids in input order. Either all documents are stored or none is.
func (c *Collection) InsertMany(ctx context.Context, docs iter.Seq[Document]) (ids []int64, err error) {
	defer c.track("insert_many", time.Now(), &err)

	// The sequence is drained before taking the lock: it is caller code.
	var batch []Document
	if docs != nil {
		batch = slices.Collect(docs)
	}
	if len(batch) == 0 {
		return []int64{}, nil
	}

	err = c.handle.Tx(ctx, func(q sqlite.Querier) error {
		bodies, err := c.encodeAll(batch)
		if err != nil {
			return err
		}
		ids, err = insertBodies(ctx, q, bodies)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("batch insert completed", "count", len(ids))
	return ids, nil
}

// encodeAll encodes every document before any statement runs, so a bad
// document fails the batch without touching the database.
func (c *Collection) encodeAll(docs []Document) ([]string, error) {
	bodies := make([]string, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: document %d is nil", ErrInvalidDocument, i)
		}
		body, err := c.codec.Encode(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		bodies = append(bodies, string(body))
	}
	return bodies, nil
}

func insertBodies(ctx context.Context, q sqlite.Querier, bodies []string) ([]int64, error) {
	ids := make([]int64, 0, len(bodies))
	for i, body := range bodies {
		result, err := q.ExecContext(ctx, insertSQL, body)
		if err != nil {
			return nil, sqlite.ExecutionError(fmt.Errorf("failed to insert document %d: %w", i, err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, sqlite.ExecutionError(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Get returns the document stored under id.
func (c *Collection) Get(ctx context.Context, id int64) (doc Document, err error) {
	defer c.track("get", time.Now(), &err)

	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		var (
			rowID int64
			body  string
		)
		if err := q.QueryRowContext(ctx, getSQL, id).Scan(&rowID, &body); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: id %d", ErrNotFound, id)
			}
			return sqlite.ExecutionError(err)
		}
		doc, err = c.decode(rowID, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update merges changes into every document matching filter and returns
// the number of documents modified. Top-level keys of changes replace the
// stored values; other keys are kept. The read-modify-write runs in one
// transaction.
func (c *Collection) Update(ctx context.Context, filter Equality, changes Document) (n int64, err error) {
	defer c.track("update", time.Now(), &err)

	if len(filter) == 0 {
		return 0, fmt.Errorf("%w: update requires a non-empty filter", ErrInvalidFilter)
	}
	if len(changes) == 0 {
		return 0, fmt.Errorf("%w: update requires at least one change", ErrInvalidArgument)
	}
	if err := encoding.Validate(changes); err != nil {
		return 0, err
	}
	clause, err := query.Translate(filter)
	if err != nil {
		return 0, err
	}

	err = c.handle.Tx(ctx, func(q sqlite.Querier) error {
		records, err := c.selectRecords(ctx, q, clause, query.Page{})
		if err != nil {
			return err
		}
		for _, rec := range records {
			merged := maps.Clone(rec.doc)
			maps.Copy(merged, changes)
			body, err := c.codec.Encode(merged)
			if err != nil {
				return fmt.Errorf("document %d: %w", rec.id, err)
			}
			if _, err := q.ExecContext(ctx, updateSQL, string(body), rec.id); err != nil {
				return sqlite.ExecutionError(fmt.Errorf("failed to update document %d: %w", rec.id, err))
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Remove deletes every document matching filter and returns how many were
// deleted. An empty filter is rejected; use Purge to delete everything.
func (c *Collection) Remove(ctx context.Context, filter Equality) (n int64, err error) {
	defer c.track("remove", time.Now(), &err)

	if len(filter) == 0 {
		return 0, fmt.Errorf("%w: remove requires a non-empty filter, use Purge", ErrInvalidFilter)
	}
	clause, err := query.Translate(filter)
	if err != nil {
		return 0, err
	}
	stmt, args := query.Delete(clause)
	result, err := c.handle.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	n, err = result.RowsAffected()
	return n, sqlite.ExecutionError(err)
}

// Purge deletes every document and returns how many were deleted. Ids are
// not reused afterwards.
func (c *Collection) Purge(ctx context.Context) (n int64, err error) {
	defer c.track("purge", time.Now(), &err)

	result, err := c.handle.Exec(ctx, purgeSQL)
	if err != nil {
		return 0, err
	}
	n, err = result.RowsAffected()
	if err != nil {
		return 0, sqlite.ExecutionError(err)
	}
	c.logger.Info("collection purged", "removed", n)
	return n, nil
}
