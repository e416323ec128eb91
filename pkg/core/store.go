package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/sagittadb/internal/query"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// Collection is a set of documents stored in one SQLite database. It is safe
// for concurrent use; operations are serialized on the underlying handle.
type Collection struct {
	id      uuid.UUID
	handle  *sqlite.Handle
	codec   Codec
	logger  Logger
	metrics *collectionMetrics
}

// Open connects to config.Path, creating the database and the documents
// table if they do not exist.
func Open(ctx context.Context, config Config) (*Collection, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, wrapError("open", err)
	}

	handle, err := sqlite.Open(ctx, sqlite.Options{
		Path:        config.Path,
		BusyTimeout: config.BusyTimeout,
		JournalMode: config.JournalMode,
	})
	if err != nil {
		return nil, wrapError("open", err)
	}

	if _, err := handle.Exec(ctx, query.Schema); err != nil {
		_ = handle.Close()
		return nil, wrapError("open", fmt.Errorf("failed to create schema: %w", err))
	}

	id := uuid.New()
	c := &Collection{
		id:      id,
		handle:  handle,
		codec:   config.Codec,
		logger:  config.Logger.With("collection", id.String()),
		metrics: newCollectionMetrics(config.MetricsPrefix),
	}
	c.logger.Info("collection opened", "path", handle.Path(), "codec", c.codec.Name())
	return c, nil
}

// ID identifies this open collection instance in logs and dumps. It is not
// persisted.
func (c *Collection) ID() string {
	return c.id.String()
}

// Path returns the resolved database location, or MemoryPath.
func (c *Collection) Path() string {
	return c.handle.Path()
}

// Codec returns the codec used for document bodies.
func (c *Collection) Codec() Codec {
	return c.codec
}

// Close releases the database connection. Calling Close again is a no-op;
// every other operation on a closed collection fails with ErrClosed.
func (c *Collection) Close() error {
	if c.handle.Closed() {
		return nil
	}
	if err := c.handle.Close(); err != nil {
		return wrapError("close", err)
	}
	c.logger.Info("collection closed")
	return nil
}

// Stats reports the document count, indexes and storage size.
func (c *Collection) Stats(ctx context.Context) (stats Stats, err error) {
	defer c.track("stats", time.Now(), &err)

	stats = Stats{
		ID:       c.ID(),
		Path:     c.handle.Path(),
		InMemory: c.handle.InMemory(),
		Codec:    c.codec.Name(),
	}
	err = c.handle.Do(ctx, func(q sqlite.Querier) error {
		countSQL, countArgs := query.Count(query.Clause{Where: "1=1"})
		if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&stats.Documents); err != nil {
			return sqlite.ExecutionError(err)
		}
		if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM "+query.Table).Scan(&stats.LastID); err != nil {
			return sqlite.ExecutionError(err)
		}
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&stats.PageSize); err != nil {
			return sqlite.ExecutionError(err)
		}
		if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&stats.PageCount); err != nil {
			return sqlite.ExecutionError(err)
		}
		stats.Indexes, err = listIndexes(ctx, q)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	stats.SizeBytes = stats.PageSize * stats.PageCount
	return stats, nil
}

// Backup writes a consistent copy of the database to dest using
// VACUUM INTO. dest must not exist yet. It works for in-memory
// collections too.
func (c *Collection) Backup(ctx context.Context, dest string) (err error) {
	defer c.track("backup", time.Now(), &err)

	dest = strings.TrimSpace(dest)
	if dest == "" || dest == MemoryPath {
		return fmt.Errorf("%w: backup destination must be a file path", ErrInvalidArgument)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve backup path: %w", err)
	}
	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("%w: backup destination %s already exists", ErrInvalidArgument, abs)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := c.handle.Exec(ctx, "VACUUM INTO ?", abs); err != nil {
		return err
	}
	c.logger.Info("backup written", "dest", abs)
	return nil
}
