// Package sqlite owns the single SQLite connection behind a collection.
//
// Every exported method on Handle takes the handle's mutex for its whole
// duration, so exactly one logical operation touches the database at a
// time. The *sql.DB pool is pinned to one connection: SQLite serialises
// writers anyway, and an in-memory database only lives as long as the
// connection that created it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Memory is the location of a transient, connection-scoped database.
const Memory = ":memory:"

var (
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("store is closed")

	// ErrExecution marks failures reported by the SQLite engine.
	ErrExecution = errors.New("execution failed")
)

// ExecutionError marks err as a backend failure. It returns nil for nil.
func ExecutionError(err error) error {
	if err == nil || errors.Is(err, ErrExecution) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrExecution, err)
}

// Options configures Open.
type Options struct {
	Path        string        // file path or Memory
	BusyTimeout time.Duration // how long SQLite waits on a locked file
	JournalMode string        // e.g. "WAL", "DELETE"; ignored for Memory
}

// Querier is the statement surface handed to Do and Tx bodies. It is only
// valid for the duration of the body.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Handle is the exclusive owner of the database connection.
type Handle struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open connects to opts.Path, creating the file and its parent directory
// if needed.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	if opts.Path == "" {
		return nil, errors.New("database path cannot be empty")
	}

	path := opts.Path
	if path != Memory {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		path = abs
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, ExecutionError(fmt.Errorf("failed to open database: %w", err))
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()),
	}
	if path != Memory && opts.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+strings.ToUpper(opts.JournalMode))
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, ExecutionError(fmt.Errorf("failed to apply %q: %w", pragma, err))
		}
	}

	return &Handle{db: db, path: path}, nil
}

// Path returns the resolved database location.
func (h *Handle) Path() string {
	return h.path
}

// InMemory reports whether the database is transient.
func (h *Handle) InMemory() bool {
	return h.path == Memory
}

// Do runs body under the lock without a transaction.
func (h *Handle) Do(ctx context.Context, body func(q Querier) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	return body(h.db)
}

// Tx runs body under the lock inside a transaction. The transaction is
// committed when body returns nil and rolled back otherwise, including
// when body panics.
func (h *Handle) Tx(ctx context.Context, body func(q Querier) error) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return ExecutionError(fmt.Errorf("failed to begin transaction: %w", err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
	}()

	if err := body(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return ExecutionError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	committed = true
	return nil
}

// Exec runs a single statement under the lock.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := h.Do(ctx, func(q Querier) error {
		var err error
		result, err = q.ExecContext(ctx, query, args...)
		return ExecutionError(err)
	})
	return result, err
}

// Close releases the connection. Calling it again is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return ExecutionError(h.db.Close())
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
