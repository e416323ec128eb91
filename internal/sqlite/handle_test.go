package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openMemory(t *testing.T) *Handle {
	t.Helper()
	h, err := Open(context.Background(), Options{Path: Memory, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	if _, err := h.Exec(context.Background(), "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return h
}

func countRows(t *testing.T, h *Handle) int {
	t.Helper()
	var n int
	err := h.Do(context.Background(), func(q Querier) error {
		return q.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM t").Scan(&n)
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestMemoryDatabaseSurvivesAcrossCalls(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.Exec(ctx, "INSERT INTO t (v) VALUES (?)", "x"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if got := countRows(t, h); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
	if !h.InMemory() {
		t.Error("InMemory() = false")
	}
}

func TestTxCommitAndRollback(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	err := h.Tx(ctx, func(q Querier) error {
		_, err := q.ExecContext(ctx, "INSERT INTO t (v) VALUES ('a')")
		return err
	})
	if err != nil {
		t.Fatalf("Tx() error = %v", err)
	}

	boom := errors.New("boom")
	err = h.Tx(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, "INSERT INTO t (v) VALUES ('b')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx() error = %v, want boom", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = h.Tx(ctx, func(q Querier) error {
			_, _ = q.ExecContext(ctx, "INSERT INTO t (v) VALUES ('c')")
			panic("inside tx")
		})
	}()

	if got := countRows(t, h); got != 1 {
		t.Errorf("rows = %d, want 1 (only the committed insert)", got)
	}
}

func TestExecutionErrorWrapping(t *testing.T) {
	h := openMemory(t)
	_, err := h.Exec(context.Background(), "INSERT INTO missing_table VALUES (1)")
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("error = %v, want ErrExecution", err)
	}
	if ExecutionError(nil) != nil {
		t.Error("ExecutionError(nil) should be nil")
	}
	if wrapped := ExecutionError(err); wrapped != err {
		t.Error("ExecutionError should not double wrap")
	}
}

func TestClose(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !h.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := h.Exec(ctx, "SELECT 1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Exec after close error = %v, want ErrClosed", err)
	}
	if err := h.Tx(ctx, func(Querier) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Tx after close error = %v, want ErrClosed", err)
	}
}

func TestFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.db")
	opts := Options{Path: path, BusyTimeout: time.Second, JournalMode: "wal"}

	h, err := Open(ctx, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := h.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Exec(ctx, "INSERT INTO t (v) VALUES ('kept')"); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	h, err = Open(ctx, opts)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer h.Close()
	if h.Path() != path {
		t.Errorf("Path() = %q, want %q", h.Path(), path)
	}
	if got := countRows(t, h); got != 1 {
		t.Errorf("rows after reopen = %d, want 1", got)
	}
}

func TestRegexpFunction(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	tests := []struct {
		value   any
		pattern string
		want    bool
	}{
		{"Alice", "^A", true},
		{"Bob", "^A", false},
		{int64(30), "^3", true},
		{2.5, `^2\.5$`, true},
		{nil, ".*", false},
		{"héllo", "é", true},
	}
	for _, tt := range tests {
		var got bool
		err := h.Do(ctx, func(q Querier) error {
			return q.QueryRowContext(ctx, "SELECT ? REGEXP ?", tt.value, tt.pattern).Scan(&got)
		})
		if err != nil {
			t.Fatalf("REGEXP(%v, %q) error = %v", tt.value, tt.pattern, err)
		}
		if got != tt.want {
			t.Errorf("%v REGEXP %q = %v, want %v", tt.value, tt.pattern, got, tt.want)
		}
	}
}

func TestMatchRegexp(t *testing.T) {
	if _, err := matchRegexp("(", "x"); err == nil {
		t.Error("expected error for invalid pattern")
	}
	if _, err := matchRegexp(42, "x"); err == nil {
		t.Error("expected error for non-text pattern")
	}
	ok, err := matchRegexp([]byte("^ab"), []byte("abc"))
	if err != nil || !ok {
		t.Errorf("matchRegexp on bytes = %v, %v", ok, err)
	}
}

func TestConcurrentAccessIsSerialized(t *testing.T) {
	h := openMemory(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Tx(ctx, func(q Querier) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				_, err := q.ExecContext(ctx, "INSERT INTO t (v) VALUES ('x')")

				mu.Lock()
				active--
				mu.Unlock()
				return err
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent bodies = %d, want 1", maxSeen)
	}
	if got := countRows(t, h); got != 16 {
		t.Errorf("rows = %d, want 16", got)
	}
}
