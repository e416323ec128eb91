package sagittadb_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/liliang-cn/sagittadb"
	"github.com/liliang-cn/sagittadb/pkg/core"
)

func TestOpenWithOptions(t *testing.T) {
	var logs bytes.Buffer
	path := filepath.Join(t.TempDir(), "facade.db")

	db, err := sagittadb.Open(path,
		sagittadb.WithCodec(core.FastJSONCodec{}),
		sagittadb.WithSlog(slog.New(slog.NewTextHandler(&logs, nil))),
		sagittadb.WithBusyTimeout(2*time.Second),
		sagittadb.WithJournalMode("DELETE"),
		sagittadb.WithMetricsPrefix("facade"),
	)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.Insert(ctx, sagittadb.Document{"name": "Alice"}); err != nil {
		t.Fatal(err)
	}
	if db.Codec().Name() != "fast" || db.Path() != path {
		t.Errorf("codec %q path %q", db.Codec().Name(), db.Path())
	}
	if !strings.Contains(logs.String(), "collection opened") {
		t.Errorf("logs = %s", logs.String())
	}

	var metrics bytes.Buffer
	db.WritePrometheus(&metrics)
	if !strings.Contains(metrics.String(), `facade_operations_total{op="insert"} 1`) {
		t.Errorf("metrics = %s", metrics.String())
	}
}

func TestOpenMemoryPagination(t *testing.T) {
	db, err := sagittadb.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := db.Insert(ctx, sagittadb.Document{"n": i}); err != nil {
			t.Fatal(err)
		}
	}
	seq, err := db.All(ctx, sagittadb.WithLimit(2), sagittadb.WithOffset(3))
	if err != nil {
		t.Fatal(err)
	}
	if docs := slices.Collect(seq); len(docs) != 2 || docs[0]["n"] != int64(3) {
		t.Errorf("All() = %v", docs)
	}
}

func TestErrorsAreReexported(t *testing.T) {
	db, err := sagittadb.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err = db.CreateIndex(ctx, "bad field")
	if !errors.Is(err, sagittadb.ErrInvalidIdentifier) {
		t.Errorf("CreateIndex() error = %v", err)
	}
	var serr *sagittadb.StoreError
	if !errors.As(err, &serr) || serr.Op != "create_index" {
		t.Errorf("error = %#v, want StoreError for create_index", err)
	}

	_ = db.Close()
	if _, err := db.Count(ctx, nil); !errors.Is(err, sagittadb.ErrClosed) {
		t.Errorf("Count() after close error = %v", err)
	}
}

func Example() {
	db, err := sagittadb.OpenMemory()
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()
	_, _ = db.Insert(ctx, sagittadb.Document{"name": "Alice", "age": 30})
	_, _ = db.Insert(ctx, sagittadb.Document{"name": "Bob", "age": 25})

	docs, _ := db.Search(ctx, sagittadb.Equality{"age": 25})
	for doc := range docs {
		fmt.Println(doc["name"])
	}

	n, _ := db.Update(ctx, sagittadb.Equality{"name": "Alice"}, sagittadb.Document{"age": 31})
	fmt.Println("updated", n)

	total, _ := db.Count(ctx, nil)
	fmt.Println("total", total)
	// Output:
	// Bob
	// updated 1
	// total 2
}
