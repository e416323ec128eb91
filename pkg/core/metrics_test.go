package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestOperationMetrics(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig()
	config.MetricsPrefix = "people"
	c, err := Open(ctx, config)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, _ = c.Insert(ctx, Document{"a": 1})
	_, _ = c.Insert(ctx, Document{"a": 2})
	_, _ = c.Insert(ctx, nil)
	_, _ = c.Count(ctx, nil)

	if total, failed := c.metrics.operations("insert"); total != 3 || failed != 1 {
		t.Errorf("insert operations = %d total, %d failed; want 3, 1", total, failed)
	}

	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	out := buf.String()
	for _, want := range []string{
		`people_operations_total{op="insert"} 3`,
		`people_operation_errors_total{op="insert"} 1`,
		`people_operations_total{op="count"} 1`,
		`people_operation_duration_seconds_count{op="insert"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsAreScopedPerCollection(t *testing.T) {
	ctx := context.Background()
	a := newTestCollection(t)
	b := newTestCollection(t)

	_, _ = a.Insert(ctx, Document{"x": 1})
	if total, _ := b.metrics.operations("insert"); total != 0 {
		t.Errorf("second collection counted %d inserts", total)
	}
}
