package core

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// collectionMetrics holds the per-collection operation counters. Each
// collection owns its own set so that several collections in one process
// never share series.
type collectionMetrics struct {
	set    *metrics.Set
	prefix string
}

func newCollectionMetrics(prefix string) *collectionMetrics {
	return &collectionMetrics{set: metrics.NewSet(), prefix: prefix}
}

// observe records one completed operation.
func (m *collectionMetrics) observe(op string, start time.Time, err error) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`%s_operations_total{op=%q}`, m.prefix, op)).Inc()
	if err != nil {
		m.set.GetOrCreateCounter(fmt.Sprintf(`%s_operation_errors_total{op=%q}`, m.prefix, op)).Inc()
	}
	m.set.GetOrCreateHistogram(fmt.Sprintf(`%s_operation_duration_seconds{op=%q}`, m.prefix, op)).UpdateDuration(start)
}

// operations returns how many times op ran, and how many of those failed.
func (m *collectionMetrics) operations(op string) (total, failed uint64) {
	total = m.set.GetOrCreateCounter(fmt.Sprintf(`%s_operations_total{op=%q}`, m.prefix, op)).Get()
	failed = m.set.GetOrCreateCounter(fmt.Sprintf(`%s_operation_errors_total{op=%q}`, m.prefix, op)).Get()
	return total, failed
}

// WritePrometheus writes the collection's operation metrics in Prometheus
// text exposition format.
func (c *Collection) WritePrometheus(w io.Writer) {
	c.metrics.set.WritePrometheus(w)
}

// track is deferred by every public operation. It records metrics and
// attaches the operation name to a returned error.
func (c *Collection) track(op string, start time.Time, errp *error) {
	err := *errp
	c.metrics.observe(op, start, err)
	if err != nil {
		c.logger.Debug("operation failed", "op", op, "error", err)
		*errp = wrapError(op, err)
		return
	}
	c.logger.Debug("operation completed", "op", op, "duration", time.Since(start))
}
