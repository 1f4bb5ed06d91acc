package prometheus

import (
	"time"

	"github.com/hupe1980/sketchtree"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Collector implements sketchtree.MetricsCollector with Prometheus metrics.
type Collector struct {
	ops           *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	opLatency     *prometheus.HistogramVec
	searchResults prometheus.Histogram
}

var _ sketchtree.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics under namespace and registers them with reg.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Leaf loads, leaf saves and searches by outcome.",
		}, []string{"op", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_bytes_total",
			Help:      "Bytes of sketch payload read from or written to storage.",
		}, []string{"op"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of leaf loads, leaf saves and searches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of matches returned per search.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	for _, m := range []prometheus.Collector{c.ops, c.bytes, c.opLatency, c.searchResults} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordLoad implements sketchtree.MetricsCollector.
func (c *Collector) RecordLoad(size int, duration time.Duration, err error) {
	c.record("load", duration, err)
	if err == nil {
		c.bytes.WithLabelValues("load").Add(float64(size))
	}
}

// RecordSave implements sketchtree.MetricsCollector.
func (c *Collector) RecordSave(size int, duration time.Duration, err error) {
	c.record("save", duration, err)
	if err == nil {
		c.bytes.WithLabelValues("save").Add(float64(size))
	}
}

// RecordSearch implements sketchtree.MetricsCollector.
func (c *Collector) RecordSearch(results int, duration time.Duration, err error) {
	c.record("search", duration, err)
	c.searchResults.Observe(float64(results))
}

func (c *Collector) record(op string, duration time.Duration, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	c.ops.WithLabelValues(op, result).Inc()
	c.opLatency.WithLabelValues(op).Observe(duration.Seconds())
}
