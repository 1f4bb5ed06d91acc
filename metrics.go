package sketchtree

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// metrics/prometheus provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordLoad is called after a leaf reads its sketch from storage.
	// size is the number of bytes read.
	RecordLoad(size int, duration time.Duration, err error)

	// RecordSave is called after a leaf writes its sketch to storage.
	// size is the number of encoded bytes.
	RecordSave(size int, duration time.Duration, err error)

	// RecordSearch is called once a search iteration ends, either exhausted,
	// stopped by the caller, or aborted by an error.
	RecordSearch(results int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordSave(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadBytes        atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	SaveBytes        atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchResults    atomic.Int64
	SearchTotalNanos atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(size int, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(int64(size))
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(size int, _ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(int64(size))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchResults.Add(int64(results))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadBytes:      b.LoadBytes.Load(),
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
		SaveBytes:      b.SaveBytes.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchResults:  b.SearchResults.Load(),
		SearchAvgNanos: b.getAvgSearchNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount      int64
	LoadErrors     int64
	LoadBytes      int64
	SaveCount      int64
	SaveErrors     int64
	SaveBytes      int64
	SearchCount    int64
	SearchErrors   int64
	SearchResults  int64
	SearchAvgNanos int64
}
