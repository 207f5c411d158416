package psmatrix

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/psmatrix/partition"
	"github.com/hupe1980/psmatrix/protocol"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    getCounter    prometheus.Counter
//	    callHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordGet(n int, duration time.Duration, err error) {
//	    p.getCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordGet is called after each get operation (IndexedGet, GetRows, PullPathTail).
	// n is the number of requested entries.
	RecordGet(n int, duration time.Duration, err error)

	// RecordUpdate is called after each indexed update.
	RecordUpdate(n int, duration time.Duration, err error)

	// RecordPartitionCall is called for every partition round trip, including
	// calls that complete after their fan-out gave up.
	RecordPartitionCall(addr string, sent, recv int, duration time.Duration, err error)

	// RecordPartialFailure is called when failed of total partitions did not succeed.
	RecordPartialFailure(failed, total int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGet(int, time.Duration, error)                        {}
func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error)                     {}
func (NoopMetricsCollector) RecordPartitionCall(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPartialFailure(int, int)                              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GetCount         atomic.Int64
	GetErrors        atomic.Int64
	GetEntries       atomic.Int64
	GetTotalNanos    atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	UpdateEntries    atomic.Int64
	CallCount        atomic.Int64
	CallErrors       atomic.Int64
	CallTotalNanos   atomic.Int64
	BytesSent        atomic.Int64
	BytesReceived    atomic.Int64
	PartialFailures  atomic.Int64
	FailedPartitions atomic.Int64
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(n int, duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetEntries.Add(int64(n))
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GetErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(n int, _ time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateEntries.Add(int64(n))
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordPartitionCall implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPartitionCall(_ string, sent, recv int, duration time.Duration, err error) {
	b.CallCount.Add(1)
	b.CallTotalNanos.Add(duration.Nanoseconds())
	b.BytesSent.Add(int64(sent))
	b.BytesReceived.Add(int64(recv))
	if err != nil {
		b.CallErrors.Add(1)
	}
}

// RecordPartialFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPartialFailure(failed, _ int) {
	b.PartialFailures.Add(1)
	b.FailedPartitions.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GetCount:         b.GetCount.Load(),
		GetErrors:        b.GetErrors.Load(),
		GetEntries:       b.GetEntries.Load(),
		GetAvgNanos:      avg(b.GetTotalNanos.Load(), b.GetCount.Load()),
		UpdateCount:      b.UpdateCount.Load(),
		UpdateErrors:     b.UpdateErrors.Load(),
		UpdateEntries:    b.UpdateEntries.Load(),
		CallCount:        b.CallCount.Load(),
		CallErrors:       b.CallErrors.Load(),
		CallAvgNanos:     avg(b.CallTotalNanos.Load(), b.CallCount.Load()),
		BytesSent:        b.BytesSent.Load(),
		BytesReceived:    b.BytesReceived.Load(),
		PartialFailures:  b.PartialFailures.Load(),
		FailedPartitions: b.FailedPartitions.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GetCount         int64
	GetErrors        int64
	GetEntries       int64
	GetAvgNanos      int64
	UpdateCount      int64
	UpdateErrors     int64
	UpdateEntries    int64
	CallCount        int64
	CallErrors       int64
	CallAvgNanos     int64
	BytesSent        int64
	BytesReceived    int64
	PartialFailures  int64
	FailedPartitions int64
}

// callObserver forwards coordinator callbacks to a MetricsCollector.
type callObserver struct {
	mc MetricsCollector
}

func (o callObserver) ObservePartitionCall(key partition.Key, _ protocol.Op, d time.Duration, sent, recv int, err error) {
	o.mc.RecordPartitionCall(key.Addr, sent, recv, d, err)
}
