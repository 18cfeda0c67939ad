// Package metrics provides performance tracking for evcollapse using
// Prometheus metrics. The registry is process-local: no exposition endpoint
// is started, the collectors exist so stages can record progress cheaply and
// the final run summary can be derived from them.
//
// # Basic Usage
//
//	// Record read groups flowing out of the reader
//	metrics.ReadGroups.Inc()
//
//	// Track queue depth of a bounded channel
//	metrics.QueueDepth.WithLabelValues("work").Set(float64(len(workCh)))
//
//	// Track overall throughput
//	tracker := metrics.NewThroughputTracker()
//	tracker.Increment(1)
//	readsPerSec := tracker.GetAndReset()
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadGroups tracks the number of read groups emitted by the reader.
	ReadGroups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evcollapse_read_groups_total",
			Help: "Total number of read groups emitted by the reader",
		},
	)

	// ReadsWritten tracks the number of collapsed reads written to the
	// output files.
	ReadsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evcollapse_reads_written_total",
			Help: "Total number of collapsed reads written",
		},
	)

	// KmersCollapsed tracks the number of kmer aggregates produced by the
	// worker pool.
	KmersCollapsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evcollapse_kmers_collapsed_total",
			Help: "Total number of kmer aggregates produced",
		},
	)

	// BytesWritten tracks bytes appended to the data file.
	BytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evcollapse_bytes_written_total",
			Help: "Total bytes written to the data file",
		},
	)

	// QueueDepth tracks the depth of the bounded pipeline channels.
	// Labels: queue_name (work/results)
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evcollapse_queue_depth",
			Help: "Current depth of a bounded pipeline channel",
		},
		[]string{"queue_name"},
	)

	// Throughput tracks collapsed reads per second.
	Throughput = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evcollapse_throughput_reads_per_second",
			Help: "Current throughput in collapsed reads per second",
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. The timer can be stopped
// multiple times, each returning the total elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks reads per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
}

// NewThroughputTracker creates a new throughput tracker.
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
	}
}

// Increment adds n to the read count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (reads/second), updates the
// Prometheus gauge, resets the counter, and returns the calculated value.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.Set(throughput)

	return throughput
}
