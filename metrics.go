package gosmo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting training metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; see the promcollector package.
type MetricsCollector interface {
	// RecordTraining is called after each training run.
	// duration is the total time taken, err is nil if successful.
	RecordTraining(duration time.Duration, err error)

	// RecordIterations is called after each successful run with the number of
	// coordinate steps and whether the KKT tolerance was reached.
	RecordIterations(iterations int, converged bool)

	// RecordCache is called after each run with kernel row cache statistics.
	RecordCache(hits, misses int64)

	// RecordSupportVectors is called after each successful run.
	RecordSupportVectors(count int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTraining(time.Duration, error) {}
func (NoopMetricsCollector) RecordIterations(int, bool)          {}
func (NoopMetricsCollector) RecordCache(int64, int64)            {}
func (NoopMetricsCollector) RecordSupportVectors(int)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrainingCount      atomic.Int64
	TrainingErrors     atomic.Int64
	TrainingTotalNanos atomic.Int64
	Iterations         atomic.Int64
	Unconverged        atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
	SupportVectors     atomic.Int64
}

// RecordTraining implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTraining(duration time.Duration, err error) {
	b.TrainingCount.Add(1)
	b.TrainingTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TrainingErrors.Add(1)
	}
}

// RecordIterations implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIterations(iterations int, converged bool) {
	b.Iterations.Add(int64(iterations))
	if !converged {
		b.Unconverged.Add(1)
	}
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(hits, misses int64) {
	b.CacheHits.Add(hits)
	b.CacheMisses.Add(misses)
}

// RecordSupportVectors implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSupportVectors(count int) {
	b.SupportVectors.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TrainingCount:    b.TrainingCount.Load(),
		TrainingErrors:   b.TrainingErrors.Load(),
		TrainingAvgNanos: b.getAvgTrainingNanos(),
		Iterations:       b.Iterations.Load(),
		Unconverged:      b.Unconverged.Load(),
		CacheHits:        b.CacheHits.Load(),
		CacheMisses:      b.CacheMisses.Load(),
		SupportVectors:   b.SupportVectors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgTrainingNanos() int64 {
	count := b.TrainingCount.Load()
	if count == 0 {
		return 0
	}
	return b.TrainingTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TrainingCount    int64
	TrainingErrors   int64
	TrainingAvgNanos int64
	Iterations       int64
	Unconverged      int64
	CacheHits        int64
	CacheMisses      int64
	SupportVectors   int64
}
