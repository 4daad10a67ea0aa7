// Package promcollector exports gosmo training metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := promcollector.New("gosmo")
//	reg.MustRegister(mc)
//	res, err := gosmo.Train(ctx, tbl, k, cfg, gosmo.WithMetricsCollector(mc))
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/gosmo"
)

var _ gosmo.MetricsCollector = (*Collector)(nil)

// Collector implements gosmo.MetricsCollector and prometheus.Collector.
type Collector struct {
	trainings      *prometheus.CounterVec
	duration       prometheus.Histogram
	iterations     prometheus.Histogram
	unconverged    prometheus.Counter
	cacheRequests  *prometheus.CounterVec
	supportVectors prometheus.Gauge
}

// New creates a collector whose metric names start with namespace.
func New(namespace string) *Collector {
	return &Collector{
		trainings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trainings_total",
			Help:      "Training runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of training runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_iterations",
			Help:      "Coordinate steps per successful training run.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}),
		unconverged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trainings_unconverged_total",
			Help:      "Training runs that stopped at the iteration limit.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kernel_cache_requests_total",
			Help:      "Kernel row cache lookups by result.",
		}, []string{"result"}),
		supportVectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "support_vectors",
			Help:      "Support vectors of the most recently trained model.",
		}),
	}
}

// RecordTraining implements gosmo.MetricsCollector.
func (c *Collector) RecordTraining(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.trainings.WithLabelValues(status).Inc()
	c.duration.Observe(d.Seconds())
}

// RecordIterations implements gosmo.MetricsCollector.
func (c *Collector) RecordIterations(iterations int, converged bool) {
	c.iterations.Observe(float64(iterations))
	if !converged {
		c.unconverged.Inc()
	}
}

// RecordCache implements gosmo.MetricsCollector.
func (c *Collector) RecordCache(hits, misses int64) {
	c.cacheRequests.WithLabelValues("hit").Add(float64(hits))
	c.cacheRequests.WithLabelValues("miss").Add(float64(misses))
}

// RecordSupportVectors implements gosmo.MetricsCollector.
func (c *Collector) RecordSupportVectors(count int) {
	c.supportVectors.Set(float64(count))
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.trainings.Describe(ch)
	c.duration.Describe(ch)
	c.iterations.Describe(ch)
	c.unconverged.Describe(ch)
	c.cacheRequests.Describe(ch)
	c.supportVectors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.trainings.Collect(ch)
	c.duration.Collect(ch)
	c.iterations.Collect(ch)
	c.unconverged.Collect(ch)
	c.cacheRequests.Collect(ch)
	c.supportVectors.Collect(ch)
}
