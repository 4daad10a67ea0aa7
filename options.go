package gosmo

import (
	"log/slog"

	"github.com/hupe1980/gosmo/resource"
)

type options struct {
	metricsCollector   MetricsCollector
	logger             *Logger
	resourceController *resource.Controller
}

// Option configures Train.
type Option func(*options)

// WithMetricsCollector configures metrics collection for training runs.
//
// Example:
//
//	metrics := &gosmo.BasicMetricsCollector{}
//	res, _ := gosmo.Train(ctx, tbl, kernel.RBF{Gamma: 0.5}, cfg, gosmo.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLogger configures structured logging for training runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := gosmo.NewJSONLogger(slog.LevelInfo)
//	res, _ := gosmo.Train(ctx, tbl, k, cfg, gosmo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares a memory budget and a limit on concurrent
// trainings between Train calls. Kernel cache rows are reserved against the
// controller's memory limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resourceController = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
