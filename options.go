package psmatrix

import (
	"log/slog"
	"time"

	"github.com/hupe1980/psmatrix/codec"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	timeout          time.Duration
	maxInFlight      int64
	bandwidth        int64
	memoryLimit      int64
	compression      codec.Compression
	failFast         bool
}

// Option configures a Client.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &psmatrix.BasicMetricsCollector{}
//	c := psmatrix.New(loc, transport, psmatrix.WithMetricsCollector(metrics))
//	// ... use c ...
//	stats := metrics.GetStats()
//	fmt.Printf("Gets: %d, Avg latency: %dns\n", stats.GetCount, stats.GetAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := psmatrix.NewJSONLogger(slog.LevelInfo)
//	c := psmatrix.New(loc, transport, psmatrix.WithLogger(logger))
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

// WithTimeout sets the deadline applied to a fan-out when the caller's
// context has none. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxInFlight bounds the number of concurrent partition calls across
// all operations of the client.
func WithMaxInFlight(n int64) Option {
	return func(o *options) {
		o.maxInFlight = n
	}
}

// WithBandwidthLimit caps outbound request bytes per second. Zero is unlimited.
func WithBandwidthLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.bandwidth = bytesPerSec
	}
}

// WithMemoryLimit caps the bytes of result buffers held by in-flight
// operations. Operations wait for room; one that can never fit fails with
// ErrResourceExhausted. Zero is unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithCompression compresses request frames above the coordinator's threshold.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithFailFast abandons the remaining partitions of a fan-out after the
// first failure. Abandoned partitions are reported with ErrCanceled.
func WithFailFast(enabled bool) Option {
	return func(o *options) {
		o.failFast = enabled
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
