package relational

import (
	"github.com/ojpb/relational/codec"
	"github.com/ojpb/relational/dataset"
	"github.com/ojpb/relational/oracle"
)

type options struct {
	logger      *Logger
	metrics     MetricsCollector
	codec       codec.Codec
	compression Compression
}

// Option configures Strategy constructor behavior.
type Option func(*options)

// WithLogger configures structured logging for the engine.
// Pass nil to keep the default (no output).
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// engine operations. Pass nil to disable metrics collection.
func WithMetricsCollector(c MetricsCollector) Option {
	return func(o *options) {
		if c == nil {
			c = NoopMetricsCollector{}
		}
		o.metrics = c
	}
}

// WithCodec configures the codec used for checkpoint payloads.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the checkpoint compression scheme.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	opts := options{
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		codec:       codec.Default,
		compression: CompressionZstd,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// EvalOptions configures a single performance measurement.
type EvalOptions struct {
	// TestLoader overrides the data manager's test loader.
	TestLoader *dataset.Loader

	// Query is the selected-index list of the pending annotation step,
	// used for hit-ratio computation. Nil means no query (hit ratio NaN).
	Query []int
}

// UpdateOptions configures an annotation update.
type UpdateOptions struct {
	// Oracle, if set, is handed the data manager and indices before the
	// engine applies its own bookkeeping.
	Oracle oracle.Oracle

	// Tag records what caused the indices to become labelled.
	// The main loop passes the current iteration number as a string.
	Tag string
}

// RunOptions configures a full active-learning run.
type RunOptions struct {
	// NumIterations caps the number of loop iterations. Zero means run
	// until the unlabelled pool is exhausted.
	NumIterations int

	// Oracle is forwarded to every annotation update.
	Oracle oracle.Oracle

	// TestLoader overrides the data manager's test loader for every
	// performance measurement in the run.
	TestLoader *dataset.Loader

	// ReturnQueryHistory records the selected indices of every loop
	// iteration, keyed by the 1-based loop counter.
	ReturnQueryHistory bool
}
