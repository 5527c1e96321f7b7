package annforest

import (
	"log/slog"

	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/forest"
	"github.com/hupe1980/annforest/persistence"
	"github.com/hupe1980/annforest/resource"
)

type options struct {
	treeCount        int
	leafCapacity     int
	seed             uint64
	metric           distance.Metric
	maxWorkers       int
	multiplier       int
	compression      persistence.Compression
	controller       *resource.Controller
	logger           *Logger
	metricsCollector MetricsCollector
}

// Option configures index construction, loading, and query behavior.
type Option func(*options)

// WithTreeCount sets the number of trees to build. More trees raise
// recall at the cost of build time, memory, and query work.
func WithTreeCount(treeCount int) Option {
	return func(o *options) {
		o.treeCount = treeCount
	}
}

// WithLeafCapacity sets the maximum number of items per leaf.
func WithLeafCapacity(leafCapacity int) Option {
	return func(o *options) {
		o.leafCapacity = leafCapacity
	}
}

// WithSeed sets the build seed. Equal seeds over equal stores produce
// bit-identical forests.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMetric sets the distance metric used for splits and re-ranking.
func WithMetric(metric distance.Metric) Option {
	return func(o *options) {
		o.metric = metric
	}
}

// WithMaxWorkers caps the number of trees built in parallel. Zero means
// GOMAXPROCS.
func WithMaxWorkers(maxWorkers int) Option {
	return func(o *options) {
		o.maxWorkers = maxWorkers
	}
}

// WithSearchMultiplier sets the default leaf-visit budget per query as
// a multiple of the tree count. Higher values widen the candidate set.
func WithSearchMultiplier(multiplier int) Option {
	return func(o *options) {
		o.multiplier = multiplier
	}
}

// WithCompression sets the block codec used when saving the index.
func WithCompression(compression persistence.Compression) Option {
	return func(o *options) {
		o.compression = compression
	}
}

// WithResourceController attaches a controller that gates build workers
// and throttles save IO.
func WithResourceController(controller *resource.Controller) Option {
	return func(o *options) {
		o.controller = controller
	}
}

// WithLogger configures structured logging for index operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}

		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}

		o.metricsCollector = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		treeCount:        forest.DefaultOptions.TreeCount,
		leafCapacity:     forest.DefaultOptions.LeafCapacity,
		metric:           forest.DefaultOptions.Metric,
		multiplier:       forest.DefaultSearchOptions.Multiplier,
		compression:      persistence.CompressionNone,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
