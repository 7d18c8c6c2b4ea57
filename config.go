package funcpool

import (
	"log/slog"
	"strconv"

	"github.com/ygrebnov/errorc"
	"golang.org/x/time/rate"

	"github.com/ygrebnov/funcpool/metrics"
)

// config holds Pool configuration.
type config struct {
	// WorkBufferSize is the capacity of the shared work channel.
	// Zero means it is derived from WorkBufferFactor.
	// Default: 0
	WorkBufferSize int

	// WorkBufferFactor sizes the work channel relative to the number of workers
	// when WorkBufferSize is zero: capacity = int(workers * factor).
	// Default: 1.0
	WorkBufferFactor float64

	// ResultsBufferSize is the capacity of the shared results channel.
	// Zero means it is derived from ResultsBufferFactor.
	// Default: 0
	ResultsBufferSize int

	// ResultsBufferFactor sizes the results channel relative to the number of workers
	// when ResultsBufferSize is zero.
	// Default: 1.0
	ResultsBufferFactor float64

	// DispatchLimit throttles how many chunks per second are dispatched.
	// Zero disables throttling.
	// Default: 0
	DispatchLimit rate.Limit

	// DispatchBurst is the limiter bucket size used with DispatchLimit.
	// Default: 1
	DispatchBurst int

	// Logger receives lifecycle and failure records.
	// Default: a logger discarding everything.
	Logger *slog.Logger

	// Metrics provides the instruments the pool records into.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		WorkBufferSize:      0,
		WorkBufferFactor:    1.0,
		ResultsBufferSize:   0,
		ResultsBufferFactor: 1.0,
		DispatchLimit:       0,
		DispatchBurst:       1,
		Logger:              slog.New(slog.DiscardHandler),
		Metrics:             metrics.NewNoopProvider(),
	}
}

// validateConfig checks that both channel capacities resolve to a positive bound
// for the given number of workers.
func validateConfig(cfg *config, workers int) error {
	if c := cfg.workCapacity(workers); c <= 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("work_buffer", strconv.Itoa(c)))
	}
	if c := cfg.resultsCapacity(workers); c <= 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("results_buffer", strconv.Itoa(c)))
	}
	return nil
}

func (cfg *config) workCapacity(workers int) int {
	if cfg.WorkBufferSize > 0 {
		return cfg.WorkBufferSize
	}
	return int(float64(workers) * cfg.WorkBufferFactor)
}

func (cfg *config) resultsCapacity(workers int) int {
	if cfg.ResultsBufferSize > 0 {
		return cfg.ResultsBufferSize
	}
	return int(float64(workers) * cfg.ResultsBufferFactor)
}

// limiter returns the dispatch limiter, or nil when throttling is disabled.
func (cfg *config) limiter() *rate.Limiter {
	if cfg.DispatchLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(cfg.DispatchLimit, cfg.DispatchBurst)
}

// Option configures a Pool. Options return an error on invalid input.
type Option func(*config) error

// WithWorkBuffer sets the capacity of the work channel (must be > 0).
// A full work channel blocks the dispatcher, which bounds memory use.
func WithWorkBuffer(size int) Option {
	return func(cfg *config) error {
		if size <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("work_buffer", strconv.Itoa(size)))
		}
		cfg.WorkBufferSize = size
		return nil
	}
}

// WithWorkBufferFactor sizes the work channel as a multiple of the worker count (default 1.0).
func WithWorkBufferFactor(f float64) Option {
	return func(cfg *config) error {
		if f <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("work_buffer_factor", strconv.FormatFloat(f, 'g', -1, 64)))
		}
		cfg.WorkBufferSize = 0
		cfg.WorkBufferFactor = f
		return nil
	}
}

// WithResultsBuffer sets the capacity of the results channel (must be > 0).
func WithResultsBuffer(size int) Option {
	return func(cfg *config) error {
		if size <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("results_buffer", strconv.Itoa(size)))
		}
		cfg.ResultsBufferSize = size
		return nil
	}
}

// WithResultsBufferFactor sizes the results channel as a multiple of the worker count (default 1.0).
func WithResultsBufferFactor(f float64) Option {
	return func(cfg *config) error {
		if f <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("results_buffer_factor", strconv.FormatFloat(f, 'g', -1, 64)))
		}
		cfg.ResultsBufferSize = 0
		cfg.ResultsBufferFactor = f
		return nil
	}
}

// WithDispatchLimit throttles chunk dispatch to r chunks per second with the given burst.
func WithDispatchLimit(r rate.Limit, burst int) Option {
	return func(cfg *config) error {
		if r <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("dispatch_limit", strconv.FormatFloat(float64(r), 'g', -1, 64)))
		}
		if burst <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("dispatch_burst", strconv.Itoa(burst)))
		}
		cfg.DispatchLimit = r
		cfg.DispatchBurst = burst
		return nil
	}
}

// WithLogger sets the structured logger used by the pool and its workers.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("logger", "nil"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider used to create pool instruments.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("metrics", "nil"))
		}
		cfg.Metrics = p
		return nil
	}
}
