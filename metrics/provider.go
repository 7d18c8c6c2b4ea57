// Package metrics defines the minimal instrument surface the pool records into.
//
// A Provider hands out named instruments. The pool asks for its instruments once,
// at construction, and records from many goroutines afterwards, so every
// implementation must be safe for concurrent use.
package metrics

// Provider constructs instruments used to record metrics.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that move both ways (e.g. live workers).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements (e.g. seconds per chunk).
type Histogram interface {
	Record(v float64)
}

// Instrument names recorded by the pool.
const (
	ChunksDispatched = "chunks_dispatched"
	ChunksProcessed  = "chunks_processed"
	ItemsProcessed   = "items_processed"
	WorkersActive    = "workers_active"
	WorkersReplaced  = "workers_replaced"
	WorkerFailures   = "worker_failures"
	ReorderPending   = "reorder_pending"
	StaleResults     = "stale_results"
	ChunkSeconds     = "chunk_seconds"
)

// InstrumentConfig carries advisory instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g. "1", "s").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
