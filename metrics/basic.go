package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider for tests, examples and small programs.
// Instruments are created on first use and shared by name.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasicProvider constructs an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// Counter returns the counter registered under name, creating it once.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return p.counter(name, opts)
}

// UpDownCounter shares storage with Counter: both are a single int64 per name.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return p.counter(name, opts)
}

func (p *BasicProvider) counter(name string, opts []InstrumentOption) *BasicCounter {
	p.mu.RLock()
	c, ok := p.counters[name]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check after acquiring write lock
	if c, ok = p.counters[name]; ok {
		return c
	}
	p.meta[name] = applyOptions(opts)
	c = &BasicCounter{}
	p.counters[name] = c
	return c
}

// Histogram returns the histogram registered under name, creating it once.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.RLock()
	h, ok := p.histograms[name]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.histograms[name]; ok {
		return h
	}
	p.meta[name] = applyOptions(opts)
	h = &BasicHistogram{min: math.Inf(1), max: math.Inf(-1)}
	p.histograms[name] = h
	return h
}

// Value returns the current value of the counter or up/down counter named name.
// Unknown names read as zero.
func (p *BasicProvider) Value(name string) int64 {
	p.mu.RLock()
	c, ok := p.counters[name]
	p.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.Snapshot()
}

// HistogramSnapshot returns the state of the histogram named name.
func (p *BasicProvider) HistogramSnapshot(name string) (HistSnapshot, bool) {
	p.mu.RLock()
	h, ok := p.histograms[name]
	p.mu.RUnlock()
	if !ok {
		return HistSnapshot{}, false
	}
	return h.Snapshot(), true
}

// Config returns the metadata an instrument was registered with.
func (p *BasicProvider) Config(name string) (InstrumentConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.meta[name]
	return c, ok
}

// BasicCounter is a thread-safe int64 counter.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicHistogram tracks count, sum, min and max. It keeps no buckets.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	h.count++
	h.sum += v
	h.min = math.Min(h.min, v)
	h.max = math.Max(h.max, v)
	h.mu.Unlock()
}

// HistSnapshot is an immutable copy of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
