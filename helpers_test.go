package funcpool

import (
	"log/slog"
	"sync"

	"github.com/ygrebnov/funcpool/metrics"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func noopInstruments() *instruments { return newInstruments(metrics.NewNoopProvider()) }

// recorder is a Transformer that records its lifecycle calls in order.
type recorder struct {
	mu    sync.Mutex
	steps []string

	beginErr error
	endErr   error
	failOn   int // item value that makes Transform fail; -1 disables
	panicOn  int // item value that makes Transform panic; -1 disables
}

func newRecorder() *recorder { return &recorder{failOn: -1, panicOn: -1} }

func (r *recorder) record(s string) {
	r.mu.Lock()
	r.steps = append(r.steps, s)
	r.mu.Unlock()
}

func (r *recorder) Steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

func (r *recorder) Begin() error {
	r.record("begin")
	return r.beginErr
}

func (r *recorder) End() error {
	r.record("end")
	return r.endErr
}

func (r *recorder) Transform(v int) (int, error) {
	if v == r.failOn {
		return 0, errTransform
	}
	if v == r.panicOn {
		panic("boom")
	}
	return v * 2, nil
}

var errTransform = &transformError{}

type transformError struct{}

func (*transformError) Error() string { return "transform failed" }
