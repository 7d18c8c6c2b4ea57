package funcpool

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ygrebnov/errorc"
)

// Factory creates workers for a factory pool, both the initial ones and the
// replacements of workers that retired after their chunk budget.
type Factory[T, R any] interface {
	Create() (*Worker[T, R], error)
}

// FactoryFunc adapts an ordinary function to Factory.
type FactoryFunc[T, R any] func() (*Worker[T, R], error)

// Create calls f().
func (f FactoryFunc[T, R]) Create() (*Worker[T, R], error) { return f() }

// NewFactory creates a pool of n workers built by f. A worker that retires
// (see WithMaxChunks) is replaced by a fresh one from f, with a new id, so the
// number of workers stays n for the lifetime of the pool.
func NewFactory[T, R any](n int, f Factory[T, R], opts ...Option) (*Pool[T, R], error) {
	if n <= 0 {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("workers", strconv.Itoa(n)))
	}
	if f == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("factory", "nil"))
	}

	workers := make([]*Worker[T, R], 0, n)
	for range n {
		w, err := f.Create()
		if err != nil {
			return nil, fmt.Errorf("%w: create worker: %w", ErrInvalidConfig, err)
		}
		workers = append(workers, w)
	}
	return newPool(workers, f, opts)
}

// watch serves replacement requests until it receives the stop sentinel.
// Any failure is fatal for the watcher: it logs, stops serving and reports the
// error to Close.
func (p *Pool[T, R]) watch() error {
	for wid := range p.replace {
		if wid == stopSeq {
			return nil
		}
		if err := p.replaceWorker(wid); err != nil {
			p.log.Error("worker replacement failed", "worker", wid, "error", err)
			return err
		}
	}
	return nil
}

// replaceWorker swaps the retired worker wid for a new one from the factory
// and starts it. The factory runs with no lock held, so it may call back into
// the pool. The index found up front stays valid: only the watcher goroutine
// changes the worker list after Start.
func (p *Pool[T, R]) replaceWorker(wid int) error {
	p.workersMu.RLock()
	idx := slices.IndexFunc(p.workers, func(w *Worker[T, R]) bool { return w.id == wid })
	p.workersMu.RUnlock()
	if idx < 0 {
		return errorc.With(ErrUnknownWorker, errorc.String("worker", strconv.Itoa(wid)))
	}

	nw, err := p.factory.Create()
	if err != nil {
		return fmt.Errorf("create replacement for worker %d: %w", wid, err)
	}
	if nw == nil || nw.id != unassignedID {
		return errorc.With(ErrInvalidConfig, errorc.String("worker", "factory returned a nil or registered worker"))
	}

	p.workersMu.Lock()
	p.register(nw)
	p.workers[idx] = nw
	p.workersMu.Unlock()

	p.ins.workersReplaced.Add(1)
	p.launch(nw)
	p.log.Debug("worker replaced", "retired", wid, "worker", nw.id)
	return nil
}
