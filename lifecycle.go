package funcpool

import (
	"errors"
	"sync"
)

// lifecycleCoordinator encapsulates the teardown sequence of a Pool.
// It is a wiring helper: it owns no channels and no goroutines; it orders the
// steps supplied by the pool and runs them exactly once.
type lifecycleCoordinator struct {
	stopWatcher func() error
	startDrain  func() (stop func())
	stopWorkers func()
	waitWorkers func() error

	once sync.Once
	err  error
}

func newLifecycleCoordinator(
	stopWatcher func() error,
	startDrain func() (stop func()),
	stopWorkers func(),
	waitWorkers func() error,
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		stopWatcher: stopWatcher,
		startDrain:  startDrain,
		stopWorkers: stopWorkers,
		waitWorkers: waitWorkers,
	}
}

// Close executes the teardown sequence exactly once and returns its combined error:
// 1) stop the replacement watcher so the worker list stops changing
// 2) start discarding results nobody will read, so no worker blocks on send
// 3) hand every worker a stop sentinel
// 4) wait for all workers to return
// 5) stop discarding results
func (lc *lifecycleCoordinator) Close() error {
	lc.once.Do(func() {
		var errs []error
		if lc.stopWatcher != nil {
			errs = append(errs, lc.stopWatcher())
		}
		stopDrain := func() {}
		if lc.startDrain != nil {
			stopDrain = lc.startDrain()
		}
		if lc.stopWorkers != nil {
			lc.stopWorkers()
		}
		if lc.waitWorkers != nil {
			errs = append(errs, lc.waitWorkers())
		}
		stopDrain()
		lc.err = errors.Join(errs...)
	})
	return lc.err
}
