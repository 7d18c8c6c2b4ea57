package funcpool

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/ygrebnov/errorc"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type poolState int

const (
	stateIdle poolState = iota
	stateRunning
	stateClosed
)

// Pool runs a fixed set of workers over a shared work channel and reassembles
// their results in input order.
//
// Lifecycle: New (or NewFactory) → Start → any number of Imap calls → Close.
// Imap iterations are serialized; a second iteration waits for the first one to
// finish. Methods are safe for concurrent use.
type Pool[T, R any] struct {
	// noCopy prevents accidental copying of the pool.
	//go:nocopy
	nc noCopy

	cfg     config
	log     *slog.Logger
	ins     *instruments
	limiter *rate.Limiter

	work    chan Chunk[T]
	results chan ResultChunk[R]

	// factory variant only; nil otherwise
	factory     Factory[T, R]
	replace     chan int
	watcherDone chan struct{}
	watcherErr  error

	// workers is mutated before Start and afterwards only by the watcher goroutine.
	workersMu sync.RWMutex
	workers   []*Worker[T, R]
	nextID    int

	stateMu sync.Mutex
	state   poolState
	started bool
	closing chan struct{} // closed when Close begins

	// imapMu serializes Imap iterations.
	imapMu sync.Mutex
	gen    uint64

	group     errgroup.Group
	lifecycle *lifecycleCoordinator
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New creates a pool over the given workers. Each worker gets a unique id
// (its position, starting at 0) and the pool's shared channels unless it was
// built WithChannels.
func New[T, R any](workers []*Worker[T, R], opts ...Option) (*Pool[T, R], error) {
	return newPool(workers, nil, opts)
}

func newPool[T, R any](workers []*Worker[T, R], factory Factory[T, R], opts []Option) (*Pool[T, R], error) {
	if len(workers) == 0 {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("workers", "at least one worker is required"))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg, len(workers)); err != nil {
		return nil, err
	}

	seen := make(map[*Worker[T, R]]struct{}, len(workers))
	for i, w := range workers {
		if w == nil {
			return nil, errorc.With(ErrInvalidConfig, errorc.String("worker", "nil at position "+strconv.Itoa(i)))
		}
		if _, dup := seen[w]; dup || w.id != unassignedID {
			return nil, errorc.With(ErrInvalidConfig, errorc.String("worker", "already registered at position "+strconv.Itoa(i)))
		}
		seen[w] = struct{}{}
	}

	p := &Pool[T, R]{
		cfg:     cfg,
		log:     cfg.Logger,
		ins:     newInstruments(cfg.Metrics),
		limiter: cfg.limiter(),
		work:    make(chan Chunk[T], cfg.workCapacity(len(workers))),
		results: make(chan ResultChunk[R], cfg.resultsCapacity(len(workers))),
		factory: factory,
		closing: make(chan struct{}),
	}
	if factory != nil {
		// every live worker announces at most once after the watcher stopped,
		// plus room for the stop sentinel
		p.replace = make(chan int, len(workers)+1)
		p.watcherDone = make(chan struct{})
	}

	p.workers = make([]*Worker[T, R], 0, len(workers))
	for _, w := range workers {
		p.register(w)
		p.workers = append(p.workers, w)
	}

	p.lifecycle = newLifecycleCoordinator(p.stopWatcher, p.drainResults, p.stopWorkers, p.waitWorkers)
	return p, nil
}

// register assigns the next id and binds the shared channels.
func (p *Pool[T, R]) register(w *Worker[T, R]) {
	w.id = p.nextID
	p.nextID++
	if w.work == nil {
		w.work = p.work
	}
	if w.results == nil {
		w.results = p.results
	}
	w.replace = p.replace
	w.quit = make(chan struct{})
}

// Start launches every worker goroutine (and the replacement watcher of a
// factory pool). It is a no-op after the first call or after Close.
func (p *Pool[T, R]) Start() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.state != stateIdle {
		return
	}
	p.state = stateRunning
	p.started = true

	for _, w := range p.Workers() {
		p.launch(w)
	}
	if p.replace != nil {
		go func() {
			defer close(p.watcherDone)
			p.watcherErr = p.watch()
		}()
	}
	p.log.Debug("pool started", "workers", p.Size())
}

// launch runs w in its own goroutine under the pool's errgroup.
func (p *Pool[T, R]) launch(w *Worker[T, R]) {
	p.ins.workersActive.Add(1)
	p.group.Go(func() error {
		defer p.ins.workersActive.Add(-1)
		err := w.run(p.log, p.ins)
		if err != nil {
			p.ins.workerFailures.Add(1)
			p.log.Error("worker failed", "worker", w.ID(), "error", err)
		}
		return err
	})
}

// Close stops the pool: it stops the watcher, tells every worker to stop and
// waits for all of them. It returns the first worker error, joined
// with any replacement failure. Close is idempotent; later calls return the
// same error. Workers that already exited are skipped.
//
// An Imap iteration running concurrently ends early. Close must not be called
// from inside the loop ranging over an Imap sequence of the same pool.
func (p *Pool[T, R]) Close() error {
	p.stateMu.Lock()
	prev, started := p.state, p.started
	if prev != stateClosed {
		p.state = stateClosed
		close(p.closing)
	}
	p.stateMu.Unlock()

	if !started {
		return nil
	}
	err := p.lifecycle.Close()
	if prev == stateRunning {
		p.log.Debug("pool closed", "error", err)
	}
	return err
}

func (p *Pool[T, R]) stopWatcher() error {
	if p.replace == nil {
		return nil
	}
	select {
	case p.replace <- stopSeq:
	case <-p.watcherDone:
	}
	<-p.watcherDone
	return p.watcherErr
}

// drainResults discards everything arriving on the shared results channel
// until the returned stop function is called.
func (p *Pool[T, R]) drainResults() func() {
	quit := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-p.results:
				p.ins.staleResults.Add(1)
			case <-quit:
				return
			}
		}
	}()
	return func() {
		close(quit)
		<-exited
	}
}

// stopWorkers closes every worker's quit channel, then offers stop sentinels
// on the shared work channel until each worker on it is done. A sentinel may be
// taken by another worker, so one send per worker is not enough. Channels
// owned by a worker (WithChannels) are never sent on: the caller may have
// closed them.
func (p *Pool[T, R]) stopWorkers() {
	workers := p.Workers()
	for _, w := range workers {
		close(w.quit)
	}

	stop := StopChunk[T]()
	for _, w := range workers {
		if w.work != p.work {
			<-w.done
			continue
		}
		for done := false; !done; {
			select {
			case <-w.done:
				done = true
			case p.work <- stop:
			}
		}
	}
}

func (p *Pool[T, R]) waitWorkers() error { return p.group.Wait() }

// UntilAllReady blocks until every current worker has finished Begin.
// It fails with ErrWorkerExited when a worker stopped without becoming ready.
func (p *Pool[T, R]) UntilAllReady(ctx context.Context) error {
	for _, w := range p.Workers() {
		select {
		case <-w.ready:
		case <-w.done:
			select {
			case <-w.ready:
			default:
				return errors.Join(ErrWorkerExited, w.Err())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Imap applies the workers to every item of data and returns the results as
// a sequence in exactly the input order. Items travel in chunks of at most
// chunkSize; a chunkSize <= 0 fails with ErrInvalidChunkSize before anything
// is dispatched.
//
// Work starts when the sequence is ranged over. Stopping the range early, or
// canceling ctx, stops dispatching; chunks already handed to workers are
// processed and their results dropped. A worker failure is not reported
// through the sequence: the chunk it held never arrives and the sequence
// waits for it until ctx is canceled. Inspect Close or Worker.Err instead.
// Abandoning an iteration waits for data to produce its next item or end, so a
// blocking data sequence should observe ctx itself.
func (p *Pool[T, R]) Imap(ctx context.Context, data iter.Seq[T], chunkSize int) (iter.Seq[R], error) {
	if chunkSize <= 0 {
		return nil, errorc.With(ErrInvalidChunkSize, errorc.String("chunk_size", strconv.Itoa(chunkSize)))
	}
	if data == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("data", "nil"))
	}
	if !p.running() {
		return nil, ErrInvalidState
	}

	return func(yield func(R) bool) {
		p.imapMu.Lock()
		defer p.imapMu.Unlock()
		if !p.running() {
			return
		}
		p.gen++

		dctx, cancel := context.WithCancel(ctx)
		defer cancel()

		d := newDispatcher[T](p.work, data, chunkSize, p.gen, p.limiter, p.ins)
		r := newReorderer[R](p.results, p.gen, p.closing, p.ins, p.log)
		go d.run(dctx)

		completed := false
		defer func() {
			if !completed {
				cancel()
				r.abandon(d.done)
			}
		}()
		completed = r.run(ctx, d.done, yield)
	}, nil
}

// ImapSlice is Imap over the elements of a slice.
func (p *Pool[T, R]) ImapSlice(ctx context.Context, data []T, chunkSize int) (iter.Seq[R], error) {
	return p.Imap(ctx, slices.Values(data), chunkSize)
}

// Workers returns a snapshot of the current workers in slot order.
// Under a factory pool a retired worker's slot is taken by its replacement,
// which has a fresh, higher id, so ids are not necessarily ascending.
func (p *Pool[T, R]) Workers() []*Worker[T, R] {
	p.workersMu.RLock()
	defer p.workersMu.RUnlock()
	return slices.Clone(p.workers)
}

// Size returns the number of worker slots.
func (p *Pool[T, R]) Size() int {
	p.workersMu.RLock()
	defer p.workersMu.RUnlock()
	return len(p.workers)
}

func (p *Pool[T, R]) running() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state == stateRunning
}
