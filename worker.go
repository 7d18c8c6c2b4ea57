package funcpool

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/errorc"
)

// unassignedID is the id of a worker not registered with a pool yet.
const unassignedID = -1

// Transformer is the per-item work a Worker performs.
// A Transformer belongs to exactly one worker, so it may keep per-worker state
// prepared in Begin without synchronization.
type Transformer[T, R any] interface {
	Transform(T) (R, error)
}

// TransformFunc adapts an ordinary function to Transformer.
type TransformFunc[T, R any] func(T) (R, error)

// Transform calls f(v).
func (f TransformFunc[T, R]) Transform(v T) (R, error) { return f(v) }

// Beginner is implemented by transformers that need setup in the worker
// goroutine before the first chunk.
type Beginner interface {
	Begin() error
}

// Ender is implemented by transformers that need cleanup. End runs exactly
// once when the worker stops, whatever the reason.
type Ender interface {
	End() error
}

// WorkerOption configures a Worker.
type WorkerOption func(*workerConfig) error

type workerConfig struct {
	maxChunks int
	work      any
	results   any
}

// WithMaxChunks retires the worker after n chunks (must be > 0).
// Under a factory pool a retired worker is replaced by a fresh one.
func WithMaxChunks(n int) WorkerOption {
	return func(c *workerConfig) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("max_chunks", strconv.Itoa(n)))
		}
		c.maxChunks = n
		return nil
	}
}

// WithChannels gives the worker its own work and results channels instead of
// the ones shared through the pool. The caller owns both channels.
func WithChannels[T, R any](work chan Chunk[T], results chan ResultChunk[R]) WorkerOption {
	return func(c *workerConfig) error {
		if work == nil || results == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("channels", "nil"))
		}
		c.work = work
		c.results = results
		return nil
	}
}

// Worker applies a Transformer to every item of the chunks it receives.
// A Worker runs once: after it stops it cannot be started again.
type Worker[T, R any] struct {
	id        int
	fn        Transformer[T, R]
	maxChunks int // zero means unbounded

	work    chan Chunk[T]
	results chan ResultChunk[R]
	replace chan<- int
	quit    chan struct{} // closed by the pool on Close; nil outside a pool

	ready     chan struct{}
	done      chan struct{}
	err       error
	processed atomic.Int64
}

// NewWorker creates an idle worker around fn.
func NewWorker[T, R any](fn Transformer[T, R], opts ...WorkerOption) (*Worker[T, R], error) {
	if fn == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("transformer", "nil"))
	}

	var cfg workerConfig
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	w := &Worker[T, R]{
		id:        unassignedID,
		fn:        fn,
		maxChunks: cfg.maxChunks,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}

	if cfg.work != nil {
		work, ok := cfg.work.(chan Chunk[T])
		if !ok {
			return nil, errorc.With(ErrInvalidConfig, errorc.String("work_channel", fmt.Sprintf("%T", cfg.work)))
		}
		results, ok := cfg.results.(chan ResultChunk[R])
		if !ok {
			return nil, errorc.With(ErrInvalidConfig, errorc.String("results_channel", fmt.Sprintf("%T", cfg.results)))
		}
		w.work, w.results = work, results
	}

	return w, nil
}

// ID returns the identity assigned by the pool, or -1 before registration.
func (w *Worker[T, R]) ID() int { return w.id }

// Ready is closed once Begin has returned successfully.
func (w *Worker[T, R]) Ready() <-chan struct{} { return w.ready }

// Done is closed after the worker has stopped and End has run.
func (w *Worker[T, R]) Done() <-chan struct{} { return w.done }

// Processed returns the number of chunks the worker has completed.
func (w *Worker[T, R]) Processed() int64 { return w.processed.Load() }

// Err returns the error the worker stopped with. It is nil while the worker runs.
func (w *Worker[T, R]) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// run is the worker goroutine body. Begin precedes the first chunk, End runs
// after the loop no matter how it ends, and done is closed last.
func (w *Worker[T, R]) run(log *slog.Logger, ins *instruments) (err error) {
	seq := stopSeq

	defer close(w.done)
	defer func() { w.err = err }()
	defer func() {
		if e, ok := w.fn.(Ender); ok {
			if endErr := callHook(e.End); endErr != nil {
				err = errors.Join(err, newWorkerTaggedError(endErr, w.id, stopSeq))
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = newWorkerTaggedError(fmt.Errorf("%w: %v", ErrWorkerPanicked, r), w.id, seq)
		}
	}()

	if b, ok := w.fn.(Beginner); ok {
		if err := callHook(b.Begin); err != nil {
			return newWorkerTaggedError(err, w.id, stopSeq)
		}
	}
	close(w.ready)
	log.Debug("worker ready", "worker", w.id)

	remaining := w.maxChunks
	for w.maxChunks == 0 || remaining > 0 {
		c, ok := w.next()
		if !ok {
			log.Debug("worker stopped", "worker", w.id)
			return nil
		}

		seq = c.Seq
		start := time.Now()
		values, err := w.process(c.Items)
		if err != nil {
			return newWorkerTaggedError(err, w.id, seq)
		}
		ins.chunkSeconds.Record(time.Since(start).Seconds())

		w.processed.Add(1)
		ins.chunksProcessed.Add(1)
		ins.itemsProcessed.Add(int64(len(values)))
		select {
		case w.results <- ResultChunk[R]{Seq: c.Seq, Values: values, gen: c.gen}:
		case <-w.quit:
			log.Debug("worker stopped", "worker", w.id)
			return nil
		}
		seq = stopSeq
		remaining--
	}

	log.Debug("worker retiring", "worker", w.id, "chunks", w.processed.Load())
	if w.replace != nil {
		w.replace <- w.id
	}
	return nil
}

// next receives the next chunk. It reports false on the stop sentinel, a closed
// work channel or a closed quit channel. A pending quit wins over queued work.
func (w *Worker[T, R]) next() (Chunk[T], bool) {
	select {
	case <-w.quit:
		return Chunk[T]{}, false
	default:
	}
	select {
	case c, ok := <-w.work:
		return c, ok && !c.IsStop()
	case <-w.quit:
		return Chunk[T]{}, false
	}
}

// process transforms items in order.
func (w *Worker[T, R]) process(items []T) ([]R, error) {
	values := make([]R, 0, len(items))
	for _, item := range items {
		v, err := w.fn.Transform(item)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// callHook runs a lifecycle hook, converting a panic into an error.
func callHook(hook func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanicked, r)
		}
	}()
	return hook()
}
