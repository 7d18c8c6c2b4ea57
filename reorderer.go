package funcpool

import (
	"context"
	"log/slog"

	"github.com/ygrebnov/funcpool/buffer"
)

// reorderer is the consuming side of one Imap call.
//
// Responsibility:
//   - Drain result chunks from the shared results channel and hand their values
//     to the caller strictly in input order, regardless of completion order.
//
// Semantics:
//   - Each result chunk is submitted to a buffer.Buffer keyed by its sequence
//     number. Whatever the buffer releases is yielded value by value.
//   - The call is complete once the dispatcher has reported how many chunks it
//     sent and that many chunks have been released.
//   - Result chunks tagged with another Imap generation are leftovers of an
//     abandoned iteration and are dropped.
//
// Concurrency contracts:
//   - Runs on the caller's goroutine, the one ranging over the Imap sequence.
//   - Only reads from the results channel; it never closes it.
type reorderer[R any] struct {
	results <-chan ResultChunk[R]
	gen     uint64
	closing <-chan struct{}
	buf     *buffer.Buffer[[]R]
	ins     *instruments
	log     *slog.Logger

	consumed   int
	dispatched int // -1 until the dispatcher reports
}

func newReorderer[R any](
	results <-chan ResultChunk[R], gen uint64, closing <-chan struct{}, ins *instruments, log *slog.Logger,
) *reorderer[R] {
	return &reorderer[R]{
		results:    results,
		gen:        gen,
		closing:    closing,
		buf:        buffer.New[[]R](),
		ins:        ins,
		log:        log,
		dispatched: -1,
	}
}

// run yields values in input order until every dispatched chunk is consumed.
// It reports false when it stopped early: yield asked to stop, ctx was
// canceled or the pool is closing.
func (r *reorderer[R]) run(ctx context.Context, dispatched <-chan int, yield func(R) bool) bool {
	for r.dispatched < 0 || r.consumed < r.dispatched {
		select {
		case n := <-dispatched:
			r.dispatched = n

		case rc := <-r.results:
			if rc.gen != r.gen {
				r.ins.staleResults.Add(1)
				continue
			}
			r.ins.reorderPending.Add(1)
			for values := range r.buf.Submit(rc.Seq, rc.Values) {
				r.consumed++
				r.ins.reorderPending.Add(-1)
				for _, v := range values {
					if !yield(v) {
						return false
					}
				}
			}

		case <-ctx.Done():
			return false

		case <-r.closing:
			return false
		}
	}
	return true
}

// abandon waits for the already stopped dispatcher to report and releases the
// held chunks. Chunks still in flight are discarded by later consumers.
func (r *reorderer[R]) abandon(dispatched <-chan int) {
	if r.dispatched < 0 {
		r.dispatched = <-dispatched
	}
	r.ins.reorderPending.Add(-int64(r.buf.Len()))
	r.log.Debug("iteration abandoned",
		"generation", r.gen,
		"dispatched", r.dispatched,
		"consumed", r.consumed,
		"held", r.buf.Len(),
	)
	r.buf.Clear()
}
