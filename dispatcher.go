package funcpool

import (
	"context"
	"iter"

	"golang.org/x/time/rate"
)

// dispatcher splits the input into chunks, numbers them 0, 1, 2, ... and pushes
// them onto the work channel. Pushing blocks while the channel is full, which is
// what keeps the pool from reading the whole input ahead of the workers.
//
// The dispatcher never closes the work channel; it is shared by every Imap call.
// When it returns it reports the number of chunks sent on done, exactly once.
type dispatcher[T any] struct {
	work      chan<- Chunk[T]
	data      iter.Seq[T]
	chunkSize int
	gen       uint64
	limiter   *rate.Limiter
	ins       *instruments

	done chan int
}

func newDispatcher[T any](
	work chan<- Chunk[T], data iter.Seq[T], chunkSize int, gen uint64, limiter *rate.Limiter, ins *instruments,
) *dispatcher[T] {
	return &dispatcher[T]{
		work:      work,
		data:      data,
		chunkSize: chunkSize,
		gen:       gen,
		limiter:   limiter,
		ins:       ins,
		done:      make(chan int, 1),
	}
}

// run dispatches until the input is exhausted or ctx is canceled.
func (d *dispatcher[T]) run(ctx context.Context) {
	sent := 0
	defer func() { d.done <- sent }()

	for items := range chunked(d.data, d.chunkSize) {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
		}
		select {
		case d.work <- Chunk[T]{Seq: sent, Items: items, gen: d.gen}:
			sent++
			d.ins.chunksDispatched.Add(1)
		case <-ctx.Done():
			return
		}
	}
}

// maxPrealloc caps the capacity reserved up front for a chunk.
const maxPrealloc = 1024

// chunked groups seq into slices of at most size elements. Every yielded slice
// is freshly allocated and never touched again by chunked.
func chunked[T any](seq iter.Seq[T], size int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		c := make([]T, 0, min(size, maxPrealloc))
		for v := range seq {
			c = append(c, v)
			if len(c) == size {
				if !yield(c) {
					return
				}
				c = make([]T, 0, min(size, maxPrealloc))
			}
		}
		if len(c) > 0 {
			yield(c)
		}
	}
}
