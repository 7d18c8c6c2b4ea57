package funcpool

import (
	"context"
	"errors"
	"strconv"

	"github.com/ygrebnov/errorc"
)

// Map runs fn over data on a temporary pool of n workers and returns the
// results in input order.
//
// Semantics:
//   - The pool is built, started and closed by Map; opts configure it.
//   - When ctx is canceled, Map returns the results collected so far together
//     with ctx.Err().
//   - A failing fn stops the worker that ran it. The failure is reported by
//     the pool on Close, so with no ctx deadline Map waits for the lost chunk.
func Map[T, R any](
	ctx context.Context, data []T, n, chunkSize int, fn func(T) (R, error), opts ...Option,
) ([]R, error) {
	if chunkSize <= 0 {
		return nil, errorc.With(ErrInvalidChunkSize, errorc.String("chunk_size", strconv.Itoa(chunkSize)))
	}
	if len(data) == 0 && n > 0 && fn != nil {
		return nil, nil
	}
	p, err := startFuncPool(n, fn, opts)
	if err != nil {
		return nil, err
	}

	seq, err := p.ImapSlice(ctx, data, chunkSize)
	if err != nil {
		return nil, errors.Join(err, p.Close())
	}

	results := make([]R, 0, len(data))
	for v := range seq {
		results = append(results, v)
	}

	// Close before reporting so worker failures surface alongside ctx errors.
	return results, errors.Join(ctx.Err(), p.Close())
}

// startFuncPool builds and starts a pool of n workers all running fn.
func startFuncPool[T, R any](n int, fn func(T) (R, error), opts []Option) (*Pool[T, R], error) {
	if n <= 0 {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("workers", strconv.Itoa(n)))
	}
	if fn == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("fn", "nil"))
	}

	workers := make([]*Worker[T, R], 0, n)
	for range n {
		w, err := NewWorker[T, R](TransformFunc[T, R](fn))
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}

	p, err := New(workers, opts...)
	if err != nil {
		return nil, err
	}
	p.Start()
	return p, nil
}
