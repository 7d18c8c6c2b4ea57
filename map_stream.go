package funcpool

import (
	"context"
	"errors"
	"iter"

	"github.com/ygrebnov/errorc"
)

// MapStream consumes items from in on a temporary pool of n workers and sends
// the results, in input order, on the returned results channel. A non-nil error
// is returned only for setup failures; runtime failures arrive on errs.
//
// Lifecycle:
//   - The pool is built and started before MapStream returns.
//   - A forwarder goroutine ranges over the ordered results. Intake stops when
//     in is closed or ctx is done.
//   - When intake is over the forwarder closes the pool, sends the combined
//     ctx and Close error on errs (at most one value) and closes both channels.
//
// The caller must drain results until it is closed, or cancel ctx.
func MapStream[T, R any](
	ctx context.Context, in <-chan T, n, chunkSize int, fn func(T) (R, error), opts ...Option,
) (results <-chan R, errs <-chan error, err error) {
	if in == nil {
		return nil, nil, errorc.With(ErrInvalidConfig, errorc.String("input", "nil"))
	}
	p, err := startFuncPool(n, fn, opts)
	if err != nil {
		return nil, nil, err
	}

	seq, err := p.Imap(ctx, chanValues(ctx, in), chunkSize)
	if err != nil {
		return nil, nil, errors.Join(err, p.Close())
	}

	out := make(chan R, p.cfg.resultsCapacity(n))
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(out)

	forward:
		for v := range seq {
			select {
			case out <- v:
			case <-ctx.Done():
				break forward
			}
		}

		if err := errors.Join(ctx.Err(), p.Close()); err != nil {
			errCh <- err
		}
	}()

	return out, errCh, nil
}

// chanValues adapts a channel to a sequence ending when in is closed or ctx is done.
func chanValues[T any](ctx context.Context, in <-chan T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			select {
			case v, ok := <-in:
				if !ok || !yield(v) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
