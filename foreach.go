package funcpool

import "context"

// ForEach applies fn to every item on a temporary pool of n workers.
// It is Map without results: items are processed in chunks of chunkSize and
// the returned error joins ctx.Err() with the pool's Close error.
func ForEach[T any](ctx context.Context, items []T, n, chunkSize int, fn func(T) error, opts ...Option) error {
	var wrapped func(T) (struct{}, error)
	if fn != nil {
		wrapped = func(v T) (struct{}, error) { return struct{}{}, fn(v) }
	}
	_, err := Map(ctx, items, n, chunkSize, wrapped, opts...)
	return err
}
