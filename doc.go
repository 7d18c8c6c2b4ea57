// Package funcpool runs a set of long-lived workers over a stream of items and
// hands the results back in exactly the order the items came in.
//
// Model
//   - A Worker wraps a Transformer, the per-item function. Transformers may
//     implement Beginner and Ender to set up and tear down per-worker state.
//   - A Pool owns one work channel and one results channel shared by all its
//     workers. Imap splits the input into numbered chunks, workers process
//     chunks in any order, and a reorder buffer (package buffer) puts the
//     results back in sequence before they are yielded.
//   - A factory pool (NewFactory) replaces workers that retire after a fixed
//     number of chunks (WithMaxChunks), keeping the worker count constant.
//   - Map, ForEach and MapStream wrap a temporary pool around a single function
//     for one-shot use.
//
// Lifecycle
//
//	p, err := funcpool.New(workers)
//	p.Start()
//	defer p.Close()
//	seq, err := p.Imap(ctx, data, 16)
//	for r := range seq { ... }
//
// Close closes every worker's quit channel, offers stop sentinels on the shared
// work channel and waits for every worker. Channels a worker owns through
// WithChannels are never sent on or closed by the pool. Worker goroutines
// never keep the process alive on their own, but Close does not time out.
//
// Defaults
//   - work channel capacity: 1.0 × workers
//   - results channel capacity: 1.0 × workers
//   - no dispatch throttling, discarding logger, no-op metrics
//
// Errors
// Configuration errors (ErrInvalidConfig, ErrInvalidChunkSize) are returned
// synchronously. A worker that fails while processing stops; its error is
// available from Worker.Err and Pool.Close and is never sent through Imap.
package funcpool
