package funcpool

// stopSeq marks the stop sentinel. Real chunks are numbered from 0.
const stopSeq = -1

// Chunk is a numbered batch of work items sent to a worker.
type Chunk[T any] struct {
	Seq   int
	Items []T

	gen uint64 // Imap call that produced the chunk
}

// StopChunk returns the "no more work" sentinel. It is never a valid chunk.
func StopChunk[T any]() Chunk[T] { return Chunk[T]{Seq: stopSeq} }

// IsStop reports whether c is the stop sentinel.
func (c Chunk[T]) IsStop() bool { return c.Seq < 0 }

// ResultChunk carries one output per item of the Chunk with the same Seq,
// in the same order.
type ResultChunk[R any] struct {
	Seq    int
	Values []R

	gen uint64
}
