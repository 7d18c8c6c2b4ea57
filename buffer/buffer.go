// Package buffer provides release-in-order primitives.
//
// Buffer holds values keyed by a sequence index and releases them strictly in
// index order, starting at 0. Values that arrive ahead of the cursor are held
// until every earlier index has been submitted. PrintBuffer specializes Buffer
// for writing lines to an io.Writer.
//
// Neither type is safe for concurrent use; the owner serializes access.
package buffer

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// ErrOutOfSequence reports a submission for an index that was already released
// or is already held. It indicates a bookkeeping bug in the producer.
var ErrOutOfSequence = errors.New("buffer: index out of sequence")

// Buffer releases submitted values in strict index order.
// The zero value is ready to use.
type Buffer[V any] struct {
	held       map[int]V
	waitingFor int
}

// New returns an empty Buffer waiting for index 0.
func New[V any]() *Buffer[V] {
	return &Buffer[V]{held: make(map[int]V)}
}

// Submit stores v under idx and returns a sequence of the values that became
// releasable, in ascending index order. The sequence is lazy: values are
// released (and the cursor advanced) only while it is iterated. Once exhausted
// it yields nothing until further submissions fill the next gap.
//
// Submitting an index below WaitingFor, or one that is already held, panics
// with an error wrapping ErrOutOfSequence.
func (b *Buffer[V]) Submit(idx int, v V) iter.Seq[V] {
	if b.held == nil {
		b.held = make(map[int]V)
	}
	if idx < b.waitingFor {
		panic(fmt.Errorf("%w: got %d, waiting for %d", ErrOutOfSequence, idx, b.waitingFor))
	}
	if _, dup := b.held[idx]; dup {
		panic(fmt.Errorf("%w: index %d already held", ErrOutOfSequence, idx))
	}
	b.held[idx] = v

	return b.release
}

// release yields contiguous held values starting at the cursor.
func (b *Buffer[V]) release(yield func(V) bool) {
	for {
		v, ok := b.held[b.waitingFor]
		if !ok {
			return
		}
		delete(b.held, b.waitingFor)
		b.waitingFor++
		if !yield(v) {
			return
		}
	}
}

// Len returns the number of held (not yet released) values.
func (b *Buffer[V]) Len() int { return len(b.held) }

// WaitingFor returns the next index due for release.
func (b *Buffer[V]) WaitingFor() int { return b.waitingFor }

// Flush returns every held value in index order, gaps notwithstanding, and
// empties the buffer. The cursor moves past the highest flushed index; it is
// left untouched when nothing is held.
func (b *Buffer[V]) Flush() []V {
	if len(b.held) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(b.held))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, b.held[k])
	}
	b.waitingFor = keys[len(keys)-1] + 1
	clear(b.held)
	return out
}

// Clear drops held values without releasing them and resets the cursor to 0.
func (b *Buffer[V]) Clear() {
	clear(b.held)
	b.waitingFor = 0
}
