package buffer

import (
	"fmt"
	"io"
)

// PrintBuffer writes values to an output sink in index order, one per line.
type PrintBuffer[V any] struct {
	out io.Writer
	buf Buffer[V]
}

// NewPrintBuffer returns a PrintBuffer writing to out.
func NewPrintBuffer[V any](out io.Writer) *PrintBuffer[V] {
	return &PrintBuffer[V]{out: out, buf: Buffer[V]{held: make(map[int]V)}}
}

// Print submits v under idx and writes every value that became releasable.
//
// A value is released from the buffer before it is written. When the writer
// fails, Print returns at once: the value that failed is lost and the cursor
// stays past it, while later contiguous values remain held for the next call.
func (p *PrintBuffer[V]) Print(idx int, v V) error {
	for r := range p.buf.Submit(idx, v) {
		if _, err := fmt.Fprintln(p.out, r); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes all held values in index order, even across gaps, and empties
// the buffer. See Buffer.Flush for the cursor rule. The buffer is emptied up
// front, so when the writer fails the values not yet written are lost.
func (p *PrintBuffer[V]) Flush() error {
	for _, v := range p.buf.Flush() {
		if _, err := fmt.Fprintln(p.out, v); err != nil {
			return err
		}
	}
	return nil
}

// Clear discards held values without writing them and resets the cursor.
func (p *PrintBuffer[V]) Clear() { p.buf.Clear() }

// Len returns the number of values waiting to be written.
func (p *PrintBuffer[V]) Len() int { return p.buf.Len() }

// WaitingFor returns the next index due for writing.
func (p *PrintBuffer[V]) WaitingFor() int { return p.buf.WaitingFor() }

// Writer returns the output sink.
func (p *PrintBuffer[V]) Writer() io.Writer { return p.out }
