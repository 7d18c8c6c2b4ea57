package funcpool

import (
	"errors"
	"fmt"
)

// WorkerMetaError exposes correlation metadata for a worker failure.
type WorkerMetaError interface {
	error
	Unwrap() error
	WorkerID() int
	ChunkSeq() (int, bool)
}

type workerTaggedError struct {
	err error
	wid int
	seq int // -1 when the failure happened outside chunk processing
}

func newWorkerTaggedError(err error, wid, seq int) error {
	if err == nil {
		return nil
	}
	return &workerTaggedError{err: err, wid: wid, seq: seq}
}

func (e *workerTaggedError) Error() string { return e.err.Error() }
func (e *workerTaggedError) Unwrap() error { return e.err }
func (e *workerTaggedError) WorkerID() int { return e.wid }

func (e *workerTaggedError) ChunkSeq() (int, bool) {
	if e.seq < 0 {
		return 0, false
	}
	return e.seq, true
}

func (e *workerTaggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			if e.seq < 0 {
				_, _ = fmt.Fprintf(s, "worker(id=%d): %+v", e.wid, e.err)
			} else {
				_, _ = fmt.Fprintf(s, "worker(id=%d,chunk=%d): %+v", e.wid, e.seq, e.err)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractWorkerID returns the id of the worker that produced err, if tagged.
func ExtractWorkerID(err error) (int, bool) {
	var wme WorkerMetaError
	if errors.As(err, &wme) {
		return wme.WorkerID(), true
	}
	return 0, false
}

// ExtractChunkSeq returns the sequence number of the chunk being processed
// when err occurred, if known.
func ExtractChunkSeq(err error) (int, bool) {
	var wme WorkerMetaError
	if errors.As(err, &wme) {
		return wme.ChunkSeq()
	}
	return 0, false
}
