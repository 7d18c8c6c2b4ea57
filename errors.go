package funcpool

import "errors"

const Namespace = "funcpool"

var (
	ErrInvalidConfig    = errors.New(Namespace + ": invalid configuration")
	ErrInvalidChunkSize = errors.New(Namespace + ": chunk size must be greater than zero")
	ErrInvalidState     = errors.New(Namespace + ": pool is not running")
	ErrWorkerPanicked   = errors.New(Namespace + ": worker panicked")
	ErrWorkerExited     = errors.New(Namespace + ": worker exited before becoming ready")
	ErrUnknownWorker    = errors.New(Namespace + ": replacement requested for unknown worker")
)
