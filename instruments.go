package funcpool

import "github.com/ygrebnov/funcpool/metrics"

// instruments bundles everything the pool records into.
type instruments struct {
	chunksDispatched metrics.Counter
	chunksProcessed  metrics.Counter
	itemsProcessed   metrics.Counter
	workersActive    metrics.UpDownCounter
	workersReplaced  metrics.Counter
	workerFailures   metrics.Counter
	reorderPending   metrics.UpDownCounter
	staleResults     metrics.Counter
	chunkSeconds     metrics.Histogram
}

func newInstruments(p metrics.Provider) *instruments {
	return &instruments{
		chunksDispatched: p.Counter(metrics.ChunksDispatched, metrics.WithUnit("1")),
		chunksProcessed:  p.Counter(metrics.ChunksProcessed, metrics.WithUnit("1")),
		itemsProcessed:   p.Counter(metrics.ItemsProcessed, metrics.WithUnit("1")),
		workersActive:    p.UpDownCounter(metrics.WorkersActive, metrics.WithUnit("1")),
		workersReplaced:  p.Counter(metrics.WorkersReplaced, metrics.WithUnit("1")),
		workerFailures:   p.Counter(metrics.WorkerFailures, metrics.WithUnit("1")),
		reorderPending: p.UpDownCounter(metrics.ReorderPending,
			metrics.WithDescription("result chunks held back waiting for an earlier sequence number")),
		staleResults: p.Counter(metrics.StaleResults,
			metrics.WithDescription("result chunks discarded after an abandoned iteration")),
		chunkSeconds: p.Histogram(metrics.ChunkSeconds, metrics.WithUnit("s")),
	}
}
