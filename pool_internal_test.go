package funcpool

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_RegisterBindsSharedChannels(t *testing.T) {
	ownWork := make(chan Chunk[int], 1)
	ownResults := make(chan ResultChunk[int], 1)

	shared, err := NewWorker[int, int](newRecorder())
	require.NoError(t, err)
	own, err := NewWorker[int, int](newRecorder(), WithChannels(ownWork, ownResults))
	require.NoError(t, err)

	p, err := New([]*Worker[int, int]{shared, own})
	require.NoError(t, err)

	require.Equal(t, p.work, shared.work)
	require.Equal(t, p.results, shared.results)
	require.Equal(t, ownWork, own.work)
	require.Equal(t, ownResults, own.results)
	require.Nil(t, shared.replace)

	p.Start()
	// a worker with its own channels is driven entirely by its owner
	ownWork <- Chunk[int]{Seq: 0, Items: []int{21}, gen: 9}
	select {
	case rc := <-ownResults:
		require.Equal(t, []int{42}, rc.Values)
	case <-time.After(time.Second):
		t.Fatalf("no result on the worker's own channel")
	}
	require.NoError(t, p.Close())
}

func TestPool_CloseAfterOwnerClosedWorkChannel(t *testing.T) {
	for range 50 {
		ownWork := make(chan Chunk[int])
		ownResults := make(chan ResultChunk[int], 1)
		own, err := NewWorker[int, int](newRecorder(), WithChannels(ownWork, ownResults))
		require.NoError(t, err)
		shared, err := NewWorker[int, int](newRecorder())
		require.NoError(t, err)

		p, err := New([]*Worker[int, int]{own, shared})
		require.NoError(t, err)
		p.Start()

		close(ownWork)
		<-own.Done()
		require.NotPanics(t, func() { require.NoError(t, p.Close()) })
	}
}

func TestPool_CloseStopsWorkerOnOwnChannels(t *testing.T) {
	ownWork := make(chan Chunk[int])
	ownResults := make(chan ResultChunk[int])
	own, err := NewWorker[int, int](newRecorder(), WithChannels(ownWork, ownResults))
	require.NoError(t, err)

	p, err := New([]*Worker[int, int]{own})
	require.NoError(t, err)
	p.Start()
	<-own.Ready()

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Close did not stop an idle worker on its own channels")
	}
	// the pool never closes channels it does not own
	select {
	case ownWork <- Chunk[int]{}:
		t.Fatalf("stopped worker still receiving")
	default:
	}
}

func TestPool_CloseStopsWorkerBlockedOnOwnResults(t *testing.T) {
	ownWork := make(chan Chunk[int], 1)
	ownResults := make(chan ResultChunk[int]) // never read
	own, err := NewWorker[int, int](newRecorder(), WithChannels(ownWork, ownResults))
	require.NoError(t, err)

	p, err := New([]*Worker[int, int]{own})
	require.NoError(t, err)
	p.Start()

	ownWork <- Chunk[int]{Seq: 0, Items: []int{1}}
	require.Eventually(t, func() bool { return own.Processed() == 1 }, time.Second, time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Close blocked on a worker stuck sending its result")
	}
}

func TestPool_FactoryRegistersReplaceChannel(t *testing.T) {
	p, err := NewFactory[int, int](2, FactoryFunc[int, int](func() (*Worker[int, int], error) {
		return NewWorker[int, int](newRecorder(), WithMaxChunks(1))
	}))
	require.NoError(t, err)
	require.Equal(t, 3, cap(p.replace))
	for _, w := range p.workers {
		require.NotNil(t, w.replace)
	}
	require.NoError(t, p.Close())
}

func TestPool_UnknownWorkerStopsWatcher(t *testing.T) {
	p, err := NewFactory[int, int](2, FactoryFunc[int, int](func() (*Worker[int, int], error) {
		return NewWorker[int, int](newRecorder())
	}))
	require.NoError(t, err)
	p.Start()

	p.replace <- 99
	select {
	case <-p.watcherDone:
	case <-time.After(time.Second):
		t.Fatalf("watcher kept running after an unknown id")
	}

	err = p.Close()
	require.ErrorIs(t, err, ErrUnknownWorker)
}

func TestPool_CloseUnblocksImap(t *testing.T) {
	// the only worker fails, so the iteration waits for a chunk that never comes
	rec := newRecorder()
	rec.failOn = 0
	w, err := NewWorker[int, int](rec)
	require.NoError(t, err)
	p, err := New([]*Worker[int, int]{w})
	require.NoError(t, err)
	p.Start()

	seq, err := p.ImapSlice(context.Background(), []int{0, 1, 2}, 1)
	require.NoError(t, err)

	got := make(chan []int, 1)
	go func() { got <- slices.Collect(seq) }()

	<-w.Done()
	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()

	select {
	case vals := <-got:
		require.Empty(t, vals)
	case <-time.After(time.Second):
		t.Fatalf("Imap did not end after Close")
	}
	select {
	case err := <-closed:
		require.ErrorIs(t, err, errTransform)
	case <-time.After(time.Second):
		t.Fatalf("Close did not return")
	}
}

func TestPool_GenerationAdvancesPerImap(t *testing.T) {
	w, err := NewWorker[int, int](newRecorder())
	require.NoError(t, err)
	p, err := New([]*Worker[int, int]{w})
	require.NoError(t, err)
	p.Start()
	defer p.Close()

	for i := range 3 {
		seq, err := p.ImapSlice(context.Background(), []int{1, 2}, 1)
		require.NoError(t, err)
		require.Equal(t, []int{2, 4}, slices.Collect(seq))
		require.EqualValues(t, i+1, p.gen)
	}
}
