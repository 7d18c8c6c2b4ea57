package funcpool

import (
	"context"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ygrebnov/funcpool/metrics"
)

func TestChunked(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want [][]int
	}{
		{name: "empty", n: 0, size: 3, want: nil},
		{name: "remainder", n: 7, size: 3, want: [][]int{{0, 1, 2}, {3, 4, 5}, {6}}},
		{name: "exact", n: 6, size: 3, want: [][]int{{0, 1, 2}, {3, 4, 5}}},
		{name: "size above count", n: 4, size: 20, want: [][]int{{0, 1, 2, 3}}},
		{name: "size one", n: 3, size: 1, want: [][]int{{0}, {1}, {2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][]int
			for c := range chunked(seqN(tt.n), tt.size) {
				got = append(got, c)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestChunked_FreshSlices(t *testing.T) {
	var got [][]int
	for c := range chunked(seqN(4), 2) {
		got = append(got, c)
	}
	got[0][0] = 42
	require.Equal(t, []int{2, 3}, got[1])
}

func TestChunked_StopsEarly(t *testing.T) {
	var pulled int
	src := func(yield func(int) bool) {
		for i := range 100 {
			pulled++
			if !yield(i) {
				return
			}
		}
	}
	for range chunked(src, 5) {
		break
	}
	require.Equal(t, 5, pulled)
}

func TestDispatcher_NumbersChunks(t *testing.T) {
	work := make(chan Chunk[int], 16)
	bp := metrics.NewBasicProvider()
	d := newDispatcher[int](work, seqN(10), 4, 7, nil, newInstruments(bp))

	d.run(context.Background())
	require.Equal(t, 3, <-d.done)
	require.EqualValues(t, 3, bp.Value(metrics.ChunksDispatched))

	close(work)
	var seqs []int
	var items []int
	for c := range work {
		require.EqualValues(t, 7, c.gen)
		seqs = append(seqs, c.Seq)
		items = append(items, c.Items...)
	}
	require.Equal(t, []int{0, 1, 2}, seqs)
	require.Equal(t, slices.Collect(seqN(10)), items)
}

func TestDispatcher_CanceledWhileBlocked(t *testing.T) {
	work := make(chan Chunk[int], 1)
	d := newDispatcher[int](work, seqN(10), 1, 1, nil, noopInstruments())

	ctx, cancel := context.WithCancel(context.Background())
	go d.run(ctx)

	// the first chunk fits in the buffer, the second blocks
	first := <-work
	require.Equal(t, 0, first.Seq)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case sent := <-d.done:
		require.Equal(t, 2, sent)
	case <-time.After(time.Second):
		t.Fatalf("dispatcher did not stop after cancel")
	}
}

func TestDispatcher_Limiter(t *testing.T) {
	work := make(chan Chunk[int], 16)
	limiter := rate.NewLimiter(rate.Limit(50), 1)
	d := newDispatcher[int](work, seqN(5), 1, 1, limiter, noopInstruments())

	start := time.Now()
	d.run(context.Background())
	elapsed := time.Since(start)

	require.Equal(t, 5, <-d.done)
	// four waits of 20ms after the initial burst
	require.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestDispatcher_LimiterCanceled(t *testing.T) {
	work := make(chan Chunk[int], 16)
	limiter := rate.NewLimiter(rate.Limit(0.1), 1)
	d := newDispatcher[int](work, seqN(5), 1, 1, limiter, noopInstruments())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.run(ctx)
	require.Equal(t, 1, <-d.done)
}

func seqN(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range n {
			if !yield(i) {
				return
			}
		}
	}
}
