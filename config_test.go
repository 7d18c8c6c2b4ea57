package funcpool

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ygrebnov/funcpool/metrics"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := defaultConfig()
	require.Zero(t, cfg.WorkBufferSize)
	require.Equal(t, 1.0, cfg.WorkBufferFactor)
	require.Zero(t, cfg.ResultsBufferSize)
	require.Equal(t, 1.0, cfg.ResultsBufferFactor)
	require.Zero(t, cfg.DispatchLimit)
	require.Equal(t, 1, cfg.DispatchBurst)
	require.NotNil(t, cfg.Logger)
	require.IsType(t, metrics.NoopProvider{}, cfg.Metrics)
	require.Nil(t, cfg.limiter())
	require.NoError(t, validateConfig(&cfg, 1))
}

func TestConfig_Capacities(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		workers     int
		wantWork    int
		wantResults int
	}{
		{name: "defaults follow worker count", workers: 4, wantWork: 4, wantResults: 4},
		{
			name:     "factors",
			opts:     []Option{WithWorkBufferFactor(2.5), WithResultsBufferFactor(0.5)},
			workers:  4,
			wantWork: 10, wantResults: 2,
		},
		{
			name:     "explicit sizes win",
			opts:     []Option{WithWorkBuffer(7), WithResultsBuffer(3)},
			workers:  100,
			wantWork: 7, wantResults: 3,
		},
		{
			name:     "later factor clears size",
			opts:     []Option{WithWorkBuffer(7), WithWorkBufferFactor(3)},
			workers:  2,
			wantWork: 6, wantResults: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			for _, opt := range tt.opts {
				require.NoError(t, opt(&cfg))
			}
			require.NoError(t, validateConfig(&cfg, tt.workers))
			require.Equal(t, tt.wantWork, cfg.workCapacity(tt.workers))
			require.Equal(t, tt.wantResults, cfg.resultsCapacity(tt.workers))
		})
	}
}

func TestValidateConfig_ZeroCapacity(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, WithWorkBufferFactor(0.3)(&cfg))
	require.ErrorIs(t, validateConfig(&cfg, 3), ErrInvalidConfig)
	require.NoError(t, validateConfig(&cfg, 4))

	cfg = defaultConfig()
	require.NoError(t, WithResultsBufferFactor(0.2)(&cfg))
	require.ErrorIs(t, validateConfig(&cfg, 2), ErrInvalidConfig)
}

func TestOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "work buffer", opt: WithWorkBuffer(-1)},
		{name: "work factor", opt: WithWorkBufferFactor(0)},
		{name: "results buffer", opt: WithResultsBuffer(0)},
		{name: "results factor", opt: WithResultsBufferFactor(-0.5)},
		{name: "dispatch limit", opt: WithDispatchLimit(-1, 1)},
		{name: "dispatch burst", opt: WithDispatchLimit(1, -1)},
		{name: "logger", opt: WithLogger(nil)},
		{name: "metrics", opt: WithMetrics(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			before := cfg
			require.ErrorIs(t, tt.opt(&cfg), ErrInvalidConfig)
			require.Equal(t, before, cfg)
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	bp := metrics.NewBasicProvider()

	cfg := defaultConfig()
	for _, opt := range []Option{
		WithDispatchLimit(rate.Limit(20), 4),
		WithLogger(logger),
		WithMetrics(bp),
	} {
		require.NoError(t, opt(&cfg))
	}

	require.Same(t, logger, cfg.Logger)
	require.Same(t, bp, cfg.Metrics)
	lim := cfg.limiter()
	require.NotNil(t, lim)
	require.Equal(t, rate.Limit(20), lim.Limit())
	require.Equal(t, 4, lim.Burst())
}
