package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-mc/internal/config"
	"github.com/contactkeval/option-mc/internal/data"
	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/option"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Steps = 50
	cfg.Paths = 20000
	cfg.Seed = 1234
	cfg.Workers = 2
	return cfg
}

func TestRunDefaultPut(t *testing.T) {
	res, err := NewEngine(smallConfig(), nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 1)

	r := res[0]
	assert.Equal(t, option.Put, r.OptionType)
	assert.Equal(t, 60.0, r.Spot)
	assert.Equal(t, uint64(1234), r.Seed)
	assert.InDelta(t, 5.846282, r.Benchmark, 1e-6)
	assert.InDelta(t, r.Price-r.Benchmark, r.Difference, 1e-12)
	assert.InDelta(t, 5.846282, r.Price, 4*r.StdErr+0.03)
	assert.Less(t, r.Lower, r.Price)
	assert.Greater(t, r.Upper, r.Price)
	assert.Equal(t, 50, r.Steps)
	assert.Equal(t, 20000, r.Paths)
}

func TestRunIsReproducible(t *testing.T) {
	a, err := NewEngine(smallConfig(), nil).Run(context.Background())
	require.NoError(t, err)
	b, err := NewEngine(smallConfig(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a[0].Price, b[0].Price)
	assert.Equal(t, a[0].StdDev, b[0].StdDev)
}

func TestRunTrialsAndRuns(t *testing.T) {
	cfg := smallConfig()
	cfg.Trials = 2
	cfg.Runs = []config.Run{{Steps: 5, Paths: 500}, {Steps: 10, Paths: 1000}}

	var mu sync.Mutex
	last := map[int]int{}
	res, err := NewEngine(cfg, nil).OnProgress(func(trial, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if done > last[trial] {
			last[trial] = done
		}
	}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 4)

	for i, r := range res {
		assert.Equal(t, i, r.Trial)
		assert.Equal(t, uint64(1234+i), r.Seed)
		assert.Equal(t, cfg.Runs[i%2].Steps, r.Steps)
		assert.Equal(t, cfg.Runs[i%2].Paths, r.Paths)
		assert.Equal(t, r.Paths, last[i])
	}
	// same discretization, different seed
	assert.NotEqual(t, res[0].Price, res[2].Price)
}

func TestRunResolvesTicker(t *testing.T) {
	cfg := smallConfig()
	cfg.Spot = 0
	cfg.Ticker = "XYZ"

	res, err := NewEngine(cfg, data.NewStaticProvider(map[string]float64{"XYZ": 60})).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60.0, res[0].Spot)

	_, err = NewEngine(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = NewEngine(cfg, data.NewStaticProvider(nil)).Run(context.Background())
	assert.ErrorIs(t, err, data.ErrUnknownTicker)
}

func TestRunCostOfCarry(t *testing.T) {
	b := 0.0
	cfg := smallConfig()
	cfg.Option = config.OptionSpec{Type: "call", Strike: 100, Expiry: 0.5, Rate: 0.1, Volatility: 0.36, CostOfCarry: &b}
	cfg.Spot = 105

	res, err := NewEngine(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.432845, res[0].Benchmark, 1e-6)
	assert.InDelta(t, 12.432845, res[0].Price, 4*res[0].StdErr+0.03)
}

func TestRunCEVHasNoClosedFormBenchmark(t *testing.T) {
	cfg := smallConfig()
	cfg.Option.Elasticity = 0.5
	cfg.Option.Volatility = 0.3 * 7.75 // roughly the lognormal vol at S=60
	cfg.Paths = 2000

	res, err := NewEngine(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res[0].Benchmark)
	assert.Zero(t, res[0].Difference)
	assert.Greater(t, res[0].Price, 0.0)

	cfg.Benchmark = 5.5
	res, err = NewEngine(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.5, res[0].Benchmark)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Paths = 1
	_, err := NewEngine(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewEngine(smallConfig(), nil).Run(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}
