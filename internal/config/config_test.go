package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/option"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default().Option, cfg.Option)
	assert.Equal(t, 60.0, cfg.Spot)
	assert.Equal(t, 100, cfg.Steps)
	assert.Equal(t, 50000, cfg.Paths)

	d, err := cfg.OptionData()
	require.NoError(t, err)
	assert.Equal(t, option.Put, d.Type)
	assert.Nil(t, d.CostOfCarry)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
option:
  type: call
  strike: 100
  expiry: 0.5
  rate: 0.1
  volatility: 0.36
  cost_of_carry: 0
spot: 105
steps: 200
trials: 2
runs:
  - {steps: 10, paths: 1000}
  - {steps: 20, paths: 4000}
scheme: milstein
`), 0o644))

	t.Setenv("OPTION_MC_SEED", "42")
	t.Setenv("OPTION_MC_OPTION_ELASTICITY", "0.5")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "call", cfg.Option.Type)
	assert.Equal(t, 105.0, cfg.Spot)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 0.5, cfg.Option.Elasticity)
	assert.Equal(t, "milstein", cfg.Scheme)
	require.NotNil(t, cfg.Option.CostOfCarry)
	assert.Equal(t, 0.0, *cfg.Option.CostOfCarry)

	assert.Equal(t, []Run{
		{Steps: 10, Paths: 1000}, {Steps: 20, Paths: 4000},
		{Steps: 10, Paths: 1000}, {Steps: 20, Paths: 4000},
	}, cfg.Plan())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPlanWithoutRuns(t *testing.T) {
	cfg := Default()
	cfg.Trials = 3
	assert.Equal(t, []Run{{100, 50000}, {100, 50000}, {100, 50000}}, cfg.Plan())

	cfg.Trials = 0
	assert.Len(t, cfg.Plan(), 1)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Option.Strike = 0
	cfg.Spot = 0
	cfg.Paths = 1
	cfg.Steps = 0
	cfg.Source = "sobol"
	cfg.Scheme = "heun"
	cfg.Boundary = "reflect"
	cfg.Workers = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.Len(t, multierr.Errors(err), 8)
}

func TestValidateTickerWithoutSpot(t *testing.T) {
	cfg := Default()
	cfg.Spot = 0
	cfg.Ticker = "AAPL"
	assert.NoError(t, cfg.Validate())

	cfg.Option.Type = "straddle"
	assert.ErrorIs(t, cfg.Validate(), errs.ErrInvalidArgument)
}
