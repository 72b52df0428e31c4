package sde

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/mesh"
	"github.com/contactkeval/option-mc/internal/option"
	"github.com/contactkeval/option-mc/internal/random"
)

func TestCEVTerms(t *testing.T) {
	gbm := NewCEV(option.Data{Rate: 0.08, Volatility: 0.3})
	assert.Equal(t, 1.0, gbm.Beta)
	assert.InDelta(t, 4.8, gbm.Drift(0, 60), 1e-12)
	assert.InDelta(t, 18.0, gbm.Diffusion(0, 60), 1e-12)
	assert.InDelta(t, 9.0, gbm.DiffusionDerivative(0, 60), 1e-12)
	assert.InDelta(t, 0.3, gbm.DiffusionSlope(0, 60), 1e-12)
	assert.Equal(t, 0.0, gbm.Diffusion(0, 0))
	assert.InDelta(t, -3.0, gbm.Diffusion(0, -10), 1e-12)

	sqrt := CEV{Rate: 0.05, Volatility: 2, Beta: 0.5}
	assert.InDelta(t, 20.0, sqrt.Diffusion(0, 100), 1e-12)
	assert.Equal(t, 0.0, sqrt.Diffusion(0, 0))
	assert.Equal(t, 0.0, sqrt.Diffusion(0, -4))
	assert.Equal(t, 0.0, sqrt.DiffusionSlope(0, 0))
	assert.InDelta(t, 0.5, sqrt.DiffusionDerivative(0, 100), 1e-12)
	assert.InDelta(t, 0.1, sqrt.DiffusionSlope(0, 100), 1e-12)
}

func TestEulerStepByHand(t *testing.T) {
	grid, err := mesh.Build(0, 1, 2)
	require.NoError(t, err)

	s := &Simulator{Model: CEV{Rate: 0.1, Volatility: 0.2, Beta: 1}, Grid: grid, Spot: 100}
	require.NoError(t, s.Validate())

	res := s.Path(random.NewFixed(1, -1))

	k, sqrk := 0.5, math.Sqrt(0.5)
	x1 := 100 + k*0.1*100 + sqrk*0.2*100*1
	x2 := x1 + k*0.1*x1 + sqrk*0.2*x1*-1
	assert.InDelta(t, x2, res.Terminal, 1e-9)
	assert.False(t, res.Degenerate())
}

func TestZeroVolatilityIsDeterministic(t *testing.T) {
	const steps = 250
	grid, err := mesh.Build(0, 2, steps)
	require.NoError(t, err)

	s := &Simulator{Model: CEV{Rate: 0.05, Volatility: 0, Beta: 1}, Grid: grid, Spot: 50}
	src := random.NewFixed(3.1, -2.7, 0.4)
	res := s.Path(src)

	expected := 50 * math.Pow(1+0.05*2.0/steps, steps)
	assert.InDelta(t, expected, res.Terminal, 1e-9)
	assert.Equal(t, steps, src.Drawn())
}

func TestDegenerateCounting(t *testing.T) {
	grid, err := mesh.Build(0, 1, 4)
	require.NoError(t, err)
	model := CEV{Rate: 0, Volatility: 1, Beta: 1}

	// z = -3 with sqrt(k) = 0.5 and sigma = 1 multiplies the level by -0.5
	// each step: 10 -> -5 -> 2.5 -> -1.25 -> 0.625
	permissive := &Simulator{Model: model, Grid: grid, Spot: 10, Boundary: BoundaryPermissive}
	res := permissive.Path(random.NewFixed(-3))
	assert.Equal(t, 2, res.DegenerateSteps)
	assert.InDelta(t, 0.625, res.Terminal, 1e-12)

	src := random.NewFixed(-3)
	absorb := &Simulator{Model: model, Grid: grid, Spot: 10, Boundary: BoundaryAbsorb}
	res = absorb.Path(src)
	assert.Equal(t, 1, res.DegenerateSteps)
	assert.Equal(t, 0.0, res.Terminal)
	assert.Equal(t, 1, src.Drawn())
}

// recorder keeps the variates it hands out so tests can rebuild the
// Brownian path the simulator saw.
type recorder struct {
	src   random.NormalSource
	draws []float64
}

func (r *recorder) Next() float64 {
	z := r.src.Next()
	r.draws = append(r.draws, z)
	return z
}

func TestMilsteinStrongErrorBeatsEuler(t *testing.T) {
	const (
		steps = 32
		paths = 2000
		T     = 1.0
		r     = 0.05
		sigma = 0.4
		spot  = 100.0
	)
	grid, err := mesh.Build(0, T, steps)
	require.NoError(t, err)
	model := CEV{Rate: r, Volatility: sigma, Beta: 1}

	euler := &Simulator{Model: model, Grid: grid, Spot: spot, Scheme: SchemeEuler}
	milstein := &Simulator{Model: model, Grid: grid, Spot: spot, Scheme: SchemeMilstein}
	require.NoError(t, milstein.Validate())

	src, err := random.New(random.KindGonum, 2024)
	require.NoError(t, err)

	var eulerErr, milsteinErr float64
	for p := 0; p < paths; p++ {
		rec := &recorder{src: src}
		e := euler.Path(rec)
		m := milstein.Path(random.NewFixed(rec.draws...))

		var w float64
		for i, z := range rec.draws {
			w += math.Sqrt(grid[i+1]-grid[i]) * z
		}
		exact := spot * math.Exp((r-0.5*sigma*sigma)*T+sigma*w)

		eulerErr += math.Abs(e.Terminal - exact)
		milsteinErr += math.Abs(m.Terminal - exact)
	}

	assert.Less(t, milsteinErr, eulerErr/2)
}

func TestSimulatorValidate(t *testing.T) {
	grid, err := mesh.Build(0, 1, 10)
	require.NoError(t, err)

	tests := []struct {
		name string
		sim  Simulator
	}{
		{"no model", Simulator{Grid: grid, Spot: 1}},
		{"short grid", Simulator{Model: CEV{}, Grid: grid[:1], Spot: 1}},
		{"nan spot", Simulator{Model: CEV{}, Grid: grid, Spot: math.NaN()}},
		{"bad scheme", Simulator{Model: CEV{}, Grid: grid, Spot: 1, Scheme: "runge-kutta"}},
		{"bad boundary", Simulator{Model: CEV{}, Grid: grid, Spot: 1, Boundary: "reflect"}},
		{"milstein without slope", Simulator{Model: flat{}, Grid: grid, Spot: 1, Scheme: SchemeMilstein}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.sim.Validate(), errs.ErrInvalidArgument)
		})
	}
}

type flat struct{}

func (flat) Drift(_, _ float64) float64     { return 0 }
func (flat) Diffusion(_, _ float64) float64 { return 1 }

func TestParseSchemeAndBoundary(t *testing.T) {
	s, err := ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, SchemeEuler, s)
	s, err = ParseScheme("Milstein")
	require.NoError(t, err)
	assert.Equal(t, SchemeMilstein, s)
	_, err = ParseScheme("implicit")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	b, err := ParseBoundary("")
	require.NoError(t, err)
	assert.Equal(t, BoundaryPermissive, b)
	b, err = ParseBoundary("ABSORB")
	require.NoError(t, err)
	assert.Equal(t, BoundaryAbsorb, b)
	_, err = ParseBoundary("reflect")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
