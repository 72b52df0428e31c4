// Package engine turns a validated config into Monte Carlo estimates: it
// resolves the spot, builds the grid, model and variate streams of every
// planned run and collects one Result per run.
package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/contactkeval/option-mc/internal/config"
	"github.com/contactkeval/option-mc/internal/data"
	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/logger"
	"github.com/contactkeval/option-mc/internal/mesh"
	"github.com/contactkeval/option-mc/internal/metrics"
	"github.com/contactkeval/option-mc/internal/montecarlo"
	"github.com/contactkeval/option-mc/internal/option"
	"github.com/contactkeval/option-mc/internal/pricing"
	"github.com/contactkeval/option-mc/internal/random"
	"github.com/contactkeval/option-mc/internal/sde"
)

// ConfidenceLevel is the level of the interval reported with every estimate.
const ConfidenceLevel = 0.95

// Result is one estimation of the plan.
type Result struct {
	Trial      int         `json:"trial"` // position in the plan, from 0
	OptionType option.Type `json:"option_type"`
	Spot       float64     `json:"spot"`

	montecarlo.Result

	Lower      float64       `json:"ci_lower"`
	Upper      float64       `json:"ci_upper"`
	Benchmark  float64       `json:"benchmark,omitempty"`  // closed-form or configured reference price
	Difference float64       `json:"difference,omitempty"` // Price - Benchmark
	Seed       uint64        `json:"seed"`                 // reruns this trial alone when used as the config seed
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// ProgressFunc receives the finished path count of the run at plan index trial.
type ProgressFunc func(trial, done, total int)

type Engine struct {
	cfg      *config.Config
	prov     data.SpotProvider
	progress ProgressFunc
}

// NewEngine prepares an engine for cfg. prov is only consulted when the
// config names a ticker instead of a spot and may otherwise be nil.
func NewEngine(cfg *config.Config, prov data.SpotProvider) *Engine {
	return &Engine{cfg: cfg, prov: prov}
}

// OnProgress installs a progress callback. It is called from worker
// goroutines.
func (e *Engine) OnProgress(fn ProgressFunc) *Engine {
	e.progress = fn
	return e
}

// Run executes every planned estimation in order. It stops at the first
// failure and returns no partial results.
func (e *Engine) Run(ctx context.Context) ([]Result, error) {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d, err := cfg.OptionData()
	if err != nil {
		return nil, err
	}
	kind, _ := random.ParseKind(cfg.Source)
	scheme, _ := sde.ParseScheme(cfg.Scheme)
	boundary, _ := sde.ParseBoundary(cfg.Boundary)

	spot, err := e.resolveSpot(ctx)
	if err != nil {
		return nil, err
	}

	benchmark := cfg.Benchmark
	if benchmark == 0 && d.Beta() == 1 {
		benchmark = pricing.Price(d, spot)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = random.ClockSeed()
	}

	plan := cfg.Plan()
	logger.Infof("pricing %s K=%.4g T=%.4g S=%.4g beta=%.4g: %d run(s)",
		d.Type, d.Strike, d.Expiry, spot, d.Beta(), len(plan))

	model := sde.NewCEV(d)
	out := make([]Result, 0, len(plan))
	for i, run := range plan {
		grid, err := mesh.Build(0, d.Expiry, run.Steps)
		if err != nil {
			return nil, err
		}
		runSeed := seed + uint64(i)
		sources, err := random.NewFactory(kind, runSeed)
		if err != nil {
			return nil, err
		}

		params := montecarlo.Params{
			Simulator: &sde.Simulator{
				Model:    model,
				Grid:     grid,
				Spot:     spot,
				Scheme:   scheme,
				Boundary: boundary,
			},
			Payoff:   d.Payoff,
			Discount: d.Discount(),
			Paths:    run.Paths,
			Workers:  cfg.Workers,
			Sources:  sources,
		}
		if e.progress != nil {
			trial, total := i, run.Paths
			params.Progress = func(done int) { e.progress(trial, done, total) }
		}

		start := time.Now()
		est, err := montecarlo.Estimate(ctx, params)
		elapsed := time.Since(start)
		if err != nil {
			metrics.ObserveFailure(metrics.OutcomeOf(err), elapsed)
			return nil, errors.WithMessagef(err, "trial %d", i)
		}
		metrics.ObserveSuccess(d.Type.String(), est.Price, est.Paths, est.DegenerateCount, elapsed)

		res := Result{
			Trial:      i,
			OptionType: d.Type,
			Spot:       spot,
			Result:     *est,
			Seed:       runSeed,
			Elapsed:    elapsed,
		}
		res.Lower, res.Upper, _ = est.ConfidenceInterval(ConfidenceLevel)
		if benchmark > 0 {
			res.Benchmark = benchmark
			res.Difference = est.Price - benchmark
		}

		logger.WithFields(logrus.Fields{
			"trial":      i,
			"steps":      est.Steps,
			"paths":      est.Paths,
			"price":      est.Price,
			"std_err":    est.StdErr,
			"degenerate": est.DegenerateCount,
			"elapsed":    elapsed,
		}).Info("estimate done")
		if est.DegenerateCount > 0 {
			logger.Warnf("trial %d: %d steps reached the origin (%v)", i, est.DegenerateCount, errs.ErrDegenerateAbsorption)
		}

		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) resolveSpot(ctx context.Context) (float64, error) {
	if e.cfg.Spot > 0 {
		return e.cfg.Spot, nil
	}
	if e.prov == nil {
		return 0, errs.InvalidArgument("spot is not set and no market data provider is configured for %s", e.cfg.Ticker)
	}
	spot, err := e.prov.Spot(ctx, e.cfg.Ticker)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving spot of %s", e.cfg.Ticker)
	}
	logger.Infof("spot %s = %.4f", e.cfg.Ticker, spot)
	return spot, nil
}
