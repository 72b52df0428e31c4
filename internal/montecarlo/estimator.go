// Package montecarlo estimates discounted option prices by averaging payoffs
// over independently simulated paths.
package montecarlo

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/logger"
	"github.com/contactkeval/option-mc/internal/random"
	"github.com/contactkeval/option-mc/internal/sde"
)

// DefaultCheckEvery is how many paths a worker simulates between two
// cancellation checks.
const DefaultCheckEvery = 1024

// Params configures one estimation run.
type Params struct {
	Simulator *sde.Simulator
	Payoff    func(terminal float64) float64
	Discount  float64 // exp(-rT)
	Paths     int

	// Workers is the number of goroutines; 0 means GOMAXPROCS. It is capped at
	// Paths. Results are reproducible for a fixed (Sources seed, Workers, Paths).
	Workers int

	// Sources gives worker i its private stream Sources(i).
	Sources random.Factory

	// CheckEvery is the cancellation and progress granularity in paths.
	CheckEvery int

	// Progress, when set, receives the running total of finished paths. It is
	// called from worker goroutines and must be safe for concurrent use.
	Progress func(done int)
}

// Result is the finalized estimate of one run.
type Result struct {
	Price           float64 `json:"price"`
	StdDev          float64 `json:"std_dev"`
	StdErr          float64 `json:"std_err"`
	DegenerateCount int     `json:"degenerate_count"` // steps that ended at or below zero
	DegeneratePaths int     `json:"degenerate_paths"` // paths with at least one such step
	Paths           int     `json:"paths"`
	Steps           int     `json:"steps"`
	Workers         int     `json:"workers"`
}

// ConfidenceInterval returns the two-sided normal confidence interval of the
// price at the given level, e.g. 0.95.
func (r *Result) ConfidenceInterval(level float64) (lo, hi float64, err error) {
	if !(level > 0 && level < 1) {
		return 0, 0, errs.InvalidArgument("confidence level must be in (0,1), got %v", level)
	}
	z := distuv.UnitNormal.Quantile(0.5 + level/2)
	return r.Price - z*r.StdErr, r.Price + z*r.StdErr, nil
}

func (p *Params) validate() error {
	if p.Simulator == nil {
		return errs.InvalidArgument("no path simulator")
	}
	if err := p.Simulator.Validate(); err != nil {
		return err
	}
	if p.Payoff == nil {
		return errs.InvalidArgument("no payoff")
	}
	if p.Sources == nil {
		return errs.InvalidArgument("no normal source factory")
	}
	if p.Paths < 2 {
		return errs.InvalidArgument("need at least 2 paths for a sample standard deviation, got %d", p.Paths)
	}
	if p.Workers < 0 {
		return errs.InvalidArgument("workers must not be negative, got %d", p.Workers)
	}
	if !(p.Discount > 0) || math.IsInf(p.Discount, 0) {
		return errs.InvalidArgument("discount factor must be positive and finite, got %v", p.Discount)
	}
	return nil
}

// Estimate simulates p.Paths paths, averages the payoffs and discounts them.
//
// Paths are split into contiguous blocks, one per worker; each worker owns its
// normal stream and accumulator, and the partial accumulators are merged in
// worker order, so the floating-point result does not depend on scheduling.
//
// A non-finite terminal level or payoff aborts the run with ErrNumericOverflow.
// Cancelling ctx aborts it with the context error; no partial result is returned.
func Estimate(ctx context.Context, p Params) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	workers := p.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > p.Paths {
		workers = p.Paths
	}
	checkEvery := p.CheckEvery
	if checkEvery <= 0 {
		checkEvery = DefaultCheckEvery
	}

	logger.Debugf("estimating %d paths x %d steps on %d workers", p.Paths, p.Simulator.Steps(), workers)

	partials := make([]accumulator, workers)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	base, rem := p.Paths/workers, p.Paths%workers
	first := 0
	for w := 0; w < workers; w++ {
		n := base
		if w < rem {
			n++
		}
		offset := first
		first += n
		w := w

		g.Go(func() error {
			acc := &partials[w]
			src := p.Sources(w)
			since := 0
			for i := 0; i < n; i++ {
				if i%checkEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}

				path := p.Simulator.Path(src)
				if !isFinite(path.Terminal) {
					return errs.NumericOverflow("path %d terminal level %v", offset+i, path.Terminal)
				}
				payoff := p.Payoff(path.Terminal)
				if !isFinite(payoff) {
					return errs.NumericOverflow("path %d payoff %v at terminal level %v", offset+i, payoff, path.Terminal)
				}
				acc.add(payoff, path.DegenerateSteps)

				since++
				if since == checkEvery {
					report(p.Progress, &done, since)
					since = 0
				}
			}
			report(p.Progress, &done, since)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, errors.Wrap(err, "monte carlo run cancelled")
		}
		return nil, err
	}

	var total accumulator
	for i := range partials {
		total.merge(&partials[i])
	}

	res, err := finalize(&total, p.Discount)
	if err != nil {
		return nil, err
	}
	res.Steps = p.Simulator.Steps()
	res.Workers = workers

	logger.Debugf("estimate price=%.6f sd=%.6f se=%.6f degenerate=%d",
		res.Price, res.StdDev, res.StdErr, res.DegenerateCount)
	return res, nil
}

// finalize turns the merged sums into the price and its precision:
//
//	price = D * sum/N
//	SD    = sqrt( (sumSq - sum^2/N) / (N-1) * D^2 )
//	SE    = SD / sqrt(N)
//
// where D = exp(-rT).
func finalize(acc *accumulator, discount float64) (*Result, error) {
	n := float64(acc.paths)
	sum := acc.payoff.Value()
	sumSq := acc.payoffSquared.Value()
	if !isFinite(sum) || !isFinite(sumSq) {
		return nil, errs.NumericOverflow("payoff sums overflowed: sum=%v sumSq=%v", sum, sumSq)
	}

	mean := sum / n
	variance := (sumSq - mean*sum) / (n - 1)
	if variance < 0 {
		// cancellation residue when every payoff is (nearly) identical
		variance = 0
	}

	sd := math.Sqrt(variance * discount * discount)
	res := &Result{
		Price:           discount * mean,
		StdDev:          sd,
		StdErr:          stat.StdErr(sd, n),
		DegenerateCount: acc.degenerateSteps,
		DegeneratePaths: acc.degeneratePaths,
		Paths:           acc.paths,
	}
	if !isFinite(res.Price) || !isFinite(res.StdDev) {
		return nil, errs.NumericOverflow("estimate is not finite: price=%v sd=%v", res.Price, res.StdDev)
	}
	return res, nil
}

func report(progress func(int), done *atomic.Int64, n int) {
	if n == 0 {
		return
	}
	total := done.Add(int64(n))
	if progress != nil {
		progress(int(total))
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
