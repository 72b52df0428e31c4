// Package mesh builds evenly spaced grids: the simulation time grid and the
// parameter sweeps used to tabulate prices.
package mesh

import (
	"math"

	"github.com/contactkeval/option-mc/internal/errs"
)

// Range is a closed interval [Low, High].
type Range struct {
	Low  float64
	High float64
}

// Spacing returns the width of one of n equal subintervals.
func (r Range) Spacing(n int) float64 {
	return (r.High - r.Low) / float64(n)
}

// Mesh splits the range into n subintervals and returns the n+1 nodes.
//
// Each node is computed as Low + i*h rather than by repeated addition, so the
// rounding error does not accumulate with i, and the last node is pinned to
// High.
func (r Range) Mesh(n int) ([]float64, error) {
	if n < 1 {
		return nil, errs.InvalidArgument("mesh needs at least one subinterval, got %d", n)
	}
	if !(r.High > r.Low) || math.IsInf(r.High-r.Low, 0) {
		return nil, errs.InvalidArgument("mesh range [%v, %v] is empty or unbounded", r.Low, r.High)
	}

	h := r.Spacing(n)
	nodes := make([]float64, n+1)
	for i := range nodes {
		nodes[i] = r.Low + float64(i)*h
	}
	nodes[0] = r.Low
	nodes[n] = r.High
	return nodes, nil
}

// Build returns the time grid start = t_0 < t_1 < ... < t_steps = end.
func Build(start, end float64, steps int) ([]float64, error) {
	return Range{Low: start, High: end}.Mesh(steps)
}

// sweepTolerance absorbs the rounding of (to-from)/step when to is meant to be
// a whole number of steps away from from.
const sweepTolerance = 1e-9

// Sweep returns from, from+step, ... while the node does not pass to. A node
// within rounding of to is returned as to itself. It is used to vary one
// input parameter across a table of runs.
func Sweep(from, to, step float64) ([]float64, error) {
	if !(step > 0) {
		return nil, errs.InvalidArgument("sweep step must be positive, got %v", step)
	}
	if to < from {
		return nil, errs.InvalidArgument("sweep end %v is before start %v", to, from)
	}

	n := int(math.Floor((to-from)/step + sweepTolerance))
	out := make([]float64, n+1)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	if out[n] > to {
		out[n] = to
	}
	return out, nil
}
