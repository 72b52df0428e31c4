package sde

import (
	"math"
	"strings"

	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/random"
)

// Scheme is the explicit discretization used per grid interval.
type Scheme string

const (
	SchemeEuler    Scheme = "euler"    // Euler-Maruyama
	SchemeMilstein Scheme = "milstein" // Euler plus the 0.5*b*b'*(dW^2 - dt) correction
)

func ParseScheme(s string) (Scheme, error) {
	switch v := Scheme(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return SchemeEuler, nil
	case SchemeEuler, SchemeMilstein:
		return v, nil
	}
	return "", errs.InvalidArgument("unknown scheme %q", s)
}

// Boundary decides what happens once a path reaches the origin.
type Boundary string

const (
	// BoundaryPermissive counts the event and keeps evolving the path from the
	// non-positive level.
	BoundaryPermissive Boundary = "permissive"

	// BoundaryAbsorb counts the event, pins the level at zero and stops the path.
	BoundaryAbsorb Boundary = "absorb"
)

func ParseBoundary(s string) (Boundary, error) {
	switch v := Boundary(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return BoundaryPermissive, nil
	case BoundaryPermissive, BoundaryAbsorb:
		return v, nil
	}
	return "", errs.InvalidArgument("unknown boundary policy %q", s)
}

// PathResult is what one simulated path leaves behind.
type PathResult struct {
	Terminal        float64 // level at the last grid point
	DegenerateSteps int     // steps that ended at or below zero
}

// Degenerate reports whether the path touched the origin at all.
func (p PathResult) Degenerate() bool { return p.DegenerateSteps > 0 }

// Simulator advances single paths of a model across a fixed time grid.
// It holds no per-path state; one Simulator may serve many goroutines as long
// as each brings its own NormalSource.
type Simulator struct {
	Model    Model
	Grid     []float64
	Spot     float64
	Scheme   Scheme
	Boundary Boundary
}

// Validate checks the simulator before any path is run.
func (s *Simulator) Validate() error {
	if s.Model == nil {
		return errs.InvalidArgument("simulator has no model")
	}
	if len(s.Grid) < 2 {
		return errs.InvalidArgument("time grid needs at least two points, got %d", len(s.Grid))
	}
	if math.IsNaN(s.Spot) || math.IsInf(s.Spot, 0) {
		return errs.InvalidArgument("spot must be finite, got %v", s.Spot)
	}
	switch s.Scheme {
	case "", SchemeEuler:
	case SchemeMilstein:
		if _, ok := s.Model.(SlopedModel); !ok {
			return errs.InvalidArgument("milstein scheme needs a model with a diffusion slope")
		}
	default:
		return errs.InvalidArgument("unknown scheme %q", string(s.Scheme))
	}
	switch s.Boundary {
	case "", BoundaryPermissive, BoundaryAbsorb:
	default:
		return errs.InvalidArgument("unknown boundary policy %q", string(s.Boundary))
	}
	return nil
}

// Steps is the number of grid intervals, i.e. variates drawn per full path.
func (s *Simulator) Steps() int { return len(s.Grid) - 1 }

// Path simulates one path from Spot at Grid[0] to Grid[len-1].
//
// Drift and diffusion are evaluated at the start of every interval and one
// variate is drawn per interval. Under BoundaryAbsorb the path stops drawing
// once it is absorbed.
func (s *Simulator) Path(src random.NormalSource) PathResult {
	var (
		res    PathResult
		x      = s.Spot
		sloped SlopedModel
	)
	if s.Scheme == SchemeMilstein {
		sloped = s.Model.(SlopedModel)
	}

	for i := 1; i < len(s.Grid); i++ {
		t := s.Grid[i-1]
		k := s.Grid[i] - t
		sqrk := math.Sqrt(k)
		z := src.Next()

		b := s.Model.Diffusion(t, x)
		next := x + k*s.Model.Drift(t, x) + sqrk*b*z
		if sloped != nil {
			next += 0.5 * b * sloped.DiffusionSlope(t, x) * k * (z*z - 1)
		}
		x = next

		if x <= 0 {
			res.DegenerateSteps++
			if s.Boundary == BoundaryAbsorb {
				x = 0
				break
			}
		}
	}

	res.Terminal = x
	return res
}
