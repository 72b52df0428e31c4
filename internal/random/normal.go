// Package random provides standard-normal variate sources for the path simulator.
//
// Every source owns a private PRNG stream, so a source must not be shared
// between goroutines. Use a Factory to hand each worker its own stream.
package random

import (
	"math"
	"strings"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-mc/internal/errs"
	"github.com/contactkeval/option-mc/internal/pricing"
)

// NormalSource draws independent N(0,1) variates.
type NormalSource interface {
	Next() float64
}

// Kind selects a NormalSource implementation.
type Kind string

const (
	KindGonum      Kind = "gonum"       // gonum distuv.Normal sampler
	KindBoxMuller  Kind = "box-muller"  // basic Box-Muller transform
	KindInverseCDF Kind = "inverse-cdf" // uniform through the normal quantile
)

// ParseKind maps a config string to a Kind. The empty string selects KindGonum.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindGonum, nil
	case KindGonum, KindBoxMuller, KindInverseCDF:
		return k, nil
	}
	return "", errs.InvalidArgument("unknown normal source %q", s)
}

// Gonum samples through gonum's distuv.Normal.
type Gonum struct {
	dist distuv.Normal
}

func NewGonum(seed uint64) *Gonum {
	return &Gonum{dist: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}}
}

func (g *Gonum) Next() float64 { return g.dist.Rand() }

// BoxMuller turns pairs of uniforms into pairs of normals and hands them out
// one at a time.
type BoxMuller struct {
	rnd     *rand.Rand
	spare   float64
	hasNext bool
}

func NewBoxMuller(seed uint64) *BoxMuller {
	return &BoxMuller{rnd: rand.New(rand.NewSource(seed))}
}

func (b *BoxMuller) Next() float64 {
	if b.hasNext {
		b.hasNext = false
		return b.spare
	}

	u1 := openUniform(b.rnd)
	u2 := b.rnd.Float64()
	radius := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2

	b.spare = radius * math.Sin(theta)
	b.hasNext = true
	return radius * math.Cos(theta)
}

// InverseCDF maps a uniform draw through the normal quantile function.
type InverseCDF struct {
	rnd *rand.Rand
}

func NewInverseCDF(seed uint64) *InverseCDF {
	return &InverseCDF{rnd: rand.New(rand.NewSource(seed))}
}

func (s *InverseCDF) Next() float64 {
	return pricing.MustNormInv(openUniform(s.rnd))
}

// openUniform draws from (0, 1), rejecting the zero that Float64 may return.
func openUniform(rnd *rand.Rand) float64 {
	for {
		if u := rnd.Float64(); u > 0 {
			return u
		}
	}
}

// New builds a source of the given kind. A zero seed is replaced by a
// clock-derived one, giving a fresh stream per process.
func New(kind Kind, seed uint64) (NormalSource, error) {
	if seed == 0 {
		seed = ClockSeed()
	}
	switch kind {
	case KindGonum, "":
		return NewGonum(seed), nil
	case KindBoxMuller:
		return NewBoxMuller(seed), nil
	case KindInverseCDF:
		return NewInverseCDF(seed), nil
	}
	return nil, errs.InvalidArgument("unknown normal source %q", string(kind))
}

// ClockSeed returns a non-zero seed taken from the wall clock.
func ClockSeed() uint64 {
	if s := uint64(time.Now().UnixNano()); s != 0 {
		return s
	}
	return 1
}
