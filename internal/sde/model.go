// Package sde defines the one-factor process model
//
//	dX = drift(t, X) dt + diffusion(t, X) dW
//
// and the explicit schemes that advance a path of it across a time grid.
package sde

import (
	"math"

	"github.com/contactkeval/option-mc/internal/option"
)

// Model is the drift/diffusion pair of an SDE.
type Model interface {
	Drift(t, x float64) float64
	Diffusion(t, x float64) float64
}

// SlopedModel also knows the spatial derivative of its diffusion, which the
// Milstein correction needs.
type SlopedModel interface {
	Model
	DiffusionSlope(t, x float64) float64
}

// CEV is the constant elasticity of variance model under the risk-neutral
// measure: drift r*X, diffusion sigma*X^beta. Beta = 1 is geometric Brownian
// motion. Rate is the drift rate; NewCEV fills it with the cost of carry,
// which is the risk-free rate unless the option data says otherwise.
//
// A CEV value is a snapshot of the option data it was built from and is safe
// for concurrent use.
type CEV struct {
	Rate       float64
	Volatility float64
	Beta       float64
}

func NewCEV(d option.Data) CEV {
	return CEV{Rate: d.Carry(), Volatility: d.Volatility, Beta: d.Beta()}
}

func (m CEV) Drift(_, x float64) float64 {
	return m.Rate * x
}

func (m CEV) Diffusion(_, x float64) float64 {
	return m.Volatility * pow(x, m.Beta)
}

// DiffusionDerivative is 0.5*sigma*beta*X^(2*beta-1).
func (m CEV) DiffusionDerivative(_, x float64) float64 {
	return 0.5 * m.Volatility * m.Beta * pow(x, 2*m.Beta-1)
}

// DiffusionSlope is d/dX of the diffusion, sigma*beta*X^(beta-1).
func (m CEV) DiffusionSlope(_, x float64) float64 {
	return m.Volatility * m.Beta * pow(x, m.Beta-1)
}

// pow is x^p with the origin and negative levels mapped to a real value:
// 0^p is 0 for p != 0 (1 for p == 0), and a negative base with a non-integer
// exponent has no real power, so it contributes nothing.
func pow(x, p float64) float64 {
	switch {
	case x > 0:
		return math.Pow(x, p)
	case x == 0:
		if p == 0 {
			return 1
		}
		return 0
	}
	if p != math.Trunc(p) {
		return 0
	}
	return math.Pow(x, p)
}
