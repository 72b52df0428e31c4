// Package option defines the option contract data shared by the simulation
// core and the closed-form pricers.
package option

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"

	"github.com/contactkeval/option-mc/internal/errs"
)

// Type is the option right.
type Type int

const (
	Put  Type = -1 // Put pays max(K-X, 0)
	Call Type = 1  // Call pays max(X-K, 0)
)

// ParseType accepts "call", "c", "+1", "1" for calls and "put", "p", "-1" for puts.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "+1", "1":
		return Call, nil
	case "put", "p", "-1":
		return Put, nil
	}
	return 0, errs.InvalidArgument("unknown option type %q", s)
}

func (t Type) String() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// allow the numeric +1/-1 flag of the original data layout
		var n int
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return err
		}
		s = fmt.Sprint(n)
	}
	v, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalText lets text encoders such as YAML round-trip the type.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Data holds the contract and market parameters of one pricing run.
// It is a value object: copy it, do not share pointers to it across runs.
type Data struct {
	Expiry      float64  `json:"expiry"`                  // T, years
	Strike      float64  `json:"strike"`                  // K
	Volatility  float64  `json:"volatility"`              // sigma
	Rate        float64  `json:"rate"`                    // r
	CostOfCarry *float64 `json:"cost_of_carry,omitempty"` // b, defaults to r
	Elasticity  float64  `json:"elasticity"`              // CEV beta, defaults to 1
	Type        Type     `json:"type"`
}

// Carry returns the cost of carry b, falling back to the risk-free rate
// (the Black-Scholes stock option case).
func (d Data) Carry() float64 {
	if d.CostOfCarry != nil {
		return *d.CostOfCarry
	}
	return d.Rate
}

// Beta returns the CEV elasticity, 1 (lognormal) when unset.
func (d Data) Beta() float64 {
	if d.Elasticity == 0 {
		return 1
	}
	return d.Elasticity
}

// Discount returns exp(-rT).
func (d Data) Discount() float64 {
	return math.Exp(-d.Rate * d.Expiry)
}

// Payoff evaluates the undiscounted terminal payoff at level x.
func (d Data) Payoff(x float64) float64 {
	if d.Type == Put {
		return math.Max(d.Strike-x, 0)
	}
	return math.Max(x-d.Strike, 0)
}

// Validate reports every violated precondition at once.
func (d Data) Validate() error {
	var err error
	if !(d.Expiry > 0) {
		err = multierr.Append(err, errs.InvalidArgument("expiry must be positive, got %v", d.Expiry))
	}
	if !(d.Strike > 0) {
		err = multierr.Append(err, errs.InvalidArgument("strike must be positive, got %v", d.Strike))
	}
	if !(d.Volatility >= 0) {
		err = multierr.Append(err, errs.InvalidArgument("volatility must not be negative, got %v", d.Volatility))
	}
	if d.Elasticity < 0 || math.IsNaN(d.Elasticity) {
		err = multierr.Append(err, errs.InvalidArgument("elasticity must be positive, got %v", d.Elasticity))
	}
	if math.IsNaN(d.Rate) || math.IsInf(d.Rate, 0) {
		err = multierr.Append(err, errs.InvalidArgument("rate must be finite, got %v", d.Rate))
	}
	if d.Type != Call && d.Type != Put {
		err = multierr.Append(err, errs.InvalidArgument("unknown option type %d", int(d.Type)))
	}
	return err
}
