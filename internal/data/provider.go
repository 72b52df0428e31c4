// Package data resolves the spot level of an underlying when a pricing run
// names a ticker instead of an explicit spot.
package data

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/contactkeval/option-mc/internal/logger"
)

// ErrUnknownTicker is returned by providers that have no quote for a ticker.
var ErrUnknownTicker = errors.New("unknown ticker")

// SpotProvider supplies the current spot level of an underlying.
type SpotProvider interface {
	Spot(ctx context.Context, ticker string) (float64, error)
}

// staticProvider serves spots from a fixed table, e.g. the config file.
type staticProvider struct {
	spots map[string]float64
}

// NewStaticProvider returns a provider over a fixed ticker → spot table.
// Tickers are matched case-insensitively.
func NewStaticProvider(spots map[string]float64) SpotProvider {
	m := make(map[string]float64, len(spots))
	for k, v := range spots {
		m[strings.ToUpper(k)] = v
	}
	return &staticProvider{spots: m}
}

func (p *staticProvider) Spot(_ context.Context, ticker string) (float64, error) {
	v, ok := p.spots[strings.ToUpper(ticker)]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTicker, "no static spot for %s", ticker)
	}
	return v, nil
}

// chainProvider asks primary first and falls back to secondary when primary
// fails or returns an unusable level.
type chainProvider struct {
	primary   SpotProvider
	secondary SpotProvider
}

// WithSecondary wraps primary so that failures are retried on secondary.
// A nil secondary returns primary unchanged.
func WithSecondary(primary, secondary SpotProvider) SpotProvider {
	if secondary == nil {
		return primary
	}
	if primary == nil {
		return secondary
	}
	return &chainProvider{primary: primary, secondary: secondary}
}

func (c *chainProvider) Spot(ctx context.Context, ticker string) (float64, error) {
	spot, err := c.primary.Spot(ctx, ticker)
	if err == nil {
		if err = checkSpot(ticker, spot); err == nil {
			return spot, nil
		}
	}
	if ctx.Err() != nil {
		return 0, err
	}

	logger.Debugf("primary spot provider failed for %s: %v, delegating to secondary", ticker, err)
	spot, err2 := c.secondary.Spot(ctx, ticker)
	if err2 == nil {
		if err2 = checkSpot(ticker, spot); err2 == nil {
			return spot, nil
		}
	}
	return 0, multierr.Combine(err, err2)
}

func checkSpot(ticker string, spot float64) error {
	if !(spot > 0) || math.IsInf(spot, 0) {
		return errors.Errorf("provider returned unusable spot %v for %s", spot, ticker)
	}
	return nil
}
