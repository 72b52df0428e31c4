package data

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"golang.org/x/exp/rand"
)

// syntheticProvider invents a plausible spot per ticker. It is the offline
// fallback when no market data source is configured.
type syntheticProvider struct {
	seed uint64
}

// NewSyntheticProvider returns a provider whose spot for a ticker depends only
// on the ticker and seed, so offline runs stay reproducible.
func NewSyntheticProvider(seed uint64) SpotProvider {
	return &syntheticProvider{seed: seed}
}

func (p *syntheticProvider) Spot(_ context.Context, ticker string) (float64, error) {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(ticker)))
	rng := rand.New(rand.NewSource(h.Sum64() ^ p.seed))

	price := 100.0 + float64(rng.Intn(200))
	price += rng.NormFloat64() * 0.01 * price
	return math.Round(price*100) / 100, nil
}
