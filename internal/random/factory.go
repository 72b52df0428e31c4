package random

// Factory hands out independent sources, one per stream index. The same
// factory always returns an identically seeded source for the same index.
type Factory func(stream int) NormalSource

// NewFactory derives per-stream seeds from one base seed. A zero base seed is
// replaced once by a clock seed, so all streams of a run still come from the
// same (unrecorded) base.
func NewFactory(kind Kind, seed uint64) (Factory, error) {
	if seed == 0 {
		seed = ClockSeed()
	}
	// validate the kind up front so the factory itself cannot fail
	if _, err := New(kind, seed); err != nil {
		return nil, err
	}
	return func(stream int) NormalSource {
		src, _ := New(kind, StreamSeed(seed, stream))
		return src
	}, nil
}

// StreamSeed scrambles base+stream through splitmix64 so neighbouring streams
// do not start from correlated PRNG states. The result is never zero.
func StreamSeed(base uint64, stream int) uint64 {
	z := base + uint64(stream)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	if z == 0 {
		return 1
	}
	return z
}

// Fixed replays a fixed slice of variates, cycling when exhausted. It is the
// deterministic double used by tests and by zero-volatility checks.
type Fixed struct {
	values []float64
	pos    int
}

func NewFixed(values ...float64) *Fixed {
	if len(values) == 0 {
		values = []float64{0}
	}
	return &Fixed{values: values}
}

func (f *Fixed) Next() float64 {
	v := f.values[f.pos%len(f.values)]
	f.pos++
	return v
}

// Drawn reports how many variates have been consumed.
func (f *Fixed) Drawn() int { return f.pos }
