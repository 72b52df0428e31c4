package montecarlo

import "math"

// kahan is a Neumaier compensated sum. Adding millions of payoffs of similar
// size to a plain float64 loses the low digits of every addend once the total
// dwarfs them; the compensation term carries those digits along.
type kahan struct {
	sum  float64
	comp float64
}

func (k *kahan) Add(x float64) {
	t := k.sum + x
	if math.Abs(k.sum) >= math.Abs(x) {
		k.comp += (k.sum - t) + x
	} else {
		k.comp += (x - t) + k.sum
	}
	k.sum = t
}

func (k *kahan) Value() float64 { return k.sum + k.comp }

// merge folds another compensated sum into k.
func (k *kahan) merge(o kahan) {
	k.Add(o.sum)
	k.Add(o.comp)
}

// accumulator holds the running statistics of one worker. Workers never share
// one; partial accumulators are merged once at the end of a run.
type accumulator struct {
	payoff          kahan
	payoffSquared   kahan
	paths           int
	degenerateSteps int
	degeneratePaths int
}

func (a *accumulator) add(payoff float64, degenerateSteps int) {
	a.payoff.Add(payoff)
	a.payoffSquared.Add(payoff * payoff)
	a.paths++
	a.degenerateSteps += degenerateSteps
	if degenerateSteps > 0 {
		a.degeneratePaths++
	}
}

func (a *accumulator) merge(o *accumulator) {
	a.payoff.merge(o.payoff)
	a.payoffSquared.merge(o.payoffSquared)
	a.paths += o.paths
	a.degenerateSteps += o.degenerateSteps
	a.degeneratePaths += o.degeneratePaths
}
