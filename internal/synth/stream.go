package synth

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Stream is a deterministic pseudo-random stream owned by exactly one
// family generation. Two streams built from the same (seed, offset) produce
// identical draws, which is what makes parallel family generation
// reproducible.
type Stream struct {
	src *rand.PCG
	rng *rand.Rand
}

// NewStream derives a stream from the root seed and a family offset.
func NewStream(seed, offset int64) *Stream {
	src := rand.NewPCG(uint64(seed), uint64(offset))
	return &Stream{src: src, rng: rand.New(src)}
}

// Normal draws from Normal(mu, sigma).
func (s *Stream) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Uniform draws from Uniform[min, max).
func (s *Stream) Uniform(min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: s.src}.Rand()
}

// UniformInt draws an integer uniformly from [min, max] inclusive.
func (s *Stream) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rng.IntN(max-min+1)
}

// Exponential draws from an exponential distribution with the given mean.
func (s *Stream) Exponential(mean float64) float64 {
	return distuv.Exponential{Rate: 1 / mean, Src: s.src}.Rand()
}

// Bernoulli draws true with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	return distuv.Bernoulli{P: p, Src: s.src}.Rand() == 1
}

// Float64 draws uniformly from [0, 1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// IntN draws uniformly from [0, n).
func (s *Stream) IntN(n int) int {
	return s.rng.IntN(n)
}

// WeightedIndex draws an index proportionally to the weights. Weights are
// assumed non-negative; they need not sum to one.
func (s *Stream) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	u := s.rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if u < cum {
			return i
		}
	}
	return len(weights) - 1
}

// Perm returns a deterministic pseudo-random permutation of [0, n).
func (s *Stream) Perm(n int) []int {
	return s.rng.Perm(n)
}
