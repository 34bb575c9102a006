package montecarlo

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSource supplies the draws of one path simulation. Implementations
// are not required to be safe for concurrent use; every worker owns one.
type RandomSource interface {
	Normal(mu, sigma float64) float64
	Poisson(lambda float64) int
}

// SourceFactory builds the RandomSource used by a worker.
type SourceFactory func(worker int) RandomSource

type distuvSource struct {
	src rand.Source
}

// NewRandomSource returns a PCG-backed source. Sources created with the
// same seed and a different stream produce independent sequences.
func NewRandomSource(seed, stream uint64) RandomSource {
	return &distuvSource{src: rand.NewPCG(seed, stream)}
}

// SeededFactory gives each worker its own stream of the same seed.
func SeededFactory(seed uint64) SourceFactory {
	return func(worker int) RandomSource {
		return NewRandomSource(seed, uint64(worker))
	}
}

func (s *distuvSource) Normal(mu, sigma float64) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

func (s *distuvSource) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}
