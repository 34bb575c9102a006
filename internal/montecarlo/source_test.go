package montecarlo

// scriptedSource replays standard normal shocks and Poisson counts.
// Exhausted scripts yield zero shocks and zero events.
type scriptedSource struct {
	shocks []float64
	counts []int
}

func (s *scriptedSource) Normal(mu, sigma float64) float64 {
	z := 0.0
	if len(s.shocks) > 0 {
		z, s.shocks = s.shocks[0], s.shocks[1:]
	}
	return mu + sigma*z
}

func (s *scriptedSource) Poisson(lambda float64) int {
	if len(s.counts) == 0 {
		return 0
	}
	n := s.counts[0]
	s.counts = s.counts[1:]
	return n
}
