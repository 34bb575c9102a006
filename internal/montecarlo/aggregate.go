package montecarlo

// SimulationResult holds the per-path outputs of a run, indexed by path.
type SimulationResult struct {
	TerminalPrices []float64 `json:"terminal_prices"`
	JumpCounts     []int     `json:"jump_counts"`
	Payouts        []float64 `json:"payouts"`
	Premiums       []float64 `json:"premiums"`

	// SamplePaths keeps the full trajectories of the first paths for export.
	SamplePaths [][]float64 `json:"sample_paths,omitempty"`
	SampleJumps [][]int     `json:"sample_jumps,omitempty"`
}

// NumPaths returns the number of aggregated paths.
func (r *SimulationResult) NumPaths() int {
	return len(r.TerminalPrices)
}

func newSimulationResult(numPaths, samples int) *SimulationResult {
	if samples > numPaths {
		samples = numPaths
	}
	if samples < 0 {
		samples = 0
	}
	r := &SimulationResult{
		TerminalPrices: make([]float64, numPaths),
		JumpCounts:     make([]int, numPaths),
		Payouts:        make([]float64, numPaths),
		Premiums:       make([]float64, numPaths),
	}
	if samples > 0 {
		r.SamplePaths = make([][]float64, samples)
		r.SampleJumps = make([][]int, samples)
	}
	return r
}

// collect reduces path i into its slot. Distinct indexes may be collected
// concurrently.
func (r *SimulationResult) collect(i int, path *PathState) {
	r.TerminalPrices[i] = path.Terminal()
	r.JumpCounts[i] = len(path.JumpStepIndices)
	r.Payouts[i] = path.PayoutAmount
	r.Premiums[i] = path.PremiumAccrued

	if i < len(r.SamplePaths) {
		r.SamplePaths[i] = path.Prices
		r.SampleJumps[i] = path.JumpStepIndices
	}
}

// Aggregate reduces simulated paths into a result, preserving path order.
// The first samples paths are kept in full.
func Aggregate(paths []PathState, samples int) *SimulationResult {
	r := newSimulationResult(len(paths), samples)
	for i := range paths {
		r.collect(i, &paths[i])
	}
	return r
}
