package montecarlo

import "errors"

var (
	// ErrInsufficientHistory is returned when the price history cannot
	// support an estimate (fewer than two valid observations).
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrInvalidConfig is returned when a SimulationConfig field is outside
	// its domain.
	ErrInvalidConfig = errors.New("invalid simulation config")
)
