// Package dice provides the randomness abstraction for the mass combat
// engine. Battles run against a Source so that a fixed seed reproduces an
// identical sequence of rounds.
package dice

// Source is the randomness provider for combat variance.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// varianceSteps is the resolution of Variance draws.
const varianceSteps = 1000

// Variance returns a multiplier in [1-spread, 1+spread] drawn from src.
// A spread of 0 always returns exactly 1 and consumes no randomness.
//
// Precondition: spread must be in [0, 1); src must be non-nil when spread > 0.
// Postcondition: Returns a value in [1-spread, 1+spread].
func Variance(src Source, spread float64) float64 {
	if spread == 0 {
		return 1
	}
	step := src.Intn(varianceSteps + 1)
	return 1 + spread*(2*float64(step)/varianceSteps-1)
}
