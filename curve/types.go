// Package curve defines the curve contract used by the calibration engine:
// parameterized discount curves, the generators that build them from a
// parameter vector, and the provider that holds the curves known so far.
package curve

import "errors"

var (
	// ErrInvalidParameterVector is returned when a parameter vector does not match
	// the number of parameters a generator expects.
	ErrInvalidParameterVector = errors.New("invalid parameter vector")
	// ErrInvalidNodes is returned when curve node times are empty, unsorted or not positive.
	ErrInvalidNodes = errors.New("invalid curve nodes")
	// ErrCurveNotFound is returned when a provider has no curve with the requested name.
	ErrCurveNotFound = errors.New("curve not found")
	// ErrFXRateNotFound is returned when a provider has no rate for the requested pair.
	ErrFXRateNotFound = errors.New("fx rate not found")
)

// Curve is an immutable, named, parameterized discount curve. Times are year
// fractions from the valuation date.
type Curve interface {
	Name() string
	DF(t float64) float64
	ZeroRate(t float64) float64
	NumParameters() int
	// Parameters returns a copy of the parameter vector the curve was built from.
	Parameters() []float64
	// DFParameterSensitivity returns dDF(t)/dp for every parameter p.
	DFParameterSensitivity(t float64) []float64
}

// Rebuildable is implemented by curves that can produce a copy of themselves
// with a different parameter vector.
type Rebuildable interface {
	Curve
	WithParameters(params []float64) (Curve, error)
}

// Node is the part of an instrument a generator needs to lay out a curve.
type Node interface {
	Maturity() float64
	RateGuess() float64
}

// Generator turns a parameter vector into a curve. Implementations are stateless
// and Build must be pure: it is called on every residual evaluation.
type Generator interface {
	ParameterCount(nodes []Node) int
	InitialGuess(nodes []Node) []float64
	Build(name string, nodes []Node, params []float64) (Curve, error)
}

// SimpleForward returns the simply-compounded forward rate between start and end.
func SimpleForward(c Curve, start, end, accrual float64) float64 {
	return (c.DF(start)/c.DF(end) - 1) / accrual
}
