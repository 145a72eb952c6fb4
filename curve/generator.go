package curve

import "fmt"

// YieldGenerator builds Interpolated curves with one zero rate per node, the
// node times being the instrument maturities.
type YieldGenerator struct {
	Interpolator Interpolator
}

var _ Generator = YieldGenerator{}

func (g YieldGenerator) ParameterCount(nodes []Node) int { return len(nodes) }

// InitialGuess uses each instrument's rate guess as the starting zero rate.
func (g YieldGenerator) InitialGuess(nodes []Node) []float64 {
	guess := make([]float64, len(nodes))
	for i, n := range nodes {
		guess[i] = n.RateGuess()
	}
	return guess
}

func (g YieldGenerator) Build(name string, nodes []Node, params []float64) (Curve, error) {
	if len(params) != len(nodes) {
		return nil, fmt.Errorf("YieldGenerator.Build: curve %q: %w: want %d parameters, got %d",
			name, ErrInvalidParameterVector, len(nodes), len(params))
	}
	times := make([]float64, len(nodes))
	for i, n := range nodes {
		times[i] = n.Maturity()
	}
	return NewInterpolated(name, times, params, g.Interpolator)
}
