package curve

import (
	"fmt"
	"math"
	"strings"
)

// Interpolator selects how an Interpolated curve fills the gaps between nodes.
type Interpolator string

const (
	// Linear interpolates zero rates linearly with flat extrapolation.
	Linear Interpolator = "linear"
	// LogLinear interpolates log discount factors linearly. Zero rates are
	// extrapolated flat on both ends.
	LogLinear Interpolator = "log-linear"
)

// ParseInterpolator maps a configuration string to an Interpolator. An empty
// string selects Linear.
func ParseInterpolator(s string) (Interpolator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Linear):
		return Linear, nil
	case string(LogLinear), "loglinear", "log_linear":
		return LogLinear, nil
	default:
		return "", fmt.Errorf("ParseInterpolator: unknown interpolator %q", s)
	}
}

// Interpolated is a discount curve parameterized by continuously compounded
// zero rates at a set of node times.
type Interpolated struct {
	name   string
	times  []float64
	zeros  []float64
	interp Interpolator
}

var _ Rebuildable = (*Interpolated)(nil)

// NewInterpolated validates the node grid and returns a curve. Node times must
// be positive and non-decreasing; zeros holds one rate per node.
func NewInterpolated(name string, times, zeros []float64, interp Interpolator) (*Interpolated, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("NewInterpolated: curve %q: %w: no nodes", name, ErrInvalidNodes)
	}
	if len(zeros) != len(times) {
		return nil, fmt.Errorf("NewInterpolated: curve %q: %w: %d nodes, %d parameters",
			name, ErrInvalidParameterVector, len(times), len(zeros))
	}
	for i, t := range times {
		if !(t > 0) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("NewInterpolated: curve %q: %w: node %d at t=%g", name, ErrInvalidNodes, i, t)
		}
		if i > 0 && t < times[i-1] {
			return nil, fmt.Errorf("NewInterpolated: curve %q: %w: node %d at t=%g precedes t=%g",
				name, ErrInvalidNodes, i, t, times[i-1])
		}
	}
	for i, z := range zeros {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return nil, fmt.Errorf("NewInterpolated: curve %q: %w: parameter %d is %g",
				name, ErrInvalidParameterVector, i, z)
		}
	}
	if interp == "" {
		interp = Linear
	}
	if interp != Linear && interp != LogLinear {
		return nil, fmt.Errorf("NewInterpolated: curve %q: unknown interpolator %q", name, interp)
	}

	return &Interpolated{
		name:   name,
		times:  append([]float64(nil), times...),
		zeros:  append([]float64(nil), zeros...),
		interp: interp,
	}, nil
}

func (c *Interpolated) Name() string { return c.name }

func (c *Interpolated) NumParameters() int { return len(c.zeros) }

func (c *Interpolated) Parameters() []float64 { return append([]float64(nil), c.zeros...) }

// Times returns a copy of the node times.
func (c *Interpolated) Times() []float64 { return append([]float64(nil), c.times...) }

func (c *Interpolated) Interpolator() Interpolator { return c.interp }

// WithParameters returns a curve on the same nodes with new zero rates.
func (c *Interpolated) WithParameters(params []float64) (Curve, error) {
	return NewInterpolated(c.name, c.times, params, c.interp)
}

// DF returns the discount factor at t. DF(t) = 1 for t <= 0.
func (c *Interpolated) DF(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return math.Exp(c.logDF(t))
}

// ZeroRate returns the continuously compounded zero rate at t. For t <= 0 it
// returns the rate at the first node.
func (c *Interpolated) ZeroRate(t float64) float64 {
	if t <= 0 {
		return c.zeros[0]
	}
	return -c.logDF(t) / t
}

func (c *Interpolated) logDF(t float64) float64 {
	lo, hi, w := bracket(c.times, t)
	if c.interp == LogLinear {
		if lo == hi {
			return -c.zeros[lo] * t
		}
		return -(1-w)*c.zeros[lo]*c.times[lo] - w*c.zeros[hi]*c.times[hi]
	}
	return -((1-w)*c.zeros[lo] + w*c.zeros[hi]) * t
}

// DFParameterSensitivity returns dDF(t)/dz for every node zero rate z.
func (c *Interpolated) DFParameterSensitivity(t float64) []float64 {
	sens := make([]float64, len(c.zeros))
	if t <= 0 {
		return sens
	}
	df := c.DF(t)
	lo, hi, w := bracket(c.times, t)
	if lo == hi {
		sens[lo] = -t * df
		return sens
	}
	if c.interp == LogLinear {
		sens[lo] = -(1 - w) * c.times[lo] * df
		sens[hi] = -w * c.times[hi] * df
		return sens
	}
	sens[lo] = -(1 - w) * t * df
	sens[hi] = -w * t * df
	return sens
}
