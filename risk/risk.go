// Package risk turns curve parameter gradients into market quote
// sensitivities through the Jacobians of a calibration.
package risk

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// ErrNoJacobian is returned when a gradient is given for a curve the bundle does not hold.
var ErrNoJacobian = errors.New("no jacobian for curve")

// GradientPricer is the part of a pricer risk needs.
type GradientPricer interface {
	ParameterGradient(inst instrument.Instrument, p *curve.Provider, name string) ([]float64, error)
}

// Sensitivity is the derivative of a value with respect to every column of
// a set of axes.
type Sensitivity struct {
	Axes   []calibration.Axis
	Values []float64
}

// Bucket returns the sensitivities to the columns of the named axis.
func (s Sensitivity) Bucket(axis string) ([]float64, bool) {
	off := 0
	for _, a := range s.Axes {
		if a.Name == axis {
			return append([]float64(nil), s.Values[off:off+a.Count]...), true
		}
		off += a.Count
	}
	return nil, false
}

// Parallel returns the sensitivity to shifting every market quote by the same
// amount. FX axes are excluded.
func (s Sensitivity) Parallel() float64 {
	total, off := 0.0, 0
	for _, a := range s.Axes {
		if a.Kind == calibration.AxisQuotes {
			total += floats.Sum(s.Values[off : off+a.Count])
		}
		off += a.Count
	}
	return total
}

// ParallelByAxis returns the parallel sensitivity of each axis.
func (s Sensitivity) ParallelByAxis() map[string]float64 {
	out := make(map[string]float64, len(s.Axes))
	off := 0
	for _, a := range s.Axes {
		out[a.Name] = floats.Sum(s.Values[off : off+a.Count])
		off += a.Count
	}
	return out
}

// QuoteSensitivity composes parameter gradients, keyed by curve name, with
// the bundle Jacobians: dV/dq = sum over curves of dV/dp_c * dp_c/dq. Axes are
// the union of the entries' axes in bundle order.
func QuoteSensitivity(b *calibration.Bundle, gradients map[string][]float64) (Sensitivity, error) {
	for name := range gradients {
		if _, ok := b.Entry(name); !ok {
			return Sensitivity{}, fmt.Errorf("QuoteSensitivity: %w: %q", ErrNoJacobian, name)
		}
	}

	var s Sensitivity
	offsets := make(map[string]int)
	for _, name := range b.Names() {
		grad, ok := gradients[name]
		if !ok {
			continue
		}
		entry, _ := b.Entry(name)
		rows, _ := entry.Dims()
		if len(grad) != rows {
			return Sensitivity{}, fmt.Errorf("QuoteSensitivity: %w: curve %q has %d parameters, gradient has %d",
				curve.ErrInvalidParameterVector, name, rows, len(grad))
		}
		for _, a := range entry.Axes() {
			dst, seen := offsets[a.Name]
			if !seen {
				dst = len(s.Values)
				offsets[a.Name] = dst
				s.Axes = append(s.Axes, a)
				s.Values = append(s.Values, make([]float64, a.Count)...)
			}
			src, _ := entry.Offset(a.Name)
			for j := 0; j < a.Count; j++ {
				for i, g := range grad {
					s.Values[dst+j] += g * entry.At(i, src+j)
				}
			}
		}
	}
	return s, nil
}

// InstrumentQuoteSensitivity returns the sensitivity of inst's model quote to
// the market quotes behind every curve it is priced off that has a Jacobian.
// When pr also reports FX gradients, the direct spot dependence is added to
// the FX axes.
func InstrumentQuoteSensitivity(pr GradientPricer, inst instrument.Instrument, p *curve.Provider, b *calibration.Bundle) (Sensitivity, error) {
	gradients := make(map[string][]float64)
	for _, name := range inst.Curves() {
		if _, ok := b.Entry(name); !ok {
			continue
		}
		grad, err := pr.ParameterGradient(inst, p, name)
		if err != nil {
			return Sensitivity{}, fmt.Errorf("InstrumentQuoteSensitivity: %s: %w", inst.Label(), err)
		}
		gradients[name] = grad
	}
	s, err := QuoteSensitivity(b, gradients)
	if err != nil {
		return Sensitivity{}, err
	}

	fxp, ok := pr.(calibration.FXPricer)
	if !ok {
		return s, nil
	}
	spots, err := fxp.FXGradient(inst, p)
	if err != nil {
		return Sensitivity{}, fmt.Errorf("InstrumentQuoteSensitivity: %s: %w", inst.Label(), err)
	}
	for _, pair := range instrument.FXPairs(inst) {
		if v, ok := spots[pair]; ok {
			s.add(calibration.Axis{Name: calibration.FXAxisName(pair), Kind: calibration.AxisFX, Count: 1}, 0, v)
		}
	}
	return s, nil
}

// add accumulates v into column j of axis a, appending the axis if needed.
func (s *Sensitivity) add(a calibration.Axis, j int, v float64) {
	off := 0
	for _, b := range s.Axes {
		if b.Name == a.Name {
			s.Values[off+j] += v
			return
		}
		off += b.Count
	}
	s.Axes = append(s.Axes, a)
	s.Values = append(s.Values, make([]float64, a.Count)...)
	s.Values[off+j] += v
}
