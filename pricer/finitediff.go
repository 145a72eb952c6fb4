package pricer

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// ResidualPricer is the part of a pricer FiniteDifference needs.
type ResidualPricer interface {
	Residual(inst instrument.Instrument, p *curve.Provider) (float64, error)
	QuoteGradient(inst instrument.Instrument) float64
}

// FiniteDifference derives curve and FX gradients of any residual pricer by
// central differences. Curves must implement curve.Rebuildable.
type FiniteDifference struct {
	Base ResidualPricer
	Step float64
}

// NewFiniteDifference wraps base. A non-positive step selects 1e-7.
func NewFiniteDifference(base ResidualPricer, step float64) FiniteDifference {
	if step <= 0 {
		step = 1e-7
	}
	return FiniteDifference{Base: base, Step: step}
}

func (f FiniteDifference) Residual(inst instrument.Instrument, p *curve.Provider) (float64, error) {
	return f.Base.Residual(inst, p)
}

func (f FiniteDifference) QuoteGradient(inst instrument.Instrument) float64 {
	return f.Base.QuoteGradient(inst)
}

func (f FiniteDifference) ParameterGradient(inst instrument.Instrument, p *curve.Provider, name string) ([]float64, error) {
	c, err := p.Curve(name)
	if err != nil {
		return nil, err
	}
	rb, ok := c.(curve.Rebuildable)
	if !ok {
		return nil, fmt.Errorf("FiniteDifference: curve %q cannot be rebuilt", name)
	}

	var evalErr error
	residual := func(x []float64) float64 {
		bumped, err := rb.WithParameters(x)
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			return 0
		}
		r, err := f.Base.Residual(inst, p.Extend(bumped))
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return r
	}

	grad := fd.Gradient(nil, residual, c.Parameters(), &fd.Settings{
		Formula: fd.Central,
		Step:    f.Step,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return grad, nil
}

// FXGradient bumps each spot rate the instrument depends on.
func (f FiniteDifference) FXGradient(inst instrument.Instrument, p *curve.Provider) (map[string]float64, error) {
	pairs := instrument.FXPairs(inst)
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		spot, err := p.FXRate(pair)
		if err != nil {
			return nil, err
		}
		h := f.Step * max(1, spot)
		up := p.Extend()
		up.SetFXRate(pair, spot+h)
		down := p.Extend()
		down.SetFXRate(pair, spot-h)
		ru, err := f.Base.Residual(inst, up)
		if err != nil {
			return nil, err
		}
		rd, err := f.Base.Residual(inst, down)
		if err != nil {
			return nil, err
		}
		out[pair] = (ru - rd) / (2 * h)
	}
	return out, nil
}
