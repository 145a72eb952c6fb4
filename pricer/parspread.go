// Package pricer prices calibration instruments against a curve provider.
// Residuals are model par quote minus market quote.
package pricer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// ErrUnsupportedInstrument is returned for an instrument kind with no registered formula.
var ErrUnsupportedInstrument = errors.New("unsupported instrument")

// DFPartial is the derivative of a par quote with respect to the discount
// factor of Curve at Time.
type DFPartial struct {
	Curve      string
	Time       float64
	Derivative float64
}

// Quote is a model par quote with its discount factor partials.
type Quote struct {
	Value    float64
	Partials []DFPartial
}

// QuoteFunc computes the par quote of one instrument kind.
type QuoteFunc func(inst instrument.Instrument, p *curve.Provider) (Quote, error)

// ParSpread is the reference analytic pricer. It dispatches on instrument
// kind and chains the DF partials of each formula with the curves' own DF
// parameter sensitivities.
type ParSpread struct {
	formulas map[instrument.Kind]QuoteFunc
}

// NewParSpread returns a pricer for deposits, FRAs, swaps, tenor basis swaps
// and FX swaps.
func NewParSpread() ParSpread {
	return ParSpread{formulas: map[instrument.Kind]QuoteFunc{
		instrument.KindDeposit:   depositQuote,
		instrument.KindFRA:       fraQuote,
		instrument.KindSwap:      swapQuote,
		instrument.KindBasisSwap: basisSwapQuote,
		instrument.KindFXSwap:    fxSwapQuote,
	}}
}

// With returns a copy of the pricer with f registered for kind.
func (ps ParSpread) With(kind instrument.Kind, f QuoteFunc) ParSpread {
	formulas := make(map[instrument.Kind]QuoteFunc, len(ps.formulas)+1)
	for k, v := range ps.formulas {
		formulas[k] = v
	}
	formulas[kind] = f
	return ParSpread{formulas: formulas}
}

func (ps ParSpread) quote(inst instrument.Instrument, p *curve.Provider) (Quote, error) {
	f, ok := ps.formulas[inst.Kind()]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnsupportedInstrument, inst.Kind())
	}
	q, err := f(inst, p)
	if err != nil {
		return Quote{}, fmt.Errorf("%s: %w", inst.Label(), err)
	}
	return q, nil
}

// ParQuote returns the model par quote of inst.
func (ps ParSpread) ParQuote(inst instrument.Instrument, p *curve.Provider) (float64, error) {
	q, err := ps.quote(inst, p)
	if err != nil {
		return 0, err
	}
	return q.Value, nil
}

func (ps ParSpread) Residual(inst instrument.Instrument, p *curve.Provider) (float64, error) {
	v, err := ps.ParQuote(inst, p)
	if err != nil {
		return 0, err
	}
	return v - inst.MarketQuote(), nil
}

// ParameterGradient returns d residual / d parameters of the named curve.
func (ps ParSpread) ParameterGradient(inst instrument.Instrument, p *curve.Provider, name string) ([]float64, error) {
	c, err := p.Curve(name)
	if err != nil {
		return nil, err
	}
	q, err := ps.quote(inst, p)
	if err != nil {
		return nil, err
	}
	grad := make([]float64, c.NumParameters())
	for _, d := range q.Partials {
		if d.Curve != name || d.Derivative == 0 {
			continue
		}
		floats.AddScaled(grad, d.Derivative, c.DFParameterSensitivity(d.Time))
	}
	return grad, nil
}

func (ps ParSpread) QuoteGradient(instrument.Instrument) float64 { return -1 }

// FXGradient returns d residual / d spot for every FX pair inst depends on.
func (ps ParSpread) FXGradient(inst instrument.Instrument, p *curve.Provider) (map[string]float64, error) {
	fx, ok := inst.(instrument.FXSwap)
	if !ok {
		return nil, nil
	}
	base, other, err := fxCurves(fx, p)
	if err != nil {
		return nil, err
	}
	return map[string]float64{fx.Pair: base.DF(fx.End)/other.DF(fx.End) - 1}, nil
}
