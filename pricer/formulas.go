package pricer

import (
	"fmt"

	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// simpleRate returns (DF(s)/DF(e) - 1) / accrual on c with its partials.
func simpleRate(c curve.Curve, start, end, accrual float64) Quote {
	ds, de := c.DF(start), c.DF(end)
	return Quote{
		Value: curve.SimpleForward(c, start, end, accrual),
		Partials: []DFPartial{
			{Curve: c.Name(), Time: start, Derivative: 1 / (accrual * de)},
			{Curve: c.Name(), Time: end, Derivative: -ds / (accrual * de * de)},
		},
	}
}

func depositQuote(inst instrument.Instrument, p *curve.Provider) (Quote, error) {
	d, ok := inst.(instrument.Deposit)
	if !ok {
		return Quote{}, fmt.Errorf("depositQuote: unexpected %T", inst)
	}
	if d.Accrual <= 0 {
		return Quote{}, fmt.Errorf("depositQuote: non-positive accrual %g", d.Accrual)
	}
	c, err := p.Curve(d.Curve)
	if err != nil {
		return Quote{}, err
	}
	return simpleRate(c, d.Start, d.End, d.Accrual), nil
}

func fraQuote(inst instrument.Instrument, p *curve.Provider) (Quote, error) {
	f, ok := inst.(instrument.FRA)
	if !ok {
		return Quote{}, fmt.Errorf("fraQuote: unexpected %T", inst)
	}
	if f.Accrual <= 0 {
		return Quote{}, fmt.Errorf("fraQuote: non-positive accrual %g", f.Accrual)
	}
	c, err := p.Curve(f.Forward)
	if err != nil {
		return Quote{}, err
	}
	return simpleRate(c, f.Start, f.End, f.Accrual), nil
}

// swapQuote is the par rate: floating leg PV over fixed leg annuity, both
// discounted on the discount curve and the floating coupons projected off the
// forward curve.
func swapQuote(inst instrument.Instrument, p *curve.Provider) (Quote, error) {
	s, ok := inst.(instrument.Swap)
	if !ok {
		return Quote{}, fmt.Errorf("swapQuote: unexpected %T", inst)
	}
	if len(s.Fixed) == 0 || len(s.Floating) == 0 {
		return Quote{}, fmt.Errorf("swapQuote: empty leg")
	}
	dsc, err := p.Curve(s.Discount)
	if err != nil {
		return Quote{}, err
	}
	fwd, err := p.Curve(s.Forward)
	if err != nil {
		return Quote{}, err
	}

	annuity := 0.0
	for _, c := range s.Fixed {
		annuity += c.Accrual * dsc.DF(c.Pay)
	}
	if annuity == 0 {
		return Quote{}, fmt.Errorf("swapQuote: zero annuity")
	}

	floating := 0.0
	for _, c := range s.Floating {
		floating += (fwd.DF(c.Start)/fwd.DF(c.End) - 1) * dsc.DF(c.Pay)
	}
	par := floating / annuity

	partials := make([]DFPartial, 0, len(s.Fixed)+3*len(s.Floating))
	for _, c := range s.Fixed {
		partials = append(partials, DFPartial{Curve: s.Discount, Time: c.Pay, Derivative: -par * c.Accrual / annuity})
	}
	for _, c := range s.Floating {
		fs, fe, dp := fwd.DF(c.Start), fwd.DF(c.End), dsc.DF(c.Pay)
		partials = append(partials,
			DFPartial{Curve: s.Discount, Time: c.Pay, Derivative: (fs/fe - 1) / annuity},
			DFPartial{Curve: s.Forward, Time: c.Start, Derivative: dp / (fe * annuity)},
			DFPartial{Curve: s.Forward, Time: c.End, Derivative: -dp * fs / (fe * fe * annuity)},
		)
	}
	return Quote{Value: par, Partials: partials}, nil
}

// floatingLeg returns the PV of a floating leg without spread, sum of
// (P_fwd(s)/P_fwd(e) - 1) * P_dsc(pay), with its partials scaled by sign.
func floatingLeg(legs []instrument.Period, dsc, fwd curve.Curve, sign float64) (float64, []DFPartial) {
	pv := 0.0
	partials := make([]DFPartial, 0, 3*len(legs))
	for _, c := range legs {
		fs, fe, dp := fwd.DF(c.Start), fwd.DF(c.End), dsc.DF(c.Pay)
		pv += (fs/fe - 1) * dp
		partials = append(partials,
			DFPartial{Curve: dsc.Name(), Time: c.Pay, Derivative: sign * (fs/fe - 1)},
			DFPartial{Curve: fwd.Name(), Time: c.Start, Derivative: sign * dp / fe},
			DFPartial{Curve: fwd.Name(), Time: c.End, Derivative: -sign * dp * fs / (fe * fe)},
		)
	}
	return pv, partials
}

// basisSwapQuote is the par spread on the spread leg:
// (PV other leg - PV spread leg) / annuity of the spread leg.
func basisSwapQuote(inst instrument.Instrument, p *curve.Provider) (Quote, error) {
	b, ok := inst.(instrument.BasisSwap)
	if !ok {
		return Quote{}, fmt.Errorf("basisSwapQuote: unexpected %T", inst)
	}
	if len(b.SpreadLeg) == 0 || len(b.OtherLeg) == 0 {
		return Quote{}, fmt.Errorf("basisSwapQuote: empty leg")
	}
	dsc, err := p.Curve(b.Discount)
	if err != nil {
		return Quote{}, err
	}
	sf, err := p.Curve(b.SpreadForward)
	if err != nil {
		return Quote{}, err
	}
	of, err := p.Curve(b.OtherForward)
	if err != nil {
		return Quote{}, err
	}

	annuity := 0.0
	for _, c := range b.SpreadLeg {
		annuity += c.Accrual * dsc.DF(c.Pay)
	}
	if annuity == 0 {
		return Quote{}, fmt.Errorf("basisSwapQuote: zero annuity")
	}

	other, op := floatingLeg(b.OtherLeg, dsc, of, 1/annuity)
	spread, sp := floatingLeg(b.SpreadLeg, dsc, sf, -1/annuity)
	par := (other - spread) / annuity

	partials := append(op, sp...)
	for _, c := range b.SpreadLeg {
		partials = append(partials, DFPartial{Curve: b.Discount, Time: c.Pay, Derivative: -par * c.Accrual / annuity})
	}
	return Quote{Value: par, Partials: partials}, nil
}

func fxCurves(f instrument.FXSwap, p *curve.Provider) (base, other curve.Curve, err error) {
	if base, err = p.Curve(f.Base); err != nil {
		return nil, nil, err
	}
	if other, err = p.Curve(f.Other); err != nil {
		return nil, nil, err
	}
	return base, other, nil
}

// fxSwapQuote returns forward points S*DF_base(T)/DF_other(T) - S.
func fxSwapQuote(inst instrument.Instrument, p *curve.Provider) (Quote, error) {
	f, ok := inst.(instrument.FXSwap)
	if !ok {
		return Quote{}, fmt.Errorf("fxSwapQuote: unexpected %T", inst)
	}
	spot, err := p.FXRate(f.Pair)
	if err != nil {
		return Quote{}, err
	}
	base, other, err := fxCurves(f, p)
	if err != nil {
		return Quote{}, err
	}
	db, do := base.DF(f.End), other.DF(f.End)
	return Quote{
		Value: spot*db/do - spot,
		Partials: []DFPartial{
			{Curve: f.Base, Time: f.End, Derivative: spot / do},
			{Curve: f.Other, Time: f.End, Derivative: -spot * db / (do * do)},
		},
	}, nil
}
