package instrument

import "math"

// Period is one accrual period of a swap leg.
type Period struct {
	Start   float64
	End     float64
	Pay     float64
	Accrual float64
}

// Swap is a fixed against floating swap quoted by its par rate. The floating
// leg projects off Forward and both legs discount on Discount. With both set to
// the same curve it is an OIS.
type Swap struct {
	Name     string
	Fixed    []Period
	Floating []Period
	Quote    float64
	Discount string
	Forward  string
}

var _ Instrument = Swap{}

func (s Swap) Kind() Kind           { return KindSwap }
func (s Swap) Label() string        { return s.Name }
func (s Swap) MarketQuote() float64 { return s.Quote }
func (s Swap) RateGuess() float64   { return s.Quote }
func (s Swap) Curves() []string     { return uniqueCurves(s.Discount, s.Forward) }

// Maturity is the last payment time across both legs.
func (s Swap) Maturity() float64 {
	m := 0.0
	for _, p := range s.Fixed {
		m = math.Max(m, math.Max(p.End, p.Pay))
	}
	for _, p := range s.Floating {
		m = math.Max(m, math.Max(p.End, p.Pay))
	}
	return m
}

func (s Swap) WithMarketQuote(q float64) Instrument {
	s.Quote = q
	return s
}

// FXSwap is an FX swap quoted in forward points: Forward - Spot, where the
// forward is Spot * DF_base(T) / DF_quote(T). Pair is a six letter code such as
// "EURUSD" and Spot is read from the provider.
type FXSwap struct {
	Name  string
	Pair  string
	End   float64
	Quote float64
	Base  string
	Other string
	Guess float64
}

var _ Instrument = FXSwap{}

func (f FXSwap) Kind() Kind           { return KindFXSwap }
func (f FXSwap) Label() string        { return f.Name }
func (f FXSwap) Maturity() float64    { return f.End }
func (f FXSwap) MarketQuote() float64 { return f.Quote }
func (f FXSwap) RateGuess() float64   { return f.Guess }
func (f FXSwap) Curves() []string     { return uniqueCurves(f.Base, f.Other) }
func (f FXSwap) FXPairs() []string    { return []string{f.Pair} }

func (f FXSwap) WithMarketQuote(q float64) Instrument {
	f.Quote = q
	return f
}
