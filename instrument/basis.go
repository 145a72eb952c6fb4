package instrument

import "math"

// BasisSwap exchanges two floating legs projected off different forward
// curves, both discounted on Discount. The quote is the spread paid on
// SpreadLeg that sets the swap's value to zero. A tenor basis swap such as
// 3M against 6M calibrates the forward curve of the leg without spread.
type BasisSwap struct {
	Name          string
	SpreadLeg     []Period
	OtherLeg      []Period
	Quote         float64
	Discount      string
	SpreadForward string
	OtherForward  string
	// Guess is the zero rate the node starts from. The spread is no guide.
	Guess float64
}

var _ Instrument = BasisSwap{}

func (b BasisSwap) Kind() Kind           { return KindBasisSwap }
func (b BasisSwap) Label() string        { return b.Name }
func (b BasisSwap) MarketQuote() float64 { return b.Quote }
func (b BasisSwap) RateGuess() float64   { return b.Guess }

func (b BasisSwap) Curves() []string {
	return uniqueCurves(b.Discount, b.SpreadForward, b.OtherForward)
}

// Maturity is the last payment time across both legs.
func (b BasisSwap) Maturity() float64 {
	m := 0.0
	for _, legs := range [][]Period{b.SpreadLeg, b.OtherLeg} {
		for _, p := range legs {
			m = math.Max(m, math.Max(p.End, p.Pay))
		}
	}
	return m
}

func (b BasisSwap) WithMarketQuote(q float64) Instrument {
	b.Quote = q
	return b
}
