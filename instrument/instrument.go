// Package instrument holds the calibration instruments the reference pricer
// understands. Times are year fractions from the valuation date and quotes
// are decimals (0.01 is one percent).
package instrument

import "sort"

// Kind identifies the pricing formula for an instrument.
type Kind string

const (
	KindDeposit   Kind = "deposit"
	KindFRA       Kind = "fra"
	KindSwap      Kind = "swap"
	KindBasisSwap Kind = "basis-swap"
	KindFXSwap    Kind = "fx-swap"
)

// Instrument is an immutable calibration instrument.
type Instrument interface {
	Kind() Kind
	Label() string
	// Maturity is the curve node time the instrument calibrates.
	Maturity() float64
	MarketQuote() float64
	// RateGuess is the zero rate used as the starting point for the node.
	RateGuess() float64
	// Curves lists, without repetition, the curves the instrument is priced off.
	Curves() []string
	WithMarketQuote(q float64) Instrument
}

// References reports whether inst is priced off the named curve.
func References(inst Instrument, name string) bool {
	for _, c := range inst.Curves() {
		if c == name {
			return true
		}
	}
	return false
}

// FXPairs returns the sorted FX pairs inst depends on through an
// FXPairs() []string method, or nil.
func FXPairs(inst Instrument) []string {
	f, ok := inst.(interface{ FXPairs() []string })
	if !ok {
		return nil
	}
	pairs := append([]string(nil), f.FXPairs()...)
	sort.Strings(pairs)
	return pairs
}

func uniqueCurves(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		dup := false
		for _, o := range out {
			if o == n {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out
}
