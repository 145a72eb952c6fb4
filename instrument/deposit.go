package instrument

// Deposit is a simply compounded cash deposit discounted on one curve.
// Its par rate is (DF(Start)/DF(End) - 1) / Accrual.
type Deposit struct {
	Name    string
	Start   float64
	End     float64
	Accrual float64
	Quote   float64
	Curve   string
}

var _ Instrument = Deposit{}

func (d Deposit) Kind() Kind           { return KindDeposit }
func (d Deposit) Label() string        { return d.Name }
func (d Deposit) Maturity() float64    { return d.End }
func (d Deposit) MarketQuote() float64 { return d.Quote }
func (d Deposit) RateGuess() float64   { return d.Quote }
func (d Deposit) Curves() []string     { return []string{d.Curve} }

func (d Deposit) WithMarketQuote(q float64) Instrument {
	d.Quote = q
	return d
}

// FRA is a forward rate agreement fixing on a forward curve. The reference
// pricer uses its forward rate as the par quote.
type FRA struct {
	Name    string
	Start   float64
	End     float64
	Accrual float64
	Quote   float64
	Forward string
}

var _ Instrument = FRA{}

func (f FRA) Kind() Kind           { return KindFRA }
func (f FRA) Label() string        { return f.Name }
func (f FRA) Maturity() float64    { return f.End }
func (f FRA) MarketQuote() float64 { return f.Quote }
func (f FRA) RateGuess() float64   { return f.Quote }
func (f FRA) Curves() []string     { return []string{f.Forward} }

func (f FRA) WithMarketQuote(q float64) Instrument {
	f.Quote = q
	return f
}
