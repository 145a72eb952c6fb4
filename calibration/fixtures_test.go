package calibration_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/config"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
	"github.com/meenmo/multicurve/pricer"
)

const (
	usdDsc = "USD Dsc"
	usdFwd = "USD L3M"
	usd6M  = "USD L6M"
	eurDsc = "EUR Dsc"
)

func usdDiscount() calibration.UnitCurve {
	return calibration.UnitCurve{
		Name:      usdDsc,
		Generator: curve.YieldGenerator{Interpolator: curve.Linear},
		Instruments: []instrument.Instrument{
			instrument.Deposit{Name: "USD DEP 6M", End: 0.5, Accrual: 0.5, Quote: 0.0100, Curve: usdDsc},
			instrument.Deposit{Name: "USD DEP 1Y", End: 1, Accrual: 1, Quote: 0.0110, Curve: usdDsc},
			instrument.NewSwap("USD OIS 2Y", 0, 2, 12, 12, 0.0125, usdDsc, usdDsc),
			instrument.NewSwap("USD OIS 5Y", 0, 5, 12, 12, 0.0160, usdDsc, usdDsc),
		},
	}
}

func usdForward() calibration.UnitCurve {
	return calibration.UnitCurve{
		Name:      usdFwd,
		Generator: curve.YieldGenerator{Interpolator: curve.LogLinear},
		Instruments: []instrument.Instrument{
			instrument.FRA{Name: "USD FRA 0x3", End: 0.25, Accrual: 0.25, Quote: 0.0130, Forward: usdFwd},
			instrument.FRA{Name: "USD FRA 3x6", Start: 0.25, End: 0.5, Accrual: 0.25, Quote: 0.0135, Forward: usdFwd},
			instrument.NewSwap("USD IRS 2Y", 0, 2, 6, 3, 0.0150, usdDsc, usdFwd),
			instrument.NewSwap("USD IRS 5Y", 0, 5, 6, 3, 0.0185, usdDsc, usdFwd),
		},
	}
}

// usdForward6M is calibrated from 3M/6M basis swaps paying the spread on
// the 3M leg, so it chains on both usdDiscount and usdForward.
func usdForward6M() calibration.UnitCurve {
	basis := func(name string, end, spread, guess float64) instrument.BasisSwap {
		b := instrument.NewBasisSwap(name, 0, end, 3, 6, spread, usdDsc, usdFwd, usd6M)
		b.Guess = guess
		return b
	}
	return calibration.UnitCurve{
		Name:      usd6M,
		Generator: curve.YieldGenerator{Interpolator: curve.LogLinear},
		Instruments: []instrument.Instrument{
			instrument.FRA{Name: "USD FRA 0x6", End: 0.5, Accrual: 0.5, Quote: 0.0140, Forward: usd6M},
			basis("USD 3M/6M 2Y", 2, 0.0010, 0.016),
			basis("USD 3M/6M 5Y", 5, 0.0012, 0.020),
		},
	}
}

func eurDiscount() calibration.UnitCurve {
	fx := func(name string, end, points float64) instrument.FXSwap {
		return instrument.FXSwap{Name: name, Pair: "EURUSD", End: end, Quote: points, Base: eurDsc, Other: usdDsc, Guess: 0.005}
	}
	return calibration.UnitCurve{
		Name:      eurDsc,
		Generator: curve.YieldGenerator{Interpolator: curve.Linear},
		Instruments: []instrument.Instrument{
			fx("EURUSD 1Y", 1, 0.0066),
			fx("EURUSD 2Y", 2, 0.0144),
			fx("EURUSD 5Y", 5, 0.0392),
		},
	}
}

// withQuote returns uc with instrument j's quote moved by h.
func withQuote(uc calibration.UnitCurve, j int, h float64) calibration.UnitCurve {
	insts := append([]instrument.Instrument(nil), uc.Instruments...)
	insts[j] = insts[j].WithMarketQuote(insts[j].MarketQuote() + h)
	uc.Instruments = insts
	return uc
}

func tightConfig() config.Config {
	cfg := config.DefaultConfig
	cfg.AbsoluteTolerance = 1e-13
	cfg.RelativeTolerance = 1e-13
	return cfg
}

func newRepository(t *testing.T, cfg config.Config, opts ...calibration.Option) *calibration.Repository {
	t.Helper()
	repo, err := calibration.NewRepository(pricer.NewParSpread(), cfg, opts...)
	require.NoError(t, err)
	return repo
}

func block(t *testing.T, units ...[]calibration.UnitCurve) calibration.Block {
	t.Helper()
	us := make([]calibration.Unit, len(units))
	for i, curves := range units {
		u, err := calibration.NewUnit(curves...)
		require.NoError(t, err)
		us[i] = u
	}
	b, err := calibration.NewBlock(us...)
	require.NoError(t, err)
	return b
}

func params(t *testing.T, res *calibration.Result, name string) []float64 {
	t.Helper()
	c, err := res.Curve(name)
	require.NoError(t, err)
	return c.Parameters()
}
