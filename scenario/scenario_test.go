package scenario_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/config"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
	"github.com/meenmo/multicurve/pricer"
	"github.com/meenmo/multicurve/scenario"
)

const usdDsc = "USD Dsc"

func testBlock(t *testing.T) calibration.Block {
	t.Helper()
	u, err := calibration.NewUnit(calibration.UnitCurve{
		Name:      usdDsc,
		Generator: curve.YieldGenerator{Interpolator: curve.Linear},
		Instruments: []instrument.Instrument{
			instrument.Deposit{Name: "DEP 6M", End: 0.5, Accrual: 0.5, Quote: 0.010, Curve: usdDsc},
			instrument.NewSwap("OIS 2Y", 0, 2, 12, 12, 0.012, usdDsc, usdDsc),
			instrument.NewSwap("OIS 5Y", 0, 5, 12, 12, 0.015, usdDsc, usdDsc),
		},
	})
	require.NoError(t, err)
	b, err := calibration.NewBlock(u)
	require.NoError(t, err)
	return b
}

func testRepository(t *testing.T) *calibration.Repository {
	t.Helper()
	cfg := config.DefaultConfig
	cfg.AbsoluteTolerance = 1e-13
	cfg.RelativeTolerance = 1e-13
	repo, err := calibration.NewRepository(pricer.NewParSpread(), cfg)
	require.NoError(t, err)
	return repo
}

func TestShiftQuotes(t *testing.T) {
	t.Parallel()

	b := testBlock(t)
	all := scenario.ShiftQuotes(b, 0.0001, nil)
	onlySwaps := scenario.ShiftQuotes(b, 0.0001, func(_ string, _ int, inst instrument.Instrument) bool {
		return inst.Kind() == instrument.KindSwap
	})

	orig := b.Units[0].Curves[0].Instruments
	for j, inst := range all.Units[0].Curves[0].Instruments {
		assert.InDelta(t, orig[j].MarketQuote()+0.0001, inst.MarketQuote(), 1e-15)
	}
	got := onlySwaps.Units[0].Curves[0].Instruments
	assert.Equal(t, orig[0].MarketQuote(), got[0].MarketQuote())
	assert.InDelta(t, orig[2].MarketQuote()+0.0001, got[2].MarketQuote(), 1e-15)

	// the source block is untouched
	assert.Equal(t, 0.010, b.Units[0].Curves[0].Instruments[0].MarketQuote())
}

func TestRunBumpEachMatchesBundle(t *testing.T) {
	t.Parallel()

	const h = 1e-6
	b := testBlock(t)
	repo := testRepository(t)
	base, err := repo.Calibrate(b, nil, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var ticks []int
	runner := scenario.NewRunner(repo, 3, scenario.WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		ticks = append(ticks, done)
	}))

	bumps := scenario.BumpEach(b, h)
	require.Len(t, bumps, 3)
	outcomes, err := runner.Run(context.Background(), scenario.Scenarios(bumps, nil, nil))
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.ElementsMatch(t, []int{1, 2, 3}, ticks)

	c0, err := base.Curve(usdDsc)
	require.NoError(t, err)
	p0 := c0.Parameters()
	entry, _ := base.Bundle.Entry(usdDsc)

	for j, out := range outcomes {
		require.NoError(t, out.Err)
		assert.Equal(t, usdDsc, bumps[j].Curve)
		assert.Contains(t, out.Name, bumps[j].Label)
		c, err := out.Result.Curve(usdDsc)
		require.NoError(t, err)
		p := c.Parameters()
		for i := range p {
			assert.InDelta(t, entry.At(i, j), (p[i]-p0[i])/h, 1e-4)
		}
	}
}

func TestRunReportsFailuresPerScenario(t *testing.T) {
	t.Parallel()

	b := testBlock(t)
	broken := calibration.Block{Units: []calibration.Unit{{Curves: []calibration.UnitCurve{{
		Name:      usdDsc,
		Generator: curve.YieldGenerator{},
		Instruments: []instrument.Instrument{
			instrument.Deposit{Name: "A", End: 1, Accrual: 1, Quote: 0.01, Curve: usdDsc},
			instrument.Deposit{Name: "B", End: 1, Accrual: 1, Quote: 0.02, Curve: usdDsc},
		},
	}}}}}

	outcomes, err := scenario.NewRunner(testRepository(t), 2).Run(context.Background(), []scenario.Scenario{
		{Name: "base", Block: b},
		{Name: "broken", Block: broken},
	})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "base", outcomes[0].Name)
	assert.ErrorIs(t, outcomes[1].Err, calibration.ErrNonInvertibleJacobian)
	assert.Nil(t, outcomes[1].Result)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scenario.NewRunner(testRepository(t), 1).Run(ctx, []scenario.Scenario{{Name: "base", Block: testBlock(t)}})
	require.ErrorIs(t, err, context.Canceled)
}
