package calibration_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/config"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
	"github.com/meenmo/multicurve/logging"
	"github.com/meenmo/multicurve/pricer"
)

func TestCalibrateSingleDeposit(t *testing.T) {
	t.Parallel()

	uc := calibration.UnitCurve{
		Name:      usdDsc,
		Generator: curve.YieldGenerator{Interpolator: curve.Linear},
		Instruments: []instrument.Instrument{
			instrument.Deposit{Name: "USD DEP 1Y", End: 1, Accrual: 1, Quote: 0.01, Curve: usdDsc},
		},
		InitialGuess: []float64{0},
	}
	res, err := newRepository(t, config.DefaultConfig).Calibrate(block(t, []calibration.UnitCurve{uc}), nil, nil)
	require.NoError(t, err)

	c, err := res.Curve(usdDsc)
	require.NoError(t, err)
	assert.InDelta(t, 1/1.01, c.DF(1), 1e-10)

	require.Len(t, res.Reports, 1)
	assert.Less(t, res.Reports[0].Iterations, 5)
	assert.Less(t, res.Reports[0].ResidualNorm, 1e-10)

	entry, ok := res.Bundle.Entry(usdDsc)
	require.True(t, ok)
	assert.Equal(t, []calibration.Axis{{Name: usdDsc, Kind: calibration.AxisQuotes, Count: 1}}, entry.Axes())
	rows, cols := entry.Dims()
	require.Equal(t, 1, rows)
	require.Equal(t, 1, cols)
	// p = ln(1+q)
	assert.InDelta(t, 1/1.01, entry.At(0, 0), 1e-9)
}

func TestCalibrateDiscountThenForward(t *testing.T) {
	t.Parallel()

	res, err := newRepository(t, config.DefaultConfig).Calibrate(
		block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{usdForward()}), nil, nil)
	require.NoError(t, err)

	ps := pricer.NewParSpread()
	for _, uc := range []calibration.UnitCurve{usdDiscount(), usdForward()} {
		for _, inst := range uc.Instruments {
			r, err := ps.Residual(inst, res.Provider)
			require.NoError(t, err)
			assert.LessOrEqual(t, r, 1e-9, inst.Label())
			assert.GreaterOrEqual(t, r, -1e-9, inst.Label())
		}
	}

	assert.Equal(t, []string{usdDsc, usdFwd}, res.Provider.Names())
	assert.Equal(t, []string{usdDsc, usdFwd}, res.Bundle.Names())

	dsc, ok := res.Bundle.Entry(usdDsc)
	require.True(t, ok)
	assert.Equal(t, []calibration.Axis{{Name: usdDsc, Kind: calibration.AxisQuotes, Count: 4}}, dsc.Axes())

	fwd, ok := res.Bundle.Entry(usdFwd)
	require.True(t, ok)
	assert.Equal(t, []calibration.Axis{
		{Name: usdDsc, Kind: calibration.AxisQuotes, Count: 4},
		{Name: usdFwd, Kind: calibration.AxisQuotes, Count: 4},
	}, fwd.Axes())

	own, ok := fwd.Columns(usdFwd)
	require.True(t, ok)
	assert.Greater(t, mat.Norm(own, 2), 0.0)
	upstream, ok := fwd.Columns(usdDsc)
	require.True(t, ok)
	assert.Greater(t, mat.Norm(upstream, 2), 0.0)
}

// The bundle must agree with bumping a quote and recalibrating everything.
func TestBundleMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	const h = 1e-5
	repo := newRepository(t, tightConfig())
	run := func(dsc, fwd calibration.UnitCurve) *calibration.Result {
		res, err := repo.Calibrate(block(t, []calibration.UnitCurve{dsc}, []calibration.UnitCurve{fwd}), nil, nil)
		require.NoError(t, err)
		return res
	}
	base := run(usdDiscount(), usdForward())

	check := func(axis string, j int, up, down *calibration.Result) {
		for _, name := range []string{usdDsc, usdFwd} {
			entry, _ := base.Bundle.Entry(name)
			off, ok := entry.Offset(axis)
			if !ok {
				continue
			}
			pu, pd := params(t, up, name), params(t, down, name)
			for i := range pu {
				fd := (pu[i] - pd[i]) / (2 * h)
				assert.InDelta(t, fd, entry.At(i, off+j), 1e-6, "d %s[%d] / d %s[%d]", name, i, axis, j)
			}
		}
	}

	for j := range usdDiscount().Instruments {
		up := run(withQuote(usdDiscount(), j, h), usdForward())
		down := run(withQuote(usdDiscount(), j, -h), usdForward())
		check(usdDsc, j, up, down)
	}
	for j := range usdForward().Instruments {
		up := run(usdDiscount(), withQuote(usdForward(), j, h))
		down := run(usdDiscount(), withQuote(usdForward(), j, -h))
		check(usdFwd, j, up, down)
	}
}

func TestFXAxis(t *testing.T) {
	t.Parallel()

	const (
		spot = 1.10
		h    = 1e-5
	)
	repo := newRepository(t, tightConfig())
	run := func(s float64) *calibration.Result {
		known := curve.NewProvider()
		known.SetFXRate("EURUSD", s)
		res, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{eurDiscount()}), known, nil)
		require.NoError(t, err)
		return res
	}
	base := run(spot)

	eur, ok := base.Bundle.Entry(eurDsc)
	require.True(t, ok)
	assert.Equal(t, []calibration.Axis{
		{Name: usdDsc, Kind: calibration.AxisQuotes, Count: 4},
		{Name: "FX:EURUSD", Kind: calibration.AxisFX, Count: 1},
		{Name: eurDsc, Kind: calibration.AxisQuotes, Count: 3},
	}, eur.Axes())

	off, ok := eur.Offset(calibration.FXAxisName("EURUSD"))
	require.True(t, ok)
	pu, pd := params(t, run(spot+h), eurDsc), params(t, run(spot-h), eurDsc)
	for i := range pu {
		fd := (pu[i] - pd[i]) / (2 * h)
		assert.InDelta(t, fd, eur.At(i, off), 1e-6)
		assert.NotZero(t, eur.At(i, off))
	}
}

func TestKnownCurveWithoutJacobianIsFixed(t *testing.T) {
	t.Parallel()

	repo := newRepository(t, config.DefaultConfig)
	dsc, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdDiscount()}), nil, nil)
	require.NoError(t, err)

	fixed, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdForward()}), dsc.Provider, nil)
	require.NoError(t, err)
	entry, _ := fixed.Bundle.Entry(usdFwd)
	assert.Equal(t, []calibration.Axis{{Name: usdFwd, Kind: calibration.AxisQuotes, Count: 4}}, entry.Axes())

	chained, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdForward()}), dsc.Provider, dsc.Bundle)
	require.NoError(t, err)
	entry, _ = chained.Bundle.Entry(usdFwd)
	assert.Len(t, entry.Axes(), 2)

	joint, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{usdForward()}), nil, nil)
	require.NoError(t, err)
	want, _ := joint.Bundle.Entry(usdFwd)
	assert.True(t, mat.EqualApprox(want.Jacobian(), entry.Jacobian(), 1e-12))

	// inputs are untouched
	assert.Equal(t, []string{usdDsc}, dsc.Provider.Names())
	assert.Equal(t, []string{usdDsc}, dsc.Bundle.Names())
}

func TestCalibrateBlocksMatchesSingleBlock(t *testing.T) {
	t.Parallel()

	repo := newRepository(t, config.DefaultConfig)
	seq, err := repo.CalibrateBlocks([]calibration.Block{
		block(t, []calibration.UnitCurve{usdDiscount()}),
		block(t, []calibration.UnitCurve{usdForward()}),
	}, nil, nil)
	require.NoError(t, err)
	joint, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{usdForward()}), nil, nil)
	require.NoError(t, err)

	require.Len(t, seq.Reports, 2)
	assert.Equal(t, 1, seq.Reports[1].Block)
	assert.Equal(t, seq.Reports[0].RunID, seq.Reports[1].RunID)
	for _, name := range []string{usdDsc, usdFwd} {
		assert.Equal(t, params(t, joint, name), params(t, seq, name))
		a, _ := seq.Bundle.Entry(name)
		b, _ := joint.Bundle.Entry(name)
		assert.True(t, mat.Equal(a.Jacobian(), b.Jacobian()))
	}
}

func TestCalibrateIsDeterministic(t *testing.T) {
	t.Parallel()

	parallel := config.DefaultConfig
	parallel.Workers = 4

	var results []*calibration.Result
	for _, cfg := range []config.Config{config.DefaultConfig, config.DefaultConfig, parallel} {
		res, err := newRepository(t, cfg).Calibrate(
			block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{usdForward()}), nil, nil)
		require.NoError(t, err)
		results = append(results, res)
	}
	for _, res := range results[1:] {
		for _, name := range []string{usdDsc, usdFwd} {
			assert.Equal(t, params(t, results[0], name), params(t, res, name))
			a, _ := results[0].Bundle.Entry(name)
			b, _ := res.Bundle.Entry(name)
			assert.True(t, mat.Equal(a.Jacobian(), b.Jacobian()))
		}
	}
}

func TestFiniteDifferenceJacobianMode(t *testing.T) {
	t.Parallel()

	fdCfg := config.DefaultConfig
	fdCfg.Jacobian = config.JacobianFiniteDifference
	b := block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{usdForward()})

	analytic, err := newRepository(t, config.DefaultConfig).Calibrate(b, nil, nil)
	require.NoError(t, err)
	numeric, err := newRepository(t, fdCfg).Calibrate(b, nil, nil)
	require.NoError(t, err)

	for _, name := range []string{usdDsc, usdFwd} {
		assert.InDeltaSlice(t, params(t, analytic, name), params(t, numeric, name), 1e-10)
		a, _ := analytic.Bundle.Entry(name)
		n, _ := numeric.Bundle.Entry(name)
		assert.True(t, mat.EqualApprox(a.Jacobian(), n.Jacobian(), 1e-6))
	}
}

func TestCalibratedCurveRebuildsIdentically(t *testing.T) {
	t.Parallel()

	res, err := newRepository(t, config.DefaultConfig).Calibrate(block(t, []calibration.UnitCurve{usdDiscount()}), nil, nil)
	require.NoError(t, err)
	c, err := res.Curve(usdDsc)
	require.NoError(t, err)

	uc := usdDiscount()
	nodes := make([]curve.Node, len(uc.Instruments))
	for i, inst := range uc.Instruments {
		nodes[i] = inst
	}
	rebuilt, err := uc.Generator.Build(usdDsc, nodes, c.Parameters())
	require.NoError(t, err)
	for _, at := range []float64{0.1, 0.5, 1.5, 3, 7} {
		assert.Equal(t, c.DF(at), rebuilt.DF(at))
	}
}

type recorder struct {
	mu     sync.Mutex
	ok     []calibration.UnitReport
	failed []error
}

func (r *recorder) UnitCalibrated(rep calibration.UnitReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ok = append(r.ok, rep)
}

func (r *recorder) UnitFailed(_ calibration.UnitReport, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func TestObserverAndLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := &recorder{}
	repo := newRepository(t, config.DefaultConfig,
		calibration.WithObserver(rec),
		calibration.WithLogger(logging.NewWithWriter(logging.Config{Level: "debug", Format: "json"}, &buf)))

	_, err := repo.Calibrate(block(t, []calibration.UnitCurve{usdDiscount()}, []calibration.UnitCurve{usdForward()}), nil, nil)
	require.NoError(t, err)

	require.Len(t, rec.ok, 2)
	assert.Empty(t, rec.failed)
	assert.Equal(t, []string{usdFwd}, rec.ok[1].Curves)
	assert.Positive(t, rec.ok[0].Iterations)

	out := buf.String()
	assert.Contains(t, out, `"msg":"unit converged"`)
	assert.Contains(t, out, `"msg":"newton iteration"`)
	assert.Contains(t, out, `"run_id":"`+rec.ok[0].RunID+`"`)
	assert.Equal(t, 2, strings.Count(out, `"msg":"calibrating unit"`))
}
