package curve_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/multicurve/curve"
)

func TestInterpolatedDiscountFactors(t *testing.T) {
	t.Parallel()

	times := []float64{1, 2, 5}
	zeros := []float64{0.01, 0.02, 0.03}

	tests := []struct {
		name   string
		interp curve.Interpolator
		t      float64
		want   float64
	}{
		{"linear origin", curve.Linear, 0, 1},
		{"linear before first node", curve.Linear, 0.5, math.Exp(-0.01 * 0.5)},
		{"linear on node", curve.Linear, 2, math.Exp(-0.02 * 2)},
		{"linear between nodes", curve.Linear, 3.5, math.Exp(-0.025 * 3.5)},
		{"linear beyond last node", curve.Linear, 10, math.Exp(-0.03 * 10)},
		{"log-linear before first node", curve.LogLinear, 0.5, math.Exp(-0.01 * 0.5)},
		{"log-linear between nodes", curve.LogLinear, 1.5, math.Exp(-0.5*0.01 - 0.5*0.04)},
		{"log-linear beyond last node", curve.LogLinear, 7, math.Exp(-0.03 * 7)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := curve.NewInterpolated("USD", times, zeros, tc.interp)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, c.DF(tc.t), 1e-15)
		})
	}
}

func TestInterpolatedSensitivityMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	times := []float64{0.5, 1, 2, 5}
	zeros := []float64{0.011, 0.014, 0.019, 0.027}
	const h = 1e-6

	for _, interp := range []curve.Interpolator{curve.Linear, curve.LogLinear} {
		c, err := curve.NewInterpolated("EUR", times, zeros, interp)
		require.NoError(t, err)

		for _, at := range []float64{0.25, 0.5, 0.75, 1.6, 5, 8} {
			sens := c.DFParameterSensitivity(at)
			require.Len(t, sens, len(zeros))
			for k := range zeros {
				up := append([]float64(nil), zeros...)
				dn := append([]float64(nil), zeros...)
				up[k] += h
				dn[k] -= h
				cu, err := c.WithParameters(up)
				require.NoError(t, err)
				cd, err := c.WithParameters(dn)
				require.NoError(t, err)
				fd := (cu.DF(at) - cd.DF(at)) / (2 * h)
				assert.InDelta(t, fd, sens[k], 1e-8, "%s t=%g k=%d", interp, at, k)
			}
		}
	}
}

func TestInterpolatedRejectsBadNodes(t *testing.T) {
	t.Parallel()

	_, err := curve.NewInterpolated("X", nil, nil, curve.Linear)
	require.ErrorIs(t, err, curve.ErrInvalidNodes)

	_, err = curve.NewInterpolated("X", []float64{2, 1}, []float64{0, 0}, curve.Linear)
	require.ErrorIs(t, err, curve.ErrInvalidNodes)

	_, err = curve.NewInterpolated("X", []float64{0, 1}, []float64{0, 0}, curve.Linear)
	require.ErrorIs(t, err, curve.ErrInvalidNodes)

	_, err = curve.NewInterpolated("X", []float64{1, 2}, []float64{0}, curve.Linear)
	require.ErrorIs(t, err, curve.ErrInvalidParameterVector)

	_, err = curve.NewInterpolated("X", []float64{1}, []float64{math.NaN()}, curve.Linear)
	require.ErrorIs(t, err, curve.ErrInvalidParameterVector)
}

func TestInterpolatedRepeatedNodeUsesFirst(t *testing.T) {
	t.Parallel()

	c, err := curve.NewInterpolated("X", []float64{1, 1, 2}, []float64{0.01, 0.05, 0.02}, curve.Linear)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.01), c.DF(1), 1e-15)
	sens := c.DFParameterSensitivity(1)
	assert.Zero(t, sens[1])
}

func TestInterpolatedAccessorsCopy(t *testing.T) {
	t.Parallel()

	c, err := curve.NewInterpolated("X", []float64{1, 2}, []float64{0.01, 0.02}, curve.LogLinear)
	require.NoError(t, err)
	assert.Equal(t, curve.LogLinear, c.Interpolator())

	times := c.Times()
	assert.Equal(t, []float64{1, 2}, times)
	times[0] = 99
	assert.Equal(t, []float64{1, 2}, c.Times())

	fwd := curve.SimpleForward(c, 1, 2, 1)
	assert.InDelta(t, math.Exp(0.04-0.01)-1, fwd, 1e-15)
}

func TestParseInterpolator(t *testing.T) {
	t.Parallel()

	got, err := curve.ParseInterpolator("")
	require.NoError(t, err)
	assert.Equal(t, curve.Linear, got)

	got, err = curve.ParseInterpolator("Log-Linear")
	require.NoError(t, err)
	assert.Equal(t, curve.LogLinear, got)

	_, err = curve.ParseInterpolator("cubic")
	require.Error(t, err)
}
