package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/multicurve/utils"
)

func TestAddMonthClampsToMonthEnd(t *testing.T) {
	t.Parallel()

	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), utils.AddMonth(jan31, 1))
	assert.Equal(t, time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC), utils.AddMonth(jan31, -2))
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), utils.AddMonth(jan31, 12))
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 182.0/360, utils.YearFraction(start, end, utils.Act360), 1e-15)
	assert.InDelta(t, 182.0/365, utils.YearFraction(start, end, utils.Act365F), 1e-15)
	assert.InDelta(t, 0.5, utils.YearFraction(start, end, utils.Dc30E), 1e-15)
}

func TestParsers(t *testing.T) {
	t.Parallel()

	dc, err := utils.ParseDayCount("")
	require.NoError(t, err)
	assert.Equal(t, utils.Act365F, dc)
	_, err = utils.ParseDayCount("ACT/ACT")
	assert.Error(t, err)

	d, err := utils.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())
	_, err = utils.ParseDate("29/02/2024")
	assert.Error(t, err)
}
