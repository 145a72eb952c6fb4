package marketdata

import (
	"time"

	"github.com/meenmo/multicurve/instrument"
	"github.com/meenmo/multicurve/utils"
)

// Schedule rolls regular periods of months backward from maturity. A first
// rolled date within 7 days of effective is dropped so the front stub is long
// rather than tiny. Rolled dates are then adjusted by cal. Times are ACT/365F
// year fractions from valuation and accruals use dc.
func Schedule(valuation, effective, maturity time.Time, months int, dc utils.DayCount, cal Calendar) []instrument.Period {
	if months <= 0 || !maturity.After(effective) {
		return nil
	}

	var dates []time.Time
	for k := 0; ; k++ {
		d := utils.AddMonth(maturity, -k*months)
		if !d.After(effective) {
			break
		}
		dates = append([]time.Time{d}, dates...)
	}
	if days := utils.Days(effective, dates[0]); days > 0 && days <= 7 && len(dates) > 1 {
		dates = dates[1:]
	}
	for i := range dates {
		dates[i] = cal.Adjust(dates[i])
	}
	dates = append([]time.Time{effective}, dates...)

	periods := make([]instrument.Period, 0, len(dates)-1)
	for i := 0; i < len(dates)-1; i++ {
		start, end := dates[i], dates[i+1]
		periods = append(periods, instrument.Period{
			Start:   curveTime(valuation, start),
			End:     curveTime(valuation, end),
			Pay:     curveTime(valuation, end),
			Accrual: utils.YearFraction(start, end, dc),
		})
	}
	return periods
}

// curveTime is the ACT/365F time axis shared by every curve.
func curveTime(valuation, d time.Time) float64 {
	return utils.YearFraction(valuation, d, utils.Act365F)
}
