package utils

import (
	"fmt"
	"time"
)

// DayCount names a day count convention.
type DayCount string

const (
	Act360  DayCount = "ACT/360"
	Act365F DayCount = "ACT/365F"
	Dc30360 DayCount = "30/360"
	Dc30E   DayCount = "30E/360"
)

// ParseDayCount validates a convention name. An empty name maps to ACT/365F.
func ParseDayCount(s string) (DayCount, error) {
	switch DayCount(s) {
	case "":
		return Act365F, nil
	case Act360, Act365F, Dc30360, Dc30E:
		return DayCount(s), nil
	default:
		return "", fmt.Errorf("ParseDayCount: unsupported convention %q", s)
	}
}

// YearFraction computes the year fraction between two dates using the given convention.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360
func YearFraction(start, end time.Time, convention DayCount) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Dc30E, Dc30360:
		// 30E/360: D1 and D2 are capped at 30
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}
