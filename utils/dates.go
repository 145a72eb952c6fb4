package utils

import (
	"fmt"
	"time"
)

// DateLayout is the date format used by request files and reports.
const DateLayout = "2006-01-02"

// ParseDate converts YYYY-MM-DD to a UTC time.Time.
func ParseDate(strDate string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// Days returns the number of calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if target.Month() == t.AddDate(0, months, 0).Month() {
		return t.AddDate(0, months, 0)
	}

	d := t.AddDate(0, months, 0)
	origMonth := d.Month()
	for d.Month() == origMonth {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
