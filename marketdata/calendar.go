package marketdata

import (
	"fmt"
	"time"

	"github.com/meenmo/multicurve/utils"
)

// BusinessDay is a date rolling convention.
type BusinessDay string

const (
	Unadjusted        BusinessDay = "none"
	Following         BusinessDay = "following"
	ModifiedFollowing BusinessDay = "modified-following"
)

// Calendar rolls dates that fall on weekends or listed holidays. The zero
// value leaves every date unchanged.
type Calendar struct {
	Convention BusinessDay
	holidays   map[string]struct{}
}

// NewCalendar parses holidays given as YYYY-MM-DD.
func NewCalendar(conv BusinessDay, holidays []string) (Calendar, error) {
	switch conv {
	case "", Unadjusted, Following, ModifiedFollowing:
	default:
		return Calendar{}, fmt.Errorf("NewCalendar: unknown convention %q", conv)
	}
	cal := Calendar{Convention: conv, holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		d, err := utils.ParseDate(h)
		if err != nil {
			return Calendar{}, fmt.Errorf("NewCalendar: holiday: %w", err)
		}
		cal.holidays[d.Format(utils.DateLayout)] = struct{}{}
	}
	return cal, nil
}

// IsBusinessDay checks weekends and the holiday set.
func (c Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format(utils.DateLayout)]
	return !holiday
}

// Adjust rolls t by the calendar's convention.
func (c Calendar) Adjust(t time.Time) time.Time {
	switch c.Convention {
	case Following:
		return c.following(t)
	case ModifiedFollowing:
		adj := c.following(t)
		if adj.Month() != t.Month() {
			return c.preceding(t)
		}
		return adj
	default:
		return t
	}
}

func (c Calendar) following(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (c Calendar) preceding(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
