package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/multicurve/utils"
)

// Tenor is a period such as 1W, 3M or 10Y.
type Tenor struct {
	N    int
	Unit byte // D, W, M or Y
}

// ParseTenor parses tenor strings like "1W", "3M", "10Y" or "ON".
func ParseTenor(s string) (Tenor, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	switch s {
	case "ON", "O/N":
		return Tenor{N: 1, Unit: 'D'}, nil
	case "":
		return Tenor{}, fmt.Errorf("ParseTenor: empty tenor")
	}
	unit := s[len(s)-1]
	switch unit {
	case 'D', 'W', 'M', 'Y':
	default:
		return Tenor{}, fmt.Errorf("ParseTenor: unknown unit in %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid count in %q", s)
	}
	return Tenor{N: n, Unit: unit}, nil
}

func (t Tenor) String() string { return strconv.Itoa(t.N) + string(t.Unit) }

// AddTo returns d moved forward by the tenor. Months and years roll like EDATE.
func (t Tenor) AddTo(d time.Time) time.Time {
	switch t.Unit {
	case 'D':
		return d.AddDate(0, 0, t.N)
	case 'W':
		return d.AddDate(0, 0, 7*t.N)
	case 'M':
		return utils.AddMonth(d, t.N)
	default:
		return utils.AddMonth(d, 12*t.N)
	}
}

// Months returns the tenor length in whole months, or 0 for day and week tenors.
func (t Tenor) Months() int {
	switch t.Unit {
	case 'M':
		return t.N
	case 'Y':
		return 12 * t.N
	default:
		return 0
	}
}
