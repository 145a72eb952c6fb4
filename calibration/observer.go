package calibration

import "time"

// UnitReport summarizes the calibration of one unit.
type UnitReport struct {
	RunID        string
	Block        int
	Unit         int
	Curves       []string
	Iterations   int
	ResidualNorm float64
	Duration     time.Duration
}

// Observer receives unit outcomes. Implementations must be safe for
// concurrent use when a Repository is shared across goroutines.
type Observer interface {
	UnitCalibrated(r UnitReport)
	UnitFailed(r UnitReport, err error)
}

type nopObserver struct{}

func (nopObserver) UnitCalibrated(UnitReport)    {}
func (nopObserver) UnitFailed(UnitReport, error) {}
