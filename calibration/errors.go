package calibration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnderOrOverDeterminedUnit is returned before any iteration when a unit's
	// instrument count differs from its parameter count.
	ErrUnderOrOverDeterminedUnit = errors.New("under- or over-determined unit")
	// ErrCalibrationDidNotConverge is returned when Newton iteration exhausts
	// its iteration budget.
	ErrCalibrationDidNotConverge = errors.New("calibration did not converge")
	// ErrNonInvertibleJacobian is returned when the unit Jacobian is singular or
	// too ill-conditioned to solve.
	ErrNonInvertibleJacobian = errors.New("non-invertible jacobian")
	// ErrInvalidUnit is returned for structurally invalid units and blocks.
	ErrInvalidUnit = errors.New("invalid unit")
)

// DimensionError reports the counts of an under- or over-determined unit.
type DimensionError struct {
	Parameters  int
	Instruments int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %d parameters, %d instruments", ErrUnderOrOverDeterminedUnit, e.Parameters, e.Instruments)
}

func (e *DimensionError) Unwrap() error { return ErrUnderOrOverDeterminedUnit }

// ConvergenceError carries the state of the last Newton iteration.
type ConvergenceError struct {
	Iterations   int
	ResidualNorm float64
	Residuals    []float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations: residual norm %g", ErrCalibrationDidNotConverge, e.Iterations, e.ResidualNorm)
}

func (e *ConvergenceError) Unwrap() error { return ErrCalibrationDidNotConverge }

// SingularJacobianError carries the estimated condition number of the rejected Jacobian.
type SingularJacobianError struct {
	Condition float64
}

func (e *SingularJacobianError) Error() string {
	return fmt.Sprintf("%s: condition number %g", ErrNonInvertibleJacobian, e.Condition)
}

func (e *SingularJacobianError) Unwrap() error { return ErrNonInvertibleJacobian }

// UnitError locates a failure within a block.
type UnitError struct {
	Block  int
	Unit   int
	Curves []string
	Err    error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("block %d unit %d [%s]: %v", e.Block, e.Unit, strings.Join(e.Curves, ", "), e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// FailureReason classifies a calibration error for metrics and logs.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnderOrOverDeterminedUnit):
		return "dimension"
	case errors.Is(err, ErrCalibrationDidNotConverge):
		return "convergence"
	case errors.Is(err, ErrNonInvertibleJacobian):
		return "singular"
	case errors.Is(err, ErrInvalidUnit):
		return "invalid"
	default:
		return "pricing"
	}
}
