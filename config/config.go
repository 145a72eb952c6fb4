// Package config holds the calibration engine parameters and the loader for
// the command line application's configuration file.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// JacobianMode selects how the Newton solver obtains dr/dp.
type JacobianMode string

const (
	JacobianAnalytic         JacobianMode = "analytic"
	JacobianFiniteDifference JacobianMode = "finite-difference"
)

// Config holds solver parameters for curve calibration.
type Config struct {
	// AbsoluteTolerance is the residual norm below which a unit is converged.
	AbsoluteTolerance float64 `mapstructure:"absolute_tolerance" yaml:"absolute_tolerance" validate:"gt=0"`

	// RelativeTolerance stops the iteration once ||dx|| <= RelativeTolerance * (1 + ||x||).
	// Zero disables the step criterion.
	RelativeTolerance float64 `mapstructure:"relative_tolerance" yaml:"relative_tolerance" validate:"gte=0"`

	// MaxIterations bounds the number of Newton steps per unit.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations" validate:"gte=1"`

	// MaxConditionNumber is the largest Jacobian condition number accepted
	// before the unit fails as singular.
	MaxConditionNumber float64 `mapstructure:"max_condition_number" yaml:"max_condition_number" validate:"gt=1"`

	// Jacobian selects analytic pricer gradients or finite differences of the residuals.
	Jacobian JacobianMode `mapstructure:"jacobian" yaml:"jacobian" validate:"oneof=analytic finite-difference"`

	// FiniteDifferenceStep is the parameter bump used in finite-difference mode.
	FiniteDifferenceStep float64 `mapstructure:"finite_difference_step" yaml:"finite_difference_step" validate:"gt=0"`

	// Workers is the number of goroutines evaluating instruments within one
	// Newton iteration. 1 evaluates sequentially.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=1"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	AbsoluteTolerance:    1e-10,
	RelativeTolerance:    1e-10,
	MaxIterations:        100,
	MaxConditionNumber:   1e14,
	Jacobian:             JacobianAnalytic,
	FiniteDifferenceStep: 1e-7,
	Workers:              1,
}

var validate = validator.New()

// Validate checks c against its field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid solver configuration: %w", err)
	}
	return nil
}
