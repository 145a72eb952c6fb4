package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/meenmo/multicurve/logging"
)

// EnvPrefix prefixes environment overrides, e.g. MULTICURVE_SOLVER_MAX_ITERATIONS.
const EnvPrefix = "MULTICURVE"

// Metrics configures the Prometheus text file written after a run.
type Metrics struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace" validate:"omitempty,alphanum"`
	File      string `mapstructure:"file" yaml:"file"`
}

// App is the configuration of the curvecal command.
type App struct {
	Solver  Config         `mapstructure:"solver" yaml:"solver"`
	Log     logging.Config `mapstructure:"log" yaml:"log"`
	Metrics Metrics        `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultApp is the configuration used when no file is given.
var DefaultApp = App{
	Solver: DefaultConfig,
	Log:    logging.Config{Level: "info", Format: "text"},
	Metrics: Metrics{
		Namespace: "multicurve",
	},
}

// Load reads path (YAML, TOML or JSON by extension) over DefaultApp, applies
// MULTICURVE_* environment overrides and validates the result. An empty path
// loads defaults and environment only.
func Load(path string) (App, error) {
	v := viper.New()
	setDefaults(v, DefaultApp)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return App{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var app App
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// Validate checks every section of the application configuration.
func (a App) Validate() error {
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("config: %d invalid field(s): %w", len(verrs), err)
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, app App) {
	s := app.Solver
	v.SetDefault("solver.absolute_tolerance", s.AbsoluteTolerance)
	v.SetDefault("solver.relative_tolerance", s.RelativeTolerance)
	v.SetDefault("solver.max_iterations", s.MaxIterations)
	v.SetDefault("solver.max_condition_number", s.MaxConditionNumber)
	v.SetDefault("solver.jacobian", string(s.Jacobian))
	v.SetDefault("solver.finite_difference_step", s.FiniteDifferenceStep)
	v.SetDefault("solver.workers", s.Workers)

	l := app.Log
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.format", l.Format)
	v.SetDefault("log.file", l.File)
	v.SetDefault("log.max_size", l.MaxSize)
	v.SetDefault("log.max_backups", l.MaxBackups)
	v.SetDefault("log.max_age", l.MaxAge)
	v.SetDefault("log.compress", l.Compress)

	v.SetDefault("metrics.namespace", app.Metrics.Namespace)
	v.SetDefault("metrics.file", app.Metrics.File)
}
