package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/multicurve/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.DefaultConfig.Validate())
	require.NoError(t, config.DefaultApp.Validate())
}

func TestConfigValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero tolerance", func(c *config.Config) { c.AbsoluteTolerance = 0 }},
		{"negative relative tolerance", func(c *config.Config) { c.RelativeTolerance = -1 }},
		{"no iterations", func(c *config.Config) { c.MaxIterations = 0 }},
		{"condition bound", func(c *config.Config) { c.MaxConditionNumber = 0.5 }},
		{"unknown jacobian", func(c *config.Config) { c.Jacobian = "broyden" }},
		{"zero step", func(c *config.Config) { c.FiniteDifferenceStep = 0 }},
		{"no workers", func(c *config.Config) { c.Workers = 0 }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	app, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, app.Solver)
	assert.Equal(t, "info", app.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curvecal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solver:
  max_iterations: 25
  jacobian: finite-difference
log:
  level: debug
  format: json
`), 0o600))
	t.Setenv("MULTICURVE_SOLVER_WORKERS", "4")

	app, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, app.Solver.MaxIterations)
	assert.Equal(t, config.JacobianFiniteDifference, app.Solver.Jacobian)
	assert.Equal(t, 4, app.Solver.Workers)
	assert.Equal(t, config.DefaultConfig.AbsoluteTolerance, app.Solver.AbsoluteTolerance)
	assert.Equal(t, "debug", app.Log.Level)
	assert.Equal(t, "json", app.Log.Format)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_iterations: 0\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
