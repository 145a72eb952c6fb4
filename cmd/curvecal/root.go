package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/config"
	"github.com/meenmo/multicurve/logging"
	"github.com/meenmo/multicurve/marketdata"
	"github.com/meenmo/multicurve/metrics"
	"github.com/meenmo/multicurve/pricer"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	metricsFile string

	cfg     config.App
	logger  *slog.Logger
	metrics *metrics.Calibration
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "curvecal",
		Short:        "Calibrate discount and forward curves with their quote Jacobians",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.flushMetrics()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (yaml, toml or json)")
	flags.StringVar(&a.logLevel, "log-level", "", "override log level: debug, info, warn or error")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus text metrics to this file after the run")

	root.AddCommand(newCalibrateCmd(a), newRiskCmd(a), newScenariosCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsFile != "" {
		cfg.Metrics.File = a.metricsFile
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log)
	a.metrics = metrics.NewCalibration(cfg.Metrics.Namespace)
	return nil
}

func (a *app) flushMetrics() error {
	if a.cfg.Metrics.File == "" || a.metrics == nil {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.File); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (a *app) repository() (*calibration.Repository, pricer.ParSpread, error) {
	ps := pricer.NewParSpread()
	repo, err := calibration.NewRepository(ps, a.cfg.Solver,
		calibration.WithLogger(a.logger),
		calibration.WithObserver(a.metrics))
	return repo, ps, err
}

func loadMarket(path string) (*marketdata.Market, error) {
	if path == "" {
		return nil, fmt.Errorf("--request is required")
	}
	req, err := marketdata.Load(path)
	if err != nil {
		return nil, err
	}
	return req.Build()
}
