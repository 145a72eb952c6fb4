package calibration

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meenmo/multicurve/config"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
	"github.com/meenmo/multicurve/logging"
)

// Pricer computes instrument residuals and their gradients.
type Pricer interface {
	// Residual is model quote minus market quote.
	Residual(inst instrument.Instrument, p *curve.Provider) (float64, error)
	// ParameterGradient is d residual / d parameters of the named curve.
	ParameterGradient(inst instrument.Instrument, p *curve.Provider, name string) ([]float64, error)
	// QuoteGradient is d residual / d market quote.
	QuoteGradient(inst instrument.Instrument) float64
}

// FXPricer is implemented by pricers whose residuals depend on FX spot rates.
type FXPricer interface {
	FXGradient(inst instrument.Instrument, p *curve.Provider) (map[string]float64, error)
}

// Result is the outcome of a successful calibration.
type Result struct {
	// Provider holds the known curves and every curve calibrated so far.
	Provider *curve.Provider
	// Bundle holds the known Jacobians and one entry per calibrated curve.
	Bundle  *Bundle
	Reports []UnitReport
}

// Curve returns a calibrated or known curve by name.
func (r *Result) Curve(name string) (curve.Curve, error) { return r.Provider.Curve(name) }

// Repository calibrates blocks of units. It holds no state between calls and
// is safe for concurrent use when its Observer is.
type Repository struct {
	cfg      config.Config
	pricer   Pricer
	logger   *slog.Logger
	observer Observer
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the observer notified after each unit.
func WithObserver(o Observer) Option {
	return func(r *Repository) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRepository validates cfg and returns a repository pricing with p.
func NewRepository(p Pricer, cfg config.Config, opts ...Option) (*Repository, error) {
	if p == nil {
		return nil, fmt.Errorf("NewRepository: nil pricer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewRepository: %w", err)
	}
	r := &Repository{
		cfg:      cfg,
		pricer:   p,
		logger:   logging.Discard(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the solver configuration.
func (r *Repository) Config() config.Config { return r.cfg }

// Calibrate solves the units of block in order on top of the known curves
// and their Jacobians. known and knownBundle may be nil and are never
// modified. Any unit failure aborts the block and returns a *UnitError.
func (r *Repository) Calibrate(block Block, known *curve.Provider, knownBundle *Bundle) (*Result, error) {
	state, bundle := seed(known, knownBundle)
	reports, err := r.calibrateBlock(0, block, state, bundle, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &Result{Provider: state, Bundle: bundle, Reports: reports}, nil
}

// CalibrateBlocks calibrates blocks in sequence, each on top of the curves
// and Jacobians produced by the previous ones.
func (r *Repository) CalibrateBlocks(blocks []Block, known *curve.Provider, knownBundle *Bundle) (*Result, error) {
	state, bundle := seed(known, knownBundle)
	runID := uuid.NewString()
	var reports []UnitReport
	for i, b := range blocks {
		rep, err := r.calibrateBlock(i, b, state, bundle, runID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep...)
	}
	return &Result{Provider: state, Bundle: bundle, Reports: reports}, nil
}

func seed(known *curve.Provider, knownBundle *Bundle) (*curve.Provider, *Bundle) {
	state := curve.NewProvider()
	if known != nil {
		state = known.Flatten()
	}
	bundle := NewBundle()
	if knownBundle != nil {
		bundle = knownBundle.clone()
	}
	return state, bundle
}

func (r *Repository) calibrateBlock(bi int, block Block, state *curve.Provider, bundle *Bundle, runID string) ([]UnitReport, error) {
	if err := block.Validate(); err != nil {
		var ue *UnitError
		if errors.As(err, &ue) {
			ue.Block = bi
			return nil, ue
		}
		return nil, &UnitError{Block: bi, Unit: -1, Err: err}
	}

	logger := r.logger.With("run_id", runID, "block", bi)
	reports := make([]UnitReport, 0, len(block.Units))
	for ui, u := range block.Units {
		names := u.Names()
		report := UnitReport{RunID: runID, Block: bi, Unit: ui, Curves: names}
		ulog := logger.With("unit", ui, "curves", names)
		ulog.Info("calibrating unit")
		start := time.Now()

		lay := newLayout(u)
		sol, err := r.solve(lay, state, ulog)
		if err == nil {
			for _, c := range sol.curves {
				state.Add(c)
			}
			err = r.chain(lay, sol, state, bundle, ulog)
		}

		report.Duration = time.Since(start)
		if sol != nil {
			report.Iterations = sol.iterations
			report.ResidualNorm = sol.residualNorm
		}
		if err != nil {
			var ce *ConvergenceError
			if errors.As(err, &ce) {
				report.Iterations = ce.Iterations
				report.ResidualNorm = ce.ResidualNorm
			}
			ulog.Error("unit failed", "error", err, "reason", FailureReason(err))
			r.observer.UnitFailed(report, err)
			return nil, &UnitError{Block: bi, Unit: ui, Curves: names, Err: err}
		}

		ulog.Info("unit converged",
			"iterations", sol.iterations,
			"residual_norm", sol.residualNorm,
			"duration", report.Duration)
		r.observer.UnitCalibrated(report)
		reports = append(reports, report)
	}
	return reports, nil
}
