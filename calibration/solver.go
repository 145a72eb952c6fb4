package calibration

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/multicurve/config"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// layout maps a unit onto the stacked parameter and residual vectors. Curve c
// owns parameters and residual rows [offsets[c], offsets[c]+counts[c]).
type layout struct {
	unit        Unit
	names       []string
	index       map[string]int
	offsets     []int
	counts      []int
	nodes       [][]curve.Node
	instruments []instrument.Instrument
	// owner is the curve index of each residual row and quoteOffsets the
	// first row of each curve's instruments.
	owner        []int
	quoteOffsets []int
	quoteCounts  []int
	size         int
}

func newLayout(u Unit) layout {
	lay := layout{unit: u, index: make(map[string]int, len(u.Curves))}
	for ci, c := range u.Curves {
		nodes := c.nodes()
		n := c.Generator.ParameterCount(nodes)
		lay.names = append(lay.names, c.Name)
		lay.index[c.Name] = ci
		lay.offsets = append(lay.offsets, lay.size)
		lay.counts = append(lay.counts, n)
		lay.nodes = append(lay.nodes, nodes)
		lay.quoteOffsets = append(lay.quoteOffsets, len(lay.instruments))
		lay.quoteCounts = append(lay.quoteCounts, len(c.Instruments))
		for _, inst := range c.Instruments {
			lay.instruments = append(lay.instruments, inst)
			lay.owner = append(lay.owner, ci)
		}
		lay.size += n
	}
	return lay
}

func (l layout) initialGuess() []float64 {
	x := make([]float64, 0, l.size)
	for ci, c := range l.unit.Curves {
		if c.InitialGuess != nil {
			x = append(x, c.InitialGuess...)
			continue
		}
		x = append(x, c.Generator.InitialGuess(l.nodes[ci])...)
	}
	return x
}

// build splits x per curve and builds the trial curves.
func (l layout) build(x []float64) ([]curve.Curve, error) {
	curves := make([]curve.Curve, len(l.names))
	for ci, name := range l.names {
		off, n := l.offsets[ci], l.counts[ci]
		params := append([]float64(nil), x[off:off+n]...)
		c, err := l.unit.Curves[ci].Generator.Build(name, l.nodes[ci], params)
		if err != nil {
			return nil, err
		}
		curves[ci] = c
	}
	return curves, nil
}

type solution struct {
	params       []float64
	curves       []curve.Curve
	lu           *mat.LU
	residuals    []float64
	residualNorm float64
	iterations   int
}

// solve runs Newton iteration on the unit's stacked residuals over state.
// The returned factorization is of the Jacobian at the solution.
func (r *Repository) solve(lay layout, state *curve.Provider, logger *slog.Logger) (*solution, error) {
	x := lay.initialGuess()
	stepConverged := false

	for iter := 0; ; iter++ {
		curves, err := lay.build(x)
		if err != nil {
			return nil, err
		}
		trial := state.Extend(curves...)

		res, err := r.residuals(lay, trial)
		if err != nil {
			return nil, err
		}
		norm := floats.Norm(res, 2)
		logger.Debug("newton iteration", "iteration", iter, "residual_norm", norm)
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, &ConvergenceError{Iterations: iter, ResidualNorm: norm, Residuals: res}
		}

		converged := norm < r.cfg.AbsoluteTolerance || stepConverged
		if !converged && iter >= r.cfg.MaxIterations {
			return nil, &ConvergenceError{Iterations: iter, ResidualNorm: norm, Residuals: res}
		}

		jac, err := r.jacobian(lay, state, trial, x)
		if err != nil {
			return nil, err
		}
		lu, err := r.factorize(jac)
		if err != nil {
			return nil, err
		}
		if converged {
			return &solution{
				params:       x,
				curves:       curves,
				lu:           lu,
				residuals:    res,
				residualNorm: norm,
				iterations:   iter,
			}, nil
		}

		rhs := mat.NewVecDense(lay.size, nil)
		for i, v := range res {
			rhs.SetVec(i, -v)
		}
		var delta mat.VecDense
		if err := lu.SolveVecTo(&delta, false, rhs); err != nil {
			return nil, singular(err)
		}
		step := delta.RawVector().Data
		floats.Add(x, step)
		stepConverged = r.cfg.RelativeTolerance > 0 &&
			floats.Norm(step, 2) <= r.cfg.RelativeTolerance*(1+floats.Norm(x, 2))
	}
}

// factorize rejects Jacobians whose condition number exceeds the configured bound.
func (r *Repository) factorize(jac *mat.Dense) (*mat.LU, error) {
	var lu mat.LU
	lu.Factorize(jac)
	cond := lu.Cond()
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > r.cfg.MaxConditionNumber {
		return nil, &SingularJacobianError{Condition: cond}
	}
	return &lu, nil
}

func singular(err error) error {
	var c mat.Condition
	if errors.As(err, &c) {
		return &SingularJacobianError{Condition: float64(c)}
	}
	if errors.Is(err, mat.ErrSingular) {
		return &SingularJacobianError{Condition: math.Inf(1)}
	}
	return err
}

func (r *Repository) residuals(lay layout, p *curve.Provider) ([]float64, error) {
	res := make([]float64, lay.size)
	err := r.each(len(lay.instruments), func(i int) error {
		v, err := r.pricer.Residual(lay.instruments[i], p)
		if err != nil {
			return err
		}
		res[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// jacobian returns dr/dx at x, with trial holding the curves built from x.
func (r *Repository) jacobian(lay layout, state, trial *curve.Provider, x []float64) (*mat.Dense, error) {
	if r.cfg.Jacobian == config.JacobianFiniteDifference {
		return r.finiteDifferenceJacobian(lay, state, x)
	}

	jac := mat.NewDense(lay.size, lay.size, nil)
	err := r.each(len(lay.instruments), func(i int) error {
		inst := lay.instruments[i]
		for _, name := range inst.Curves() {
			ci, ok := lay.index[name]
			if !ok {
				continue
			}
			grad, err := r.pricer.ParameterGradient(inst, trial, name)
			if err != nil {
				return err
			}
			if len(grad) != lay.counts[ci] {
				return fmt.Errorf("%w: gradient of %s on %q has %d entries, want %d",
					curve.ErrInvalidParameterVector, inst.Label(), name, len(grad), lay.counts[ci])
			}
			for k, g := range grad {
				jac.Set(i, lay.offsets[ci]+k, g)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jac, nil
}

func (r *Repository) finiteDifferenceJacobian(lay layout, state *curve.Provider, x []float64) (*mat.Dense, error) {
	var evalErr error
	f := func(y, x []float64) {
		curves, err := lay.build(x)
		if err == nil {
			var res []float64
			res, err = r.residuals(lay, state.Extend(curves...))
			if err == nil {
				copy(y, res)
				return
			}
		}
		if evalErr == nil {
			evalErr = err
		}
		for i := range y {
			y[i] = 0
		}
	}
	jac := mat.NewDense(lay.size, lay.size, nil)
	fd.Jacobian(jac, f, x, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    r.cfg.FiniteDifferenceStep,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return jac, nil
}

// each calls fn for 0..n-1, on up to cfg.Workers goroutines. fn must only
// write state owned by its index.
func (r *Repository) each(n int, fn func(i int) error) error {
	if r.cfg.Workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
