// Package scenario runs independent calibrations concurrently and builds
// bumped copies of a block for finite-difference risk.
package scenario

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// Scenario is one independent calibration.
type Scenario struct {
	Name        string
	Block       calibration.Block
	Known       *curve.Provider
	KnownBundle *calibration.Bundle
}

// Outcome is the result of one scenario. Err is set when its calibration failed.
type Outcome struct {
	Name   string
	Result *calibration.Result
	Err    error
}

// Runner calibrates scenarios on a shared Repository.
type Runner struct {
	repo     *calibration.Repository
	limit    int
	progress func(done, total int)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithProgress registers a callback invoked after each scenario finishes. It
// may be called from several goroutines.
func WithProgress(fn func(done, total int)) RunnerOption {
	return func(r *Runner) { r.progress = fn }
}

// NewRunner returns a runner calibrating up to limit scenarios at once. A
// non-positive limit runs them one at a time.
func NewRunner(repo *calibration.Repository, limit int, opts ...RunnerOption) *Runner {
	if limit < 1 {
		limit = 1
	}
	r := &Runner{repo: repo, limit: limit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calibrates every scenario and returns the outcomes in input order. A
// failed calibration is reported in its Outcome and does not stop the others.
// Run returns an error only when ctx is done before every scenario started.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) ([]Outcome, error) {
	outcomes := make([]Outcome, len(scenarios))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, sc := range scenarios {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.repo.Calibrate(sc.Block, sc.Known, sc.KnownBundle)
			outcomes[i] = Outcome{Name: sc.Name, Result: res, Err: err}
			if r.progress != nil {
				r.progress(int(done.Add(1)), len(scenarios))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("scenario: %w", err)
	}
	if err := ctx.Err(); err != nil && int(done.Load()) < len(scenarios) {
		return outcomes, fmt.Errorf("scenario: %w", err)
	}
	return outcomes, nil
}

// Filter selects instruments by curve name and index within the curve.
type Filter func(curveName string, index int, inst instrument.Instrument) bool

// ShiftQuotes returns a copy of b with shift added to the quote of every
// instrument selected by filter. A nil filter selects all.
func ShiftQuotes(b calibration.Block, shift float64, filter Filter) calibration.Block {
	out := calibration.Block{Units: make([]calibration.Unit, len(b.Units))}
	for ui, u := range b.Units {
		curves := make([]calibration.UnitCurve, len(u.Curves))
		for ci, c := range u.Curves {
			insts := make([]instrument.Instrument, len(c.Instruments))
			for j, inst := range c.Instruments {
				if filter == nil || filter(c.Name, j, inst) {
					inst = inst.WithMarketQuote(inst.MarketQuote() + shift)
				}
				insts[j] = inst
			}
			c.Instruments = insts
			curves[ci] = c
		}
		out.Units[ui] = calibration.Unit{Curves: curves}
	}
	return out
}

// Bump is a block with one quote shifted.
type Bump struct {
	Curve string
	Index int
	Label string
	Block calibration.Block
}

// BumpEach returns one bumped block per instrument of b, in calibration order.
func BumpEach(b calibration.Block, shift float64) []Bump {
	var bumps []Bump
	for _, u := range b.Units {
		for _, c := range u.Curves {
			for j, inst := range c.Instruments {
				name, index := c.Name, j
				bumps = append(bumps, Bump{
					Curve: name,
					Index: index,
					Label: inst.Label(),
					Block: ShiftQuotes(b, shift, func(cn string, k int, _ instrument.Instrument) bool {
						return cn == name && k == index
					}),
				})
			}
		}
	}
	return bumps
}

// Scenarios names each bump and pairs it with the known inputs.
func Scenarios(bumps []Bump, known *curve.Provider, knownBundle *calibration.Bundle) []Scenario {
	out := make([]Scenario, len(bumps))
	for i, b := range bumps {
		out[i] = Scenario{
			Name:        fmt.Sprintf("%s[%d] %s", b.Curve, b.Index, b.Label),
			Block:       b.Block,
			Known:       known,
			KnownBundle: knownBundle,
		}
	}
	return out
}
