package calibration

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// chain stores, for every curve of the unit, dp/dq over the union of the
// unit's own quote axes, the axes of every upstream curve the unit is
// sensitive to and the FX spots it depends on.
//
// With J = dr/dp of the unit at the solution, the full sensitivity is
// dp/dq = -J^-1 * R where R stacks diag(dr/dq) for own quotes, dr/dp_k * B_k
// for each upstream curve k with bundle entry B_k, and dr/dS for FX spots.
func (r *Repository) chain(lay layout, sol *solution, state *curve.Provider, bundle *Bundle, logger *slog.Logger) error {
	upstream := r.upstream(lay, state, bundle, logger)

	axes, offsets, err := unionAxes(lay, upstream, bundle)
	if err != nil {
		return err
	}
	cols := 0
	for _, a := range axes {
		cols += a.Count
	}

	rhs := mat.NewDense(lay.size, cols, nil)
	for i, inst := range lay.instruments {
		ci := lay.owner[i]
		col := offsets[lay.names[ci]] + i - lay.quoteOffsets[ci]
		rhs.Set(i, col, r.pricer.QuoteGradient(inst))
	}

	for _, name := range upstream {
		entry, _ := bundle.Entry(name)
		rows, _ := entry.Dims()
		g := mat.NewDense(lay.size, rows, nil)
		for i, inst := range lay.instruments {
			if !instrument.References(inst, name) {
				continue
			}
			grad, err := r.pricer.ParameterGradient(inst, state, name)
			if err != nil {
				return err
			}
			if len(grad) != rows {
				return fmt.Errorf("%w: gradient of %s on %q has %d entries, bundle has %d rows",
					curve.ErrInvalidParameterVector, inst.Label(), name, len(grad), rows)
			}
			g.SetRow(i, grad)
		}

		var gb mat.Dense
		gb.Mul(g, entry.jacobian)
		for _, a := range entry.axes {
			src := entry.offsets[a.Name]
			dst := offsets[a.Name]
			for i := 0; i < lay.size; i++ {
				for j := 0; j < a.Count; j++ {
					rhs.Set(i, dst+j, rhs.At(i, dst+j)+gb.At(i, src+j))
				}
			}
		}
	}

	if fxp, ok := r.pricer.(FXPricer); ok {
		for i, inst := range lay.instruments {
			grads, err := fxp.FXGradient(inst, state)
			if err != nil {
				return err
			}
			for pair, v := range grads {
				col, ok := offsets[FXAxisName(pair)]
				if !ok {
					return fmt.Errorf("chain: %s reports FX pair %q it does not declare", inst.Label(), pair)
				}
				rhs.Set(i, col, rhs.At(i, col)+v)
			}
		}
	}

	var dpdq mat.Dense
	if err := sol.lu.SolveTo(&dpdq, false, rhs); err != nil {
		return singular(err)
	}
	dpdq.Scale(-1, &dpdq)

	for ci, name := range lay.names {
		off, n := lay.offsets[ci], lay.counts[ci]
		rows := mat.DenseCopyOf(dpdq.Slice(off, off+n, 0, cols))
		bundle.put(name, newEntry(axes, rows))
	}
	return nil
}

// upstream returns, in provider order, the curves outside the unit that its
// instruments reference and that carry a bundle entry. Referenced curves
// without an entry are exogenous inputs and contribute no columns.
func (r *Repository) upstream(lay layout, state *curve.Provider, bundle *Bundle, logger *slog.Logger) []string {
	var names []string
	for _, name := range state.Names() {
		if _, own := lay.index[name]; own {
			continue
		}
		referenced := false
		for _, inst := range lay.instruments {
			if instrument.References(inst, name) {
				referenced = true
				break
			}
		}
		if !referenced {
			continue
		}
		if _, ok := bundle.Entry(name); !ok {
			logger.Debug("upstream curve has no jacobian, treating as fixed", "curve", name)
			continue
		}
		names = append(names, name)
	}
	return names
}

// unionAxes orders the columns as upstream axes in provider order, then FX
// spots, then the unit's own quote axes in curve order.
func unionAxes(lay layout, upstream []string, bundle *Bundle) ([]Axis, map[string]int, error) {
	var axes []Axis
	offsets := make(map[string]int)
	cols := 0
	add := func(a Axis) error {
		if _, ok := offsets[a.Name]; ok {
			for _, b := range axes {
				if b.Name == a.Name && (b.Count != a.Count || b.Kind != a.Kind) {
					return fmt.Errorf("chain: axis %q has %d columns in one Jacobian and %d in another",
						a.Name, b.Count, a.Count)
				}
			}
			return nil
		}
		offsets[a.Name] = cols
		cols += a.Count
		axes = append(axes, a)
		return nil
	}

	for _, name := range upstream {
		entry, _ := bundle.Entry(name)
		for _, a := range entry.axes {
			if err := add(a); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, inst := range lay.instruments {
		for _, pair := range instrument.FXPairs(inst) {
			if err := add(Axis{Name: FXAxisName(pair), Kind: AxisFX, Count: 1}); err != nil {
				return nil, nil, err
			}
		}
	}
	for ci, name := range lay.names {
		if err := add(Axis{Name: name, Kind: AxisQuotes, Count: lay.quoteCounts[ci]}); err != nil {
			return nil, nil, err
		}
	}
	return axes, offsets, nil
}
