// Package calibration solves blocks of curve units against market quotes and
// accumulates the Jacobian of every calibrated curve's parameters with
// respect to the quotes it was built from.
package calibration

import (
	"fmt"

	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
)

// UnitCurve is one curve of a unit with the instruments that determine it.
type UnitCurve struct {
	Name        string
	Generator   curve.Generator
	Instruments []instrument.Instrument
	// InitialGuess overrides the generator's initial guess when set.
	InitialGuess []float64
}

func (c UnitCurve) nodes() []curve.Node {
	nodes := make([]curve.Node, len(c.Instruments))
	for i, inst := range c.Instruments {
		nodes[i] = inst
	}
	return nodes
}

// Unit is a set of curves solved simultaneously.
type Unit struct {
	Curves []UnitCurve
}

// NewUnit returns a validated unit.
func NewUnit(curves ...UnitCurve) (Unit, error) {
	u := Unit{Curves: curves}
	if err := u.Validate(); err != nil {
		return Unit{}, err
	}
	return u, nil
}

// Names returns the curve names in unit order.
func (u Unit) Names() []string {
	names := make([]string, len(u.Curves))
	for i, c := range u.Curves {
		names[i] = c.Name
	}
	return names
}

// Validate checks the unit structure and that it is exactly determined.
// Instruments of a curve must be in non-decreasing maturity order.
func (u Unit) Validate() error {
	if len(u.Curves) == 0 {
		return fmt.Errorf("%w: no curves", ErrInvalidUnit)
	}
	seen := make(map[string]struct{}, len(u.Curves))
	params, insts := 0, 0
	for i, c := range u.Curves {
		if c.Name == "" {
			return fmt.Errorf("%w: curve %d has no name", ErrInvalidUnit, i)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: duplicate curve %q", ErrInvalidUnit, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Generator == nil {
			return fmt.Errorf("%w: curve %q has no generator", ErrInvalidUnit, c.Name)
		}
		for j, inst := range c.Instruments {
			if inst == nil {
				return fmt.Errorf("%w: curve %q instrument %d is nil", ErrInvalidUnit, c.Name, j)
			}
			if j > 0 && inst.Maturity() < c.Instruments[j-1].Maturity() {
				return fmt.Errorf("%w: curve %q instrument %q matures at %g before %q at %g",
					ErrInvalidUnit, c.Name, inst.Label(), inst.Maturity(),
					c.Instruments[j-1].Label(), c.Instruments[j-1].Maturity())
			}
		}
		n := c.Generator.ParameterCount(c.nodes())
		if c.InitialGuess != nil && len(c.InitialGuess) != n {
			return fmt.Errorf("curve %q: %w: initial guess has %d values, want %d",
				c.Name, curve.ErrInvalidParameterVector, len(c.InitialGuess), n)
		}
		params += n
		insts += len(c.Instruments)
	}
	if params != insts || params == 0 {
		return &DimensionError{Parameters: params, Instruments: insts}
	}
	return nil
}

// Block is an ordered list of units. Each unit may depend on curves fixed by
// earlier units of the block or by the known provider, never on later ones.
type Block struct {
	Units []Unit
}

// NewBlock returns a validated block.
func NewBlock(units ...Unit) (Block, error) {
	b := Block{Units: units}
	if err := b.Validate(); err != nil {
		return Block{}, err
	}
	return b, nil
}

// Names returns every curve name of the block in calibration order.
func (b Block) Names() []string {
	var names []string
	for _, u := range b.Units {
		names = append(names, u.Names()...)
	}
	return names
}

// Validate checks every unit and that no curve is calibrated twice. Unit
// failures are reported as *UnitError with Block set to 0.
func (b Block) Validate() error {
	if len(b.Units) == 0 {
		return fmt.Errorf("%w: block has no units", ErrInvalidUnit)
	}
	owner := make(map[string]int)
	for i, u := range b.Units {
		if err := u.Validate(); err != nil {
			return &UnitError{Unit: i, Curves: u.Names(), Err: err}
		}
		for _, name := range u.Names() {
			if prev, ok := owner[name]; ok {
				return &UnitError{Unit: i, Curves: u.Names(),
					Err: fmt.Errorf("%w: curve %q already calibrated by unit %d", ErrInvalidUnit, name, prev)}
			}
			owner[name] = i
		}
	}
	return nil
}
