package curve

import (
	"fmt"
	"sort"
)

// Provider holds the curves and FX rates known to a calibration. Providers are
// layered: Extend returns a child that sees its parent's curves and can shadow
// them without copying. A Provider is safe for concurrent reads but not for
// concurrent mutation.
type Provider struct {
	parent *Provider
	curves map[string]Curve
	order  []string
	fx     map[string]float64
}

// NewProvider returns an empty provider holding the given curves.
func NewProvider(curves ...Curve) *Provider {
	p := &Provider{
		curves: make(map[string]Curve, len(curves)),
		fx:     make(map[string]float64),
	}
	for _, c := range curves {
		p.Add(c)
	}
	return p
}

// Extend returns a child provider that layers curves on top of p.
func (p *Provider) Extend(curves ...Curve) *Provider {
	child := NewProvider(curves...)
	child.parent = p
	return child
}

// Add registers c in this layer, replacing any curve with the same name.
func (p *Provider) Add(c Curve) {
	name := c.Name()
	if _, ok := p.curves[name]; !ok {
		p.order = append(p.order, name)
	}
	p.curves[name] = c
}

// Curve returns the curve with the given name from the nearest layer.
func (p *Provider) Curve(name string) (Curve, error) {
	for l := p; l != nil; l = l.parent {
		if c, ok := l.curves[name]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("Provider.Curve: %w: %q", ErrCurveNotFound, name)
}

// Has reports whether any layer holds the named curve.
func (p *Provider) Has(name string) bool {
	_, err := p.Curve(name)
	return err == nil
}

// Names returns the curve names in registration order, outer layers first.
// A shadowed name keeps the position of its first registration.
func (p *Provider) Names() []string {
	var layers []*Provider
	for l := p; l != nil; l = l.parent {
		layers = append(layers, l)
	}
	seen := make(map[string]struct{})
	var names []string
	for i := len(layers) - 1; i >= 0; i-- {
		for _, name := range layers[i].order {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// SetFXRate stores the spot rate for a six letter pair such as "EURUSD",
// expressed as units of the second currency per unit of the first.
func (p *Provider) SetFXRate(pair string, rate float64) {
	p.fx[pair] = rate
}

// FXRate returns the spot rate for pair. The inverse pair is used when only
// it is known.
func (p *Provider) FXRate(pair string) (float64, error) {
	for l := p; l != nil; l = l.parent {
		if r, ok := l.fx[pair]; ok {
			return r, nil
		}
	}
	if len(pair) == 6 {
		inverse := pair[3:] + pair[:3]
		for l := p; l != nil; l = l.parent {
			if r, ok := l.fx[inverse]; ok && r != 0 {
				return 1 / r, nil
			}
		}
	}
	return 0, fmt.Errorf("Provider.FXRate: %w: %q", ErrFXRateNotFound, pair)
}

// FXPairs returns the pairs with a stored rate, sorted.
func (p *Provider) FXPairs() []string {
	seen := make(map[string]struct{})
	for l := p; l != nil; l = l.parent {
		for pair := range l.fx {
			seen[pair] = struct{}{}
		}
	}
	pairs := make([]string, 0, len(seen))
	for pair := range seen {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	return pairs
}

// Flatten copies every visible curve and FX rate into a single new layer.
// Mutating the result never affects p.
func (p *Provider) Flatten() *Provider {
	flat := NewProvider()
	for _, name := range p.Names() {
		c, _ := p.Curve(name)
		flat.Add(c)
	}
	for _, pair := range p.FXPairs() {
		r, _ := p.FXRate(pair)
		flat.SetFXRate(pair, r)
	}
	return flat
}
