package calibration

import (
	"gonum.org/v1/gonum/mat"
)

// AxisKind distinguishes market quote columns from FX spot columns.
type AxisKind int

const (
	// AxisQuotes spans the market quotes of the instruments of one curve, in
	// instrument order.
	AxisQuotes AxisKind = iota
	// AxisFX is a single column for an FX spot rate.
	AxisFX
)

func (k AxisKind) String() string {
	if k == AxisFX {
		return "fx"
	}
	return "quotes"
}

// FXAxisName returns the axis name of an FX pair.
func FXAxisName(pair string) string { return "FX:" + pair }

// Axis is a named, contiguous group of Jacobian columns.
type Axis struct {
	Name  string
	Kind  AxisKind
	Count int
}

// Entry is the Jacobian of one curve's parameters with respect to its column
// axes. Rows follow the curve parameters, columns follow Axes in order.
type Entry struct {
	axes     []Axis
	offsets  map[string]int
	jacobian *mat.Dense
}

func newEntry(axes []Axis, jacobian *mat.Dense) *Entry {
	offsets := make(map[string]int, len(axes))
	off := 0
	for _, a := range axes {
		offsets[a.Name] = off
		off += a.Count
	}
	return &Entry{axes: axes, offsets: offsets, jacobian: jacobian}
}

// Axes returns a copy of the column axes.
func (e *Entry) Axes() []Axis { return append([]Axis(nil), e.axes...) }

// Dims returns the number of parameters and columns.
func (e *Entry) Dims() (rows, cols int) { return e.jacobian.Dims() }

// At returns d parameter i / d column j.
func (e *Entry) At(i, j int) float64 { return e.jacobian.At(i, j) }

// Jacobian returns a copy of the full matrix.
func (e *Entry) Jacobian() *mat.Dense { return mat.DenseCopyOf(e.jacobian) }

// Offset returns the first column of the named axis.
func (e *Entry) Offset(axis string) (int, bool) {
	off, ok := e.offsets[axis]
	return off, ok
}

// Columns returns a copy of the columns of the named axis.
func (e *Entry) Columns(axis string) (*mat.Dense, bool) {
	off, ok := e.offsets[axis]
	if !ok {
		return nil, false
	}
	var count int
	for _, a := range e.axes {
		if a.Name == axis {
			count = a.Count
			break
		}
	}
	rows, _ := e.jacobian.Dims()
	return mat.DenseCopyOf(e.jacobian.Slice(0, rows, off, off+count)), true
}

// Bundle maps curve names to their Jacobian entries. Entries are immutable
// once stored.
type Bundle struct {
	entries map[string]*Entry
	order   []string
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{entries: make(map[string]*Entry)}
}

// Entry returns the Jacobian entry of the named curve.
func (b *Bundle) Entry(name string) (*Entry, bool) {
	e, ok := b.entries[name]
	return e, ok
}

// Names returns the curve names in insertion order.
func (b *Bundle) Names() []string { return append([]string(nil), b.order...) }

// Len returns the number of entries.
func (b *Bundle) Len() int { return len(b.order) }

func (b *Bundle) put(name string, e *Entry) {
	if _, ok := b.entries[name]; !ok {
		b.order = append(b.order, name)
	}
	b.entries[name] = e
}

func (b *Bundle) clone() *Bundle {
	out := NewBundle()
	for _, name := range b.order {
		out.put(name, b.entries[name])
	}
	return out
}
