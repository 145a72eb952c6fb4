package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/instrument"
	"github.com/meenmo/multicurve/utils"
)

// Market is a request resolved into calibration inputs.
type Market struct {
	ValuationDate time.Time
	BlockNames    []string
	Blocks        []calibration.Block
	// Known holds the FX spots. It has no curves.
	Known *curve.Provider
}

// Build resolves tenors, quotes and schedules into calibration blocks. The
// instruments of each curve are ordered by maturity.
func (r *Request) Build() (*Market, error) {
	val, err := utils.ParseDate(r.ValuationDate)
	if err != nil {
		return nil, fmt.Errorf("Build: valuation date: %w", err)
	}

	cal, err := NewCalendar(BusinessDay(r.BusinessDay), r.Holidays)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	known := curve.NewProvider()
	pairs := make([]string, 0, len(r.FX))
	for pair := range r.FX {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	for _, pair := range pairs {
		rate, err := ParseQuote(r.FX[pair])
		if err != nil {
			return nil, fmt.Errorf("Build: fx %s: %w", pair, err)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("Build: fx %s: non-positive rate %g", pair, rate)
		}
		known.SetFXRate(pair, rate)
	}

	m := &Market{ValuationDate: val, Known: known}
	for bi, bs := range r.Blocks {
		name := bs.Name
		if name == "" {
			name = fmt.Sprintf("block-%d", bi)
		}
		units := make([]calibration.Unit, 0, len(bs.Units))
		for _, us := range bs.Units {
			curves := make([]calibration.UnitCurve, 0, len(us.Curves))
			for _, cs := range us.Curves {
				uc, err := cs.build(val, cal)
				if err != nil {
					return nil, fmt.Errorf("Build: block %s: %w", name, err)
				}
				curves = append(curves, uc)
			}
			units = append(units, calibration.Unit{Curves: curves})
		}
		block, err := calibration.NewBlock(units...)
		if err != nil {
			return nil, fmt.Errorf("Build: block %s: %w", name, err)
		}
		m.BlockNames = append(m.BlockNames, name)
		m.Blocks = append(m.Blocks, block)
	}
	return m, nil
}

func (cs CurveSpec) build(val time.Time, cal Calendar) (calibration.UnitCurve, error) {
	interp, err := curve.ParseInterpolator(cs.Interpolator)
	if err != nil {
		return calibration.UnitCurve{}, fmt.Errorf("curve %s: %w", cs.Name, err)
	}
	insts := make([]instrument.Instrument, 0, len(cs.Instruments))
	for i, is := range cs.Instruments {
		inst, err := is.build(val, cs.Name, cal)
		if err != nil {
			return calibration.UnitCurve{}, fmt.Errorf("curve %s instrument %d: %w", cs.Name, i, err)
		}
		insts = append(insts, inst)
	}
	sort.SliceStable(insts, func(i, j int) bool { return insts[i].Maturity() < insts[j].Maturity() })
	return calibration.UnitCurve{
		Name:        cs.Name,
		Generator:   curve.YieldGenerator{Interpolator: interp},
		Instruments: insts,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func (is InstrumentSpec) build(val time.Time, own string, cal Calendar) (instrument.Instrument, error) {
	quote, err := ParseQuote(is.Quote)
	if err != nil {
		return nil, err
	}
	tenor, err := ParseTenor(is.Tenor)
	if err != nil {
		return nil, err
	}
	dc, err := utils.ParseDayCount(is.DayCount)
	if err != nil {
		return nil, err
	}
	end := cal.Adjust(tenor.AddTo(val))
	name := orDefault(is.Name, fmt.Sprintf("%s %s %s", own, is.Type, tenor))

	switch is.Type {
	case "deposit":
		return instrument.Deposit{
			Name:    name,
			End:     curveTime(val, end),
			Accrual: utils.YearFraction(val, end, dc),
			Quote:   quote,
			Curve:   orDefault(is.Discount, own),
		}, nil

	case "fra":
		st, err := ParseTenor(is.Start)
		if err != nil {
			return nil, err
		}
		start := cal.Adjust(st.AddTo(val))
		if !end.After(start) {
			return nil, fmt.Errorf("fra %s: end %s is not after start %s", name, is.Tenor, is.Start)
		}
		return instrument.FRA{
			Name:    name,
			Start:   curveTime(val, start),
			End:     curveTime(val, end),
			Accrual: utils.YearFraction(start, end, dc),
			Quote:   quote,
			Forward: orDefault(is.Forward, own),
		}, nil

	case "ois":
		freq := orDefaultInt(is.FixedFrequency, min(12, max(1, tenor.Months())))
		dsc := orDefault(is.Discount, own)
		return instrument.Swap{
			Name:     name,
			Fixed:    Schedule(val, val, end, freq, dc, cal),
			Floating: Schedule(val, val, end, freq, dc, cal),
			Quote:    quote,
			Discount: dsc,
			Forward:  orDefault(is.Forward, dsc),
		}, nil

	case "irs":
		return instrument.Swap{
			Name:     name,
			Fixed:    Schedule(val, val, end, orDefaultInt(is.FixedFrequency, 6), dc, cal),
			Floating: Schedule(val, val, end, orDefaultInt(is.FloatFrequency, 3), dc, cal),
			Quote:    quote,
			Discount: orDefault(is.Discount, own),
			Forward:  orDefault(is.Forward, own),
		}, nil

	case "fx-swap":
		if len(is.Pair) != 6 {
			return nil, fmt.Errorf("fx-swap %s: pair %q is not six letters", name, is.Pair)
		}
		base := orDefault(is.Base, own)
		if base == is.Other {
			return nil, fmt.Errorf("fx-swap %s: base and other curve are both %q", name, base)
		}
		return instrument.FXSwap{
			Name:  name,
			Pair:  is.Pair,
			End:   curveTime(val, end),
			Quote: quote,
			Base:  base,
			Other: is.Other,
		}, nil

	case "basis-swap":
		fwd := orDefault(is.Forward, own)
		if fwd == is.SpreadForward {
			return nil, fmt.Errorf("basis-swap %s: both legs project off %q", name, fwd)
		}
		return instrument.BasisSwap{
			Name:          name,
			SpreadLeg:     Schedule(val, val, end, orDefaultInt(is.SpreadFrequency, 3), dc, cal),
			OtherLeg:      Schedule(val, val, end, orDefaultInt(is.FloatFrequency, 6), dc, cal),
			Quote:         quote,
			Discount:      orDefault(is.Discount, own),
			SpreadForward: is.SpreadForward,
			OtherForward:  fwd,
		}, nil
	}
	return nil, fmt.Errorf("unknown instrument type %q", is.Type)
}
