package instrument

// stubTolerance drops front stubs shorter than about a week.
const stubTolerance = 7.0 / 365.0

// Schedule rolls regular periods of freqMonths backward from end and stops at
// start. A residual front stub shorter than a week is merged into the first
// period. Accrual is End - Start and payment is at period end. It works on
// year fractions only; dated requests go through marketdata.Schedule.
func Schedule(start, end float64, freqMonths int) []Period {
	if end <= start || freqMonths <= 0 {
		return nil
	}
	step := float64(freqMonths) / 12

	var ends []float64
	for t := end; t > start+stubTolerance; t -= step {
		ends = append(ends, t)
	}

	periods := make([]Period, len(ends))
	prev := start
	for i := range ends {
		e := ends[len(ends)-1-i]
		periods[i] = Period{Start: prev, End: e, Pay: e, Accrual: e - prev}
		prev = e
	}
	return periods
}

// NewSwap builds a swap with regular fixed and floating legs on the year
// fraction axis, for callers that construct instruments without dates.
func NewSwap(name string, start, end float64, fixedMonths, floatMonths int, quote float64, discount, forward string) Swap {
	return Swap{
		Name:     name,
		Fixed:    Schedule(start, end, fixedMonths),
		Floating: Schedule(start, end, floatMonths),
		Quote:    quote,
		Discount: discount,
		Forward:  forward,
	}
}

// NewBasisSwap builds a tenor basis swap with regular legs on the year
// fraction axis. The spread is paid on the spreadMonths leg.
func NewBasisSwap(name string, start, end float64, spreadMonths, otherMonths int, quote float64, discount, spreadForward, otherForward string) BasisSwap {
	return BasisSwap{
		Name:          name,
		SpreadLeg:     Schedule(start, end, spreadMonths),
		OtherLeg:      Schedule(start, end, otherMonths),
		Quote:         quote,
		Discount:      discount,
		SpreadForward: spreadForward,
		OtherForward:  otherForward,
	}
}
