package marketdata

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10000)
)

// ParseQuote reads a market quote as a decimal rate. "4.25%" and "425bp"
// are scaled; a bare number is taken as is.
func ParseQuote(s string) (float64, error) {
	raw := strings.TrimSpace(strings.ToLower(s))
	scale := decimal.NewFromInt(1)
	switch {
	case strings.HasSuffix(raw, "%"):
		raw, scale = strings.TrimSuffix(raw, "%"), hundred
	case strings.HasSuffix(raw, "bp"):
		raw, scale = strings.TrimSuffix(raw, "bp"), tenThousand
	case strings.HasSuffix(raw, "bps"):
		raw, scale = strings.TrimSuffix(raw, "bps"), tenThousand
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("ParseQuote: %q: %w", s, err)
	}
	return d.Div(scale).InexactFloat64(), nil
}

// FormatRate renders a decimal rate as a percentage with the given precision.
func FormatRate(rate float64, places int32) string {
	return decimal.NewFromFloat(rate).Mul(hundred).StringFixed(places) + "%"
}
