// Package marketdata reads calibration requests: valuation date, FX spots and
// blocks of curves with their instruments given by tenor and quote.
package marketdata

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Request is the YAML document describing a calibration.
type Request struct {
	ValuationDate string            `yaml:"valuation_date" validate:"required"`
	FX            map[string]string `yaml:"fx" validate:"dive,keys,len=6,endkeys,required"`
	BusinessDay   string            `yaml:"business_day" validate:"omitempty,oneof=none following modified-following"`
	Holidays      []string          `yaml:"holidays" validate:"dive,required"`
	Blocks        []BlockSpec       `yaml:"blocks" validate:"required,min=1,dive"`
}

// BlockSpec is an ordered list of units.
type BlockSpec struct {
	Name  string     `yaml:"name"`
	Units []UnitSpec `yaml:"units" validate:"required,min=1,dive"`
}

// UnitSpec lists the curves solved together.
type UnitSpec struct {
	Curves []CurveSpec `yaml:"curves" validate:"required,min=1,dive"`
}

// CurveSpec is one curve and its calibration instruments.
type CurveSpec struct {
	Name         string           `yaml:"name" validate:"required"`
	Interpolator string           `yaml:"interpolator" validate:"omitempty,oneof=linear log-linear"`
	Instruments  []InstrumentSpec `yaml:"instruments" validate:"required,min=1,dive"`
}

// InstrumentSpec describes one instrument. Tenor is the end of the
// instrument measured from the valuation date; Start, for FRAs, is the start.
// Curve fields default to the curve being calibrated. A basis swap pays its
// quote on the SpreadForward leg and projects the other leg off Forward.
type InstrumentSpec struct {
	Type     string `yaml:"type" validate:"required,oneof=deposit fra ois irs fx-swap basis-swap"`
	Name     string `yaml:"name"`
	Start    string `yaml:"start" validate:"required_if=Type fra"`
	Tenor    string `yaml:"tenor" validate:"required"`
	Quote    string `yaml:"quote" validate:"required"`
	DayCount string `yaml:"day_count"`

	FixedFrequency int `yaml:"fixed_frequency" validate:"gte=0"`
	FloatFrequency int `yaml:"float_frequency" validate:"gte=0"`

	Discount string `yaml:"discount"`
	Forward  string `yaml:"forward"`

	SpreadForward   string `yaml:"spread_forward" validate:"required_if=Type basis-swap"`
	SpreadFrequency int    `yaml:"spread_frequency" validate:"gte=0"`

	Pair  string `yaml:"pair" validate:"required_if=Type fx-swap"`
	Base  string `yaml:"base"`
	Other string `yaml:"other" validate:"required_if=Type fx-swap"`
}

var validate = validator.New()

// Decode reads and validates a request. Unknown fields are rejected.
func Decode(r io.Reader) (*Request, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("marketdata: decode request: %w", err)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("marketdata: invalid request: %w", err)
	}
	return &req, nil
}

// Load reads a request file.
func Load(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("marketdata: %w", err)
	}
	return Decode(bytes.NewReader(data))
}
