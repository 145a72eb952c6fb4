package main

import (
	"errors"
	"math"

	"github.com/spf13/cobra"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/curve"
	"github.com/meenmo/multicurve/marketdata"
	"github.com/meenmo/multicurve/pricer"
	"github.com/meenmo/multicurve/utils"
)

// NodeOutput is one calibration instrument and the curve at its maturity.
type NodeOutput struct {
	Instrument     string  `json:"instrument" yaml:"instrument"`
	Maturity       float64 `json:"maturity" yaml:"maturity"`
	MarketQuote    float64 `json:"market_quote" yaml:"market_quote"`
	ParQuote       float64 `json:"par_quote" yaml:"par_quote"`
	ZeroRate       float64 `json:"zero_rate" yaml:"zero_rate"`
	DiscountFactor float64 `json:"discount_factor" yaml:"discount_factor"`
}

// CurveOutput is a calibrated curve. Interpolator and NodeTimes are set for
// interpolated zero curves.
type CurveOutput struct {
	Name         string       `json:"name" yaml:"name"`
	Block        string       `json:"block" yaml:"block"`
	Interpolator string       `json:"interpolator,omitempty" yaml:"interpolator,omitempty"`
	NodeTimes    []float64    `json:"node_times,omitempty" yaml:"node_times,omitempty"`
	Parameters   []float64    `json:"parameters" yaml:"parameters"`
	Nodes        []NodeOutput `json:"nodes" yaml:"nodes"`
}

// AxisOutput is one column group of a Jacobian.
type AxisOutput struct {
	Name  string `json:"name" yaml:"name"`
	Kind  string `json:"kind" yaml:"kind"`
	Count int    `json:"count" yaml:"count"`
}

// JacobianOutput is d parameters / d quotes of one curve.
type JacobianOutput struct {
	Curve string       `json:"curve" yaml:"curve"`
	Axes  []AxisOutput `json:"axes" yaml:"axes"`
	Rows  [][]float64  `json:"rows" yaml:"rows"`
}

// UnitOutput summarizes the solve of one unit.
type UnitOutput struct {
	Block        string   `json:"block" yaml:"block"`
	Unit         int      `json:"unit" yaml:"unit"`
	Curves       []string `json:"curves" yaml:"curves"`
	Iterations   int      `json:"iterations" yaml:"iterations"`
	ResidualNorm float64  `json:"residual_norm" yaml:"residual_norm"`
	DurationMS   float64  `json:"duration_ms" yaml:"duration_ms"`
}

// CalibrationOutput defines the output schema of the calibrate command.
type CalibrationOutput struct {
	TaskID        string           `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	ValuationDate string           `json:"valuation_date" yaml:"valuation_date"`
	Curves        []CurveOutput    `json:"curves,omitempty" yaml:"curves,omitempty"`
	Jacobians     []JacobianOutput `json:"jacobians,omitempty" yaml:"jacobians,omitempty"`
	Units         []UnitOutput     `json:"units,omitempty" yaml:"units,omitempty"`
	FailedUnit    *FailureOutput   `json:"failed_unit,omitempty" yaml:"failed_unit,omitempty"`
	Error         string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// FailureOutput locates the unit that aborted a calibration.
type FailureOutput struct {
	Block  string   `json:"block" yaml:"block"`
	Unit   int      `json:"unit" yaml:"unit"`
	Curves []string `json:"curves,omitempty" yaml:"curves,omitempty"`
	Reason string   `json:"reason" yaml:"reason"`
}

type outputFlags struct {
	request string
	format  string
	out     string
	taskID  string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.request, "request", "r", "", "market data request (yaml)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&o.taskID, "task-id", "", "identifier echoed in the output")
}

func newCalibrateCmd(a *app) *cobra.Command {
	var of outputFlags
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate every block of a request and print curves and Jacobians",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.calibrate(of.request)
			out.TaskID = of.taskID
			if werr := writeOutput(cmd.OutOrStdout(), of.out, of.format, out); werr != nil {
				return werr
			}
			return err
		},
	}
	of.register(cmd)
	return cmd
}

func (a *app) calibrate(path string) (CalibrationOutput, error) {
	var out CalibrationOutput
	m, err := loadMarket(path)
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	out.ValuationDate = m.ValuationDate.Format(utils.DateLayout)

	repo, ps, err := a.repository()
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	res, err := repo.CalibrateBlocks(m.Blocks, m.Known, nil)
	if err != nil {
		out.Error = err.Error()
		out.FailedUnit = failure(m, err)
		return out, err
	}
	return calibrationOutput(out, m, res, ps)
}

func failure(m *marketdata.Market, err error) *FailureOutput {
	ue, ok := asUnitError(err)
	if !ok {
		return nil
	}
	f := &FailureOutput{Unit: ue.Unit, Curves: ue.Curves, Reason: calibration.FailureReason(err)}
	if ue.Block >= 0 && ue.Block < len(m.BlockNames) {
		f.Block = m.BlockNames[ue.Block]
	}
	return f
}

func calibrationOutput(out CalibrationOutput, m *marketdata.Market, res *calibration.Result, ps pricer.ParSpread) (CalibrationOutput, error) {
	for bi, block := range m.Blocks {
		for _, u := range block.Units {
			for _, uc := range u.Curves {
				c, err := res.Curve(uc.Name)
				if err != nil {
					return out, err
				}
				co := CurveOutput{Name: uc.Name, Block: m.BlockNames[bi], Parameters: c.Parameters()}
				if ic, ok := c.(*curve.Interpolated); ok {
					co.Interpolator = string(ic.Interpolator())
					co.NodeTimes = ic.Times()
				}
				for _, inst := range uc.Instruments {
					par, err := ps.ParQuote(inst, res.Provider)
					if err != nil {
						return out, err
					}
					t := inst.Maturity()
					co.Nodes = append(co.Nodes, NodeOutput{
						Instrument:     inst.Label(),
						Maturity:       t,
						MarketQuote:    inst.MarketQuote(),
						ParQuote:       par,
						ZeroRate:       c.ZeroRate(t),
						DiscountFactor: c.DF(t),
					})
				}
				out.Curves = append(out.Curves, co)
			}
		}
	}

	for _, name := range res.Bundle.Names() {
		e, _ := res.Bundle.Entry(name)
		jo := JacobianOutput{Curve: name}
		for _, ax := range e.Axes() {
			jo.Axes = append(jo.Axes, AxisOutput{Name: ax.Name, Kind: ax.Kind.String(), Count: ax.Count})
		}
		rows, cols := e.Dims()
		for i := 0; i < rows; i++ {
			row := make([]float64, cols)
			for j := range row {
				row[j] = e.At(i, j)
			}
			jo.Rows = append(jo.Rows, row)
		}
		out.Jacobians = append(out.Jacobians, jo)
	}

	for _, r := range res.Reports {
		out.Units = append(out.Units, UnitOutput{
			Block:        m.BlockNames[r.Block],
			Unit:         r.Unit,
			Curves:       r.Curves,
			Iterations:   r.Iterations,
			ResidualNorm: r.ResidualNorm,
			DurationMS:   math.Round(float64(r.Duration.Microseconds())) / 1000,
		})
	}
	return out, nil
}

func asUnitError(err error) (*calibration.UnitError, bool) {
	var ue *calibration.UnitError
	ok := errors.As(err, &ue)
	return ue, ok
}
