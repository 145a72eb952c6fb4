package main

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/marketdata"
	"github.com/meenmo/multicurve/pricer"
	"github.com/meenmo/multicurve/risk"
	"github.com/meenmo/multicurve/utils"
)

// BucketOutput is the sensitivity to every column of one axis.
type BucketOutput struct {
	Axis   string    `json:"axis" yaml:"axis"`
	Kind   string    `json:"kind" yaml:"kind"`
	Values []float64 `json:"values" yaml:"values"`
}

// InstrumentRisk is the quote sensitivity of one calibration instrument.
type InstrumentRisk struct {
	Curve          string             `json:"curve" yaml:"curve"`
	Index          int                `json:"index" yaml:"index"`
	Instrument     string             `json:"instrument" yaml:"instrument"`
	Parallel       float64            `json:"parallel" yaml:"parallel"`
	ParallelByAxis map[string]float64 `json:"parallel_by_axis" yaml:"parallel_by_axis"`
	Buckets        []BucketOutput     `json:"buckets" yaml:"buckets"`
	IdentityError  float64            `json:"identity_error" yaml:"identity_error"`
}

// RiskOutput defines the output schema of the risk command.
type RiskOutput struct {
	TaskID           string           `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	ValuationDate    string           `json:"valuation_date" yaml:"valuation_date"`
	Instruments      []InstrumentRisk `json:"instruments,omitempty" yaml:"instruments,omitempty"`
	MaxIdentityError float64          `json:"max_identity_error" yaml:"max_identity_error"`
	FailedUnit       *FailureOutput   `json:"failed_unit,omitempty" yaml:"failed_unit,omitempty"`
	Error            string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func newRiskCmd(a *app) *cobra.Command {
	var of outputFlags
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Report the market quote sensitivities of every calibration instrument",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.risk(of.request)
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

func (a *app) risk(path string) (RiskOutput, error) {
	var out RiskOutput
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
	out.Instruments, err = instrumentRisks(m, res, ps)
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	for _, ir := range out.Instruments {
		out.MaxIdentityError = math.Max(out.MaxIdentityError, ir.IdentityError)
	}
	return out, nil
}

func instrumentRisks(m *marketdata.Market, res *calibration.Result, ps pricer.ParSpread) ([]InstrumentRisk, error) {
	var out []InstrumentRisk
	for _, block := range m.Blocks {
		for _, u := range block.Units {
			for _, uc := range u.Curves {
				for j, inst := range uc.Instruments {
					s, err := risk.InstrumentQuoteSensitivity(ps, inst, res.Provider, res.Bundle)
					if err != nil {
						return nil, err
					}
					ir := InstrumentRisk{
						Curve:          uc.Name,
						Index:          j,
						Instrument:     inst.Label(),
						Parallel:       s.Parallel(),
						ParallelByAxis: s.ParallelByAxis(),
						IdentityError:  identityError(s, uc.Name, j),
					}
					for _, ax := range s.Axes {
						vals, _ := s.Bucket(ax.Name)
						ir.Buckets = append(ir.Buckets, BucketOutput{Axis: ax.Name, Kind: ax.Kind.String(), Values: vals})
					}
					out = append(out, ir)
				}
			}
		}
	}
	return out, nil
}

// identityError is the largest deviation of s from the unit vector on
// column index of the named axis.
func identityError(s risk.Sensitivity, axis string, index int) float64 {
	worst, off := 0.0, 0
	found := false
	for _, ax := range s.Axes {
		for k := 0; k < ax.Count; k++ {
			want := 0.0
			if ax.Name == axis && k == index {
				want, found = 1, true
			}
			worst = math.Max(worst, math.Abs(s.Values[off+k]-want))
		}
		off += ax.Count
	}
	if !found {
		return math.Max(worst, 1)
	}
	return worst
}
