package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/meenmo/multicurve/calibration"
	"github.com/meenmo/multicurve/scenario"
	"github.com/meenmo/multicurve/utils"
)

// CurveShift is the finite-difference column of one curve's Jacobian next to
// the analytic one.
type CurveShift struct {
	Curve    string    `json:"curve" yaml:"curve"`
	Bumped   []float64 `json:"bumped" yaml:"bumped"`
	Analytic []float64 `json:"analytic" yaml:"analytic"`
}

// ScenarioOutput is one bump-and-recalibrate run.
type ScenarioOutput struct {
	Name             string       `json:"name" yaml:"name"`
	Block            string       `json:"block" yaml:"block"`
	Curve            string       `json:"curve" yaml:"curve"`
	Index            int          `json:"index" yaml:"index"`
	Instrument       string       `json:"instrument" yaml:"instrument"`
	Shifts           []CurveShift `json:"shifts,omitempty" yaml:"shifts,omitempty"`
	MaxJacobianError float64      `json:"max_jacobian_error" yaml:"max_jacobian_error"`
	Error            string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScenariosOutput defines the output schema of the scenarios command.
type ScenariosOutput struct {
	TaskID           string           `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	ValuationDate    string           `json:"valuation_date" yaml:"valuation_date"`
	ShiftBP          float64          `json:"shift_bp" yaml:"shift_bp"`
	Scenarios        []ScenarioOutput `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
	MaxJacobianError float64          `json:"max_jacobian_error" yaml:"max_jacobian_error"`
	Error            string           `json:"error,omitempty" yaml:"error,omitempty"`
}

type scenarioFlags struct {
	outputFlags
	shiftBP    float64
	parallel   int
	noProgress bool
}

func newScenariosCmd(a *app) *cobra.Command {
	var sf scenarioFlags
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Bump each quote, recalibrate and compare against the analytic Jacobians",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var progress func(n int) scenario.RunnerOption
			if !sf.noProgress {
				progress = func(n int) scenario.RunnerOption {
					bar := progressBar(cmd, n)
					return scenario.WithProgress(func(int, int) { _ = bar.Add(1) })
				}
			}
			out, err := a.scenarios(ctx, sf, progress)
			out.TaskID = sf.taskID
			if werr := writeOutput(cmd.OutOrStdout(), sf.out, sf.format, out); werr != nil {
				return werr
			}
			return err
		},
	}
	sf.register(cmd)
	cmd.Flags().Float64Var(&sf.shiftBP, "shift-bp", 1, "quote bump in basis points")
	cmd.Flags().IntVarP(&sf.parallel, "parallel", "p", runtime.GOMAXPROCS(0), "scenarios calibrated at once")
	cmd.Flags().BoolVar(&sf.noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func progressBar(cmd *cobra.Command, length int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		length,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("recalibrating"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func (a *app) scenarios(ctx context.Context, sf scenarioFlags, progress func(n int) scenario.RunnerOption) (ScenariosOutput, error) {
	out := ScenariosOutput{ShiftBP: sf.shiftBP}
	if sf.shiftBP == 0 {
		err := fmt.Errorf("--shift-bp must be non-zero")
		out.Error = err.Error()
		return out, err
	}
	m, err := loadMarket(sf.request)
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	out.ValuationDate = m.ValuationDate.Format(utils.DateLayout)

	repo, _, err := a.repository()
	if err != nil {
		out.Error = err.Error()
		return out, err
	}

	// stages[i] holds the curves and Jacobians block i is calibrated on;
	// stages[i+1] adds block i itself.
	stages := make([]*calibration.Result, len(m.Blocks)+1)
	stages[0] = &calibration.Result{Provider: m.Known, Bundle: calibration.NewBundle()}
	for bi, block := range m.Blocks {
		res, err := repo.Calibrate(block, stages[bi].Provider, stages[bi].Bundle)
		if err != nil {
			out.Error = err.Error()
			return out, err
		}
		stages[bi+1] = res
	}
	base := stages[len(m.Blocks)]

	shift := sf.shiftBP / 10000
	var (
		scenarios []scenario.Scenario
		meta      []ScenarioOutput
		blockOf   []int
	)
	for bi, block := range m.Blocks {
		bumps := scenario.BumpEach(block, shift)
		for i, sc := range scenario.Scenarios(bumps, stages[bi].Provider, stages[bi].Bundle) {
			scenarios = append(scenarios, sc)
			meta = append(meta, ScenarioOutput{
				Name:       sc.Name,
				Block:      m.BlockNames[bi],
				Curve:      bumps[i].Curve,
				Index:      bumps[i].Index,
				Instrument: bumps[i].Label,
			})
			blockOf = append(blockOf, bi)
		}
	}

	var opts []scenario.RunnerOption
	if progress != nil {
		opts = append(opts, progress(len(scenarios)))
	}
	a.logger.Info("running bump scenarios", "scenarios", len(scenarios), "shift_bp", sf.shiftBP, "parallel", sf.parallel)
	outcomes, err := scenario.NewRunner(repo, sf.parallel, opts...).Run(ctx, scenarios)
	if err != nil {
		out.Error = err.Error()
		return out, err
	}

	for i, oc := range outcomes {
		so := meta[i]
		if oc.Err != nil {
			so.Error = oc.Err.Error()
			out.Scenarios = append(out.Scenarios, so)
			continue
		}
		curves := m.Blocks[blockOf[i]].Names()
		if err := compareJacobians(&so, curves, oc.Result, base, shift); err != nil {
			so.Error = err.Error()
		}
		out.MaxJacobianError = math.Max(out.MaxJacobianError, so.MaxJacobianError)
		out.Scenarios = append(out.Scenarios, so)
	}
	return out, nil
}

// compareJacobians fills so with the bumped parameter moves of every curve
// in the block and the matching analytic Jacobian columns.
func compareJacobians(so *ScenarioOutput, curves []string, bumped, base *calibration.Result, shift float64) error {
	for _, name := range curves {
		bc, err := bumped.Curve(name)
		if err != nil {
			return err
		}
		c, err := base.Curve(name)
		if err != nil {
			return err
		}
		p0, p1 := c.Parameters(), bc.Parameters()
		cs := CurveShift{Curve: name, Bumped: make([]float64, len(p0)), Analytic: make([]float64, len(p0))}

		entry, ok := base.Bundle.Entry(name)
		if !ok {
			return fmt.Errorf("no jacobian for %s", name)
		}
		col, hasAxis := entry.Offset(so.Curve)
		for k := range p0 {
			cs.Bumped[k] = (p1[k] - p0[k]) / shift
			if hasAxis {
				cs.Analytic[k] = entry.At(k, col+so.Index)
			}
			so.MaxJacobianError = math.Max(so.MaxJacobianError, math.Abs(cs.Bumped[k]-cs.Analytic[k]))
		}
		so.Shifts = append(so.Shifts, cs)
	}
	return nil
}
