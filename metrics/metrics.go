// Package metrics records calibration outcomes on a private Prometheus
// registry.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meenmo/multicurve/calibration"
)

// Calibration implements calibration.Observer.
type Calibration struct {
	registry *prometheus.Registry

	UnitsTotal     *prometheus.CounterVec // by status
	FailuresTotal  *prometheus.CounterVec // by reason
	Iterations     prometheus.Histogram   // Newton steps per unit
	UnitDuration   prometheus.Histogram   // seconds
	ResidualNorm   *prometheus.GaugeVec   // final norm by curve set
	CurvesProduced *prometheus.CounterVec // by curve
}

var _ calibration.Observer = (*Calibration)(nil)

// NewCalibration registers the calibration metrics under namespace.
func NewCalibration(namespace string) *Calibration {
	reg := prometheus.NewRegistry()
	m := &Calibration{registry: reg}

	m.UnitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "units_total",
		Help:      "Calibration units processed.",
	}, []string{"status"})

	m.FailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unit_failures_total",
		Help:      "Calibration unit failures by reason.",
	}, []string{"reason"})

	m.Iterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "newton_iterations",
		Help:      "Newton steps taken per converged unit.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
	})

	m.UnitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "unit_duration_seconds",
		Help:      "Wall time to solve and chain one unit.",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
	})

	m.ResidualNorm = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "residual_norm",
		Help:      "Final residual norm of the last calibration of a unit.",
	}, []string{"curves"})

	m.CurvesProduced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "curves_calibrated_total",
		Help:      "Curves calibrated, by name.",
	}, []string{"curve"})

	reg.MustRegister(m.UnitsTotal, m.FailuresTotal, m.Iterations, m.UnitDuration, m.ResidualNorm, m.CurvesProduced)
	return m
}

func (m *Calibration) UnitCalibrated(r calibration.UnitReport) {
	m.UnitsTotal.WithLabelValues("converged").Inc()
	m.Iterations.Observe(float64(r.Iterations))
	m.UnitDuration.Observe(r.Duration.Seconds())
	m.ResidualNorm.WithLabelValues(strings.Join(r.Curves, ",")).Set(r.ResidualNorm)
	for _, c := range r.Curves {
		m.CurvesProduced.WithLabelValues(c).Inc()
	}
}

func (m *Calibration) UnitFailed(r calibration.UnitReport, err error) {
	m.UnitsTotal.WithLabelValues("failed").Inc()
	m.FailuresTotal.WithLabelValues(calibration.FailureReason(err)).Inc()
	m.UnitDuration.Observe(r.Duration.Seconds())
}

// Registry returns the registry holding the calibration metrics.
func (m *Calibration) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the registry in the Prometheus text format, for the
// node exporter textfile collector.
func (m *Calibration) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
