package setup

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pkgsetup"

// Metrics collects step and job outcomes in a dedicated registry so they can
// be written out at the end of a run.
type Metrics struct {
	registry      *prometheus.Registry
	stepDuration  *prometheus.HistogramVec
	stepTotal     *prometheus.CounterVec
	jobSuccess    *prometheus.GaugeVec
	jobDuration   *prometheus.GaugeVec
	jobCompletion *prometheus.GaugeVec
}

// NewMetrics creates and registers the job metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Time taken by each step of a setup job.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"package", "step", "status"}),
		stepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Number of steps run, by outcome.",
		}, []string{"package", "step", "status"}),
		jobSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "job_success",
			Help:      "Whether the last setup job succeeded (1) or failed (0).",
		}, []string{"package", "error_kind"}),
		jobDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of the last setup job.",
		}, []string{"package"}),
		jobCompletion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "job_last_completion_timestamp_seconds",
			Help:      "Unix time the last setup job finished.",
		}, []string{"package"}),
	}

	m.registry.MustRegister(m.stepDuration, m.stepTotal, m.jobSuccess, m.jobDuration, m.jobCompletion)
	return m
}

// Registry returns the registry holding the job metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStep records a finished step.
func (m *Metrics) ObserveStep(job *Job, result StepResult) {
	m.stepDuration.WithLabelValues(job.Package, result.Step, result.Status).Observe(result.Duration().Seconds())
	m.stepTotal.WithLabelValues(job.Package, result.Step, result.Status).Inc()
}

// ObserveJob records a finished job.
func (m *Metrics) ObserveJob(job *Job, err error, duration time.Duration) {
	success := 1.0
	if err != nil {
		success = 0
	}
	m.jobSuccess.Reset()
	m.jobSuccess.WithLabelValues(job.Package, string(KindOf(err))).Set(success)
	m.jobDuration.WithLabelValues(job.Package).Set(duration.Seconds())
	m.jobCompletion.WithLabelValues(job.Package).SetToCurrentTime()
}

// WriteTextfile writes the metrics to path in the text exposition format,
// for the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "writing metrics to '%s'", path)
}
