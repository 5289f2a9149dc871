package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once sync.Once

	phaseDuration *prom.HistogramVec
	buildDuration prom.Histogram
	phaseResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec

	xformDuration *prom.HistogramVec
	xformFailures *prom.CounterVec
	planValid     prom.Gauge
	planLength    prom.Gauge

	mirrorSkips     *prom.CounterVec
	generateWrites  *prom.CounterVec
	generateFailures *prom.CounterVec
}

// NewPrometheusRecorder constructs Prometheus metrics and registers them on
// reg (a fresh registry when reg is nil). Each call registers a new set, so
// calling it twice with the same registry panics on the duplicate names.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "fashion",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual runway phases (load, plan, init, execute)",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "fashion",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.phaseResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fashion",
			Name:      "phase_results_total",
			Help:      "Runway phase result counts by outcome",
		}, []string{"phase", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fashion",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.xformDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "fashion",
			Name:      "xform_duration_seconds",
			Help:      "Duration of individual xform object executions",
			Buckets:   prom.DefBuckets,
		}, []string{"xform", "result"})
		pr.xformFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fashion",
			Name:      "xform_failures_total",
			Help:      "Xform execution failures by object name",
		}, []string{"xform"})
		pr.planValid = prom.NewGauge(prom.GaugeOpts{
			Namespace: "fashion",
			Name:      "plan_valid",
			Help:      "1 if the last computed plan had no dependency cycle, 0 otherwise",
		})
		pr.planLength = prom.NewGauge(prom.GaugeOpts{
			Namespace: "fashion",
			Name:      "plan_length",
			Help:      "Number of xform objects in the last computed plan",
		})
		pr.mirrorSkips = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fashion",
			Name:      "mirror_skips_total",
			Help:      "Generated targets skipped because the project file changed since the last mirror snapshot",
		}, []string{"target"})
		pr.generateWrites = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fashion",
			Name:      "generate_writes_total",
			Help:      "Files written by the generate service",
		}, []string{"target"})
		pr.generateFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "fashion",
			Name:      "generate_failures_total",
			Help:      "Generated targets skipped because their template failed to render or post-process",
		}, []string{"target"})
		reg.MustRegister(
			pr.phaseDuration, pr.buildDuration, pr.phaseResults, pr.buildOutcome,
			pr.xformDuration, pr.xformFailures, pr.planValid, pr.planLength,
			pr.mirrorSkips, pr.generateWrites, pr.generateFailures,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveXformDuration(xform string, d time.Duration, success bool) {
	if p == nil || p.xformDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.xformDuration.WithLabelValues(xform, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncXformFailure(xform string) {
	if p == nil || p.xformFailures == nil {
		return
	}
	p.xformFailures.WithLabelValues(xform).Inc()
}

func (p *PrometheusRecorder) SetPlanValid(valid bool) {
	if p == nil || p.planValid == nil {
		return
	}
	if valid {
		p.planValid.Set(1)
	} else {
		p.planValid.Set(0)
	}
}

func (p *PrometheusRecorder) SetPlanLength(n int) {
	if p == nil || p.planLength == nil {
		return
	}
	p.planLength.Set(float64(n))
}

func (p *PrometheusRecorder) IncMirrorSkip(target string) {
	if p == nil || p.mirrorSkips == nil {
		return
	}
	p.mirrorSkips.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncGenerateWrite(target string) {
	if p == nil || p.generateWrites == nil {
		return
	}
	p.generateWrites.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncGenerateFailure(target string) {
	if p == nil || p.generateFailures == nil {
		return
	}
	p.generateFailures.WithLabelValues(target).Inc()
}
