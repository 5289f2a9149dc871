package metrics

import "time"

// BuildOutcomeLabel is used for build outcome metrics dimensions.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// ResultLabel enumerates runway phase result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for runway and build metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using NoopRecorder.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)

	ObserveXformDuration(xform string, d time.Duration, success bool)
	IncXformFailure(xform string)
	SetPlanValid(valid bool)
	SetPlanLength(n int)

	IncMirrorSkip(target string)
	IncGenerateWrite(target string)
	IncGenerateFailure(target string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration)   {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)           {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)           {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)            {}
func (NoopRecorder) ObserveXformDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncXformFailure(string)                       {}
func (NoopRecorder) SetPlanValid(bool)                            {}
func (NoopRecorder) SetPlanLength(int)                            {}
func (NoopRecorder) IncMirrorSkip(string)                         {}
func (NoopRecorder) IncGenerateWrite(string)                      {}
func (NoopRecorder) IncGenerateFailure(string)                    {}
