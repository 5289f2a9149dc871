// Package metrics provides an observability framework for fashion build metrics.
//
// # Design Philosophy
//
// This package implements the Null Object pattern to enable metrics collection
// without requiring explicit nil checks throughout the codebase. By default,
// all components use NoopRecorder which implements the Recorder interface with
// no-op methods that inline to nothing at compile time.
//
// # Architecture
//
// The metrics system has three components:
//
//  1. Recorder interface - Defines all metrics operations
//  2. NoopRecorder - Default implementation that does nothing (zero overhead)
//  3. Real implementations - Prometheus/OpenTelemetry adapters (activated when needed)
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection; buildrun.Run
// takes one as a parameter:
//
//	func Run(ctx context.Context, p *portfolio.Portfolio, opts Options, bus *eventbus.Bus, recorder metrics.Recorder) (*manifest.BuildManifest, error) {
//	    if recorder == nil {
//	        recorder = metrics.NoopRecorder{} // Default: no metrics
//	    }
//	    ...
//	}
//
// # Activation
//
// To enable metrics, pass a real implementation instead of nil:
//
//	// When Prometheus is configured
//	recorder := metrics.NewPrometheusRecorder(registry)
//	buildrun.Run(ctx, p, opts, bus, recorder)
//
// This approach allows:
//   - Zero overhead when metrics are disabled (noop methods inline away)
//   - Metrics activation without code changes (just swap implementation)
//   - Clean testing (inject mock recorder for verification)
//   - Gradual rollout (enable metrics per-component)
//
// # Current State
//
// The CLI wires NoopRecorder by default; the daemon command activates
// PrometheusRecorder when fashion.yaml sets metrics.addr, and serves it via
// prometheus_http.go's HTTPHandler.
package metrics
