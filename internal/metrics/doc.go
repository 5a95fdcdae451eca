// Package metrics provides build metrics for sitebuilder.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default; the daemon swaps in a PrometheusRecorder and serves it on
// /metrics via HTTPHandler.
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	runner := build.NewRunner(cfg).WithRecorder(recorder)
package metrics
