// Package metrics records counters and timings of gallery builds.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// cost nothing unless a real implementation is injected:
//
//	svc := build.NewBuildService().WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// A build is a short-lived process, so the Prometheus implementation is
// exported through the node_exporter textfile collector instead of an HTTP
// endpoint (see WriteTextfile).
package metrics
