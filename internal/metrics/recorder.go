package metrics

import "time"

// ResultLabel enumerates per-item outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultSkipped ResultLabel = "skipped"
	ResultFailed  ResultLabel = "failed"
	ResultReused  ResultLabel = "reused"
)

// Recorder defines observability hooks for gallery builds.
type Recorder interface {
	IncThumbnail(result ResultLabel)
	IncPage(result ResultLabel)
	IncConversion(result ResultLabel)
	AddGCRemoved(kind string, n int)
	ObserveRunDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncThumbnail(ResultLabel)         {}
func (NoopRecorder) IncPage(ResultLabel)              {}
func (NoopRecorder) IncConversion(ResultLabel)        {}
func (NoopRecorder) AddGCRemoved(string, int)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration) {}
