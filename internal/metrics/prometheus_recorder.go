package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "gallerybuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once        sync.Once
	reg         *prom.Registry
	thumbnails  *prom.CounterVec
	pages       *prom.CounterVec
	conversions *prom.CounterVec
	gcRemoved   *prom.CounterVec
	runDuration prom.Histogram
	lastRun     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.thumbnails = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_total",
			Help:      "Thumbnails by outcome",
		}, []string{"result"})
		pr.pages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Rendered pages by outcome",
		}, []string{"result"})
		pr.conversions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Converted files by outcome",
		}, []string{"result"})
		pr.gcRemoved = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "gc_removed_total",
			Help:      "Artifacts removed by garbage collection",
		}, []string{"kind"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.lastRun = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last build finished",
		})
		reg.MustRegister(pr.thumbnails, pr.pages, pr.conversions, pr.gcRemoved, pr.runDuration, pr.lastRun)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) IncThumbnail(result ResultLabel) {
	if p == nil || p.thumbnails == nil {
		return
	}
	p.thumbnails.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncPage(result ResultLabel) {
	if p == nil || p.pages == nil {
		return
	}
	p.pages.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncConversion(result ResultLabel) {
	if p == nil || p.conversions == nil {
		return
	}
	p.conversions.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) AddGCRemoved(kind string, n int) {
	if p == nil || p.gcRemoved == nil || n <= 0 {
		return
	}
	p.gcRemoved.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

// WriteTextfile writes the current metric values to path in the text
// exposition format, replacing the file atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
