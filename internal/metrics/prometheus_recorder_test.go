package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncThumbnail(ResultSuccess)
	pr.IncThumbnail(ResultSuccess)
	pr.IncThumbnail(ResultFailed)
	pr.IncPage(ResultSuccess)
	pr.IncConversion(ResultReused)
	pr.AddGCRemoved("thumbnail", 4)
	pr.AddGCRemoved("page", 0)
	pr.ObserveRunDuration(1500 * time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.thumbnails.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.thumbnails.WithLabelValues("failed")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(pr.gcRemoved.WithLabelValues("thumbnail")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(pr.runDuration))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncPage(ResultSuccess)

	path := filepath.Join(t.TempDir(), "gallery.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gallerybuilder_pages_total{result="success"} 1`)
}
