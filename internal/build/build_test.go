package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gallerybuilder/internal/config"
	"git.home.luguber.info/inful/gallerybuilder/internal/eventstore"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/metrics"
)

type fakeMedia struct {
	calls []string
	fail  map[string]bool
}

func (m *fakeMedia) Thumbnail(_ context.Context, src, dst string) error {
	m.calls = append(m.calls, filepath.Base(src))
	if m.fail[filepath.Base(src)] {
		return stderrors.New("decode failed")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("thumb"), 0o600)
}

func (m *fakeMedia) Dimensions(string) (int, int, error)     { return 800, 600, nil }
func (m *fakeMedia) Duration(string) (time.Duration, error) { return 90 * time.Second, nil }

type fakeConverter struct{ calls int }

func (c *fakeConverter) Convert(_ context.Context, command, in, out string) (string, error) {
	c.calls++
	return strings.NewReplacer("{i}", in, "{o}", out).Replace(command), os.WriteFile(out, []byte("converted"), 0o600)
}

type countingRecorder struct {
	thumbnails  map[metrics.ResultLabel]int
	pages       map[metrics.ResultLabel]int
	conversions map[metrics.ResultLabel]int
	removed     map[string]int
	runs        int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		thumbnails:  map[metrics.ResultLabel]int{},
		pages:       map[metrics.ResultLabel]int{},
		conversions: map[metrics.ResultLabel]int{},
		removed:     map[string]int{},
	}
}

func (r *countingRecorder) IncThumbnail(l metrics.ResultLabel)  { r.thumbnails[l]++ }
func (r *countingRecorder) IncPage(l metrics.ResultLabel)       { r.pages[l]++ }
func (r *countingRecorder) IncConversion(l metrics.ResultLabel) { r.conversions[l]++ }
func (r *countingRecorder) AddGCRemoved(kind string, n int)     { r.removed[kind] += n }
func (r *countingRecorder) ObserveRunDuration(time.Duration)    { r.runs++ }

const galleryTemplate = `<h1><?hgg fullTitle Home ?></h1>` +
	`<?hgg for files start ?><?hgg var title ?>` +
	`<?hgg if isVideo start ?>=<?hgg var convertedHref webm transcode {i} {o} - ?><?hgg if end ?>;` +
	`<?hgg for files end ?>`

var assetTime = time.Date(2023, 5, 1, 8, 30, 0, 0, time.UTC)

type fixture struct {
	cfg       *config.Config
	media     *fakeMedia
	converter *fakeConverter
	recorder  *countingRecorder
	svc       *DefaultBuildService
}

// newFixture lays out assets/a.jpg, assets/trip/{b.mp4,c.mp3} and
// assets/trip/day1/d.png below a fresh destination.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	dest := filepath.Join(root, "gallery")
	tmpl := filepath.Join(root, "gallery.html")
	require.NoError(t, os.WriteFile(tmpl, []byte(galleryTemplate), 0o600))

	for _, rel := range []string{"a.jpg", "trip/b.mp4", "trip/c.mp3", "trip/day1/d.png"} {
		writeAsset(t, dest, rel)
	}

	cfg := config.Default()
	cfg.Dest = dest
	cfg.Template = tmpl

	f := &fixture{
		cfg:       cfg,
		media:     &fakeMedia{},
		converter: &fakeConverter{},
		recorder:  newCountingRecorder(),
	}
	f.svc = NewBuildService().
		WithMediaFactory(func(*config.Config) Media { return f.media }).
		WithConverter(f.converter).
		WithRecorder(f.recorder)
	return f
}

func writeAsset(t *testing.T, dest, rel string) {
	t.Helper()
	p := filepath.Join(dest, "assets", filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(rel), 0o600))
	require.NoError(t, os.Chtimes(p, assetTime, assetTime))
}

func (f *fixture) run(t *testing.T) *BuildResult {
	t.Helper()
	result, err := f.svc.Run(context.Background(), BuildRequest{Config: f.cfg})
	require.NoError(t, err)
	return result
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.cfg.Dest, filepath.FromSlash(rel))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(f.path(rel))
	require.NoError(t, err)
	return string(data)
}

func TestBuildStatus_IsSuccess(t *testing.T) {
	tests := []struct {
		status   BuildStatus
		expected bool
	}{
		{BuildStatusSuccess, true},
		{BuildStatusSkipped, true},
		{BuildStatusFailed, false},
		{BuildStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsSuccess())
			assert.True(t, tt.status.IsTerminal())
		})
	}
}

func TestRun_NilConfig(t *testing.T) {
	result, err := NewBuildService().Run(context.Background(), BuildRequest{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Equal(t, BuildStatusFailed, result.Status)
}

func TestRun_FirstBuild(t *testing.T) {
	f := newFixture(t)
	result := f.run(t)

	assert.Equal(t, BuildStatusSuccess, result.Status)
	assert.True(t, result.FullUpdate)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Thumbnails)
	assert.ElementsMatch(t, []string{"a.jpg", "b.mp4", "d.png"}, f.media.calls)
	assert.Equal(t, []string{"", "trip", "trip/day1"}, result.Pages)

	for _, p := range []string{"README", "database", "thumbnails/a.jpg.jpg", "thumbnails/trip/b.mp4.jpg", "thumbnails/trip/day1/d.png.jpg"} {
		assert.FileExists(t, f.path(p))
	}
	assert.DirExists(t, f.path("converted/trip/day1"))

	assert.Equal(t, "<h1>Home</h1>trip;a.jpg;", f.read(t, "index.html"))
	assert.Equal(t, "<h1>trip</h1>day1;b.mp4=converted/trip/b.mp4.webm;c.mp3;", f.read(t, "trip.html"))
	assert.FileExists(t, f.path("converted/trip/b.mp4.webm"))
	assert.Equal(t, 1, result.Conversions)

	cache := f.read(t, "database")
	assert.True(t, strings.HasPrefix(cache, "0\n"))
	assert.Contains(t, cache, "assets/trip/b.mp4\t")
	assert.NotContains(t, cache, "c.mp3")

	assert.Equal(t, 3, f.recorder.thumbnails[metrics.ResultSuccess])
	assert.Equal(t, 3, f.recorder.pages[metrics.ResultSuccess])
	assert.Equal(t, 1, f.recorder.conversions[metrics.ResultSuccess])
	assert.Equal(t, 1, f.recorder.runs)
}

func TestRun_UnchangedSecondRun(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	before := f.read(t, "database")
	f.media.calls = nil

	result := f.run(t)

	assert.Equal(t, BuildStatusSkipped, result.Status)
	assert.False(t, result.FullUpdate)
	assert.Empty(t, f.media.calls)
	assert.Empty(t, result.Pages)
	assert.Equal(t, before, f.read(t, "database"))
	assert.Equal(t, 3, f.recorder.pages[metrics.ResultSkipped])
}

func TestRun_TemplateChangeRendersEveryPage(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	f.media.calls = nil
	require.NoError(t, os.WriteFile(f.cfg.Template, []byte(galleryTemplate+"\n<!-- v2 -->"), 0o600))

	result := f.run(t)

	assert.True(t, result.FullUpdate)
	assert.Empty(t, f.media.calls)
	assert.Equal(t, []string{"", "trip", "trip/day1"}, result.Pages)
	assert.Contains(t, f.read(t, "index.html"), "<!-- v2 -->")
	assert.Equal(t, 1, f.converter.calls, "fresh converted file is reused")
}

func TestRun_ChangedAssetRendersItsDirectory(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	f.media.calls = nil

	later := assetTime.Add(time.Hour)
	p := f.path("assets/trip/day1/d.png")
	require.NoError(t, os.Chtimes(p, later, later))

	result := f.run(t)
	assert.Equal(t, []string{"d.png"}, f.media.calls)
	assert.Equal(t, []string{"trip/day1"}, result.UpdatedDirs)
	assert.Equal(t, []string{"trip/day1"}, result.Pages)
}

func TestRun_RegenPagesAndMissingPage(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	require.NoError(t, os.Remove(f.path("trip.html")))
	result := f.run(t)
	assert.Equal(t, []string{"trip"}, result.Pages)

	f.cfg.RegenPages = true
	result = f.run(t)
	assert.Equal(t, []string{"", "trip", "trip/day1"}, result.Pages)
}

func TestRun_ThumbnailFailureIsRecoverable(t *testing.T) {
	f := newFixture(t)
	f.media.fail = map[string]bool{"b.mp4": true}

	result := f.run(t)
	assert.Equal(t, BuildStatusSuccess, result.Status)
	assert.Equal(t, 1, result.ThumbnailFailures)
	require.NotEmpty(t, result.Warnings)
	assert.True(t, errors.HasCategory(result.Warnings[0], errors.CategoryMediaProbe))
	assert.NotContains(t, f.read(t, "database"), "assets/trip/b.mp4")

	// retried on the next run
	f.media.fail = nil
	f.media.calls = nil
	f.run(t)
	assert.Equal(t, []string{"b.mp4"}, f.media.calls)
}

func TestRun_PageFailureKeepsOtherPages(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Template, []byte("<?hgg title ?>"), 0o600))

	result, err := f.svc.Run(context.Background(), BuildRequest{Config: f.cfg})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild))
	assert.True(t, errors.HasCategory(err, errors.CategoryMissingVariable))
	assert.Equal(t, BuildStatusFailed, result.Status)
	assert.Equal(t, 1, result.PageFailures)
	assert.Equal(t, []string{"trip", "trip/day1"}, result.Pages)
	assert.NoFileExists(t, f.path("index.html"))
	assert.Equal(t, "day1", f.read(t, "trip-day1.html"))
}

func TestRun_ParseErrorAbortsBeforeWork(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Template, []byte("<?hgg for files start ?>"), 0o600))

	result, err := f.svc.Run(context.Background(), BuildRequest{Config: f.cfg})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTemplateParse))
	assert.Equal(t, BuildStatusFailed, result.Status)
	assert.Empty(t, f.media.calls)
}

func TestRun_IncompatibleCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.cfg.Dest, 0o750))
	require.NoError(t, os.WriteFile(f.path("database"), []byte("7\nabc\n"), 0o600))

	_, err := f.svc.Run(context.Background(), BuildRequest{Config: f.cfg})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryIncompatibleFormat))
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.Run(ctx, BuildRequest{Config: f.cfg})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, BuildStatusCancelled, result.Status)
}

func TestRun_RecordsEvents(t *testing.T) {
	f := newFixture(t)
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.svc.WithEventStore(store).WithRunIDFactory(func() string { return "run-1" })

	result := f.run(t)
	require.Equal(t, "run-1", result.RunID)

	events, err := store.GetByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		eventstore.TypeRunStarted,
		eventstore.TypePageRendered,
		eventstore.TypePageRendered,
		eventstore.TypePageRendered,
		eventstore.TypeRunCompleted,
	}, types)

	runs, err := eventstore.History(context.Background(), store, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Status)
	assert.Equal(t, 3, runs[0].Pages)
}
