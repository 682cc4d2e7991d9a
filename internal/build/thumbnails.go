package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/incremental"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
	"git.home.luguber.info/inful/gallerybuilder/internal/metrics"
)

// Thumbnailer writes the thumbnail of the asset at src to dst.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, src, dst string) error
}

// ThumbnailPass brings the thumbnails of one run up to date, directory by
// directory, and keeps the build cache in step.
type ThumbnailPass struct {
	Layout      assets.Layout
	Classifier  assets.Classifier
	Cache       *incremental.BuildCache
	Thumbnailer Thumbnailer
	// FlushInterval bounds how much cache freshness an interrupted run loses.
	FlushInterval time.Duration
	Recorder      metrics.Recorder
	Logger        *slog.Logger

	Generated int
	Failed    int
	Warnings  []error
}

// GenerateThumbnails derives missing or stale thumbnails for files, the
// immediate files of directory rel. It reports whether any thumbnail of the
// directory was attempted, which marks its page for re-rendering.
func (p *ThumbnailPass) GenerateThumbnails(ctx context.Context, rel string, files []assets.Asset) bool {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := p.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	updated := false
	for _, f := range files {
		if !p.Classifier.HasThumbnail(f.Name) {
			continue
		}
		key := assets.AssetKey(f.Rel)
		dst := p.Layout.ThumbnailPath(f.Rel)
		if !p.Cache.ShouldRegenerateThumbnail(key, f.ModTime, dst) {
			recorder.IncThumbnail(metrics.ResultSkipped)
			continue
		}

		updated = true
		if err := p.Thumbnailer.Thumbnail(ctx, p.Layout.AssetPath(f.Rel), dst); err != nil {
			werr := errors.WrapError(err, errors.CategoryMediaProbe, "failed generating thumbnail").
				Warning().
				NextRun().
				WithContext("asset", key).
				WithContext("dir", rel).
				Build()
			p.Failed++
			p.Warnings = append(p.Warnings, werr)
			recorder.IncThumbnail(metrics.ResultFailed)
			logger.Warn("Failed generating thumbnail", logfields.Asset(key), logfields.Error(err))
			continue
		}

		p.Cache.RecordGenerated(key, f.ModTime)
		p.Generated++
		recorder.IncThumbnail(metrics.ResultSuccess)
		logger.Debug("Generated thumbnail", logfields.Asset(key))

		if _, err := p.Cache.SaveIfDue(p.FlushInterval); err != nil {
			logger.Warn("Failed to flush build cache", logfields.Error(err))
		}
	}
	return updated
}
