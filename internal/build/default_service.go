package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/config"
	"git.home.luguber.info/inful/gallerybuilder/internal/convert"
	"git.home.luguber.info/inful/gallerybuilder/internal/eventstore"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/incremental"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
	"git.home.luguber.info/inful/gallerybuilder/internal/markdown"
	"git.home.luguber.info/inful/gallerybuilder/internal/media"
	"git.home.luguber.info/inful/gallerybuilder/internal/metrics"
	"git.home.luguber.info/inful/gallerybuilder/internal/observability"
	"git.home.luguber.info/inful/gallerybuilder/internal/templates"
	"git.home.luguber.info/inful/gallerybuilder/internal/util/sets"
)

// Media is what a build needs from the media toolchain.
type Media interface {
	Thumbnailer
	templates.Prober
}

// MediaFactory creates the media toolchain for a configuration.
type MediaFactory func(cfg *config.Config) Media

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	mediaFactory MediaFactory
	converter    templates.Converter
	recorder     metrics.Recorder
	store        eventstore.Store
	logger       *slog.Logger
	newRunID     func() string
	now          func() time.Time
}

// NewBuildService creates a new DefaultBuildService backed by ffmpeg and an
// embedded shell for conversions.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		mediaFactory: defaultMedia,
		converter:    convert.NewRunner(),
		recorder:     metrics.NoopRecorder{},
		logger:       slog.Default(),
		newRunID:     uuid.NewString,
		now:          time.Now,
	}
}

func defaultMedia(cfg *config.Config) Media {
	p := media.NewProvider(cfg.Classifier())
	p.Size = cfg.Thumbnail.Size
	p.Quality = cfg.Thumbnail.Quality
	p.FFmpeg = cfg.Tools.FFmpeg
	p.FFprobe = cfg.Tools.FFprobe
	return p
}

// WithMediaFactory replaces the thumbnail and probe toolchain (for testing).
func (s *DefaultBuildService) WithMediaFactory(factory MediaFactory) *DefaultBuildService {
	s.mediaFactory = factory
	return s
}

// WithConverter replaces the conversion runner.
func (s *DefaultBuildService) WithConverter(c templates.Converter) *DefaultBuildService {
	s.converter = c
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithEventStore sets the store build events are appended to.
func (s *DefaultBuildService) WithEventStore(store eventstore.Store) *DefaultBuildService {
	s.store = store
	return s
}

// WithLogger sets a custom logger.
func (s *DefaultBuildService) WithLogger(l *slog.Logger) *DefaultBuildService {
	s.logger = l
	return s
}

// WithRunIDFactory overrides how run IDs are generated.
func (s *DefaultBuildService) WithRunIDFactory(f func() string) *DefaultBuildService {
	s.newRunID = f
	return s
}

// listing is one directory as seen by the thumbnail pass.
type listing struct {
	rel   string
	dirs  []assets.Asset
	files []assets.Asset
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := s.now()
	result := &BuildResult{StartTime: startTime, Status: BuildStatusFailed}
	finish := func(status BuildStatus) {
		result.Status = status
		result.EndTime = s.now()
		result.Duration = result.EndTime.Sub(startTime)
		s.recorder.ObserveRunDuration(result.Duration)
	}

	cfg := req.Config
	if cfg == nil || cfg.Dest == "" || cfg.Template == "" {
		finish(BuildStatusFailed)
		return result, errors.ConfigError("destination and template are required").Build()
	}

	result.RunID = s.newRunID()
	ctx = observability.WithRunID(ctx, result.RunID)
	logger := observability.Logger(ctx, s.logger)
	journal := eventstore.NewJournal(s.store, result.RunID)

	layout := assets.NewLayout(cfg.Dest, cfg.Template)
	classifier := cfg.Classifier()

	source, err := os.ReadFile(cfg.Template)
	if err != nil {
		finish(BuildStatusFailed)
		return result, errors.WrapError(err, errors.CategoryConfig, "failed to read template").
			WithContext("file", cfg.Template).
			UserAction().
			Build()
	}
	tmpl, err := templates.Parse(filepath.Base(cfg.Template), string(source))
	if err != nil {
		finish(BuildStatusFailed)
		return result, err
	}

	if err := initDestination(layout); err != nil {
		finish(BuildStatusFailed)
		return result, err
	}
	cache, err := incremental.Load(layout.CachePath())
	if err != nil {
		finish(BuildStatusFailed)
		return result, err
	}
	cache.WithLogger(logger)
	result.FullUpdate = cache.TemplateChanged(incremental.TemplateChecksum(source))

	journal.Record(ctx, eventstore.TypeRunStarted, eventstore.RunStarted{
		Dest:       cfg.Dest,
		Template:   cfg.Template,
		FullUpdate: result.FullUpdate,
		RegenPages: cfg.RegenPages,
		GC:         cfg.GC,
	})
	logger.Info("Starting gallery build",
		slog.String("dest", cfg.Dest),
		slog.Bool("full_update", result.FullUpdate))

	tool := s.mediaFactory(cfg)
	tree := assets.NewTree(layout, classifier)

	// Stage 1: thumbnails
	thumbCtx := observability.WithStage(ctx, "thumbnails")
	pass := &ThumbnailPass{
		Layout:        layout,
		Classifier:    classifier,
		Cache:         cache,
		Thumbnailer:   tool,
		FlushInterval: cfg.FlushInterval,
		Recorder:      s.recorder,
		Logger:        observability.Logger(thumbCtx, s.logger),
	}
	updated := sets.New[string]()
	var listings []listing
	walkErr := tree.Walk(func(rel string, dirs, files []assets.Asset) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, d := range dirs {
			for _, root := range []string{layout.ThumbnailsDir(), layout.ConvertedDir()} {
				if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(d.Rel)), 0o750); err != nil {
					return errors.WrapError(err, errors.CategoryFileSystem, "failed to mirror directory").
						WithContext("dir", d.Rel).
						Build()
				}
			}
		}
		if pass.GenerateThumbnails(observability.WithDir(thumbCtx, rel), rel, files) {
			updated.Add(rel)
		}
		listings = append(listings, listing{rel: rel, dirs: dirs, files: files})
		return nil
	})
	result.Thumbnails = pass.Generated
	result.ThumbnailFailures = pass.Failed
	result.Warnings = append(result.Warnings, pass.Warnings...)
	result.UpdatedDirs = sets.Sorted(updated)

	if saveErr := cache.Save(); saveErr != nil && walkErr == nil {
		walkErr = saveErr
	}
	if walkErr != nil {
		status := BuildStatusFailed
		if stderrors.Is(walkErr, context.Canceled) || stderrors.Is(walkErr, context.DeadlineExceeded) {
			status = BuildStatusCancelled
		}
		s.complete(ctx, journal, result, status)
		finish(status)
		return result, walkErr
	}

	// Stage 2: pages
	var pending []listing
	for _, l := range listings {
		if result.FullUpdate || cfg.RegenPages || updated.Has(l.rel) || !exists(layout.PagePath(l.rel)) {
			pending = append(pending, l)
		} else {
			s.recorder.IncPage(metrics.ResultSkipped)
		}
	}

	rendered := sets.New[string]()
	run := templates.NewRunContext()
	var pageErrs []error
	if len(pending) == 0 {
		result.Skipped = true
		result.SkipReason = "gallery not updated"
		logger.Info("Gallery not updated, not rendering pages")
	} else {
		pageCtx := observability.WithStage(ctx, "pages")
		renderer := templates.NewRenderer(tmpl, tree,
			templates.WithProber(tool),
			templates.WithConverter(s.converter),
			templates.WithDescriber(markdown.NewDescriber(layout.AssetsDir())),
			templates.WithSeed(cfg.Seed),
			templates.WithLogger(observability.Logger(pageCtx, s.logger)))
		for _, l := range pending {
			if err := ctx.Err(); err != nil {
				pageErrs = append(pageErrs, err)
				break
			}
			if err := s.renderPage(observability.WithDir(pageCtx, l.rel), journal, renderer, run, layout, l); err != nil {
				pageErrs = append(pageErrs, err)
				result.PageFailures++
				continue
			}
			rendered.Add(l.rel)
			result.Pages = append(result.Pages, l.rel)
		}
	}
	result.Conversions = run.Conversions
	result.ConversionFailures = run.ConversionFailures
	result.Warnings = append(result.Warnings, run.Warnings...)
	s.recordConversions(ctx, journal, run)

	// Stage 3: garbage collection
	if cfg.GC && ctx.Err() == nil {
		gc, err := CollectGarbage(observability.WithStage(ctx, "gc"), GCRequest{
			Layout:      layout,
			Tree:        tree,
			Cache:       cache,
			UpdatedDirs: rendered,
			Referenced:  run.Referenced,
			Logger:      observability.Logger(observability.WithStage(ctx, "gc"), s.logger),
		})
		if err != nil {
			pageErrs = append(pageErrs, err)
		} else {
			result.Removed = gc.Removed
			for kind, paths := range gc.Removed {
				s.recorder.AddGCRemoved(kind, len(paths))
				journal.Record(ctx, eventstore.TypeGCRemoved, eventstore.GCRemoved{Kind: kind, Paths: paths})
			}
		}
	}

	status := BuildStatusSuccess
	switch {
	case ctx.Err() != nil:
		status = BuildStatusCancelled
	case len(pageErrs) > 0:
		status = BuildStatusFailed
	case result.Skipped:
		status = BuildStatusSkipped
	}
	s.complete(ctx, journal, result, status)
	finish(status)

	logger.Info("Gallery build completed",
		slog.String("status", string(status)),
		slog.Int("thumbnails", result.Thumbnails),
		slog.Int("pages", len(result.Pages)),
		slog.Int("warnings", len(result.Warnings)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))

	if len(pageErrs) > 0 {
		return result, errors.BuildError("gallery build finished with errors").
			WithCause(stderrors.Join(pageErrs...)).
			WithContext("page_failures", result.PageFailures).
			Build()
	}
	return result, nil
}

// renderPage renders and writes the page of one directory. The previous
// page is kept when rendering fails.
func (s *DefaultBuildService) renderPage(ctx context.Context, journal *eventstore.Journal, renderer *templates.Renderer, run *templates.RunContext, layout assets.Layout, l listing) error {
	page := layout.PageName(l.rel)
	out, err := renderer.RenderDirectory(ctx, run, l.rel, l.dirs, l.files)
	if err == nil {
		err = writeFileAtomic(layout.PagePath(l.rel), out)
	}
	if err != nil {
		s.recorder.IncPage(metrics.ResultFailed)
		journal.Record(ctx, eventstore.TypePageFailed, eventstore.PageFailed{
			Dir:      l.rel,
			Page:     page,
			Category: string(errors.GetCategory(err)),
			Error:    err.Error(),
		})
		observability.Logger(ctx, s.logger).Error("Failed to render page", logfields.Page(page), logfields.Error(err))
		return err
	}
	s.recorder.IncPage(metrics.ResultSuccess)
	journal.Record(ctx, eventstore.TypePageRendered, eventstore.PageRendered{Dir: l.rel, Page: page})
	observability.Logger(ctx, s.logger).Debug("Rendered page", logfields.Page(page))
	return nil
}

func (s *DefaultBuildService) recordConversions(ctx context.Context, journal *eventstore.Journal, run *templates.RunContext) {
	for i := 0; i < run.Conversions-run.ConversionFailures; i++ {
		s.recorder.IncConversion(metrics.ResultSuccess)
	}
	for _, w := range run.Warnings {
		ce, ok := errors.AsClassified(w)
		if !ok || ce.Category() != errors.CategoryConversion {
			continue
		}
		s.recorder.IncConversion(metrics.ResultFailed)
		asset, _ := ce.Context().GetString("asset")
		command, _ := ce.Context().GetString("command")
		journal.Record(ctx, eventstore.TypeConversionFailed, eventstore.ConversionFailed{
			Asset:   asset,
			Command: command,
			Error:   w.Error(),
		})
	}
}

func (s *DefaultBuildService) complete(ctx context.Context, journal *eventstore.Journal, result *BuildResult, status BuildStatus) {
	journal.Record(ctx, eventstore.TypeRunCompleted, eventstore.RunCompleted{
		Status:         string(status),
		Thumbnails:     result.Thumbnails,
		ThumbnailFails: result.ThumbnailFailures,
		Pages:          len(result.Pages),
		PageFailures:   result.PageFailures,
		Warnings:       len(result.Warnings),
		Removed:        result.RemovedCount(),
		DurationMS:     s.now().Sub(result.StartTime).Milliseconds(),
	})
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
