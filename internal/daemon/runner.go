package daemon

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/gallerybuilder/internal/build"
	"git.home.luguber.info/inful/gallerybuilder/internal/config"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
)

// Runner executes builds of one gallery one at a time.
type Runner struct {
	mu       sync.Mutex
	svc      build.BuildService
	cfg      *config.Config
	onResult func(*build.BuildResult, error)
	logger   *slog.Logger
}

// NewRunner creates a runner building cfg with svc.
func NewRunner(svc build.BuildService, cfg *config.Config) *Runner {
	return &Runner{svc: svc, cfg: cfg, logger: slog.Default()}
}

// OnResult registers a callback invoked after every build, e.g. to write
// the metrics textfile.
func (r *Runner) OnResult(fn func(*build.BuildResult, error)) *Runner {
	r.onResult = fn
	return r
}

// WithLogger sets a custom logger.
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	r.logger = l
	return r
}

// Rebuild runs one build, waiting for a build in progress to finish first.
func (r *Runner) Rebuild(ctx context.Context) (*build.BuildResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.svc.Run(ctx, build.BuildRequest{Config: r.cfg})
	switch {
	case err != nil:
		r.logger.Warn("Rebuild failed", logfields.Error(err))
	case result != nil:
		r.logger.Info("Rebuild finished",
			logfields.RunID(result.RunID),
			slog.String("status", string(result.Status)),
			slog.Int("pages", len(result.Pages)))
	}
	if r.onResult != nil {
		r.onResult(result, err)
	}
	return result, err
}
