package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/config"
)

// BuildService is the canonical interface for executing gallery builds.
type BuildService interface {
	// Run executes a complete build: thumbnails, pages, garbage collection.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a gallery build.
type BuildRequest struct {
	// Config is the loaded configuration for this build. Dest and Template
	// must be set.
	Config *config.Config
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	RunID  string
	Status BuildStatus

	// FullUpdate is set when the template changed since the previous run.
	FullUpdate bool
	// UpdatedDirs lists the directories whose thumbnails changed.
	UpdatedDirs []string
	// Pages lists the directories whose page was written.
	Pages        []string
	PageFailures int

	Thumbnails        int
	ThumbnailFailures int

	Conversions        int
	ConversionFailures int

	// Warnings collects recoverable failures (media probes, conversions,
	// thumbnails) in the order they happened.
	Warnings []error

	// Removed maps a garbage kind to the paths collected, when GC ran.
	Removed map[string][]string

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time

	// Skipped indicates no page needed rendering.
	Skipped    bool
	SkipReason string
}

// RemovedCount is the total number of artifacts garbage collection removed.
func (r *BuildResult) RemovedCount() int {
	n := 0
	for _, paths := range r.Removed {
		n += len(paths)
	}
	return n
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates the build completed successfully.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusFailed indicates at least one page failed or the run aborted.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusSkipped indicates no page needed rendering.
	BuildStatusSkipped BuildStatus = "skipped"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed ||
		s == BuildStatusSkipped || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusSkipped
}
