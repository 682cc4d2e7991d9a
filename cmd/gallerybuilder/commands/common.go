package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/gallerybuilder/internal/build"
	"git.home.luguber.info/inful/gallerybuilder/internal/config"
	"git.home.luguber.info/inful/gallerybuilder/internal/eventstore"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/metrics"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default gallery.yaml if present)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Render gallery pages, thumbnails and converted media"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration and page template"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild whenever assets or the template change"`
	Schedule ScheduleCmd `cmd:"" help:"Rebuild periodically"`
	Check    CheckCmd    `cmd:"" help:"Verify internal links of rendered pages"`
	History  HistoryCmd  `cmd:"" help:"Show recent builds from the event log"`
	Info     VersionCmd  `cmd:"" name:"version" help:"Show version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	g.Logger = logger
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return nil
}

// Target names the gallery a command works on. Positional values override
// the configuration file.
type Target struct {
	Dest     string `arg:"" optional:"" help:"Gallery destination directory (holds assets/)"`
	Template string `arg:"" optional:"" help:"Page template; pages take its extension"`
}

// LoadConfig loads the root configuration and applies the target override.
func LoadConfig(root *CLI, t Target) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if t.Dest != "" {
		cfg.Dest = t.Dest
	}
	if t.Template != "" {
		cfg.Template = t.Template
	}
	if cfg.Dest == "" || cfg.Template == "" {
		return nil, errors.ValidationError("destination and template are required").
			WithContext("hint", "pass <dest> <template> or set dest/template in "+config.DefaultFileName).
			Build()
	}
	return cfg, nil
}

// Wiring holds the build service and the sinks attached to it.
type Wiring struct {
	Service *build.DefaultBuildService

	logger   *slog.Logger
	out      io.Writer
	recorder *metrics.PrometheusRecorder
	textfile string
	store    eventstore.Store
}

// NewWiring creates the build service for cfg with metrics and the event
// log attached as configured.
func NewWiring(g *Global, cfg *config.Config) (*Wiring, error) {
	w := &Wiring{
		Service:  build.NewBuildService().WithLogger(g.Logger),
		logger:   g.Logger,
		out:      g.Out,
		textfile: cfg.Metrics.Textfile,
	}

	if w.textfile != "" {
		w.recorder = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		w.Service.WithRecorder(w.recorder)
	}

	if cfg.Events.Enabled {
		store, err := OpenEventStore(cfg)
		if err != nil {
			return nil, err
		}
		w.store = store
		w.Service.WithEventStore(store)

		if keep := cfg.Events.Retention; keep > 0 {
			n, err := store.Prune(context.Background(), time.Now().Add(-keep))
			if err != nil {
				w.logger.Warn("Failed to prune event log", "error", err)
			} else if n > 0 {
				w.logger.Debug("Pruned event log", "events", n, "retention", keep)
			}
		}
	}
	return w, nil
}

// OpenEventStore opens the configured event log, creating its directory.
func OpenEventStore(cfg *config.Config) (*eventstore.SQLiteStore, error) {
	path := cfg.EventsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.FileSystemError("failed to create event store directory").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	return eventstore.NewSQLiteStore(path)
}

// AfterBuild reports a finished build and flushes the metrics textfile.
func (w *Wiring) AfterBuild(result *build.BuildResult, err error) {
	if result != nil {
		PrintResult(w.out, result)
	}
	if err != nil {
		w.logger.Error("Build finished with errors", "error", err)
	}
	if w.recorder != nil {
		if werr := w.recorder.WriteTextfile(w.textfile); werr != nil {
			w.logger.Warn("Failed to write metrics textfile", "file", w.textfile, "error", werr)
		}
	}
}

// Close releases the event store.
func (w *Wiring) Close() {
	if w.store == nil {
		return
	}
	if err := w.store.Close(); err != nil {
		w.logger.Warn("Failed to close event store", "error", err)
	}
}

// Rebuild runs one build of cfg and reports it.
func (w *Wiring) Rebuild(ctx context.Context, cfg *config.Config) (*build.BuildResult, error) {
	result, err := w.Service.Run(ctx, build.BuildRequest{Config: cfg})
	w.AfterBuild(result, err)
	return result, err
}

// PrintResult writes a short human summary of result.
func PrintResult(out io.Writer, r *build.BuildResult) {
	if r.Status == build.BuildStatusSkipped {
		_, _ = fmt.Fprintf(out, "Nothing to do (%s)\n", r.SkipReason)
		return
	}
	_, _ = fmt.Fprintf(out, "Build %s: %d pages, %d thumbnails, %d conversions, %d removed in %s\n",
		r.Status, len(r.Pages), r.Thumbnails, r.Conversions, r.RemovedCount(), r.Duration.Round(time.Millisecond))
	if r.PageFailures > 0 {
		_, _ = fmt.Fprintf(out, "  %d pages failed\n", r.PageFailures)
	}
	if n := len(r.Warnings); n > 0 {
		_, _ = fmt.Fprintf(out, "  %d warnings (use -v for details)\n", n)
	}
}
