package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// DefaultDebounce collapses bursts of file events into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// AssetsDir is watched recursively.
	AssetsDir string
	// Template is watched on its own; other files next to it are ignored.
	Template string
	Debounce time.Duration
	// Initial runs a build before the first event.
	Initial bool
}

// Watch rebuilds through runner whenever the assets or the template change,
// until ctx is cancelled. Events arriving while a build runs cause exactly
// one follow-up build.
func Watch(ctx context.Context, runner *Runner, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	absAssets, err := filepath.Abs(opts.AssetsDir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "resolve assets dir").Build()
	}
	absTemplate, err := filepath.Abs(opts.Template)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "resolve template").Build()
	}

	watcher, err := setupFileWatcher(absAssets, filepath.Dir(absTemplate))
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if opts.Initial {
		_, _ = runner.Rebuild(ctx)
	}

	deb := newDebouncer(opts.Debounce)
	done := startRebuildWorker(ctx, runner, deb.C)
	defer func() {
		deb.Close()
		<-done
	}()

	slog.Info("Watching for changes", slog.String("assets", absAssets), slog.String("template", absTemplate))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevant(ev.Name, absAssets, absTemplate) {
				handleFileEvent(watcher, ev, deb.Trigger)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// setupFileWatcher creates and configures the filesystem watcher.
func setupFileWatcher(absAssets, templateDir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}
	addDirsRecursive(watcher, absAssets)
	if err := watcher.Add(templateDir); err != nil {
		_ = watcher.Close()
		return nil, errors.DaemonError("failed to watch template directory").
			WithCause(err).
			WithContext("dir", templateDir).
			Build()
	}
	return watcher, nil
}

// debouncer delivers one signal on C once no trigger arrived for delay.
// C holds at most one pending signal.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timer  *time.Timer
	closed bool
	C      chan struct{}
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, C: make(chan struct{}, 1)}
}

func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.C <- struct{}{}:
	default:
	}
}

// Close stops pending timers and closes C.
func (d *debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.C)
}

// startRebuildWorker processes rebuild requests one at a time until the
// request channel is closed. The returned channel is closed on exit.
func startRebuildWorker(ctx context.Context, runner *Runner, requests <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range requests {
			if ctx.Err() != nil {
				continue
			}
			slog.Info("Change detected; rebuilding gallery")
			_, _ = runner.Rebuild(ctx)
		}
	}()
	return done
}

// relevant reports whether an event path belongs to the assets tree or is
// the template itself.
func relevant(name, absAssets, absTemplate string) bool {
	if name == absTemplate {
		return true
	}
	return name == absAssets || strings.HasPrefix(name, absAssets+string(filepath.Separator))
}

// handleFileEvent processes a filesystem event and triggers rebuild if needed.
func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	// Skip events for hidden files, swap files, and temp files
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Hidden files are not assets; this also covers .DS_Store and .#locks
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Ignore editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}
