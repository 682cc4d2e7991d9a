package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/daemon"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Target `embed:""`

	Debounce time.Duration `help:"Quiet period before a rebuild (default from config)"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := LoadConfig(root, w.Target)
	if err != nil {
		return err
	}
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}

	wiring, err := NewWiring(g, cfg)
	if err != nil {
		return err
	}
	defer wiring.Close()

	runner := daemon.NewRunner(wiring.Service, cfg).
		WithLogger(g.Logger).
		OnResult(wiring.AfterBuild)

	layout := assets.NewLayout(cfg.Dest, cfg.Template)
	g.Logger.Info("Watching for changes", "assets", layout.AssetsDir(), "template", cfg.Template)
	return daemon.Watch(ctx, runner, daemon.WatchOptions{
		AssetsDir: layout.AssetsDir(),
		Template:  cfg.Template,
		Debounce:  cfg.Watch.Debounce,
		Initial:   true,
	})
}
