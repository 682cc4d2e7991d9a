package commands

import (
	"context"
	"fmt"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Target `embed:""`

	GC          bool   `name:"gc" help:"Remove derived artifacts whose assets vanished"`
	RegenPages  bool   `name:"regen-pages" help:"Render every page even when nothing changed"`
	Seed        uint64 `help:"Override the thumbnail shuffle seed"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this textfile after the build"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := LoadConfig(root, b.Target)
	if err != nil {
		return err
	}
	// Flags only ever switch features on; the file decides otherwise.
	if b.GC {
		cfg.GC = true
	}
	if b.RegenPages {
		cfg.RegenPages = true
	}
	if b.Seed != 0 {
		cfg.Seed = b.Seed
	}
	if b.MetricsFile != "" {
		cfg.Metrics.Textfile = b.MetricsFile
	}

	w, err := NewWiring(g, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	g.Logger.Info("Starting gallery build", "dest", cfg.Dest, "template", cfg.Template, "gc", cfg.GC)
	if _, err := w.Rebuild(ctx, cfg); err != nil {
		return fmt.Errorf("build %s: %w", cfg.Dest, err)
	}
	return nil
}
