package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/daemon"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Target `embed:""`

	Interval time.Duration `help:"Time between builds (default from config)"`
	Cron     string        `help:"Cron expression; takes precedence over --interval"`
}

func (s *ScheduleCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := LoadConfig(root, s.Target)
	if err != nil {
		return err
	}
	if s.Interval > 0 {
		cfg.Schedule.Interval = s.Interval
	}
	if s.Cron != "" {
		cfg.Schedule.Cron = s.Cron
	}

	wiring, err := NewWiring(g, cfg)
	if err != nil {
		return err
	}
	defer wiring.Close()

	runner := daemon.NewRunner(wiring.Service, cfg).
		WithLogger(g.Logger).
		OnResult(wiring.AfterBuild)

	g.Logger.Info("Starting scheduled builds",
		"dest", cfg.Dest,
		"interval", cfg.Schedule.Interval,
		"cron", cfg.Schedule.Cron)
	return daemon.Schedule(ctx, runner, cfg.Schedule.Interval, cfg.Schedule.Cron)
}
