package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/gallerybuilder/internal/config"
	"git.home.luguber.info/inful/gallerybuilder/internal/eventstore"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Dest string `arg:"" optional:"" help:"Gallery destination whose event log is read"`

	Since time.Duration `help:"Only show builds started within this window" default:"168h"`
	Limit int           `short:"n" help:"Maximum number of builds to show" default:"20"`
	JSON  bool          `name:"json" help:"Print summaries as JSON"`
}

func (h *HistoryCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if h.Dest != "" {
		cfg.Dest = h.Dest
	}
	if cfg.Dest == "" && cfg.Events.Path == "" {
		return errors.ValidationError("destination or events.path is required").Build()
	}
	store, err := OpenEventStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := eventstore.History(ctx, store, time.Now().Add(-h.Since), h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			return errors.InternalError("failed to encode history").WithCause(err).Build()
		}
		return nil
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No builds recorded")
		return nil
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tPAGES\tFAILED\tCONVERSION FAILURES\tREMOVED\tDURATION")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			shortID(r.RunID),
			humanize.Time(r.StartedAt),
			r.Status,
			r.Pages,
			failedPages(r.FailedPages),
			r.Conversions,
			r.Removed,
			r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func failedPages(pages []string) string {
	if len(pages) == 0 {
		return "-"
	}
	return strings.Join(pages, ",")
}
