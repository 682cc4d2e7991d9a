package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/linkverify"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Target `embed:""`

	JSON bool `name:"json" help:"Print the report as JSON"`
}

func (c *CheckCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := LoadConfig(root, c.Target)
	if err != nil {
		return err
	}
	layout := assets.NewLayout(cfg.Dest, cfg.Template)

	report, err := linkverify.CheckSite(ctx, layout.Dest, layout.PageExt)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return errors.InternalError("failed to encode report").WithCause(err).Build()
		}
	} else {
		for _, b := range report.Broken {
			_, _ = fmt.Fprintf(g.Out, "%s: <%s> %s (missing %s)\n", b.Page, b.Tag, b.URL, b.Target)
		}
		_, _ = fmt.Fprintf(g.Out, "Checked %d pages, %d links, %d broken, %d skipped\n",
			report.Pages, report.Links, len(report.Broken), report.Skipped)
	}

	if len(report.Broken) > 0 {
		return errors.BuildError("broken links found").
			WithContext("broken", len(report.Broken)).
			Build()
	}
	return nil
}
