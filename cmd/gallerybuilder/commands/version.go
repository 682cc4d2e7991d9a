package commands

import (
	"fmt"

	"git.home.luguber.info/inful/gallerybuilder/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	_, _ = fmt.Fprintf(g.Out, "gallerybuilder %s (commit %s, built %s)\n",
		version.Version, version.GitCommit, version.BuildTime)
	return nil
}
