package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/gallerybuilder/cmd/gallerybuilder/commands"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout}
	parser := kong.Parse(cli,
		kong.Name("gallerybuilder"),
		kong.Description("Static gallery generator: pages, thumbnails and converted media from a directory of assets."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run(cli)
	cancel()
	if err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
