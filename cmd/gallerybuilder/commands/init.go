package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/gallerybuilder/internal/config"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// SampleTemplate is written by 'init' next to the configuration.
const SampleTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title><?hgg fullTitle Gallery ?></title>
</head>
<body>
<nav><?hgg for path start ?><a href="<?hgg var href ?>"><?hgg var title Home ?></a> (<?hgg var num ?>)<?hgg if !isLast start ?> / <?hgg if end ?><?hgg for path end ?></nav>
<h1><?hgg title Gallery ?></h1>
<p>Updated <?hgg mtime ?>, <?hgg num ?> items</p>
<?hgg description ?>
<ul>
<?hgg for files start ?>
<li>
<?hgg if isDir start ?><a href="<?hgg var href ?>"><img src="<?hgg var thumbnail folder.png ?>"> <?hgg var title ?></a> (<?hgg var num ?>)<?hgg if end ?>
<?hgg if isImage start ?><a href="<?hgg var href ?>"><img src="<?hgg var thumbnail image.png ?>" alt="<?hgg var title ?>"></a> <?hgg var width - ?>x<?hgg var height - ?><?hgg if end ?>
<?hgg if isVideo start ?><video controls poster="<?hgg var thumbnail video.png ?>"><source src="<?hgg var convertedHref webm ffmpeg -y -loglevel error -i {i} {o} # ?>" type="video/webm"></video> <?hgg var length - ?><?hgg if end ?>
<?hgg if isMusic start ?><audio controls src="<?hgg var href ?>"></audio> <?hgg var length - ?><?hgg if end ?>
<?hgg if isMisc start ?><a href="<?hgg var href ?>"><?hgg var title ?></a><?hgg if end ?>
<small><?hgg var size ?> <?hgg var mtime ?></small>
</li>
<?hgg for files end ?>
</ul>
</body>
</html>
`

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing files"`
	Output string `short:"o" name:"output" help:"Directory for the generated config and template"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	cfgPath := root.Config
	if cfgPath == "" {
		cfgPath = config.DefaultFileName
	}
	if i.Output != "" {
		if err := os.MkdirAll(i.Output, 0o750); err != nil {
			return errors.FileSystemError("failed to create output directory").
				WithCause(err).
				WithContext("dir", i.Output).
				Build()
		}
		cfgPath = filepath.Join(i.Output, config.DefaultFileName)
	}
	return RunInit(g, cfgPath, i.Force)
}

// RunInit writes the example configuration and a matching template.
func RunInit(g *Global, configPath string, force bool) error {
	_, _ = fmt.Fprintln(g.Out, "Initializing gallery project")
	_, _ = fmt.Fprintf(g.Out, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		_, _ = fmt.Fprintln(g.Out, "Initialization failed")
		return err
	}

	// config.Init points template at ./template.html relative to the config.
	tmplPath := filepath.Join(filepath.Dir(configPath), "template.html")
	if _, err := os.Stat(tmplPath); err == nil && !force {
		g.Logger.Info("Keeping existing template", "file", tmplPath)
	} else {
		_, _ = fmt.Fprintf(g.Out, "Writing template to %s\n", tmplPath)
		if err := os.WriteFile(tmplPath, []byte(SampleTemplate), 0o644); err != nil {
			return errors.FileSystemError("failed to write template").
				WithCause(err).
				WithContext("file", tmplPath).
				Build()
		}
	}
	_, _ = fmt.Fprintln(g.Out, "initialized successfully")
	return nil
}
