// Package convert runs the conversion commands templates ask for. Commands
// are interpreted by an embedded POSIX shell, so they behave the same on
// every host.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	derrors "git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
)

// Placeholders substituted in command templates.
const (
	InputPlaceholder  = "{i}"
	OutputPlaceholder = "{o}"
)

// Quote returns s as a single shell word.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		// Only strings with NUL bytes cannot be quoted; paths never hold one.
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return q
}

// Expand replaces the placeholders of command with the quoted paths.
func Expand(command, in, out string) string {
	return strings.NewReplacer(InputPlaceholder, Quote(in), OutputPlaceholder, Quote(out)).Replace(command)
}

// Runner executes conversion commands.
type Runner struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
	logger *slog.Logger
}

// NewRunner creates a runner that inherits the process environment and
// discards command output.
func NewRunner() *Runner {
	return &Runner{Env: os.Environ(), Stdout: io.Discard, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// Convert expands command for in and out and runs it to completion. It
// returns the expanded command text whether or not the run succeeded.
func (r *Runner) Convert(ctx context.Context, command, in, out string) (string, error) {
	expanded := Expand(command, in, out)
	return expanded, r.Run(ctx, expanded)
}

// Run interprets script. A non-zero exit status is a conversion error
// carrying the status.
func (r *Runner) Run(ctx context.Context, script string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "convert")
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConversion, "failed to parse conversion command").
			Warning().
			UserAction().
			WithContext("command", script).
			Build()
	}

	var stderr bytes.Buffer
	errOut := io.Writer(&stderr)
	if r.Stderr != nil {
		errOut = io.MultiWriter(&stderr, r.Stderr)
	}
	stdout := r.Stdout
	if stdout == nil {
		stdout = io.Discard
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(r.Env...)),
		interp.StdIO(nil, stdout, errOut),
	}
	if r.Dir != "" {
		opts = append(opts, interp.Dir(r.Dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "failed to create shell interpreter").Build()
	}

	r.logger.Debug("Running conversion", logfields.Command(script))
	err = runner.Run(ctx, prog)
	if err == nil {
		return nil
	}

	b := derrors.WrapError(err, derrors.CategoryConversion, "conversion command failed").
		Warning().
		NextRun().
		WithContext("command", script)
	var status interp.ExitStatus
	if errors.As(err, &status) {
		b = derrors.NewError(derrors.CategoryConversion, fmt.Sprintf("conversion command exited with status %d", status)).
			Warning().
			NextRun().
			WithContext("command", script).
			WithContext("exit_status", int(status))
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		b = b.WithContext("stderr", msg)
	}
	return b.Build()
}
