package templates

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
	"git.home.luguber.info/inful/gallerybuilder/internal/util/sets"
)

// DefaultShuffleSeed seeds every thumbnail shuffle unless overridden.
const DefaultShuffleSeed uint64 = 9001

// Tree is the read side of the asset tree used while rendering.
type Tree interface {
	Layout() assets.Layout
	Classifier() assets.Classifier
	Stat(rel string) (assets.Asset, error)
	ItemCount(rel string) int
	Thumbnails(rel string, seed uint64) []string
}

// Prober reads media attributes of a single asset.
type Prober interface {
	Dimensions(path string) (width, height int, err error)
	Duration(path string) (time.Duration, error)
}

// Converter runs a conversion command template with its {i} and {o}
// placeholders bound to in and out. It returns the expanded command.
type Converter interface {
	Convert(ctx context.Context, command, in, out string) (string, error)
}

// Describer returns the rendered description of directory rel, if any.
type Describer interface {
	Describe(rel string) (html string, ok bool, err error)
}

// RunContext is the state shared by every page rendered in one build.
type RunContext struct {
	// Referenced holds the destination-relative paths of converted files
	// emitted by any page in this run.
	Referenced sets.Set[string]
	// Warnings collects recoverable failures in the order they happened.
	Warnings []error

	Conversions        int
	ConversionFailures int
}

// NewRunContext returns an empty run context.
func NewRunContext() *RunContext {
	return &RunContext{Referenced: sets.New[string]()}
}

func (run *RunContext) warn(err error) {
	run.Warnings = append(run.Warnings, err)
}

// Renderer expands a parsed template for one directory at a time.
type Renderer struct {
	tmpl      *Template
	tree      Tree
	media     Prober
	converter Converter
	describer Describer
	seed      uint64
	logger    *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithProber sets the media attribute source.
func WithProber(p Prober) Option { return func(r *Renderer) { r.media = p } }

// WithConverter sets the conversion runner used by convertedHref.
func WithConverter(c Converter) Option { return func(r *Renderer) { r.converter = c } }

// WithDescriber sets the source of the description leaf.
func WithDescriber(d Describer) Option { return func(r *Renderer) { r.describer = d } }

// WithSeed overrides the thumbnail shuffle seed.
func WithSeed(seed uint64) Option { return func(r *Renderer) { r.seed = seed } }

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option { return func(r *Renderer) { r.logger = l } }

// NewRenderer creates a renderer for tmpl over tree.
func NewRenderer(tmpl *Template, tree Tree, opts ...Option) *Renderer {
	r := &Renderer{tmpl: tmpl, tree: tree, seed: DefaultShuffleSeed, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderDirectory renders the page of directory rel whose immediate
// children are dirs and files. Any fatal error aborts the page; nothing is
// returned alongside it.
func (r *Renderer) RenderDirectory(ctx context.Context, run *RunContext, rel string, dirs, files []assets.Asset) ([]byte, error) {
	p := &page{r: r, run: run, rel: rel, dirs: dirs, files: files}
	var b strings.Builder
	if err := p.render(ctx, &b, r.tmpl.Nodes, nil); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

type page struct {
	r     *Renderer
	run   *RunContext
	rel   string
	dirs  []assets.Asset
	files []assets.Asset
}

func (p *page) render(ctx context.Context, b *strings.Builder, nodes []Node, scope *Binding) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch n := n.(type) {
		case TextNode:
			b.WriteString(n.Text)
		case ForNode:
			for _, vars := range p.elements(n.Source) {
				if err := p.render(ctx, b, n.Body, NewBinding(scope, vars)); err != nil {
					return err
				}
			}
		case IfNode:
			if n.Predicate.Eval(scope) {
				if err := p.render(ctx, b, n.Body, scope); err != nil {
					return err
				}
			}
		case LeafNode:
			out, err := p.leaf(ctx, n, scope)
			if err != nil {
				return err
			}
			b.WriteString(out)
		}
	}
	return nil
}

func (p *page) elements(source string) []map[string]any {
	if source == SourcePath {
		return withPosition(p.r.pathEntries(p.rel))
	}
	return withPosition(p.r.fileEntries(p.run, p.dirs, p.files))
}

func (p *page) fail(b *errors.ErrorBuilder, n LeafNode) error {
	return b.WithContext("tag", n.Tag.Raw).
		WithContext("line", n.Line).
		WithContext("file", p.r.tmpl.Name).
		Build()
}

func fallback(args []string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	return strings.Join(args, " "), true
}

func (p *page) leaf(ctx context.Context, n LeafNode, scope *Binding) (string, error) {
	args := n.Tag.Args
	switch n.Kind {
	case KindVar:
		name := args[0]
		if name == ConvertedHref {
			return p.convertedHref(ctx, n, scope)
		}
		if v, ok := scope.Lookup(name); ok {
			return FormatValue(v), nil
		}
		if fb, ok := fallback(args[1:]); ok {
			return fb, nil
		}
		return "", p.fail(errors.MissingVariableError("variable `"+name+"` is not bound"), n)

	case KindFullTitle:
		if p.rel != "" {
			return p.rel, nil
		}
		if fb, ok := fallback(args); ok {
			return fb, nil
		}
		return "", p.fail(errors.MissingVariableError("root page has no full title"), n)

	case KindTitle:
		if p.rel != "" {
			return p.rel[strings.LastIndex(p.rel, "/")+1:], nil
		}
		if fb, ok := fallback(args); ok {
			return fb, nil
		}
		return "", p.fail(errors.MissingVariableError("root page has no title"), n)

	case KindNum:
		return FormatValue(p.r.tree.ItemCount(p.rel)), nil

	case KindMtime:
		a, err := p.r.tree.Stat(p.rel)
		if err != nil {
			return "", p.fail(errors.WrapError(err, errors.CategoryFileSystem, "stat directory"), n)
		}
		return FormatDate(a.ModTime), nil

	case KindDescription:
		if p.r.describer != nil {
			html, ok, err := p.r.describer.Describe(p.rel)
			if err != nil {
				p.run.warn(err)
				p.r.logger.Warn("Failed to render description", logfields.Dir(p.rel), logfields.Error(err))
			} else if ok {
				return html, nil
			}
		}
		fb, _ := fallback(args)
		return fb, nil

	case KindThumbnails:
		thumbs := p.r.tree.Thumbnails(p.rel, p.r.seed)
		if n.Index < len(thumbs) {
			return thumbs[n.Index], nil
		}
		if fb, ok := fallback(args); ok {
			return fb, nil
		}
		return "", p.fail(errors.MissingVariableError("thumbnail index out of range").
			WithContext("available", len(thumbs)), n)
	}
	return "", p.fail(errors.InternalError("unhandled leaf kind `"+n.Kind+"`"), n)
}

// convertedHref emits the link to the converted copy of the current
// entry, converting first when no up-to-date copy exists. A failed
// conversion is not fatal: the tag's last token is emitted instead. Host
// paths from the expanded command only go to the log.
func (p *page) convertedHref(ctx context.Context, n LeafNode, scope *Binding) (string, error) {
	args := n.Tag.Args
	format := args[1]
	command := strings.Join(args[2:len(args)-1], " ")
	failureText := args[len(args)-1]

	v, ok := scope.Lookup("path")
	key, isString := v.(string)
	if !ok || !isString || key == "" {
		return "", p.fail(errors.MissingVariableError("convertedHref needs an entry with a path"), n)
	}

	layout := p.r.tree.Layout()
	rel := strings.TrimPrefix(key, assets.AssetsDirName+"/")
	outRel := assets.ConvertedRel(rel, format)
	in := layout.AssetPath(rel)
	out := filepath.Join(layout.Dest, filepath.FromSlash(outRel))
	href := assets.EscapePath(outRel)

	if fresh(in, out) {
		p.run.Referenced.Add(outRel)
		return href, nil
	}

	_ = os.Remove(out)
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return "", p.fail(errors.WrapError(err, errors.CategoryFileSystem, "create converted directory"), n)
	}

	p.run.Conversions++
	p.r.logger.Info("Converting", logfields.Asset(key), logfields.Format(format))
	var expanded string
	var err error
	if p.r.converter != nil {
		expanded, err = p.r.converter.Convert(ctx, command, in, out)
	} else {
		err = errors.InternalError("no conversion runner configured").Build()
	}
	if err == nil {
		if _, statErr := os.Stat(out); statErr == nil {
			p.run.Referenced.Add(outRel)
			return href, nil
		}
	}

	_ = os.Remove(out)
	p.run.ConversionFailures++
	msg := "conversion command failed"
	if err == nil {
		msg = "conversion succeeded but produced no output"
	}
	cerr := errors.WrapError(err, errors.CategoryConversion, msg).
		Warning().
		NextRun().
		WithContext("asset", key).
		WithContext("command", commandOr(expanded, command)).
		WithContext("tag", n.Tag.Raw).
		WithContext("line", n.Line).
		WithContext("file", p.r.tmpl.Name).
		Build()
	p.run.warn(cerr)
	p.r.logger.Warn("Conversion failed",
		logfields.Asset(key),
		logfields.Command(commandOr(expanded, command)),
		logfields.Error(cerr))
	return failureText, nil
}

func commandOr(expanded, command string) string {
	if expanded != "" {
		return expanded
	}
	return command
}

// fresh reports whether out exists and is not older than in.
func fresh(in, out string) bool {
	oi, err := os.Stat(out)
	if err != nil {
		return false
	}
	ii, err := os.Stat(in)
	if err != nil {
		return false
	}
	return !oi.ModTime().Before(ii.ModTime())
}
