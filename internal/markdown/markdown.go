// Package markdown renders the optional per-directory description shown on
// gallery pages.
package markdown

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// DescriptionFileName is read from each asset directory. Being hidden, it
// never shows up as an asset itself.
const DescriptionFileName = ".description.md"

// Render converts a Markdown body to HTML.
func Render(body []byte) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Describer renders the description file of asset directories.
type Describer struct {
	assetsDir string
}

// NewDescriber reads descriptions below assetsDir.
func NewDescriber(assetsDir string) *Describer {
	return &Describer{assetsDir: assetsDir}
}

// Describe returns the rendered description of directory rel. ok is false
// when the directory has none.
func (d *Describer) Describe(rel string) (string, bool, error) {
	path := filepath.Join(d.assetsDir, filepath.FromSlash(rel), DescriptionFileName)
	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapError(err, errors.CategoryFileSystem, "read description").
			Warning().
			WithContext("file", path).
			Build()
	}
	out, err := Render(body)
	if err != nil {
		return "", false, errors.WrapError(err, errors.CategoryValidation, "render description").
			Warning().
			WithContext("file", path).
			Build()
	}
	return out, true, nil
}
