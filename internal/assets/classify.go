package assets

import (
	"path"
	"slices"
	"strings"
)

// MediaType classifies an asset by extension.
type MediaType int

const (
	TypeMisc MediaType = iota
	TypeImage
	TypeVideo
	TypeMusic
)

// Classifier holds the extension tables. Extensions are lower case with a dot.
type Classifier struct {
	Image           []string
	Video           []string
	Music           []string
	Misc            []string
	ShowUnsupported bool
}

// DefaultClassifier mirrors the formats the thumbnailer and probes support.
func DefaultClassifier() Classifier {
	return Classifier{
		Image:           []string{".jpg", ".png"},
		Video:           []string{".avi", ".mov", ".mp4"},
		Music:           []string{".wav", ".ogg", ".mp3"},
		ShowUnsupported: true,
	}
}

// Ext returns the lower-cased extension of name.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// TypeOf classifies name.
func (c Classifier) TypeOf(name string) MediaType {
	ext := Ext(name)
	switch {
	case slices.Contains(c.Image, ext):
		return TypeImage
	case slices.Contains(c.Video, ext):
		return TypeVideo
	case slices.Contains(c.Music, ext):
		return TypeMusic
	}
	return TypeMisc
}

// Supported reports whether name has any configured extension.
func (c Classifier) Supported(name string) bool {
	return c.TypeOf(name) != TypeMisc || slices.Contains(c.Misc, Ext(name))
}

// Listed reports whether name is published in the gallery.
func (c Classifier) Listed(name string) bool {
	return c.ShowUnsupported || c.Supported(name)
}

// HasThumbnail reports whether a thumbnail is derived for name.
func (c Classifier) HasThumbnail(name string) bool {
	t := c.TypeOf(name)
	return t == TypeImage || t == TypeVideo
}
