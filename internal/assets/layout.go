package assets

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Directory names inside the destination.
const (
	AssetsDirName     = "assets"
	ThumbnailsDirName = "thumbnails"
	ConvertedDirName  = "converted"
	CacheFileName     = "database"
	ReadmeFileName    = "README"
	IndexPageName     = "index"

	// ThumbnailExt is appended to an asset name to form its thumbnail name.
	ThumbnailExt = ".jpg"
)

// Layout resolves the on-disk and link locations of every derived artifact.
// Relative paths use forward slashes; rel "" is the gallery root.
type Layout struct {
	Dest string
	// PageExt is the extension of rendered pages, taken from the template name.
	PageExt string
}

// NewLayout creates a layout for dest whose pages use the template's extension.
func NewLayout(dest, templatePath string) Layout {
	ext := strings.TrimPrefix(filepath.Ext(templatePath), ".")
	return Layout{Dest: trimTrailingSlashes(dest), PageExt: ext}
}

func trimTrailingSlashes(p string) string {
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

func (l Layout) AssetsDir() string     { return filepath.Join(l.Dest, AssetsDirName) }
func (l Layout) ThumbnailsDir() string { return filepath.Join(l.Dest, ThumbnailsDirName) }
func (l Layout) ConvertedDir() string  { return filepath.Join(l.Dest, ConvertedDirName) }
func (l Layout) CachePath() string     { return filepath.Join(l.Dest, CacheFileName) }
func (l Layout) ReadmePath() string    { return filepath.Join(l.Dest, ReadmeFileName) }

// AssetPath is the absolute path of the asset at rel.
func (l Layout) AssetPath(rel string) string {
	return filepath.Join(l.AssetsDir(), filepath.FromSlash(rel))
}

// AssetKey is the cache key of an asset: its path relative to Dest.
func AssetKey(rel string) string {
	return path.Join(AssetsDirName, rel)
}

// ThumbnailPath is the absolute path of the thumbnail derived from the asset at rel.
func (l Layout) ThumbnailPath(rel string) string {
	return filepath.Join(l.ThumbnailsDir(), filepath.FromSlash(rel)+ThumbnailExt)
}

// ThumbnailHref is the page link to the thumbnail of the asset at rel.
func ThumbnailHref(rel string) string {
	return "./" + EscapePath(path.Join(ThumbnailsDirName, rel+ThumbnailExt))
}

// ConvertedRel is the destination-relative path of rel converted to format.
func ConvertedRel(rel, format string) string {
	return path.Join(ConvertedDirName, rel+"."+format)
}

// PageName is the file name of the page rendered for directory rel.
func (l Layout) PageName(rel string) string {
	if rel == "" {
		return IndexPageName + "." + l.PageExt
	}
	return strings.ReplaceAll(rel, "/", "-") + "." + l.PageExt
}

// PagePath is the absolute path of the page rendered for directory rel.
func (l Layout) PagePath(rel string) string {
	return filepath.Join(l.Dest, l.PageName(rel))
}

// PageHref is the link to the page of directory rel.
func (l Layout) PageHref(rel string) string {
	if rel == "" {
		return IndexPageName + "." + l.PageExt
	}
	return strings.ReplaceAll(EscapePath(rel+"."+l.PageExt), "/", "-")
}

// EscapePath percent-encodes every segment of a slash-separated path.
func EscapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// UnescapePath reverses EscapePath.
func UnescapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if u, err := url.PathUnescape(s); err == nil {
			segs[i] = u
		}
	}
	return strings.Join(segs, "/")
}

// JoinRel joins a directory rel and a child name.
func JoinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
