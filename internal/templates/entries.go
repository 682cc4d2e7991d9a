package templates

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
)

// DateFormat is the layout of every rendered modification time.
const DateFormat = "06-01-02"

// FormatDate renders t in DateFormat, in UTC.
func FormatDate(t time.Time) string { return t.UTC().Format(DateFormat) }

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// pathEntries builds one element for the gallery root and one for every
// ancestor segment of rel, outermost first. The root element has no title.
func (r *Renderer) pathEntries(rel string) []map[string]any {
	layout := r.tree.Layout()
	out := []map[string]any{{
		"href": layout.PageHref(""),
		"num":  r.tree.ItemCount(""),
	}}
	if rel == "" {
		return out
	}
	prefix := ""
	for _, seg := range strings.Split(rel, "/") {
		prefix = assets.JoinRel(prefix, seg)
		out = append(out, map[string]any{
			"title": seg,
			"href":  layout.PageHref(prefix),
			"num":   r.tree.ItemCount(prefix),
		})
	}
	return out
}

// fileEntries builds one element per subdirectory followed by one per
// file. Probe failures degrade the entry and are collected into run.
func (r *Renderer) fileEntries(run *RunContext, dirs, files []assets.Asset) []map[string]any {
	layout := r.tree.Layout()
	classifier := r.tree.Classifier()
	out := make([]map[string]any, 0, len(dirs)+len(files))

	for _, d := range dirs {
		e := map[string]any{
			"title":   d.Name,
			"href":    layout.PageHref(d.Rel),
			"num":     r.tree.ItemCount(d.Rel),
			"size":    d.HumanSize(),
			"mtime":   FormatDate(d.ModTime),
			"isDir":   true,
			"isImage": false,
			"isVideo": false,
			"isMusic": false,
			"isMisc":  false,
		}
		thumbs := r.tree.Thumbnails(d.Rel, r.seed)
		for k, t := range thumbs {
			e[fmt.Sprintf("thumbnails[%d]", k)] = t
		}
		if len(thumbs) > 0 {
			e["thumbnail"] = thumbs[0]
		}
		out = append(out, e)
	}

	for _, f := range files {
		if !classifier.Listed(f.Name) {
			continue
		}
		key := assets.AssetKey(f.Rel)
		kind := classifier.TypeOf(f.Name)
		e := map[string]any{
			"title":   f.Name,
			"href":    assets.EscapePath(key),
			"path":    key,
			"size":    f.HumanSize(),
			"mtime":   FormatDate(f.ModTime),
			"format":  assets.Ext(f.Name),
			"isDir":   false,
			"isImage": kind == assets.TypeImage,
			"isVideo": kind == assets.TypeVideo,
			"isMusic": kind == assets.TypeMusic,
			"isMisc":  kind == assets.TypeMisc,
		}
		if err := r.probe(e, f, kind); err != nil {
			run.warn(err)
			r.logger.Warn("Failed to read media attributes",
				logfields.Asset(key), logfields.Error(err))
		}
		out = append(out, e)
	}
	return out
}

// probe fills the type-specific attributes in the order they are known, so
// a late failure still leaves the earlier ones bound.
func (r *Renderer) probe(e map[string]any, f assets.Asset, kind assets.MediaType) error {
	if r.media == nil {
		return nil
	}
	src := r.tree.Layout().AssetPath(f.Rel)
	fail := func(err error) error {
		return errors.WrapError(err, errors.CategoryMediaProbe, "failed reading media attributes").
			Warning().
			NextRun().
			WithContext("asset", assets.AssetKey(f.Rel)).
			Build()
	}

	switch kind {
	case assets.TypeImage:
		w, h, err := r.media.Dimensions(src)
		if err != nil {
			return fail(err)
		}
		e["width"], e["height"] = w, h
		e["thumbnail"] = assets.ThumbnailHref(f.Rel)
	case assets.TypeVideo:
		d, err := r.media.Duration(src)
		if err != nil {
			return fail(err)
		}
		e["length"] = FormatDuration(d)
		w, h, err := r.media.Dimensions(src)
		if err != nil {
			return fail(err)
		}
		e["width"], e["height"] = w, h
		e["thumbnail"] = assets.ThumbnailHref(f.Rel)
	case assets.TypeMusic:
		d, err := r.media.Duration(src)
		if err != nil {
			return fail(err)
		}
		e["length"] = FormatDuration(d)
	}
	return nil
}

// withPosition adds the position index and the isLast flag to every element.
func withPosition(list []map[string]any) []map[string]any {
	for i, e := range list {
		e["i"] = i
		e["isLast"] = i == len(list)-1
	}
	return list
}
