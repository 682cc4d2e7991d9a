package build

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/incremental"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
	"git.home.luguber.info/inful/gallerybuilder/internal/util/sets"
)

// Kinds of garbage reported by CollectGarbage.
const (
	GarbageCacheEntry   = "cache_entry"
	GarbagePage         = "page"
	GarbageThumbnail    = "thumbnail"
	GarbageConverted    = "converted"
	GarbageUnreferenced = "unreferenced"
)

// GCRequest holds what a garbage collection pass reconciles.
type GCRequest struct {
	Layout assets.Layout
	Tree   *assets.Tree
	Cache  *incremental.BuildCache
	// FullUpdate and UpdatedDirs name the directories whose pages were
	// rendered in this run; only their converted files can be judged
	// unreferenced.
	FullUpdate  bool
	UpdatedDirs sets.Set[string]
	// Referenced holds the destination-relative paths of converted files
	// emitted while rendering.
	Referenced sets.Set[string]
	Logger     *slog.Logger
}

func (r GCRequest) covers(dir string) bool {
	return r.FullUpdate || (r.UpdatedDirs != nil && r.UpdatedDirs.Has(dir))
}

// GCResult maps a garbage kind to the paths removed, relative to Dest.
type GCResult struct {
	Removed map[string][]string
}

func (g *GCResult) add(kind, p string) {
	g.Removed[kind] = append(g.Removed[kind], p)
}

// CollectGarbage removes derived artifacts that no longer correspond to a
// live asset:
//
//  1. cache entries of vanished assets (the cache is saved afterwards)
//  2. pages of directories that vanished since the previous run
//  3. converted files and thumbnails of vanished assets, and their directories
//  4. converted files no page of a re-rendered directory referenced
//
// The previous directory layout is inferred from the thumbnail tree, so the
// thumbnails are reconciled last. A page rendered with a template of
// another extension is not detected.
//
// Removals are best-effort: a missing target is not an error and other
// failures are logged.
func CollectGarbage(ctx context.Context, req GCRequest) (*GCResult, error) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res := &GCResult{Removed: map[string][]string{}}

	liveDirs, liveFiles, err := req.Tree.Live()
	if err != nil {
		return nil, err
	}
	oldDirs := subdirectories(req.Layout.ThumbnailsDir())

	for _, key := range req.Cache.Keys() {
		rel := strings.TrimPrefix(key, assets.AssetsDirName+"/")
		if !liveFiles.Has(rel) {
			req.Cache.Forget(key)
			res.add(GarbageCacheEntry, key)
		}
	}
	if err := req.Cache.Save(); err != nil {
		return nil, err
	}

	for _, d := range oldDirs {
		if liveDirs.Has(d) {
			continue
		}
		page := req.Layout.PagePath(d)
		if remove(logger, page, false) {
			res.add(GarbagePage, req.Layout.PageName(d))
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	for _, root := range []struct{ dir, kind string }{
		{assets.ConvertedDirName, GarbageConverted},
		{assets.ThumbnailsDirName, GarbageThumbnail},
	} {
		base := filepath.Join(req.Layout.Dest, root.dir)
		for _, f := range files(base) {
			if liveFiles.Has(strings.TrimSuffix(f, path.Ext(f))) {
				continue
			}
			if remove(logger, filepath.Join(base, filepath.FromSlash(f)), false) {
				res.add(root.kind, path.Join(root.dir, f))
			}
		}
		for _, d := range subdirectories(base) {
			if liveDirs.Has(d) {
				continue
			}
			if remove(logger, filepath.Join(base, filepath.FromSlash(d)), true) {
				res.add(root.kind, path.Join(root.dir, d))
			}
		}
	}

	base := req.Layout.ConvertedDir()
	for _, f := range files(base) {
		dir := path.Dir(f)
		if dir == "." {
			dir = ""
		}
		rel := path.Join(assets.ConvertedDirName, f)
		if !req.covers(dir) || (req.Referenced != nil && req.Referenced.Has(rel)) {
			continue
		}
		if remove(logger, filepath.Join(base, filepath.FromSlash(f)), false) {
			res.add(GarbageUnreferenced, rel)
		}
	}

	for kind, paths := range res.Removed {
		logger.Info("Collected garbage", logfields.Kind(kind), slog.Int("count", len(paths)))
	}
	return res, nil
}

// subdirectories lists every directory below root as slash-separated rel
// paths, parents first. Directories of a removed parent are still listed,
// which is harmless because removal is best-effort.
func subdirectories(root string) []string {
	var out []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == root {
			return nil
		}
		if r, err := filepath.Rel(root, p); err == nil {
			out = append(out, filepath.ToSlash(r))
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// files lists every regular file below root as slash-separated rel paths.
func files(root string) []string {
	var out []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if r, err := filepath.Rel(root, p); err == nil {
			out = append(out, filepath.ToSlash(r))
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// remove deletes p and reports whether something was removed.
func remove(logger *slog.Logger, p string, recursive bool) bool {
	if _, err := os.Lstat(p); err != nil {
		return false
	}
	var err error
	if recursive {
		err = os.RemoveAll(p)
	} else {
		err = os.Remove(p)
	}
	if err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove stale artifact", slog.String("path", p), logfields.Error(err))
		return false
	}
	return err == nil
}
