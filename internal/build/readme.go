package build

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

const readmeText = `This gallery is generated by gallerybuilder.
==========
1. Put your photos, videos or whatever into ./assets
2. Run ` + "`gallerybuilder build <this folder> <template>`" + `
3a. The pages are generated in ./
3b. The thumbnails are generated in ./thumbnails
3c. The converted files are generated in ./converted, if the template asks for conversions
3d. The build cache ./database is created
4. To update the gallery, update the content in ./assets and run the same command again
==========
All pages are placed in ./ so css and js files put next to them can be referenced directly.
A directory may carry a .description.md file; the template shows it with the description tag.
`

// initDestination creates the destination layout, an empty cache file and
// the README on first use. Existing files are left alone.
func initDestination(layout assets.Layout) error {
	for _, dir := range []string{layout.Dest, layout.AssetsDir(), layout.ThumbnailsDir(), layout.ConvertedDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create destination directory").
				WithContext("dir", dir).
				Build()
		}
	}
	if err := createIfMissing(layout.CachePath(), nil); err != nil {
		return err
	}
	return createIfMissing(layout.ReadmePath(), []byte(readmeText))
}

func createIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create file").
			WithContext("file", path).
			Build()
	}
	return nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so a crash never leaves a half-written page.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".page-*.tmp")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create temp page").
			WithContext("file", path).
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
			WithContext("file", path).
			Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to close page").
			WithContext("file", path).
			Build()
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to set page mode").
			WithContext("file", path).
			Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to replace page").
			WithContext("file", path).
			Build()
	}
	return nil
}
