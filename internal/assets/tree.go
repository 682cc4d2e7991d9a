package assets

import (
	"io/fs"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/gallerybuilder/internal/util/sets"
)

// Kind distinguishes files from directories.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

// Asset is a file or directory under the assets tree.
type Asset struct {
	Rel     string
	Name    string
	Kind    Kind
	ModTime time.Time
	Size    int64
}

// IsDir reports whether the asset is a directory.
func (a Asset) IsDir() bool { return a.Kind == KindDirectory }

// HumanSize renders the size the way listings show it.
func (a Asset) HumanSize() string { return humanize.IBytes(uint64(max(a.Size, 0))) }

// Tree reads the asset tree below Layout.AssetsDir. Hidden entries (names
// starting with a dot) are never assets.
type Tree struct {
	layout     Layout
	classifier Classifier
}

// NewTree creates a reader over layout's assets directory.
func NewTree(layout Layout, classifier Classifier) *Tree {
	return &Tree{layout: layout, classifier: classifier}
}

// Layout returns the layout the tree reads from.
func (t *Tree) Layout() Layout { return t.layout }

// Classifier returns the extension tables in use.
func (t *Tree) Classifier() Classifier { return t.classifier }

// Hidden reports whether a name is excluded from the gallery.
func Hidden(name string) bool { return strings.HasPrefix(name, ".") }

// Stat returns the asset at rel.
func (t *Tree) Stat(rel string) (Asset, error) {
	info, err := os.Stat(t.layout.AssetPath(rel))
	if err != nil {
		return Asset{}, err
	}
	return fromInfo(rel, info), nil
}

func fromInfo(rel string, info fs.FileInfo) Asset {
	a := Asset{Rel: rel, Name: path.Base(rel), ModTime: info.ModTime(), Size: info.Size()}
	if rel == "" {
		a.Name = ""
	}
	if info.IsDir() {
		a.Kind = KindDirectory
	}
	return a
}

// List returns the immediate subdirectories and listed files of rel, each
// sorted by name.
func (t *Tree) List(rel string) (dirs, files []Asset, err error) {
	entries, err := os.ReadDir(t.layout.AssetPath(rel))
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if Hidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		a := fromInfo(JoinRel(rel, e.Name()), info)
		if a.IsDir() {
			dirs = append(dirs, a)
		} else if info.Mode().IsRegular() && t.classifier.Listed(e.Name()) {
			files = append(files, a)
		}
	}
	// os.ReadDir sorts by name already; keep the guarantee explicit.
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return dirs, files, nil
}

// Walk visits rel "" and every directory below it, parents before children,
// siblings in name order.
func (t *Tree) Walk(fn func(rel string, dirs, files []Asset) error) error {
	var visit func(rel string) error
	visit = func(rel string) error {
		dirs, files, err := t.List(rel)
		if err != nil {
			return err
		}
		if err := fn(rel, dirs, files); err != nil {
			return err
		}
		for _, d := range dirs {
			if err := visit(d.Rel); err != nil {
				return err
			}
		}
		return nil
	}
	return visit("")
}

// ItemCount is the number of listed files at any depth below rel.
func (t *Tree) ItemCount(rel string) int {
	count := 0
	root := t.layout.AssetPath(rel)
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != root && Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && t.classifier.Listed(d.Name()) {
			count++
		}
		return nil
	})
	return count
}

// Live returns every directory and listed file currently in the tree, as
// rel paths.
func (t *Tree) Live() (dirs, files sets.Set[string], err error) {
	dirs, files = sets.New[string](), sets.New[string]()
	err = t.Walk(func(_ string, ds, fls []Asset) error {
		for _, d := range ds {
			dirs.Add(d.Rel)
		}
		for _, f := range fls {
			files.Add(f.Rel)
		}
		return nil
	})
	return dirs, files, err
}

// Thumbnails lists the links of every eligible thumbnail below rel in the
// thumbnail tree, shuffled with a generator seeded by seed. Equal inputs
// produce equal order.
func (t *Tree) Thumbnails(rel string, seed uint64) []string {
	root := filepath.Join(t.layout.ThumbnailsDir(), filepath.FromSlash(rel))
	var rels []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ThumbnailExt) {
			return nil
		}
		if !t.classifier.HasThumbnail(strings.TrimSuffix(name, ThumbnailExt)) {
			return nil
		}
		r, err := filepath.Rel(t.layout.ThumbnailsDir(), p)
		if err != nil {
			return nil
		}
		rels = append(rels, strings.TrimSuffix(filepath.ToSlash(r), ThumbnailExt))
		return nil
	})
	sort.Strings(rels)
	Shuffle(rels, seed)

	hrefs := make([]string, len(rels))
	for i, r := range rels {
		hrefs[i] = ThumbnailHref(r)
	}
	return hrefs
}

// Shuffle permutes s deterministically for seed.
func Shuffle(s []string, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
