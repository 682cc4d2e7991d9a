package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))
}

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	l := NewLayout(t.TempDir(), "t.html")
	for _, rel := range []string{"b.jpg", "a.txt", ".secret", "z/1.png", "y/2.mp4", "y/deep/3.mp3", ".git/config"} {
		touch(t, l.AssetPath(rel))
	}
	for _, rel := range []string{"y/2.mp4", "z/1.png", "y/deep/3.mp3"} {
		touch(t, l.ThumbnailPath(rel))
	}
	touch(t, filepath.Join(l.ThumbnailsDir(), "y", "stray.txt"))
	return NewTree(l, DefaultClassifier())
}

func names(list []Asset) []string {
	out := []string{}
	for _, a := range list {
		out = append(out, a.Name)
	}
	return out
}

func TestList(t *testing.T) {
	tree := newTestTree(t)

	dirs, files, err := tree.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, names(dirs))
	assert.Equal(t, []string{"a.txt", "b.jpg"}, names(files))
	assert.Equal(t, "b.jpg", files[1].Rel)
	assert.True(t, dirs[0].IsDir())
	assert.Equal(t, "4 B", files[0].HumanSize())

	dirs, files, err = tree.List("y")
	require.NoError(t, err)
	assert.Equal(t, "y/deep", dirs[0].Rel)
	assert.Equal(t, "y/2.mp4", files[0].Rel)
}

func TestListHidesUnsupported(t *testing.T) {
	tree := newTestTree(t)
	tree.classifier.ShowUnsupported = false

	_, files, err := tree.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, names(files))
	assert.Equal(t, 4, tree.ItemCount(""))
}

func TestWalkOrder(t *testing.T) {
	tree := newTestTree(t)

	var visited []string
	require.NoError(t, tree.Walk(func(rel string, _, _ []Asset) error {
		visited = append(visited, rel)
		return nil
	}))
	assert.Equal(t, []string{"", "y", "y/deep", "z"}, visited)
}

func TestItemCount(t *testing.T) {
	tree := newTestTree(t)

	assert.Equal(t, 5, tree.ItemCount(""))
	assert.Equal(t, 2, tree.ItemCount("y"))
	assert.Equal(t, 0, tree.ItemCount("missing"))
}

func TestLive(t *testing.T) {
	tree := newTestTree(t)

	dirs, files, err := tree.Live()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"y", "y/deep", "z"}, keys(dirs))
	assert.ElementsMatch(t, []string{"a.txt", "b.jpg", "z/1.png", "y/2.mp4", "y/deep/3.mp3"}, keys(files))
}

func keys[T comparable](m map[T]struct{}) []T {
	out := []T{}
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestThumbnails(t *testing.T) {
	tree := newTestTree(t)

	all := tree.Thumbnails("", 9001)
	assert.ElementsMatch(t, []string{"./thumbnails/y/2.mp4.jpg", "./thumbnails/z/1.png.jpg"}, all)
	assert.Equal(t, all, tree.Thumbnails("", 9001))

	assert.Equal(t, []string{"./thumbnails/y/2.mp4.jpg"}, tree.Thumbnails("y", 9001))
	assert.Empty(t, tree.Thumbnails("nothing", 9001))
}

func TestShuffleDeterministic(t *testing.T) {
	a := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	b := append([]string(nil), a...)
	Shuffle(a, 9001)
	Shuffle(b, 9001)
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, a)
}
