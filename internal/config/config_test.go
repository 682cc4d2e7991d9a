package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gallery.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "dest: /srv/gallery\ntemplate: page.html\n"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/gallery", cfg.Dest)
	assert.Equal(t, uint64(9001), cfg.Seed)
	assert.Equal(t, 60*time.Second, cfg.FlushInterval)
	assert.Equal(t, 256, cfg.Thumbnail.Size)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval)
	assert.Equal(t, "ffprobe", cfg.Tools.FFprobe)
	require.NotNil(t, cfg.Formats.ShowUnsupported)
	assert.True(t, *cfg.Formats.ShowUnsupported)
	assert.Equal(t, "/srv/gallery/.gallerybuilder/events.db", cfg.EventsPath())
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("GALLERY_DEST", "/data/out")
	cfg, err := Load(writeConfig(t, "dest: ${GALLERY_DEST}\nflush_interval: 5s\n"))
	require.NoError(t, err)
	assert.Equal(t, "/data/out", cfg.Dest)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
}

func TestLoad_Formats(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
formats:
  image: [JPG, .webp]
  misc: [.pdf]
  show_unsupported: false
`))
	require.NoError(t, err)

	c := cfg.Classifier()
	assert.Equal(t, []string{".jpg", ".webp"}, c.Image)
	assert.Equal(t, []string{".pdf"}, c.Misc)
	assert.False(t, c.ShowUnsupported)
	assert.True(t, c.Listed("doc.PDF"))
	assert.False(t, c.Listed("notes.txt"))
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"negative size":     "thumbnail:\n  size: -1\n",
		"quality too high":  "thumbnail:\n  quality: 101\n",
		"duplicate ext":     "formats:\n  image: [.mp4]\n",
		"negative debounce": "watch:\n  debounce: -1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation), "got %v", err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "dest: [unterminated\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("GB_TEST_DOTENV_DEST=/from/dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GB_TEST_DOTENV_DEST") })
	require.NoError(t, os.WriteFile(DefaultFileName, []byte("dest: $GB_TEST_DOTENV_DEST\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Dest)
}

func TestInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "gallery.yaml")
	require.NoError(t, Init(p, false))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "./gallery", cfg.Dest)
	assert.True(t, cfg.GC)

	err = Init(p, false)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.NoError(t, Init(p, true))
}
