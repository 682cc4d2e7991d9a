package markdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render([]byte("# Summer\n\nBeach **days**, ~~rain~~."))
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Summer</h1>")
	assert.Contains(t, out, "<strong>days</strong>")
	assert.Contains(t, out, "<del>rain</del>")
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "trip"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trip", DescriptionFileName), []byte("Road *trip*"), 0o600))

	d := NewDescriber(dir)

	html, ok, err := d.Describe("trip")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<p>Road <em>trip</em></p>\n", html)

	_, ok, err = d.Describe("")
	require.NoError(t, err)
	assert.False(t, ok)
}
