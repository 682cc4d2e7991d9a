package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

func TestExpandQuotesPaths(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	for _, in := range []string{"my clip.mp4", "it's.webm", "$HOME; rm -rf x", "a\"b`c`.mov"} {
		_, err := NewRunner().Convert(context.Background(), "printf %s {i} > {o}", in, out)
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, in, string(data))
	}
}

func TestExpandLeavesPlainPathsReadable(t *testing.T) {
	assert.Equal(t, "cp /a/b.mp4 /c/d.webm", Expand("cp {i} {o}", "/a/b.mp4", "/c/d.webm"))
}

func TestConvertRunsCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in put.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o600))

	expanded, err := NewRunner().Convert(context.Background(), "cat {i} > {o}", in, out)
	require.NoError(t, err)
	assert.Contains(t, expanded, "'"+in+"'")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestConvertFailureCarriesStatus(t *testing.T) {
	_, err := NewRunner().Convert(context.Background(), "echo broken >&2; exit 3", "a", "b")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConversion))

	ce, ok := derrors.AsClassified(err)
	require.True(t, ok)
	status, _ := ce.Context().GetInt("exit_status")
	assert.Equal(t, 3, status)
	stderr, _ := ce.Context().GetString("stderr")
	assert.Equal(t, "broken", stderr)
	assert.True(t, ce.IsRecoverable())
}

func TestConvertParseError(t *testing.T) {
	_, err := NewRunner().Convert(context.Background(), "cp {i} {o} && (", "a", "b")
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConversion))
}
