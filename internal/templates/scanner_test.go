package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

func TestScan(t *testing.T) {
	src := "<html>\n<?hgg for files start ?><?hgg var title untitled ?>\n<?hgg for files end ?></html>"

	tags, err := Scan(src)
	require.NoError(t, err)
	require.Len(t, tags, 3)

	assert.Equal(t, "for", tags[0].Kind)
	assert.Equal(t, []string{"files", "start"}, tags[0].Args)
	assert.Equal(t, RoleBlockStart, tags[0].Role)
	assert.Equal(t, 2, tags[0].Line(src))

	assert.Equal(t, "var", tags[1].Kind)
	assert.Equal(t, []string{"title", "untitled"}, tags[1].Args)
	assert.Equal(t, RoleLeaf, tags[1].Role)
	assert.Equal(t, "<?hgg var title untitled ?>", src[tags[1].Start:tags[1].End])

	assert.Equal(t, RoleBlockEnd, tags[2].Role)
	assert.Equal(t, 3, tags[2].Line(src))
}

func TestScanMultilineTag(t *testing.T) {
	tags, err := Scan("<?hgg\n  var\n  href\n?>")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, []string{"href"}, tags[0].Args)
}

func TestScanNoTags(t *testing.T) {
	tags, err := Scan("plain <? not ours ?>")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unterminated", "a\nb <?hgg var x", 2},
		{"unterminated before next open", "<?hgg var x <?hgg num ?>", 1},
		{"empty", "\n\n<?hgg   ?>", 3},
		{"no whitespace after marker", "<?hggnum ?>", 1},
		{"for without role", "<?hgg for files ?>", 1},
		{"for with bad role", "<?hgg for files begin ?>", 1},
		{"if without start", "<?hgg if isDir ?>", 1},
		{"if start without predicate", "<?hgg if start ?>", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scan(tt.src)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryTemplateParse))

			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			line, ok := ce.Context().GetInt("line")
			require.True(t, ok)
			assert.Equal(t, tt.line, line)
		})
	}
}

func TestLineAt(t *testing.T) {
	src := "a\nb\nc"
	assert.Equal(t, 1, LineAt(src, 0))
	assert.Equal(t, 2, LineAt(src, 2))
	assert.Equal(t, 3, LineAt(src, len(src)+10))
}
