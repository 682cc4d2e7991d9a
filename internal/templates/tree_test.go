package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

func TestParseNesting(t *testing.T) {
	src := `<ul><?hgg for path start ?><li><?hgg var title home ?></li><?hgg for path end ?></ul>` +
		`<?hgg for files start ?><?hgg if isDir start ?>` +
		`<?hgg for files start ?>x<?hgg for files end ?>` +
		`<?hgg if isImage start ?>i<?hgg if end ?>` +
		`<?hgg if end ?><?hgg for files end ?>`

	tmpl, err := Parse("page.html", src)
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 2, 3: 10, 4: 9, 5: 6, 7: 8}, tmpl.Pairs)

	require.Len(t, tmpl.Nodes, 4)
	assert.Equal(t, TextNode{Text: "<ul>"}, tmpl.Nodes[0])

	path, ok := tmpl.Nodes[1].(ForNode)
	require.True(t, ok)
	assert.Equal(t, SourcePath, path.Source)
	require.Len(t, path.Body, 3)
	leaf, ok := path.Body[1].(LeafNode)
	require.True(t, ok)
	assert.Equal(t, KindVar, leaf.Kind)

	files, ok := tmpl.Nodes[3].(ForNode)
	require.True(t, ok)
	require.Len(t, files.Body, 1)
	cond, ok := files.Body[0].(IfNode)
	require.True(t, ok)
	assert.Equal(t, "isDir", cond.Predicate.String())
	require.Len(t, cond.Body, 2)
	_, ok = cond.Body[0].(ForNode)
	assert.True(t, ok)
	_, ok = cond.Body[1].(IfNode)
	assert.True(t, ok)
}

func TestParseTrailingText(t *testing.T) {
	tmpl, err := Parse("p.html", "a<?hgg num ?>b")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 3)
	assert.Equal(t, TextNode{Text: "b"}, tmpl.Nodes[2])
}

func TestParseLeafKinds(t *testing.T) {
	tmpl, err := Parse("p.html", "<?hgg fullTitle Home ?><?hgg title Home ?><?hgg num ?><?hgg mtime ?><?hgg description ?><?hgg thumbnails[12] none.png ?>")
	require.NoError(t, err)

	kinds := []string{}
	for _, n := range tmpl.Nodes {
		kinds = append(kinds, n.(LeafNode).Kind)
	}
	assert.Equal(t, []string{KindFullTitle, KindTitle, KindNum, KindMtime, KindDescription, KindThumbnails}, kinds)
	assert.Equal(t, 12, tmpl.Nodes[5].(LeafNode).Index)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		category errors.ErrorCategory
		line     int
	}{
		{"unterminated for", "<?hgg for files start ?>\n<?hgg var title ?>", errors.CategoryTemplateParse, 1},
		{"unterminated inner if", "<?hgg for files start ?>\n<?hgg if isDir start ?>\n<?hgg for files end ?>", errors.CategoryTemplateParse, 3},
		{"stray end", "x\n<?hgg for files end ?>", errors.CategoryTemplateParse, 2},
		{"mismatched source", "<?hgg for files start ?><?hgg for path end ?>", errors.CategoryTemplateParse, 1},
		{"if outside loop", "<?hgg if isDir start ?><?hgg if end ?>", errors.CategoryTemplateStructure, 1},
		{"var outside loop", "\n<?hgg var title ?>", errors.CategoryTemplateStructure, 2},
		{"unknown tag", "<?hgg frobnicate ?>", errors.CategoryTemplateStructure, 1},
		{"unknown source", "<?hgg for tags start ?><?hgg for tags end ?>", errors.CategoryTemplateStructure, 1},
		{"bad predicate", "<?hgg for files start ?><?hgg if a + b start ?><?hgg if end ?><?hgg for files end ?>", errors.CategoryTemplateParse, 1},
		{"short convertedHref", "<?hgg for files start ?><?hgg var convertedHref webm ?><?hgg for files end ?>", errors.CategoryTemplateParse, 1},
		{"convertedHref without failure text", "<?hgg for files start ?><?hgg var convertedHref webm cp ?><?hgg for files end ?>", errors.CategoryTemplateParse, 1},
		{"scanner error", "<?hgg num", errors.CategoryTemplateParse, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("gallery.html", tt.src)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, tt.category), "got %v", err)

			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			file, _ := ce.Context().GetString("file")
			assert.Equal(t, "gallery.html", file)
			line, _ := ce.Context().GetInt("line")
			assert.Equal(t, tt.line, line)
			assert.Contains(t, err.Error(), "gallery.html:")
		})
	}
}
