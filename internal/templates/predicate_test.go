package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredicate(t *testing.T) {
	parent := NewBinding(nil, map[string]any{"outer": "yes"})
	b := NewBinding(parent, map[string]any{
		"isDir":         false,
		"isImage":       true,
		"format":        ".jpg",
		"i":             2,
		"zero":          0,
		"empty":         "",
		"thumbnails[0]": "./thumbnails/a.jpg.jpg",
	})

	tests := []struct {
		expr string
		want bool
	}{
		{"isImage", true},
		{"isDir", false},
		{"missing", false},
		{"not isDir", true},
		{"!isImage", false},
		{"isImage and not isDir", true},
		{"isImage && isDir", false},
		{"isDir or isImage", true},
		{"isDir || missing", false},
		{`format == ".jpg"`, true},
		{`format == '.png'`, false},
		{`format != ".png"`, true},
		{"i == 2", true},
		{"i != 2", false},
		{"isImage == True", true},
		{"isDir == false", true},
		{"zero", false},
		{"empty", false},
		{"outer", true},
		{"thumbnails[0]", true},
		{"thumbnails[1]", false},
		{"missing == 1", false},
		{"missing != 1", true},
		{"(isDir or isImage) and i == 2", true},
		{"isDir or isImage and i == 3", false},
		{"not (isDir or isImage)", false},
		{"i == -1", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := ParsePredicate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Eval(b))
		})
	}
}

func TestParsePredicateErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"isDir and",
		"(isDir",
		"isDir)",
		`format == ".jpg`,
		"format ==",
		"format == other",
		"a b",
		"__import__('os').system('x') == 0",
		"i + 1",
		"and",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParsePredicate(expr)
			assert.Error(t, err)
		})
	}
}

func TestPredicateString(t *testing.T) {
	p, err := ParsePredicate(`isDir or not isImage and format == ".mp4"`)
	require.NoError(t, err)
	assert.Equal(t, `(isDir || (!(isImage) && format == ".mp4"))`, p.String())
}

func TestBindingLookup(t *testing.T) {
	outer := NewBinding(nil, map[string]any{"a": 1, "b": "outer"})
	inner := NewBinding(outer, map[string]any{"b": "inner"})

	v, ok := inner.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = inner.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "inner", v)

	_, ok = inner.Lookup("c")
	assert.False(t, ok)

	var none *Binding
	_, ok = none.Lookup("a")
	assert.False(t, ok)
	assert.Same(t, outer, inner.Parent())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "x", FormatValue("x"))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "false", FormatValue(false))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "", FormatValue(nil))
}
