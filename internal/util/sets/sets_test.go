package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetBasics(t *testing.T) {
	s := New("converted/a.webm")
	s.Add("converted/b.webm")
	assert.True(t, s.Has("converted/a.webm"))
	assert.False(t, s.Has("converted/c.webm"))

	c := s.Clone()
	s.Delete("converted/a.webm")
	assert.False(t, s.Has("converted/a.webm"))
	assert.True(t, c.Has("converted/a.webm"))
	assert.Equal(t, []string{"converted/a.webm", "converted/b.webm"}, Sorted(c))
}
