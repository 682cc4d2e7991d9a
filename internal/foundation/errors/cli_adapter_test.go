package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "parse", err: ParseError("unterminated").Build(), expected: 3},
		{name: "missing variable wrapped", err: fmt.Errorf("page: %w", MissingVariableError("x").Build()), expected: 3},
		{name: "cache version", err: IncompatibleFormatError("version 3").Build(), expected: 4},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "filesystem", err: FileSystemError("mkdir").Build(), expected: 11},
		{name: "unclassified", err: errors.New("unknown"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)

	tmplErr := ParseError("unterminated tag").WithContext("line", 4).Build()
	assert.Contains(t, quiet.FormatError(tmplErr), "line 4")

	fsErr := WrapError(errors.New("permission denied"), CategoryFileSystem, "write page").Build()
	assert.Equal(t, "Error: write page (use -v for details)", quiet.FormatError(fsErr))
	assert.Contains(t, verbose.FormatError(fsErr), "permission denied")

	assert.Equal(t, "", quiet.FormatError(nil))
	assert.Equal(t, "Error: boom", quiet.FormatError(errors.New("boom")))
}
