package templates

import (
	"strings"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// Tag delimiters. Content between them is whitespace-tokenized.
const (
	OpenMarker  = "<?hgg"
	CloseMarker = "?>"
)

// Role describes how a tag participates in block nesting.
type Role int

const (
	RoleLeaf Role = iota
	RoleBlockStart
	RoleBlockEnd
)

func (r Role) String() string {
	switch r {
	case RoleBlockStart:
		return "block-start"
	case RoleBlockEnd:
		return "block-end"
	default:
		return "leaf"
	}
}

// Tag is one directive occurrence in a template. Start and End are byte
// offsets of the whole occurrence, markers included.
type Tag struct {
	Kind  string
	Args  []string
	Start int
	End   int
	Role  Role
	Raw   string
}

// Discriminator is the value a block end must repeat to close a block:
// the source for `for`, nothing for `if`.
func (t Tag) Discriminator() string {
	if t.Kind == KindFor && len(t.Args) > 0 {
		return t.Args[0]
	}
	return ""
}

// Line returns the 1-based line of the tag within src.
func (t Tag) Line(src string) int {
	return LineAt(src, t.Start)
}

// LineAt returns the 1-based line number of a byte offset.
func LineAt(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.Count(src[:offset], "\n") + 1
}

// Scan extracts the ordered tag sequence from raw template text. It has no
// side effects; an unterminated or empty tag is a parse error.
func Scan(src string) ([]Tag, error) {
	var tags []Tag
	pos := 0
	for {
		idx := strings.Index(src[pos:], OpenMarker)
		if idx < 0 {
			return tags, nil
		}
		start := pos + idx
		bodyStart := start + len(OpenMarker)

		closeIdx := strings.Index(src[bodyStart:], CloseMarker)
		nextOpen := strings.Index(src[bodyStart:], OpenMarker)
		if closeIdx < 0 || (nextOpen >= 0 && nextOpen < closeIdx) {
			return nil, errors.ParseError("unterminated tag").
				WithContext("tag", firstLine(src[start:])).
				WithContext("line", LineAt(src, start)).
				WithContext("offset", start).
				Build()
		}
		end := bodyStart + closeIdx + len(CloseMarker)
		raw := src[start:end]
		body := src[bodyStart : bodyStart+closeIdx]

		if body != "" && !isSpace(body[0]) {
			return nil, errors.ParseError("tag marker must be followed by whitespace").
				WithContext("tag", raw).
				WithContext("line", LineAt(src, start)).
				Build()
		}
		fields := strings.Fields(body)
		if len(fields) == 0 {
			return nil, errors.ParseError("empty tag").
				WithContext("tag", raw).
				WithContext("line", LineAt(src, start)).
				Build()
		}

		tag := Tag{Kind: fields[0], Args: fields[1:], Start: start, End: end, Raw: raw}
		role, problem := classify(tag)
		if problem != "" {
			return nil, errors.ParseError(problem).
				WithContext("tag", raw).
				WithContext("line", LineAt(src, start)).
				Build()
		}
		tag.Role = role
		tags = append(tags, tag)
		pos = end
	}
}

// classify determines the block role of a tag. A non-empty problem means the
// tag is a malformed block tag.
func classify(t Tag) (role Role, problem string) {
	switch t.Kind {
	case KindFor:
		if len(t.Args) == 2 {
			switch t.Args[1] {
			case "start":
				return RoleBlockStart, ""
			case "end":
				return RoleBlockEnd, ""
			}
		}
		return RoleLeaf, "for tag must read `for <source> start` or `for <source> end`"
	case KindIf:
		if len(t.Args) == 1 && t.Args[0] == "end" {
			return RoleBlockEnd, ""
		}
		if len(t.Args) >= 2 && t.Args[len(t.Args)-1] == "start" {
			return RoleBlockStart, ""
		}
		return RoleLeaf, "if tag must read `if <predicate> start` or `if end`"
	}
	return RoleLeaf, ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return s
}
