package templates

import (
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// Tag kinds understood by the renderer.
const (
	KindFor         = "for"
	KindIf          = "if"
	KindVar         = "var"
	KindFullTitle   = "fullTitle"
	KindTitle       = "title"
	KindNum         = "num"
	KindMtime       = "mtime"
	KindDescription = "description"
	KindThumbnails  = "thumbnails"

	// ConvertedHref is the reserved variable name that triggers conversion.
	ConvertedHref = "convertedHref"
)

// Loop sources.
const (
	SourcePath  = "path"
	SourceFiles = "files"
)

var thumbnailIndexPattern = regexp.MustCompile(`^thumbnails\[(\d+)\]$`)

// Node is one element of a parsed template.
type Node interface{ node() }

// TextNode is literal template text between tags.
type TextNode struct{ Text string }

// LeafNode is a tag that produces output without a body.
type LeafNode struct {
	Tag  Tag
	Kind string
	Line int
	// Index is the n of a thumbnails[n] leaf.
	Index int
}

// ForNode expands Body once per element of Source.
type ForNode struct {
	Tag    Tag
	Line   int
	Source string
	Body   []Node
	// StartIndex and EndIndex are positions in the template's tag sequence.
	StartIndex int
	EndIndex   int
}

// IfNode renders Body when Predicate holds for the current binding.
type IfNode struct {
	Tag        Tag
	Line       int
	Predicate  Predicate
	Body       []Node
	StartIndex int
	EndIndex   int
}

func (TextNode) node() {}
func (LeafNode) node() {}
func (ForNode) node()  {}
func (IfNode) node()   {}

// Template is a parsed page template.
type Template struct {
	Name   string
	Source string
	Tags   []Tag
	Nodes  []Node
	// Pairs maps the index of every block-start tag to its block-end tag.
	Pairs map[int]int
}

type frame struct {
	start int
	nodes *[]Node
	block Node
}

// Parse scans src and converts the flat tag sequence into a tree of text,
// leaf, for and if nodes. All placement rules are checked here, so a
// template that parses renders without structural surprises.
func Parse(name, src string) (*Template, error) {
	tags, err := Scan(src)
	if err != nil {
		return nil, annotate(err, name)
	}

	t := &Template{Name: name, Source: src, Tags: tags, Pairs: map[int]int{}}
	root := []Node{}
	stack := []frame{{start: -1, nodes: &root}}
	loopDepth := 0
	pos := 0

	fail := func(b *errors.ErrorBuilder, tag Tag) error {
		return b.WithContext("tag", tag.Raw).
			WithContext("line", tag.Line(src)).
			WithContext("file", name).
			Build()
	}

	for i, tag := range tags {
		top := &stack[len(stack)-1]
		if tag.Start > pos {
			*top.nodes = append(*top.nodes, TextNode{Text: src[pos:tag.Start]})
		}
		pos = tag.End
		line := tag.Line(src)

		switch tag.Role {
		case RoleBlockStart:
			switch tag.Kind {
			case KindFor:
				source := tag.Args[0]
				if source != SourcePath && source != SourceFiles {
					return nil, fail(errors.StructuralError("unknown for source `"+source+"`"), tag)
				}
				n := &ForNode{Tag: tag, Line: line, Source: source, StartIndex: i}
				stack = append(stack, frame{start: i, nodes: &n.Body, block: n})
				loopDepth++
			case KindIf:
				if loopDepth == 0 {
					return nil, fail(errors.StructuralError("if outside for loop"), tag)
				}
				pred, perr := ParsePredicate(strings.Join(tag.Args[:len(tag.Args)-1], " "))
				if perr != nil {
					return nil, fail(errors.ParseError(perr.Error()), tag)
				}
				n := &IfNode{Tag: tag, Line: line, Predicate: pred, StartIndex: i}
				stack = append(stack, frame{start: i, nodes: &n.Body, block: n})
			}

		case RoleBlockEnd:
			if len(stack) == 1 {
				return nil, fail(errors.ParseError("end tag without matching start"), tag)
			}
			open := tags[top.start]
			if open.Kind != tag.Kind || open.Discriminator() != tag.Discriminator() {
				return nil, fail(errors.ParseError("end tag does not match open `"+open.Raw+"` at line "+
					strconv.Itoa(open.Line(src))), tag)
			}
			t.Pairs[top.start] = i
			block := top.block
			stack = stack[:len(stack)-1]
			parent := &stack[len(stack)-1]
			switch n := block.(type) {
			case *ForNode:
				n.EndIndex = i
				loopDepth--
				*parent.nodes = append(*parent.nodes, *n)
			case *IfNode:
				n.EndIndex = i
				*parent.nodes = append(*parent.nodes, *n)
			}

		default:
			leaf, lerr := newLeaf(tag, line, loopDepth > 0)
			if lerr != nil {
				return nil, fail(lerr, tag)
			}
			*top.nodes = append(*top.nodes, leaf)
		}
	}

	if len(stack) > 1 {
		open := tags[stack[len(stack)-1].start]
		return nil, fail(errors.ParseError("unterminated block"), open)
	}
	if pos < len(src) {
		root = append(root, TextNode{Text: src[pos:]})
	}
	t.Nodes = root
	return t, nil
}

func newLeaf(tag Tag, line int, inLoop bool) (LeafNode, *errors.ErrorBuilder) {
	leaf := LeafNode{Tag: tag, Line: line}
	switch tag.Kind {
	case KindVar:
		if !inLoop {
			return leaf, errors.StructuralError("var outside for loop")
		}
		if len(tag.Args) == 0 {
			return leaf, errors.ParseError("var tag needs a variable name")
		}
		// var convertedHref <format> <command...> <failure text>
		if tag.Args[0] == ConvertedHref && len(tag.Args) < 4 {
			return leaf, errors.ParseError("convertedHref needs a format, a command and a failure text")
		}
	case KindFullTitle, KindTitle, KindNum, KindMtime, KindDescription:
	default:
		m := thumbnailIndexPattern.FindStringSubmatch(tag.Kind)
		if m == nil {
			return leaf, errors.StructuralError("unknown tag `" + tag.Kind + "`")
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return leaf, errors.ParseError("invalid thumbnail index")
		}
		leaf.Kind = KindThumbnails
		leaf.Index = n
	}
	if leaf.Kind == "" {
		leaf.Kind = tag.Kind
	}
	return leaf, nil
}

func annotate(err error, name string) error {
	if c, ok := errors.AsClassified(err); ok {
		return c.WithContext("file", name)
	}
	return err
}
