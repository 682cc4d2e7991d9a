package templates

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Predicate is a boolean condition over the current loop binding. The
// grammar is deliberately small:
//
//	expr  := and { ("||" | "or") and }
//	and   := unary { ("&&" | "and") unary }
//	unary := ("!" | "not") unary | atom
//	atom  := "(" expr ")" | name [ ("==" | "!=") literal ]
//
// Literals are quoted strings, integers and true/false (True/False accepted).
type Predicate interface {
	Eval(b *Binding) bool
	String() string
}

type orPred struct{ terms []Predicate }

func (p orPred) Eval(b *Binding) bool {
	for _, t := range p.terms {
		if t.Eval(b) {
			return true
		}
	}
	return false
}

func (p orPred) String() string { return joinPreds(p.terms, " || ") }

type andPred struct{ terms []Predicate }

func (p andPred) Eval(b *Binding) bool {
	for _, t := range p.terms {
		if !t.Eval(b) {
			return false
		}
	}
	return true
}

func (p andPred) String() string { return joinPreds(p.terms, " && ") }

type notPred struct{ inner Predicate }

func (p notPred) Eval(b *Binding) bool { return !p.inner.Eval(b) }
func (p notPred) String() string        { return "!(" + p.inner.String() + ")" }

type namePred struct{ name string }

func (p namePred) Eval(b *Binding) bool {
	v, ok := b.Lookup(p.name)
	return ok && truthy(v)
}

func (p namePred) String() string { return p.name }

type comparePred struct {
	name   string
	negate bool
	lit    any
}

func (p comparePred) Eval(b *Binding) bool {
	v, ok := b.Lookup(p.name)
	eq := ok && v == p.lit
	if p.negate {
		return !eq
	}
	return eq
}

func (p comparePred) String() string {
	op := "=="
	if p.negate {
		op = "!="
	}
	lit := FormatValue(p.lit)
	if _, isString := p.lit.(string); isString {
		lit = strconv.Quote(lit)
	}
	return p.name + " " + op + " " + lit
}

func joinPreds(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// ParsePredicate parses the predicate text of an `if` tag.
func ParsePredicate(text string) (Predicate, error) {
	toks, err := lexPredicate(text)
	if err != nil {
		return nil, err
	}
	p := &predParser{toks: toks}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected %q in predicate", p.peek().text)
	}
	return pred, nil
}

type predTokKind int

const (
	tokIdent predTokKind = iota
	tokString
	tokInt
	tokOp
	tokLParen
	tokRParen
)

type predTok struct {
	kind predTokKind
	text string
}

func lexPredicate(s string) ([]predTok, error) {
	var toks []predTok
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, predTok{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, predTok{tokRParen, ")"})
			i++
		case strings.HasPrefix(s[i:], "=="), strings.HasPrefix(s[i:], "!="),
			strings.HasPrefix(s[i:], "&&"), strings.HasPrefix(s[i:], "||"):
			toks = append(toks, predTok{tokOp, s[i : i+2]})
			i += 2
		case c == '!':
			toks = append(toks, predTok{tokOp, "!"})
			i++
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				return nil, fmt.Errorf("unterminated string in predicate")
			}
			lit := s[i+1 : j]
			lit = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\'`, `'`).Replace(lit)
			toks = append(toks, predTok{tokString, lit})
			i = j + 1
		case c == '-' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if s[i:j] == "-" {
				return nil, fmt.Errorf("unexpected '-' in predicate")
			}
			toks = append(toks, predTok{tokInt, s[i:j]})
			i = j
		case isIdentRune(rune(c)):
			j := i + 1
			for j < len(s) && (isIdentRune(rune(s[j])) || s[j] == '[' || s[j] == ']' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			toks = append(toks, predTok{tokIdent, s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in predicate", c)
		}
	}
	return toks, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

type predParser struct {
	toks []predTok
	pos  int
}

func (p *predParser) done() bool { return p.pos >= len(p.toks) }

func (p *predParser) peek() predTok {
	if p.done() {
		return predTok{kind: -1}
	}
	return p.toks[p.pos]
}

func (p *predParser) isOp(texts ...string) bool {
	t := p.peek()
	if p.done() || (t.kind != tokOp && t.kind != tokIdent) {
		return false
	}
	for _, s := range texts {
		if t.text == s {
			return true
		}
	}
	return false
}

func (p *predParser) parseOr() (Predicate, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{first}
	for p.isOp("||", "or") {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return orPred{terms: terms}, nil
}

func (p *predParser) parseAnd() (Predicate, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{first}
	for p.isOp("&&", "and") {
		p.pos++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return andPred{terms: terms}, nil
}

func (p *predParser) parseUnary() (Predicate, error) {
	if p.isOp("!", "not") {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notPred{inner: inner}, nil
	}
	return p.parseAtom()
}

func (p *predParser) parseAtom() (Predicate, error) {
	if p.done() {
		return nil, fmt.Errorf("predicate ends unexpectedly")
	}
	t := p.toks[p.pos]
	switch t.kind {
	case tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen || p.done() {
			return nil, fmt.Errorf("missing ')' in predicate")
		}
		p.pos++
		return inner, nil
	case tokIdent:
		if isKeyword(t.text) {
			return nil, fmt.Errorf("unexpected %q in predicate", t.text)
		}
		p.pos++
		if p.isOp("==", "!=") {
			negate := p.peek().text == "!="
			p.pos++
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			return comparePred{name: t.text, negate: negate, lit: lit}, nil
		}
		return namePred{name: t.text}, nil
	}
	return nil, fmt.Errorf("unexpected %q in predicate", t.text)
}

func (p *predParser) parseLiteral() (any, error) {
	if p.done() {
		return nil, fmt.Errorf("comparison is missing a literal")
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokInt:
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", t.text)
		}
		return n, nil
	case tokIdent:
		switch t.text {
		case "true", "True":
			return true, nil
		case "false", "False":
			return false, nil
		}
	}
	return nil, fmt.Errorf("expected literal, found %q", t.text)
}

func isKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "true", "false", "True", "False":
		return true
	}
	return false
}
