package catalog

import (
	"fmt"
	"strings"
	"unicode"
)

// Expr is a boolean expression over named bitmaps.
type Expr interface {
	// String returns the fully parenthesized form of the expression.
	String() string
	refs(seen map[string]struct{}, out []string) []string
}

type refExpr struct{ name string }

type notExpr struct{ x Expr }

type binaryOp uint8

const (
	opAnd binaryOp = iota
	opOr
	opAndNot
)

func (op binaryOp) String() string {
	switch op {
	case opAnd:
		return "&"
	case opOr:
		return "|"
	default:
		return "-"
	}
}

type binaryExpr struct {
	op   binaryOp
	l, r Expr
}

// Ref references the bitmap stored under name.
func Ref(name string) Expr { return refExpr{name: name} }

// And is the intersection of a and b.
func And(a, b Expr) Expr { return binaryExpr{op: opAnd, l: a, r: b} }

// Or is the union of a and b.
func Or(a, b Expr) Expr { return binaryExpr{op: opOr, l: a, r: b} }

// AndNot is the set of bits in a and not in b.
func AndNot(a, b Expr) Expr { return binaryExpr{op: opAndNot, l: a, r: b} }

// Not is the complement of a within its length.
func Not(a Expr) Expr { return notExpr{x: a} }

func (e refExpr) String() string { return e.name }

func (e notExpr) String() string { return "!" + e.x.String() }

func (e binaryExpr) String() string {
	return "(" + e.l.String() + " " + e.op.String() + " " + e.r.String() + ")"
}

func (e refExpr) refs(seen map[string]struct{}, out []string) []string {
	if _, ok := seen[e.name]; ok {
		return out
	}

	seen[e.name] = struct{}{}

	return append(out, e.name)
}

func (e notExpr) refs(seen map[string]struct{}, out []string) []string {
	return e.x.refs(seen, out)
}

func (e binaryExpr) refs(seen map[string]struct{}, out []string) []string {
	return e.r.refs(seen, e.l.refs(seen, out))
}

// Refs returns the distinct names referenced by e in first-use order.
func Refs(e Expr) []string {
	return e.refs(make(map[string]struct{}), nil)
}

// ParseExpr parses a query such as "a & (b | !c) - d".
//
// Operators, from tightest to loosest binding: '!' (not), '&' (and),
// '-' (and-not), '|' (or). Binary operators are left associative. Since
// names may contain '-', an and-not operator must not directly follow a
// name character; "a - b" and "a -b" subtract, "a-b" is one name.
func ParseExpr(s string) (Expr, error) {
	p := &parser{src: s}
	p.next()

	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.tok != tokEOF {
		return nil, p.errorf("unexpected %s", p.describe())
	}

	return e, nil
}

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokName
	tokOp
	tokLParen
	tokRParen
	tokInvalid
)

// MaxExprDepth bounds the nesting of '!' and parentheses ParseExpr accepts.
const MaxExprDepth = 256

type parser struct {
	src   string
	pos   int // start of current token
	end   int // end of current token
	tok   tokenKind
	text  string
	depth int
}

// enter descends one nesting level; callers defer p.leave().
func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxExprDepth {
		return p.errorf("expression nested deeper than %d", MaxExprDepth)
	}

	return nil
}

func (p *parser) leave() { p.depth-- }

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (p *parser) next() {
	i := p.end
	for i < len(p.src) && unicode.IsSpace(rune(p.src[i])) {
		i++
	}

	p.pos = i

	if i == len(p.src) {
		p.tok, p.text, p.end = tokEOF, "", i
		return
	}

	c := p.src[i]

	switch {
	case c == '(':
		p.tok, p.text, p.end = tokLParen, "(", i+1
	case c == ')':
		p.tok, p.text, p.end = tokRParen, ")", i+1
	case strings.IndexByte("&|!-", c) >= 0:
		p.tok, p.text, p.end = tokOp, string(c), i+1
	case isNameByte(c):
		j := i
		for j < len(p.src) && isNameByte(p.src[j]) {
			j++
		}

		p.tok, p.text, p.end = tokName, p.src[i:j], j
	default:
		p.tok, p.text, p.end = tokInvalid, string(c), i+1
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Expr: p.src, Pos: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) describe() string {
	switch p.tok {
	case tokEOF:
		return "end of expression"
	case tokName:
		return "name " + p.text
	default:
		return "'" + p.text + "'"
	}
}

func (p *parser) isOp(op string) bool { return p.tok == tokOp && p.text == op }

func (p *parser) parseOr() (Expr, error) {
	l, err := p.parseAndNot()
	if err != nil {
		return nil, err
	}

	for p.isOp("|") {
		p.next()

		r, err := p.parseAndNot()
		if err != nil {
			return nil, err
		}

		l = Or(l, r)
	}

	return l, nil
}

func (p *parser) parseAndNot() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.isOp("-") {
		p.next()

		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		l = AndNot(l, r)
	}

	return l, nil
}

func (p *parser) parseAnd() (Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.isOp("&") {
		p.next()

		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		l = And(l, r)
	}

	return l, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isOp("!") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()

		p.next()

		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return Not(x), nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.tok {
	case tokName:
		if !ValidName(p.text) {
			return nil, p.errorf("invalid name %s", p.text)
		}

		e := Ref(p.text)
		p.next()

		return e, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()

		p.next()

		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if p.tok != tokRParen {
			return nil, p.errorf("expected ')' but found %s", p.describe())
		}

		p.next()

		return e, nil
	default:
		return nil, p.errorf("expected name or '(' but found %s", p.describe())
	}
}
