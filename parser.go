// parser.go
//
// The MeTTa reader: a Tokenizer holding registered token constructors and
// an incremental S-expression parser producing atoms. The parser is
// incremental on purpose: a program is a sequence of top-level forms and
// `bind!` may register new tokens between forms, so each form is parsed
// only after the previous one was processed.
//
// Syntax: `(...)` expressions, `$name` variables, `"..."` strings with
// backslash escapes, `;` line comments, `!` prefixing a top-level form
// marks it for evaluation. Everything else is a token resolved through the
// Tokenizer (exact names first, then constructors such as the number
// reader), falling back to a plain symbol.

package metta

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// TokenConstructor turns a raw token into an atom, or declines.
type TokenConstructor func(token string) (Atom, bool)

// Tokenizer maps raw tokens onto atoms. Exact registrations win over
// constructors; re-registering an exact name overwrites the previous atom
// (that is how `bind!` rebinds a name).
type Tokenizer struct {
	exact map[string]Atom
	ctors []TokenConstructor
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{exact: map[string]Atom{}}
}

// RegisterToken binds an exact token to an atom, overwriting any previous
// registration for the same token.
func (t *Tokenizer) RegisterToken(name string, atom Atom) {
	t.exact[name] = atom
}

// UnregisterToken removes an exact registration.
func (t *Tokenizer) UnregisterToken(name string) {
	delete(t.exact, name)
}

// RegisterConstructor appends a fallback constructor, consulted in
// registration order after exact tokens.
func (t *Tokenizer) RegisterConstructor(fn TokenConstructor) {
	t.ctors = append(t.ctors, fn)
}

func (t *Tokenizer) lookup(token string) (Atom, bool) {
	if a, ok := t.exact[token]; ok {
		return a, true
	}
	for _, fn := range t.ctors {
		if a, ok := fn(token); ok {
			return a, true
		}
	}
	return nil, false
}

// NumberConstructor reads integer and float literals into grounded Numbers.
func NumberConstructor(token string) (Atom, bool) {
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return NewInt(i), true
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return NewFloat(f), true
	}
	return nil, false
}

// BoolConstructor reads the True/False tokens into grounded Bools.
func BoolConstructor(token string) (Atom, bool) {
	switch token {
	case "True":
		return NewBool(true), true
	case "False":
		return NewBool(false), true
	}
	return nil, false
}

// --- Parse errors ------------------------------------------------------------

// ParseError carries a 1-based source location. Incomplete marks input that
// could become valid with more text (used by the REPL continuation prompt).
type ParseError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err carries a ParseError describing input
// that merely ended too early. It sees through snippet wrapping.
func IsIncomplete(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Incomplete
}

// --- Parser ------------------------------------------------------------------

// Parser reads one top-level form at a time from a source string.
type Parser struct {
	src  string
	pos  int
	line int
	col  int
	tok  *Tokenizer
}

func NewParser(src string, tok *Tokenizer) *Parser {
	return &Parser{src: src, line: 1, col: 1, tok: tok}
}

func (p *Parser) errf(format string, args ...any) *ParseError {
	return &ParseError{Line: p.line, Col: p.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) incomplete(msg string) *ParseError {
	return &ParseError{Line: p.line, Col: p.col, Msg: msg, Incomplete: true}
}

func (p *Parser) peek() (rune, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r, true
}

func (p *Parser) advance() rune {
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *Parser) skipBlank() {
	for {
		r, ok := p.peek()
		if !ok {
			return
		}
		switch {
		case unicode.IsSpace(r):
			p.advance()
		case r == ';':
			for {
				r, ok := p.peek()
				if !ok || r == '\n' {
					break
				}
				p.advance()
			}
		default:
			return
		}
	}
}

func isTokenBreak(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == ';' || r == '"'
}

// Next reads the next top-level form. directive is true for `!`-prefixed
// forms. At end of input it returns (nil, false, nil).
func (p *Parser) Next() (atom Atom, directive bool, err error) {
	p.skipBlank()
	r, ok := p.peek()
	if !ok {
		return nil, false, nil
	}
	if r == '!' {
		p.advance()
		p.skipBlank()
		if _, ok := p.peek(); !ok {
			return nil, false, p.incomplete("expected form after '!'")
		}
		a, err := p.parseAtom()
		if err != nil {
			return nil, false, err
		}
		return a, true, nil
	}
	a, err := p.parseAtom()
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

func (p *Parser) parseAtom() (Atom, error) {
	p.skipBlank()
	r, ok := p.peek()
	if !ok {
		return nil, p.incomplete("unexpected end of input")
	}
	switch r {
	case '(':
		return p.parseExpression()
	case ')':
		return nil, p.errf("unexpected ')'")
	case '"':
		return p.parseString()
	default:
		return p.parseToken()
	}
}

func (p *Parser) parseExpression() (Atom, error) {
	p.advance() // '('
	var children []Atom
	for {
		p.skipBlank()
		r, ok := p.peek()
		if !ok {
			return nil, p.incomplete("unclosed '('")
		}
		if r == ')' {
			p.advance()
			return E(children...), nil
		}
		child, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
}

func (p *Parser) parseString() (Atom, error) {
	p.advance() // '"'
	var b strings.Builder
	for {
		r, ok := p.peek()
		if !ok {
			return nil, p.incomplete("unclosed string literal")
		}
		p.advance()
		switch r {
		case '"':
			return NewStr(b.String()), nil
		case '\\':
			esc, ok := p.peek()
			if !ok {
				return nil, p.incomplete("unfinished escape in string literal")
			}
			p.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\':
				b.WriteRune(esc)
			default:
				return nil, p.errf("unknown escape '\\%c' in string literal", esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (p *Parser) parseToken() (Atom, error) {
	start := p.pos
	for {
		r, ok := p.peek()
		if !ok || isTokenBreak(r) {
			break
		}
		p.advance()
	}
	token := p.src[start:p.pos]
	if token == "" {
		return nil, p.errf("empty token")
	}
	if len(token) > 1 && strings.HasPrefix(token, "$") {
		return V(token[1:]), nil
	}
	if p.tok != nil {
		if a, ok := p.tok.lookup(token); ok {
			return a, nil
		}
	}
	return S(token), nil
}

// ParseAtomString parses exactly one atom from src using the tokenizer.
// Trailing non-blank input is an error.
func ParseAtomString(src string, tok *Tokenizer) (Atom, error) {
	p := NewParser(src, tok)
	a, _, err := p.Next()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, p.incomplete("empty input")
	}
	p.skipBlank()
	if _, more := p.peek(); more {
		return nil, p.errf("unexpected trailing input")
	}
	return a, nil
}
