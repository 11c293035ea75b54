// parser_test.go
package metta

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func testTokenizer() *Tokenizer {
	tok := NewTokenizer()
	tok.RegisterConstructor(BoolConstructor)
	tok.RegisterConstructor(NumberConstructor)
	return tok
}

func parseOne(t *testing.T, src string) Atom {
	t.Helper()
	a, err := ParseAtomString(src, testTokenizer())
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return a
}

func wantAtom(t *testing.T, src string, want Atom) {
	t.Helper()
	got := parseOne(t, src)
	if !AtomsEqual(got, want) {
		t.Fatalf("parse %q: want %s got %s", src, want, got)
	}
}

func Test_Parser_Atoms(t *testing.T) {
	wantAtom(t, "foo", S("foo"))
	wantAtom(t, "$x", V("x"))
	wantAtom(t, "$", S("$")) // a lone dollar is a symbol
	wantAtom(t, "42", NewInt(42))
	wantAtom(t, "-17", NewInt(-17))
	wantAtom(t, "2.5", NewFloat(2.5))
	wantAtom(t, "True", NewBool(true))
	wantAtom(t, "False", NewBool(false))
	wantAtom(t, `"hello"`, NewStr("hello"))
	wantAtom(t, "()", E())
}

func Test_Parser_Expressions(t *testing.T) {
	wantAtom(t, "(= (frog $x) True)",
		E(S("="), E(S("frog"), V("x")), NewBool(true)))
	wantAtom(t, "(a (b (c)) d)",
		E(S("a"), E(S("b"), E(S("c"))), S("d")))
	wantAtom(t, "(+ 1 2)",
		E(S("+"), NewInt(1), NewInt(2)))
}

func Test_Parser_StringEscapes(t *testing.T) {
	wantAtom(t, `"line\nbreak"`, NewStr("line\nbreak"))
	wantAtom(t, `"tab\there"`, NewStr("tab\there"))
	wantAtom(t, `"quote\"inside"`, NewStr(`quote"inside`))
	wantAtom(t, `"back\\slash"`, NewStr(`back\slash`))

	if _, err := ParseAtomString(`"bad\q"`, testTokenizer()); err == nil {
		t.Fatalf("unknown escape accepted")
	}
}

func Test_Parser_Comments(t *testing.T) {
	src := `
; a knowledge base
(croaks Fritz) ; trailing comment
; another
(croaks Sam)
`
	p := NewParser(src, testTokenizer())
	var atoms []Atom
	for {
		a, directive, err := p.Next()
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if a == nil {
			break
		}
		if directive {
			t.Fatalf("comment-only input produced a directive")
		}
		atoms = append(atoms, a)
	}
	if len(atoms) != 2 {
		t.Fatalf("want 2 forms, got %d", len(atoms))
	}
}

func Test_Parser_Directives(t *testing.T) {
	p := NewParser("(fact a)\n!(match &kb $x $x)\n", testTokenizer())

	a, directive, err := p.Next()
	if err != nil || directive {
		t.Fatalf("first form: %v directive=%v", err, directive)
	}
	if !AtomsEqual(a, E(S("fact"), S("a"))) {
		t.Fatalf("first form wrong: %s", a)
	}

	a, directive, err = p.Next()
	if err != nil || !directive {
		t.Fatalf("second form: %v directive=%v", err, directive)
	}
	if h, _ := ExprHeadSymbol(a); h != "match" {
		t.Fatalf("directive form wrong: %s", a)
	}

	a, _, err = p.Next()
	if a != nil || err != nil {
		t.Fatalf("want clean end of input, got %v / %v", a, err)
	}
}

func Test_Parser_IncompleteInput(t *testing.T) {
	for _, src := range []string{"(a b", `"unclosed`, "(a (b c)", "!", `"esc\`} {
		_, err := ParseAtomString(src, testTokenizer())
		if err == nil {
			t.Fatalf("parse %q: want error", src)
		}
		if !IsIncomplete(err) {
			// '!' alone only surfaces through Next
			if src == "!" {
				continue
			}
			t.Fatalf("parse %q: want incomplete error, got %v", src, err)
		}
	}

	p := NewParser("!", testTokenizer())
	_, _, err := p.Next()
	if !IsIncomplete(err) {
		t.Fatalf("lone '!': want incomplete error, got %v", err)
	}
}

func Test_Parser_DefiniteErrors(t *testing.T) {
	for _, src := range []string{")", "(a))extra", `"bad\q"`} {
		p := NewParser(src, testTokenizer())
		definite := false
		for {
			a, _, err := p.Next()
			if err != nil {
				if IsIncomplete(err) {
					t.Fatalf("parse %q: error misreported as incomplete: %v", src, err)
				}
				definite = true
				break
			}
			if a == nil {
				break
			}
		}
		if !definite {
			t.Fatalf("parse %q: want a definite parse error", src)
		}
	}
}

func Test_Parser_ErrorLocation(t *testing.T) {
	p := NewParser("(ok form)\n  )", testTokenizer())
	if _, _, err := p.Next(); err != nil {
		t.Fatalf("first form: %v", err)
	}
	_, _, err := p.Next()
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if pe.Line != 2 || pe.Col != 3 {
		t.Fatalf("want location 2:3, got %d:%d", pe.Line, pe.Col)
	}
}

func Test_Tokenizer_ExactBeatsConstructor(t *testing.T) {
	tok := testTokenizer()
	tok.RegisterToken("42", S("not-a-number"))
	a, err := ParseAtomString("42", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !AtomsEqual(a, S("not-a-number")) {
		t.Fatalf("exact registration lost to constructor: %s", a)
	}
}

func Test_Tokenizer_RebindOverwrites(t *testing.T) {
	tok := testTokenizer()
	tok.RegisterToken("&kb", S("first"))
	tok.RegisterToken("&kb", S("second"))
	a, err := ParseAtomString("&kb", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !AtomsEqual(a, S("second")) {
		t.Fatalf("rebinding did not overwrite: %s", a)
	}
}

func Test_Parser_CaretSnippet(t *testing.T) {
	src := "(= (frog $x)\n   (croaks $x)))"
	p := NewParser(src, testTokenizer())
	if _, _, err := p.Next(); err != nil {
		t.Fatalf("first form: %v", err)
	}
	_, _, err := p.Next()
	if err == nil {
		t.Fatalf("trailing ')' accepted")
	}
	wrapped := WrapErrorWithName(err, "demo.metta", src)
	msg := wrapped.Error()
	for _, part := range []string{"PARSE ERROR", "demo.metta", "^"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("snippet missing %q:\n%s", part, msg)
		}
	}
}

func Test_Parser_SnippetWrappingKeepsErrorChain(t *testing.T) {
	// the original ParseError stays reachable behind the snippet
	_, err := ParseAtomString("(unclosed", testTokenizer())
	if err == nil {
		t.Fatalf("unclosed expression accepted")
	}
	wrapped := WrapErrorWithSource(err, "(unclosed")
	if !IsIncomplete(wrapped) {
		t.Fatalf("IsIncomplete lost through wrapping: %v", wrapped)
	}
	var pe *ParseError
	if !errors.As(wrapped, &pe) {
		t.Fatalf("*ParseError unreachable through wrapping: %v", wrapped)
	}
	if pe.Line != 1 || !pe.Incomplete {
		t.Fatalf("wrong ParseError surfaced: %+v", pe)
	}

	// a definite error wraps the same way but is not incomplete
	_, err = ParseAtomString(")", testTokenizer())
	if IsIncomplete(WrapErrorWithSource(err, ")")) {
		t.Fatalf("definite error misreported as incomplete")
	}
}
