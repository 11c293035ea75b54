// errors.go: engine error taxonomy and caret-snippet rendering
//
// Two error channels exist and never mix:
//
//   - `(Error <subject> <message>)` atoms: first-class values signalling a
//     failed computation. They flow through the normal non-deterministic
//     result stream and are inspectable by MeTTa code. Builtins produce
//     them instead of raising.
//   - Go errors: engine-level failures that abort the current top-level
//     form (recursion limit, registration conflicts, parse errors). These
//     cross the public API as ordinary `error` values.
//
// `WrapErrorWithSource` turns a *ParseError into a readable snippet with a
// caret pointing at the offending column:
//
//	PARSE ERROR in demo.metta at 3:12: unexpected ')'
//
//	   2 | (= (frog $x)
//	   3 |    (croaks $x))
//	     |            ^

package metta

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrRecursionLimit aborts a top-level evaluation whose rewrite chain went
// past Interpreter.MaxDepth. The space keeps whatever mutations already
// happened; there is no rollback.
var ErrRecursionLimit = errors.New("recursion limit exceeded")

// ErrDuplicateOperation is returned when a builtin name is registered
// twice. Registration never overwrites.
var ErrDuplicateOperation = errors.New("operation already registered")

// ErrorSymbol heads error atoms.
const ErrorSymbol = "Error"

// NewErrorAtom builds `(Error <subject> <message>)`.
func NewErrorAtom(subject Atom, message string) Atom {
	return E(S(ErrorSymbol), subject, NewStr(message))
}

// IsErrorAtom recognizes error atoms.
func IsErrorAtom(a Atom) bool {
	head, ok := ExprHeadSymbol(a)
	return ok && head == ErrorSymbol
}

// ErrorAtomMessage extracts the message of an error atom, when present.
func ErrorAtomMessage(a Atom) (string, bool) {
	if !IsErrorAtom(a) {
		return "", false
	}
	e := a.(ExpressionAtom)
	for _, c := range e.Children()[1:] {
		if g, ok := c.(GroundedAtom); ok {
			if s, ok := g.Value.(Str); ok {
				return s.S, true
			}
		}
	}
	return "", false
}

// WrapErrorWithSource augments a parse error with a caret-annotated snippet
// of the source. Other errors pass through unchanged.
func WrapErrorWithSource(err error, src string) error {
	return WrapErrorWithName(err, "", src)
}

// WrapErrorWithName renders the snippet while keeping the *ParseError
// reachable through the error chain, so IsIncomplete and errors.As still
// work on the wrapped value.
func WrapErrorWithName(err error, srcName string, src string) error {
	pe, ok := err.(*ParseError)
	if !ok {
		return err
	}
	return &snippetError{
		cause:   pe,
		snippet: caretSnippet(src, "PARSE ERROR", srcName, pe.Line, pe.Col, pe.Msg),
	}
}

// snippetError is a parse error dressed up with its source snippet.
type snippetError struct {
	cause   *ParseError
	snippet string
}

func (e *snippetError) Error() string { return e.snippet }
func (e *snippetError) Unwrap() error { return e.cause }

// caretSnippet builds a snippet with a header, one line of context on each
// side, and a caret under the 1-based column. Out-of-range coordinates are
// clamped so rendering never fails.
func caretSnippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
