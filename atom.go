// atom.go
//
// The atom data model: the four atom kinds (symbol, variable, expression,
// grounded), structural equality, and the grounded-value capability
// interfaces (execute/match/equality/printing).
//
// Atoms are immutable once built. Sharing subtrees between atoms is safe;
// anything that needs a modified atom builds a new one.

package metta

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// AtomKind discriminates the four atom shapes.
type AtomKind int

const (
	SymbolKind AtomKind = iota
	VariableKind
	ExpressionKind
	GroundedKind
)

func (k AtomKind) String() string {
	switch k {
	case SymbolKind:
		return "Symbol"
	case VariableKind:
		return "Variable"
	case ExpressionKind:
		return "Expression"
	case GroundedKind:
		return "Grounded"
	default:
		return "Unknown"
	}
}

// Atom is the universal term carrier. Concrete types are SymbolAtom,
// VariableAtom, ExpressionAtom and GroundedAtom; engine code switches
// exhaustively on Kind().
type Atom interface {
	Kind() AtomKind
	String() string
}

// --- Symbol ------------------------------------------------------------------

type SymbolAtom struct {
	name string
}

// S builds a symbol atom.
func S(name string) SymbolAtom { return SymbolAtom{name: name} }

func (a SymbolAtom) Kind() AtomKind { return SymbolKind }
func (a SymbolAtom) Name() string   { return a.name }
func (a SymbolAtom) String() string { return a.name }

// --- Variable ----------------------------------------------------------------

// variable alpha-renaming counter, process-wide
var varCounter atomic.Uint64

type VariableAtom struct {
	name string
}

// V builds a variable atom. The name carries no leading '$'; printing adds it.
func V(name string) VariableAtom { return VariableAtom{name: name} }

func (a VariableAtom) Kind() AtomKind { return VariableKind }
func (a VariableAtom) Name() string   { return a.name }
func (a VariableAtom) String() string { return "$" + a.name }

// MakeUnique returns a fresh variable sharing this variable's base name.
// Used to rename stored atoms apart from query atoms per matching episode.
func (a VariableAtom) MakeUnique() VariableAtom {
	base := a.name
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return VariableAtom{name: base + "#" + strconv.FormatUint(varCounter.Add(1), 10)}
}

// --- Expression --------------------------------------------------------------

type ExpressionAtom struct {
	children []Atom
}

// E builds an expression atom from its children. E() is the unit atom.
func E(children ...Atom) ExpressionAtom { return ExpressionAtom{children: children} }

func (a ExpressionAtom) Kind() AtomKind   { return ExpressionKind }
func (a ExpressionAtom) Children() []Atom { return a.children }
func (a ExpressionAtom) Len() int         { return len(a.children) }

func (a ExpressionAtom) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, c := range a.children {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

// UnitAtom is the empty expression, the conventional "no interesting result"
// value returned by side-effecting operations.
func UnitAtom() ExpressionAtom { return E() }

// --- Grounded ----------------------------------------------------------------

// GroundedValue is the capability surface a host value must provide to live
// inside the atom system. Optional capabilities (execution, custom matching)
// are discovered by type assertion on the value.
type GroundedValue interface {
	TypeName() string
	Equal(other GroundedValue) bool
	String() string
}

// CustomExecute lets a grounded value act as a function when it appears in
// head position of an evaluated expression.
type CustomExecute interface {
	Execute(ctx *OpContext, args []Atom) ([]Atom, error)
}

// CustomMatch lets a grounded value take over unification against a
// non-variable counterpart (spaces match by running the other side as a
// query against themselves).
type CustomMatch interface {
	Match(other Atom) BindingsSet
}

// GroundedAtom wraps an opaque host value. The wrapper is shared, not
// copied, so grounded values may be aliased across spaces.
type GroundedAtom struct {
	Value GroundedValue
}

// G wraps a host value into an atom.
func G(v GroundedValue) GroundedAtom { return GroundedAtom{Value: v} }

func (a GroundedAtom) Kind() AtomKind { return GroundedKind }
func (a GroundedAtom) String() string { return a.Value.String() }

// --- Builtin grounded value types -------------------------------------------

// Number is the numeric grounded value. It keeps integer identity where it
// can: integer literals stay integers until an operation mixes in a float.
type Number struct {
	I       int64
	F       float64
	IsFloat bool
}

func NewInt(i int64) GroundedAtom     { return G(Number{I: i}) }
func NewFloat(f float64) GroundedAtom { return G(Number{F: f, IsFloat: true}) }

func (n Number) TypeName() string { return "Number" }

func (n Number) AsFloat() float64 {
	if n.IsFloat {
		return n.F
	}
	return float64(n.I)
}

func (n Number) Equal(other GroundedValue) bool {
	m, ok := other.(Number)
	if !ok {
		return false
	}
	if !n.IsFloat && !m.IsFloat {
		return n.I == m.I
	}
	return n.AsFloat() == m.AsFloat()
}

func (n Number) String() string {
	if n.IsFloat {
		return strconv.FormatFloat(n.F, 'g', -1, 64)
	}
	return strconv.FormatInt(n.I, 10)
}

// Bool is the grounded boolean; the reader maps the tokens True and False
// onto it so stored rules and arithmetic agree on one representation.
type Bool struct {
	B bool
}

func NewBool(b bool) GroundedAtom { return G(Bool{B: b}) }

func (b Bool) TypeName() string { return "Bool" }

func (b Bool) Equal(other GroundedValue) bool {
	o, ok := other.(Bool)
	return ok && o.B == b.B
}

func (b Bool) String() string {
	if b.B {
		return "True"
	}
	return "False"
}

// Str is the grounded string value.
type Str struct {
	S string
}

func NewStr(s string) GroundedAtom { return G(Str{S: s}) }

func (s Str) TypeName() string { return "String" }

func (s Str) Equal(other GroundedValue) bool {
	o, ok := other.(Str)
	return ok && o.S == s.S
}

func (s Str) String() string { return strconv.Quote(s.S) }

// --- Structural equality -----------------------------------------------------

// AtomsEqual compares two atoms structurally. Symbols and variables compare
// by name, expressions childwise, grounded atoms by their Equal capability.
func AtomsEqual(a, b Atom) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case SymbolAtom:
		return x.name == b.(SymbolAtom).name
	case VariableAtom:
		return x.name == b.(VariableAtom).name
	case ExpressionAtom:
		y := b.(ExpressionAtom)
		if len(x.children) != len(y.children) {
			return false
		}
		for i := range x.children {
			if !AtomsEqual(x.children[i], y.children[i]) {
				return false
			}
		}
		return true
	case GroundedAtom:
		return x.Value.Equal(b.(GroundedAtom).Value)
	default:
		return false
	}
}

// ContainsVariables reports whether any variable occurs in the atom.
func ContainsVariables(a Atom) bool {
	switch x := a.(type) {
	case VariableAtom:
		return true
	case ExpressionAtom:
		for _, c := range x.children {
			if ContainsVariables(c) {
				return true
			}
		}
	}
	return false
}

// CollectVariables appends the names of all variables occurring in the atom
// into the given set.
func CollectVariables(a Atom, into map[string]struct{}) {
	switch x := a.(type) {
	case VariableAtom:
		into[x.name] = struct{}{}
	case ExpressionAtom:
		for _, c := range x.children {
			CollectVariables(c, into)
		}
	}
}

// renameVariables rewrites every variable in the atom through the mapping,
// allocating fresh names on first sight. One call site per matching episode
// keeps renaming consistent within a single stored atom.
func renameVariables(a Atom, mapping map[string]VariableAtom) Atom {
	switch x := a.(type) {
	case VariableAtom:
		fresh, ok := mapping[x.name]
		if !ok {
			fresh = x.MakeUnique()
			mapping[x.name] = fresh
		}
		return fresh
	case ExpressionAtom:
		if !ContainsVariables(x) {
			return x
		}
		out := make([]Atom, len(x.children))
		for i, c := range x.children {
			out[i] = renameVariables(c, mapping)
		}
		return E(out...)
	default:
		return a
	}
}

// ExprHeadSymbol returns the head symbol name of an expression atom, if the
// atom is a non-empty expression whose head is a symbol.
func ExprHeadSymbol(a Atom) (string, bool) {
	e, ok := a.(ExpressionAtom)
	if !ok || len(e.children) == 0 {
		return "", false
	}
	s, ok := e.children[0].(SymbolAtom)
	if !ok {
		return "", false
	}
	return s.name, true
}

func atomDebug(a Atom) string {
	return fmt.Sprintf("%s(%s)", a.Kind(), a.String())
}
