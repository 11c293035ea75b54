// matcher_test.go
package metta

import (
	"testing"
)

func unifyOne(t *testing.T, a, b Atom) Bindings {
	t.Helper()
	set := Unify(a, b)
	if len(set) != 1 {
		t.Fatalf("Unify(%s, %s): want 1 unifier, got %d", a, b, len(set))
	}
	return set[0]
}

func wantNoUnifier(t *testing.T, a, b Atom) {
	t.Helper()
	if set := Unify(a, b); !set.IsEmpty() {
		t.Fatalf("Unify(%s, %s): want no unifier, got %v", a, b, set)
	}
}

func Test_Unify_Symbols(t *testing.T) {
	b := unifyOne(t, S("foo"), S("foo"))
	if !b.IsEmpty() {
		t.Fatalf("symbol unification should not bind: %s", b)
	}
	wantNoUnifier(t, S("foo"), S("bar"))
	wantNoUnifier(t, S("foo"), E(S("foo")))
}

func Test_Unify_VariableBinds(t *testing.T) {
	b := unifyOne(t, V("x"), E(S("f"), NewInt(1)))
	got := mustResolve(t, b, "x")
	if !AtomsEqual(got, E(S("f"), NewInt(1))) {
		t.Fatalf("want $x <- (f 1), got %s", got)
	}
}

func Test_Unify_Symmetry(t *testing.T) {
	pattern := E(S("likes"), V("who"), S("metta"))
	data := E(S("likes"), S("ann"), S("metta"))

	for _, pair := range [][2]Atom{{pattern, data}, {data, pattern}} {
		b := unifyOne(t, pair[0], pair[1])
		if got := mustResolve(t, b, "who"); !AtomsEqual(got, S("ann")) {
			t.Fatalf("asymmetric unification: $who <- %s", got)
		}
	}
}

func Test_Unify_SelfVariable(t *testing.T) {
	b := unifyOne(t, V("x"), V("x"))
	if !b.IsEmpty() {
		t.Fatalf("unifying a variable with itself should not bind: %s", b)
	}
}

func Test_Unify_TwoVariables(t *testing.T) {
	b := unifyOne(t, E(S("f"), V("x")), E(S("f"), V("y")))
	// one side aliases the other; resolving both through the frame agrees
	x := mustResolve(t, b, "x")
	y := mustResolve(t, b, "y")
	if !AtomsEqual(x, y) && !AtomsEqual(x, V("x")) && !AtomsEqual(y, V("y")) {
		t.Fatalf("variable aliasing broken: $x <- %s, $y <- %s", x, y)
	}
}

func Test_Unify_SiblingConstraint(t *testing.T) {
	// the binding made by the first child must constrain the second
	wantNoUnifier(t,
		E(S("pair"), V("x"), V("x")),
		E(S("pair"), NewInt(1), NewInt(2)))

	b := unifyOne(t,
		E(S("pair"), V("x"), V("x")),
		E(S("pair"), NewInt(3), NewInt(3)))
	if got := mustResolve(t, b, "x"); !AtomsEqual(got, NewInt(3)) {
		t.Fatalf("want $x <- 3, got %s", got)
	}
}

func Test_Unify_Nested(t *testing.T) {
	b := unifyOne(t,
		E(S("rule"), E(S("head"), V("x")), E(S("body"), V("x"), V("y"))),
		E(S("rule"), E(S("head"), S("a")), E(S("body"), V("z"), S("b"))))
	if got := mustResolve(t, b, "x"); !AtomsEqual(got, S("a")) {
		t.Fatalf("want $x <- a, got %s", got)
	}
	if got := mustResolve(t, b, "z"); !AtomsEqual(got, S("a")) {
		t.Fatalf("want $z <- a, got %s", got)
	}
	if got := mustResolve(t, b, "y"); !AtomsEqual(got, S("b")) {
		t.Fatalf("want $y <- b, got %s", got)
	}
}

func Test_Unify_ArityMismatch(t *testing.T) {
	wantNoUnifier(t, E(S("f"), V("x")), E(S("f"), S("a"), S("b")))
	wantNoUnifier(t, E(), E(S("a")))
	b := unifyOne(t, E(), E())
	if !b.IsEmpty() {
		t.Fatalf("unit unifies with unit without bindings, got %s", b)
	}
}

func Test_Unify_Grounded(t *testing.T) {
	b := unifyOne(t, E(S("n"), NewInt(5)), E(S("n"), NewInt(5)))
	if !b.IsEmpty() {
		t.Fatalf("grounded equality should not bind: %s", b)
	}
	wantNoUnifier(t, NewInt(5), NewInt(6))
	wantNoUnifier(t, NewInt(5), NewStr("5"))
}

func Test_Unify_SpaceCustomMatch_EitherOrder(t *testing.T) {
	// a grounded matcher takes over no matter which side it appears on
	space := NewSpace()
	space.Add(S("flag"))

	for _, pair := range [][2]Atom{{G(space), S("flag")}, {S("flag"), G(space)}} {
		if set := Unify(pair[0], pair[1]); len(set) != 1 {
			t.Fatalf("Unify(%s, %s): want 1 unifier, got %d", pair[0], pair[1], len(set))
		}
	}
	wantNoUnifier(t, S("absent"), G(space))
	wantNoUnifier(t, G(space), S("absent"))
}

func Test_Unify_SpaceCustomMatch(t *testing.T) {
	// a space in the pattern matches by querying itself
	space := NewSpace()
	space.Add(E(S("color"), S("sky"), S("blue")))
	space.Add(E(S("color"), S("grass"), S("green")))

	set := Unify(G(space), E(S("color"), S("sky"), V("c")))
	if len(set) != 1 {
		t.Fatalf("want 1 unifier from the space query, got %d", len(set))
	}
	if got := mustResolve(t, set[0], "c"); !AtomsEqual(got, S("blue")) {
		t.Fatalf("want $c <- blue, got %s", got)
	}
}
