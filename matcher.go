// matcher.go
//
// Unification. Pure structural recursive descent over two atoms, threading
// bindings left to right so earlier children constrain later siblings.
// Grounded atoms with a Match capability take over when paired with a
// non-variable (spaces match by querying themselves).

package metta

// Unify computes the ways a and b can be made structurally equal, starting
// from the empty substitution. An empty set means no match.
func Unify(a, b Atom) BindingsSet {
	return matchAtoms(a, b, NewBindings())
}

func matchAtoms(a, b Atom, bnd Bindings) BindingsSet {
	if av, ok := a.(VariableAtom); ok {
		return matchVariable(av, b, bnd)
	}
	if bv, ok := b.(VariableAtom); ok {
		return matchVariable(bv, a, bnd)
	}

	switch x := a.(type) {
	case SymbolAtom:
		if y, ok := b.(SymbolAtom); ok && x.Name() == y.Name() {
			return BindingsSet{bnd}
		}
		return matchMaybeGrounded(b, a, bnd)

	case ExpressionAtom:
		y, ok := b.(ExpressionAtom)
		if !ok {
			return matchMaybeGrounded(b, a, bnd)
		}
		if x.Len() != y.Len() {
			return EmptyBindingsSet()
		}
		sets := BindingsSet{bnd}
		for i := 0; i < x.Len(); i++ {
			var next BindingsSet
			for _, cur := range sets {
				ca, err := cur.Apply(x.Children()[i])
				if err != nil {
					continue
				}
				cb, err := cur.Apply(y.Children()[i])
				if err != nil {
					continue
				}
				next = append(next, matchAtoms(ca, cb, cur)...)
			}
			if len(next) == 0 {
				return EmptyBindingsSet()
			}
			sets = next
		}
		return sets

	case GroundedAtom:
		return matchMaybeGrounded(a, b, bnd)
	}
	return EmptyBindingsSet()
}

// matchMaybeGrounded handles the pairs where at least one side is grounded.
// A custom matcher on either side wins; otherwise grounded atoms behave as
// plain ground values compared by equality.
func matchMaybeGrounded(a, b Atom, bnd Bindings) BindingsSet {
	if g, ok := a.(GroundedAtom); ok {
		if m, ok := g.Value.(CustomMatch); ok {
			return m.Match(b).mergeInto(bnd)
		}
	}
	if g, ok := b.(GroundedAtom); ok {
		if m, ok := g.Value.(CustomMatch); ok {
			return m.Match(a).mergeInto(bnd)
		}
	}
	if AtomsEqual(a, b) {
		return BindingsSet{bnd}
	}
	return EmptyBindingsSet()
}

func matchVariable(v VariableAtom, other Atom, bnd Bindings) BindingsSet {
	if _, ok := bnd.Lookup(v.Name()); ok {
		resolved, err := bnd.Resolve(v.Name())
		if err != nil {
			return EmptyBindingsSet() // cyclic binding: no match on this branch
		}
		return matchAtoms(resolved, other, bnd)
	}
	if o, ok := other.(VariableAtom); ok && o.Name() == v.Name() {
		return BindingsSet{bnd}
	}
	return BindingsSet{bnd.WithBinding(v.Name(), other)}
}
