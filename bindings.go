// bindings.go
//
// Bindings: the substitution produced by unification, mapping variable
// names to atoms. A binding's value may itself contain variables; Resolve
// chases chains to a fixpoint and detects cycles lazily (occurs check at
// resolution time, not at bind time, so cyclic knowledge bases do not loop
// unification).

package metta

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrOccursCheck reports a cyclic substitution discovered during
// resolution. Callers treat it as "no match" for the branch in question.
var ErrOccursCheck = errors.New("occurs check failed: cyclic variable binding")

// Bindings is a variable-name -> Atom substitution.
type Bindings struct {
	frame map[string]Atom
}

// NewBindings returns the empty substitution.
func NewBindings() Bindings {
	return Bindings{frame: map[string]Atom{}}
}

func (b Bindings) Len() int      { return len(b.frame) }
func (b Bindings) IsEmpty() bool { return len(b.frame) == 0 }

// Lookup returns the direct (unchased) value bound to the variable name.
func (b Bindings) Lookup(name string) (Atom, bool) {
	v, ok := b.frame[name]
	return v, ok
}

// Clone returns an independent copy.
func (b Bindings) Clone() Bindings {
	out := make(map[string]Atom, len(b.frame))
	for k, v := range b.frame {
		out[k] = v
	}
	return Bindings{frame: out}
}

// WithBinding returns a copy extended by name -> value. Binding a variable
// to itself is a no-op.
func (b Bindings) WithBinding(name string, value Atom) Bindings {
	if v, ok := value.(VariableAtom); ok && v.Name() == name {
		return b
	}
	out := b.Clone()
	out.frame[name] = value
	return out
}

// Resolve chases the binding chain for name to a fixpoint, substituting
// into sub-structure. Unbound variables stay in place. A cycle yields
// ErrOccursCheck.
func (b Bindings) Resolve(name string) (Atom, error) {
	v, ok := b.frame[name]
	if !ok {
		return V(name), nil
	}
	return b.apply(v, map[string]struct{}{name: {}})
}

// Apply instantiates the atom under the substitution: every bound variable
// is replaced by its fully resolved value.
func (b Bindings) Apply(a Atom) (Atom, error) {
	if len(b.frame) == 0 {
		return a, nil
	}
	return b.apply(a, map[string]struct{}{})
}

func (b Bindings) apply(a Atom, visiting map[string]struct{}) (Atom, error) {
	switch x := a.(type) {
	case VariableAtom:
		v, ok := b.frame[x.Name()]
		if !ok {
			return x, nil
		}
		if _, cyc := visiting[x.Name()]; cyc {
			return nil, errors.Wrapf(ErrOccursCheck, "variable $%s", x.Name())
		}
		visiting[x.Name()] = struct{}{}
		out, err := b.apply(v, visiting)
		delete(visiting, x.Name())
		return out, err
	case ExpressionAtom:
		if !ContainsVariables(x) {
			return x, nil
		}
		out := make([]Atom, x.Len())
		for i, c := range x.Children() {
			r, err := b.apply(c, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return E(out...), nil
	default:
		return a, nil
	}
}

// Merge combines two substitutions. When both bind the same variable the
// existing values are unified under the accumulating result; incompatible
// assignments make the merge fail (ok == false).
func (b Bindings) Merge(other Bindings) (Bindings, bool) {
	out := b.Clone()
	for name, value := range other.frame {
		prev, bound := out.frame[name]
		if !bound {
			out.frame[name] = value
			continue
		}
		if AtomsEqual(prev, value) {
			continue
		}
		merged := matchAtoms(prev, value, out)
		if len(merged) == 0 {
			return Bindings{}, false
		}
		// A substitution merge is deterministic; keep the first unifier.
		out = merged[0]
	}
	return out, true
}

// Narrow restricts the substitution to the given variable names, resolving
// each kept variable fully. Internal variables (names outside keep, e.g.
// alpha-renamed data variables) are rewritten back to kept names wherever
// possible: the first kept variable resolving to an internal one becomes
// its representative, and occurrences of that internal variable inside
// other resolved values are replaced by the representative. Branches whose
// resolution trips the occurs check are reported as failed (ok == false).
func (b Bindings) Narrow(keep map[string]struct{}) (Bindings, bool) {
	names := make([]string, 0, len(keep))
	for name := range keep {
		names = append(names, name)
	}
	sort.Strings(names)

	resolved := make(map[string]Atom, len(names))
	rep := map[string]string{}
	for _, name := range names {
		value, err := b.Resolve(name)
		if err != nil {
			return Bindings{}, false
		}
		resolved[name] = value
		if v, isVar := value.(VariableAtom); isVar {
			if _, kept := keep[v.Name()]; !kept {
				if _, seen := rep[v.Name()]; !seen {
					rep[v.Name()] = name
				}
			}
		}
	}

	out := NewBindings()
	for _, name := range names {
		value := substituteReps(resolved[name], rep)
		if v, isVar := value.(VariableAtom); isVar && v.Name() == name {
			continue // stays free
		}
		out.frame[name] = value
	}
	return out, true
}

// substituteReps replaces internal variables by their kept representatives.
func substituteReps(a Atom, rep map[string]string) Atom {
	if len(rep) == 0 {
		return a
	}
	switch x := a.(type) {
	case VariableAtom:
		if kept, ok := rep[x.Name()]; ok {
			return V(kept)
		}
		return x
	case ExpressionAtom:
		if !ContainsVariables(x) {
			return x
		}
		out := make([]Atom, x.Len())
		for i, c := range x.Children() {
			out[i] = substituteReps(c, rep)
		}
		return E(out...)
	default:
		return a
	}
}

func (b Bindings) String() string {
	if len(b.frame) == 0 {
		return "{}"
	}
	names := make([]string, 0, len(b.frame))
	for k := range b.frame {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString("{ ")
	for i, k := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$" + k + " <- " + b.frame[k].String())
	}
	sb.WriteString(" }")
	return sb.String()
}

// BindingsSet is the non-deterministic result of matching: zero entries
// mean no match, each entry is one independent way to unify.
type BindingsSet []Bindings

// EmptyBindingsSet is the "no match" result.
func EmptyBindingsSet() BindingsSet { return nil }

// SingleBindingsSet is the "matched without constraints" result.
func SingleBindingsSet() BindingsSet { return BindingsSet{NewBindings()} }

func (s BindingsSet) IsEmpty() bool { return len(s) == 0 }

// mergeInto merges every member of the set with base, dropping members that
// become inconsistent.
func (s BindingsSet) mergeInto(base Bindings) BindingsSet {
	var out BindingsSet
	for _, b := range s {
		if merged, ok := base.Merge(b); ok {
			out = append(out, merged)
		}
	}
	return out
}
