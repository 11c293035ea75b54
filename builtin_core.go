// builtin_core.go
//
// Core operations: space construction and mutation, pattern matching,
// name binding, list surgery on expressions, control constructs for
// non-determinism (superpose/collapse), and basic output.
//
// Conventions:
//   - side-effecting operations end in '!' (script-level convention)
//   - soft failures are returned as errors and become (Error ...) atoms
//   - operations that produce nothing interesting return the unit atom

package metta

import (
	"fmt"

	"github.com/pkg/errors"
)

func registerOps(ip *Interpreter, defs map[string]OpSpec) error {
	for name, spec := range defs {
		if err := ip.RegisterOperation(name, spec); err != nil {
			return err
		}
	}
	return nil
}

// asSpace unwraps a grounded space argument.
func asSpace(a Atom) (*GroundingSpace, error) {
	if g, ok := a.(GroundedAtom); ok {
		if s, ok := g.Value.(*GroundingSpace); ok {
			return s, nil
		}
	}
	return nil, errors.Errorf("expected a space, got %s", a)
}

func asExpression(a Atom) (ExpressionAtom, error) {
	e, ok := a.(ExpressionAtom)
	if !ok {
		return ExpressionAtom{}, errors.Errorf("expected an expression, got %s", a)
	}
	return e, nil
}

func registerCoreOperations(ip *Interpreter) error {
	return registerOps(ip, map[string]OpSpec{
		// new-space() -> Space
		"new-space": {
			MinArgs: 0, MaxArgs: 0,
			Doc: `Construct a new, empty space.`,
			Impl: func(ctx *OpContext, _ []Atom) ([]Atom, error) {
				return []Atom{G(NewSpace())}, nil
			},
		},

		// add-atom(space, atom) -> Unit; the atom is stored unevaluated.
		"add-atom": {
			MinArgs: 2, MaxArgs: 2, LazyArgs: []int{1},
			Doc: `Add an atom to a space without evaluating it.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				space, err := asSpace(args[0])
				if err != nil {
					return nil, err
				}
				space.Add(args[1])
				return []Atom{UnitAtom()}, nil
			},
		},

		// remove-atom(space, atom) -> Unit; removes one occurrence.
		"remove-atom": {
			MinArgs: 2, MaxArgs: 2, LazyArgs: []int{1},
			Doc: `Remove one occurrence of an atom from a space (by structural equality).`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				space, err := asSpace(args[0])
				if err != nil {
					return nil, err
				}
				space.Remove(args[1])
				return []Atom{UnitAtom()}, nil
			},
		},

		// get-atoms(space) -> one result per stored atom
		"get-atoms": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Enumerate the atoms of a space, one non-deterministic result each.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				space, err := asSpace(args[0])
				if err != nil {
					return nil, err
				}
				return space.Atoms(), nil
			},
		},

		// match(space, pattern, template): query + instantiate in one call.
		"match": {
			MinArgs: 3, MaxArgs: 3, LazyArgs: []int{1, 2},
			Doc: `Query a space with a pattern and instantiate the template once per match.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				space, err := asSpace(args[0])
				if err != nil {
					return nil, err
				}
				return space.Subst(args[1], args[2]), nil
			},
		},

		// bind!(name, value): alias a token to an atom in the reader.
		"bind!": {
			MinArgs: 2, MaxArgs: 2, LazyArgs: []int{0},
			Doc: `Register a reader token for an atom; later source resolves the name to it.
Rebinding an existing name overwrites it.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				name, ok := args[0].(SymbolAtom)
				if !ok {
					return nil, errors.Errorf("bind! expects a symbol name, got %s", args[0])
				}
				if g, ok := args[1].(GroundedAtom); ok {
					if s, ok := g.Value.(*GroundingSpace); ok && s.Name() != name.Name() {
						s.SetName(name.Name())
					}
				}
				ctx.Interpreter().Tokenizer.RegisterToken(name.Name(), args[1])
				return []Atom{UnitAtom()}, nil
			},
		},

		// quote(atom): protect an atom from evaluation.
		"quote": {
			MinArgs: 1, MaxArgs: 1, AllLazy: true,
			Doc: `Return (quote atom) unevaluated.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				return []Atom{E(S("quote"), args[0])}, nil
			},
		},

		// unquote(atom): strip one quote layer.
		"unquote": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Unwrap (quote atom) back to atom.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				e, err := asExpression(args[0])
				if err != nil {
					return nil, err
				}
				if head, ok := ExprHeadSymbol(e); !ok || head != "quote" || e.Len() != 2 {
					return nil, errors.Errorf("unquote expects (quote atom), got %s", args[0])
				}
				return []Atom{e.Children()[1]}, nil
			},
		},

		// if(cond, then, else): branches stay unevaluated until chosen.
		"if": {
			MinArgs: 3, MaxArgs: 3, LazyArgs: []int{1, 2},
			Doc: `Evaluate the condition, then exactly one branch.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				cond, err := asBool(args[0])
				if err != nil {
					return nil, err
				}
				branch := args[2]
				if cond {
					branch = args[1]
				}
				return evalToAtoms(ctx, branch)
			},
		},

		// superpose((a b c)): one branch per element.
		"superpose": {
			MinArgs: 1, MaxArgs: 1, AllLazy: true,
			Doc: `Turn an expression into a non-deterministic choice over its
evaluated elements.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				e, err := asExpression(args[0])
				if err != nil {
					return nil, err
				}
				var out []Atom
				for _, child := range e.Children() {
					atoms, err := evalToAtoms(ctx, child)
					if err != nil {
						return nil, err
					}
					out = append(out, atoms...)
				}
				return out, nil
			},
		},

		// collapse(expr): gather all branches into one expression.
		"collapse": {
			MinArgs: 1, MaxArgs: 1, AllLazy: true,
			Doc: `Evaluate the argument and collect every branch (errors included)
into a single expression.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				atoms, err := evalToAtoms(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return []Atom{E(atoms...)}, nil
			},
		},

		// car-atom / cdr-atom / cons-atom / size-atom: expression surgery.
		"car-atom": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `First element of a non-empty expression.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				e, err := asExpression(args[0])
				if err != nil {
					return nil, err
				}
				if e.Len() == 0 {
					return nil, errors.New("car-atom expects a non-empty expression")
				}
				return []Atom{e.Children()[0]}, nil
			},
		},
		"cdr-atom": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Tail of a non-empty expression.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				e, err := asExpression(args[0])
				if err != nil {
					return nil, err
				}
				if e.Len() == 0 {
					return nil, errors.New("cdr-atom expects a non-empty expression")
				}
				return []Atom{E(e.Children()[1:]...)}, nil
			},
		},
		"cons-atom": {
			MinArgs: 2, MaxArgs: 2,
			Doc: `Prepend an atom to an expression.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				e, err := asExpression(args[1])
				if err != nil {
					return nil, err
				}
				children := make([]Atom, 0, e.Len()+1)
				children = append(children, args[0])
				children = append(children, e.Children()...)
				return []Atom{E(children...)}, nil
			},
		},
		"size-atom": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Number of elements in an expression.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				e, err := asExpression(args[0])
				if err != nil {
					return nil, err
				}
				return []Atom{NewInt(int64(e.Len()))}, nil
			},
		},

		// println!(atom): write the atom (strings raw) plus newline.
		"println!": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Print an atom to the interpreter's output. Strings print unquoted.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				text := args[0].String()
				if g, ok := args[0].(GroundedAtom); ok {
					if s, ok := g.Value.(Str); ok {
						text = s.S
					}
				}
				if _, err := fmt.Fprintln(ctx.Interpreter().Stdout, text); err != nil {
					return nil, err
				}
				return []Atom{UnitAtom()}, nil
			},
		},

		// nop(...): swallow arguments, produce unit.
		"nop": {
			MinArgs: 0, MaxArgs: -1, AllLazy: true,
			Doc: `Do nothing.`,
			Impl: func(ctx *OpContext, _ []Atom) ([]Atom, error) {
				return []Atom{UnitAtom()}, nil
			},
		},

		// empty(): produce no result, pruning the branch.
		"empty": {
			MinArgs: 0, MaxArgs: 0,
			Doc: `Produce no result at all; the enclosing branch disappears.`,
			Impl: func(ctx *OpContext, _ []Atom) ([]Atom, error) {
				return nil, nil
			},
		},
	})
}

// evalToAtoms runs a nested evaluation and flattens the branches, applying
// each branch's bindings to its atom.
func evalToAtoms(ctx *OpContext, a Atom) ([]Atom, error) {
	results, err := ctx.Eval(a)
	if err != nil {
		return nil, err
	}
	out := make([]Atom, 0, len(results))
	for _, r := range results {
		applied, aerr := r.Bindings.Apply(r.Atom)
		if aerr != nil {
			continue
		}
		out = append(out, applied)
	}
	return out, nil
}
