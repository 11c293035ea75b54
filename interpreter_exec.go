// interpreter_exec.go — the evaluation engine.
//
// Evaluation is a depth-first non-deterministic reduction: every step
// returns a slice of EvalResult branches instead of a single value. The
// order of attempts per expression:
//
//  1. registered operation head   -> evaluate eager arguments, run impl
//  2. grounded executable head    -> evaluate arguments, run Execute
//  3. equality rules `(= p t)`    -> one branch per unifying rule
//  4. argument reduction          -> evaluate children (honoring `(: f ...)`
//     type annotations: parameters declared Atom stay unevaluated), rebuild
//     and reduce once more if anything changed
//  5. irreducible                 -> the atom is its own result
//
// `(Error ...)` atoms short-circuit argument evaluation and propagate as
// branch results. Recursion past MaxDepth aborts the whole top-level form
// with ErrRecursionLimit.

package metta

import (
	"github.com/pkg/errors"
)

// typeAnnotationSymbol heads `(: name (-> ...))` declarations.
const typeAnnotationSymbol = ":"

// atomTypeSymbol marks a parameter that must be passed unevaluated.
const atomTypeSymbol = "Atom"

func (ip *Interpreter) eval(a Atom, bnd Bindings, depth int) ([]EvalResult, error) {
	if depth > ip.MaxDepth {
		return nil, errors.Wrapf(ErrRecursionLimit, "while reducing %s", a)
	}
	applied, err := bnd.Apply(a)
	if err != nil {
		return nil, nil // cyclic substitution: the branch produces nothing
	}
	a = applied
	if ip.Logger != nil {
		ip.Logger.Printf("eval[%d]: %s", depth, atomDebug(a))
	}

	switch x := a.(type) {
	case VariableAtom, GroundedAtom:
		return []EvalResult{{a, bnd}}, nil

	case SymbolAtom:
		if op, ok := ip.ops[x.Name()]; ok && op.MinArgs == 0 && op.MaxArgs == 0 {
			return ip.runOperation(op, a, nil, bnd, depth)
		}
		return ip.reduceViaRules(a, bnd, depth, false)

	case ExpressionAtom:
		if x.Len() == 0 {
			return []EvalResult{{a, bnd}}, nil
		}
		if head, ok := ExprHeadSymbol(a); ok {
			if op, ok := ip.ops[head]; ok {
				return ip.evalOperationCall(op, x, bnd, depth)
			}
		}
		if g, ok := x.Children()[0].(GroundedAtom); ok {
			if exec, ok := g.Value.(CustomExecute); ok {
				return ip.evalGroundedCall(exec, x, bnd, depth)
			}
		}
		return ip.reduceViaRules(a, bnd, depth, true)
	}
	return []EvalResult{{a, bnd}}, nil
}

// reduceViaRules queries the space for equality rules matching the atom.
// Each unifying rule instantiates its template and recurses; the union of
// all branches is the result. Without any rule the evaluator falls back to
// argument reduction (expressions) or to the atom itself.
func (ip *Interpreter) reduceViaRules(a Atom, bnd Bindings, depth int, tryArgs bool) ([]EvalResult, error) {
	resultVar := V("rule-result").MakeUnique()
	matches := ip.Space.Query(E(S("="), a, resultVar))

	if len(matches) == 0 {
		if tryArgs {
			return ip.reduceArguments(a.(ExpressionAtom), bnd, depth)
		}
		return []EvalResult{{a, bnd}}, nil
	}

	var results []EvalResult
	for _, m := range matches {
		template, err := m.Resolve(resultVar.Name())
		if err != nil {
			continue
		}
		merged, ok := bnd.Merge(m)
		if !ok {
			continue
		}
		sub, err := ip.eval(template, merged, depth+1)
		if err != nil {
			return nil, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

type argCombo struct {
	atoms []Atom
	bnd   Bindings
}

func extendCombo(c argCombo, a Atom, bnd Bindings) argCombo {
	atoms := make([]Atom, len(c.atoms)+1)
	copy(atoms, c.atoms)
	atoms[len(c.atoms)] = a
	return argCombo{atoms: atoms, bnd: bnd}
}

// evalChildren evaluates the given atoms left to right, threading bindings
// so a branch's bindings constrain its later siblings, and taking the
// cartesian product of branch results. lazy(i) atoms are carried through
// unevaluated. Error atoms surfacing from a child become final results and
// drop their combo.
func (ip *Interpreter) evalChildren(atoms []Atom, lazy func(int) bool, bnd Bindings, depth int) (combos []argCombo, errResults []EvalResult, err error) {
	combos = []argCombo{{bnd: bnd}}
	for i, child := range atoms {
		if lazy != nil && lazy(i) {
			kept := combos[:0]
			for _, c := range combos {
				raw, aerr := c.bnd.Apply(child)
				if aerr != nil {
					continue
				}
				kept = append(kept, extendCombo(c, raw, c.bnd))
			}
			combos = kept
			continue
		}
		var next []argCombo
		for _, c := range combos {
			rs, rerr := ip.eval(child, c.bnd, depth+1)
			if rerr != nil {
				return nil, nil, rerr
			}
			for _, r := range rs {
				if IsErrorAtom(r.Atom) {
					errResults = append(errResults, r)
					continue
				}
				next = append(next, extendCombo(c, r.Atom, r.Bindings))
			}
		}
		combos = next
		if len(combos) == 0 {
			return nil, errResults, nil
		}
	}
	return combos, errResults, nil
}

// evalOperationCall checks arity, evaluates eager arguments and runs the
// operation once per argument combination.
func (ip *Interpreter) evalOperationCall(op *Operation, e ExpressionAtom, bnd Bindings, depth int) ([]EvalResult, error) {
	args := e.Children()[1:]
	if len(args) < op.MinArgs || (op.MaxArgs >= 0 && len(args) > op.MaxArgs) {
		return []EvalResult{{NewErrorAtom(e, "IncorrectNumberOfArguments"), bnd}}, nil
	}
	combos, results, err := ip.evalChildren(args, op.lazyArg, bnd, depth)
	if err != nil {
		return nil, err
	}
	for _, c := range combos {
		sub, err := ip.runOperation(op, e, c.atoms, c.bnd, depth)
		if err != nil {
			return nil, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

// runOperation invokes the operation implementation for one argument
// combination. Implementation errors become (Error ...) atoms.
func (ip *Interpreter) runOperation(op *Operation, call Atom, args []Atom, bnd Bindings, depth int) ([]EvalResult, error) {
	ctx := &OpContext{ip: ip, space: ip.Space, bindings: bnd, depth: depth}
	out, err := op.Impl(ctx, args)
	if err != nil {
		if errors.Is(err, ErrRecursionLimit) {
			return nil, err
		}
		return []EvalResult{{NewErrorAtom(call, err.Error()), bnd}}, nil
	}
	results := make([]EvalResult, 0, len(out))
	for _, a := range out {
		applied, aerr := bnd.Apply(a)
		if aerr != nil {
			continue
		}
		results = append(results, EvalResult{applied, bnd})
	}
	return results, nil
}

// evalGroundedCall applies a grounded executable head to its eagerly
// evaluated arguments.
func (ip *Interpreter) evalGroundedCall(exec CustomExecute, e ExpressionAtom, bnd Bindings, depth int) ([]EvalResult, error) {
	combos, results, err := ip.evalChildren(e.Children()[1:], nil, bnd, depth)
	if err != nil {
		return nil, err
	}
	for _, c := range combos {
		ctx := &OpContext{ip: ip, space: ip.Space, bindings: c.bnd, depth: depth}
		out, xerr := exec.Execute(ctx, c.atoms)
		if xerr != nil {
			results = append(results, EvalResult{NewErrorAtom(e, xerr.Error()), c.bnd})
			continue
		}
		for _, a := range out {
			applied, aerr := c.bnd.Apply(a)
			if aerr != nil {
				continue
			}
			results = append(results, EvalResult{applied, c.bnd})
		}
	}
	return results, nil
}

// reduceArguments is the no-rule fallback for expressions: evaluate the
// children (head included, minus parameters a type annotation declares as
// Atom), rebuild, and reduce the rebuilt expression once if it changed.
func (ip *Interpreter) reduceArguments(e ExpressionAtom, bnd Bindings, depth int) ([]EvalResult, error) {
	mask := ip.lazyParamMask(e)
	lazy := func(i int) bool {
		// children[0] is the head; parameter j is child j+1
		return i > 0 && i-1 < len(mask) && mask[i-1]
	}
	combos, results, err := ip.evalChildren(e.Children(), lazy, bnd, depth)
	if err != nil {
		return nil, err
	}
	for _, c := range combos {
		rebuilt := E(c.atoms...)
		if AtomsEqual(rebuilt, e) {
			results = append(results, EvalResult{e, c.bnd})
			continue
		}
		sub, err := ip.eval(rebuilt, c.bnd, depth+1)
		if err != nil {
			return nil, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

// lazyParamMask reads `(: head (-> t1 ... tn r))` from the space and marks
// parameters whose declared type is the literal symbol Atom.
func (ip *Interpreter) lazyParamMask(e ExpressionAtom) []bool {
	head, ok := ExprHeadSymbol(e)
	if !ok {
		return nil
	}
	typeVar := V("fn-type").MakeUnique()
	for _, m := range ip.Space.Query(E(S(typeAnnotationSymbol), S(head), typeVar)) {
		t, err := m.Resolve(typeVar.Name())
		if err != nil {
			continue
		}
		arrow, ok := t.(ExpressionAtom)
		if !ok || arrow.Len() < 2 {
			continue
		}
		if h, ok := ExprHeadSymbol(arrow); !ok || h != "->" {
			continue
		}
		params := arrow.Children()[1 : arrow.Len()-1]
		mask := make([]bool, len(params))
		for i, p := range params {
			if s, ok := p.(SymbolAtom); ok && s.Name() == atomTypeSymbol {
				mask[i] = true
			}
		}
		return mask
	}
	return nil
}
