// builtin_math.go
//
// Arithmetic, comparison and boolean operations over the grounded Number
// and Bool values. Integer identity is preserved until a float joins in.

package metta

import (
	"github.com/pkg/errors"
)

func asNumber(a Atom) (Number, error) {
	if g, ok := a.(GroundedAtom); ok {
		if n, ok := g.Value.(Number); ok {
			return n, nil
		}
	}
	return Number{}, errors.Errorf("expected a number, got %s", a)
}

func asBool(a Atom) (bool, error) {
	if g, ok := a.(GroundedAtom); ok {
		if b, ok := g.Value.(Bool); ok {
			return b.B, nil
		}
	}
	return false, errors.Errorf("expected True or False, got %s", a)
}

// foldNumbers reduces the arguments pairwise with intOp/floatOp, switching
// to float as soon as either operand is a float.
func foldNumbers(args []Atom, intOp func(a, b int64) (int64, error), floatOp func(a, b float64) float64) (Atom, error) {
	acc, err := asNumber(args[0])
	if err != nil {
		return nil, err
	}
	for _, arg := range args[1:] {
		n, err := asNumber(arg)
		if err != nil {
			return nil, err
		}
		if acc.IsFloat || n.IsFloat {
			acc = Number{F: floatOp(acc.AsFloat(), n.AsFloat()), IsFloat: true}
			continue
		}
		i, err := intOp(acc.I, n.I)
		if err != nil {
			return nil, err
		}
		acc = Number{I: i}
	}
	return G(acc), nil
}

func numericOp(intOp func(a, b int64) (int64, error), floatOp func(a, b float64) float64) OpSpec {
	return OpSpec{
		MinArgs: 2, MaxArgs: -1,
		Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
			out, err := foldNumbers(args, intOp, floatOp)
			if err != nil {
				return nil, err
			}
			return []Atom{out}, nil
		},
	}
}

func comparisonOp(cmp func(a, b float64) bool) OpSpec {
	return OpSpec{
		MinArgs: 2, MaxArgs: 2,
		Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
			a, err := asNumber(args[0])
			if err != nil {
				return nil, err
			}
			b, err := asNumber(args[1])
			if err != nil {
				return nil, err
			}
			return []Atom{NewBool(cmp(a.AsFloat(), b.AsFloat()))}, nil
		},
	}
}

func registerMathOperations(ip *Interpreter) error {
	return registerOps(ip, map[string]OpSpec{
		"+": numericOp(
			func(a, b int64) (int64, error) { return a + b, nil },
			func(a, b float64) float64 { return a + b },
		),
		"-": numericOp(
			func(a, b int64) (int64, error) { return a - b, nil },
			func(a, b float64) float64 { return a - b },
		),
		"*": numericOp(
			func(a, b int64) (int64, error) { return a * b, nil },
			func(a, b float64) float64 { return a * b },
		),
		"/": numericOp(
			func(a, b int64) (int64, error) {
				if b == 0 {
					return 0, errors.New("division by zero")
				}
				return a / b, nil
			},
			func(a, b float64) float64 { return a / b },
		),
		"%": {
			MinArgs: 2, MaxArgs: 2,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				a, err := asNumber(args[0])
				if err != nil {
					return nil, err
				}
				b, err := asNumber(args[1])
				if err != nil {
					return nil, err
				}
				if a.IsFloat || b.IsFloat {
					return nil, errors.New("% expects integer operands")
				}
				if b.I == 0 {
					return nil, errors.New("division by zero")
				}
				return []Atom{NewInt(a.I % b.I)}, nil
			},
		},

		"<":  comparisonOp(func(a, b float64) bool { return a < b }),
		"<=": comparisonOp(func(a, b float64) bool { return a <= b }),
		">":  comparisonOp(func(a, b float64) bool { return a > b }),
		">=": comparisonOp(func(a, b float64) bool { return a >= b }),

		// == compares evaluated atoms structurally, not only numbers.
		"==": {
			MinArgs: 2, MaxArgs: 2,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				return []Atom{NewBool(AtomsEqual(args[0], args[1]))}, nil
			},
		},

		"and": {
			MinArgs: 2, MaxArgs: 2,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				a, err := asBool(args[0])
				if err != nil {
					return nil, err
				}
				b, err := asBool(args[1])
				if err != nil {
					return nil, err
				}
				return []Atom{NewBool(a && b)}, nil
			},
		},
		"or": {
			MinArgs: 2, MaxArgs: 2,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				a, err := asBool(args[0])
				if err != nil {
					return nil, err
				}
				b, err := asBool(args[1])
				if err != nil {
					return nil, err
				}
				return []Atom{NewBool(a || b)}, nil
			},
		},
		"not": {
			MinArgs: 1, MaxArgs: 1,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				a, err := asBool(args[0])
				if err != nil {
					return nil, err
				}
				return []Atom{NewBool(!a)}, nil
			},
		},
	})
}
