// interpreter.go — public API surface of the MeTTa engine.
//
// OVERVIEW
// ========
// The Interpreter owns the default space (`&self`), the reader Tokenizer,
// the operation registry, and the resources opened by builtins. The
// canonical entry points:
//
//   - RunSource / RunFile: execute a program — bare top-level forms are
//     stored into the space, `!`-prefixed forms are evaluated and their
//     result atoms collected.
//   - Eval: evaluate a single atom against the space, returning the full
//     non-deterministic result set.
//   - RegisterOperation: install a host-implemented operation.
//   - Close: release every resource handed out by builtins (file handles).
//
// SCOPING & CONCURRENCY
// ---------------------
// One interpreter drives one evaluation at a time. Top-level forms run
// strictly sequentially against the shared space; mutations made by one
// form are visible to the next. Nothing here locks: sharing an interpreter
// or a space across goroutines requires external synchronization.
//
// ERRORS
// ------
// Failed computations surface as `(Error ...)` atoms inside the result
// set. Engine faults (recursion limit, parse errors) come back as Go
// errors and abort only the current top-level form; the interpreter and
// its space stay usable.

package metta

import (
	"io"
	"log"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DefaultMaxDepth bounds the rewrite chain of a single top-level
// evaluation. Rule sets are user-supplied and may not terminate; the bound
// turns a hang into ErrRecursionLimit.
const DefaultMaxDepth = 500

// SelfToken names the interpreter's own space inside programs.
const SelfToken = "&self"

// OpImpl is the implementation signature for registered operations. Args
// arrive evaluated or raw according to the operation's laziness spec.
// Returning an error turns into an `(Error ...)` atom; returning no atoms
// prunes the branch.
type OpImpl func(ctx *OpContext, args []Atom) ([]Atom, error)

// OpSpec declares an operation's arity, per-argument evaluation policy and
// implementation.
type OpSpec struct {
	MinArgs  int
	MaxArgs  int   // -1 = variadic
	LazyArgs []int // argument indices passed unevaluated
	AllLazy  bool  // no argument is evaluated
	Doc      string
	Impl     OpImpl
}

// Operation is a registered builtin.
type Operation struct {
	Name string
	OpSpec
}

func (op *Operation) lazyArg(i int) bool {
	if op.AllLazy {
		return true
	}
	for _, idx := range op.LazyArgs {
		if idx == i {
			return true
		}
	}
	return false
}

// OpContext is handed to operation implementations. It carries the space
// and bindings the call runs under and allows recursive evaluation for
// control constructs (if, superpose, collapse).
type OpContext struct {
	ip       *Interpreter
	space    *GroundingSpace
	bindings Bindings
	depth    int
}

func (ctx *OpContext) Interpreter() *Interpreter { return ctx.ip }
func (ctx *OpContext) Space() *GroundingSpace    { return ctx.space }
func (ctx *OpContext) Bindings() Bindings        { return ctx.bindings }

// Eval recursively evaluates an atom under the call's bindings, charging
// the caller's recursion depth.
func (ctx *OpContext) Eval(a Atom) ([]EvalResult, error) {
	return ctx.ip.eval(a, ctx.bindings, ctx.depth+1)
}

// EvalResult is one branch of a non-deterministic evaluation: the reduced
// atom together with the bindings accumulated along that branch.
type EvalResult struct {
	Atom     Atom
	Bindings Bindings
}

// Interpreter is the engine entry point. The exported fields are
// configuration: adjust them after NewInterpreter and before running
// programs.
type Interpreter struct {
	Space     *GroundingSpace // the `&self` space
	Tokenizer *Tokenizer
	MaxDepth  int
	Stdout    io.Writer   // println! target
	Fs        afero.Fs    // filesystem behind the file builtins
	Logger    *log.Logger // optional evaluation trace

	ops       map[string]*Operation
	resources []io.Closer
}

// NewInterpreter builds an engine with the standard operations installed
// and an empty `&self` space. It fails only on a conflicting builtin
// registration, which indicates a programming error in the embedding.
func NewInterpreter() (*Interpreter, error) {
	ip := &Interpreter{
		Space:     NewNamedSpace("self"),
		Tokenizer: NewTokenizer(),
		MaxDepth:  DefaultMaxDepth,
		Stdout:    os.Stdout,
		Fs:        afero.NewOsFs(),
		ops:       map[string]*Operation{},
	}
	ip.Tokenizer.RegisterConstructor(BoolConstructor)
	ip.Tokenizer.RegisterConstructor(NumberConstructor)
	ip.Tokenizer.RegisterToken(SelfToken, G(ip.Space))

	for _, register := range []func(*Interpreter) error{
		registerCoreOperations,
		registerMathOperations,
		registerFileOperations,
	} {
		if err := register(ip); err != nil {
			return nil, err
		}
	}
	return ip, nil
}

// RegisterOperation installs an operation under name. A second
// registration for the same name fails with ErrDuplicateOperation.
func (ip *Interpreter) RegisterOperation(name string, spec OpSpec) error {
	if _, exists := ip.ops[name]; exists {
		return errors.Wrap(ErrDuplicateOperation, name)
	}
	ip.ops[name] = &Operation{Name: name, OpSpec: spec}
	return nil
}

// LookupOperation returns the registered operation for name, if any.
func (ip *Interpreter) LookupOperation(name string) (*Operation, bool) {
	op, ok := ip.ops[name]
	return op, ok
}

// TrackResource records a closer released on interpreter Close. Builtins
// that hand out handles (file-open!) register them here so teardown never
// leaks descriptors.
func (ip *Interpreter) TrackResource(c io.Closer) {
	ip.resources = append(ip.resources, c)
}

// ReleaseResource forgets a tracked closer (after an explicit close).
func (ip *Interpreter) ReleaseResource(c io.Closer) {
	for i, r := range ip.resources {
		if r == c {
			ip.resources = append(ip.resources[:i], ip.resources[i+1:]...)
			return
		}
	}
}

// Close releases every tracked resource, aggregating failures.
func (ip *Interpreter) Close() error {
	var result *multierror.Error
	for _, r := range ip.resources {
		if err := r.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	ip.resources = nil
	return result.ErrorOrNil()
}

// Eval evaluates a single atom against the `&self` space and returns the
// non-deterministic result set with each branch's bindings applied.
func (ip *Interpreter) Eval(a Atom) ([]Atom, error) {
	results, err := ip.eval(a, NewBindings(), 0)
	if err != nil {
		return nil, err
	}
	out := make([]Atom, 0, len(results))
	for _, r := range results {
		applied, aerr := r.Bindings.Apply(r.Atom)
		if aerr != nil {
			continue // cyclic branch: drop, per occurs-check policy
		}
		out = append(out, applied)
	}
	return out, nil
}

// RunSource executes a MeTTa program: bare forms are added to the space,
// `!` forms are evaluated in order. The atoms produced by all directives
// are returned. A failing directive stops execution; atoms produced before
// the failure are still returned.
func (ip *Interpreter) RunSource(src string) ([]Atom, error) {
	return ip.runSource(src, "")
}

// RunFile reads and executes a program, labelling parse errors with the
// file path.
func (ip *Interpreter) RunFile(path string) ([]Atom, error) {
	data, err := afero.ReadFile(ip.Fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	return ip.runSource(string(data), path)
}

func (ip *Interpreter) runSource(src, name string) ([]Atom, error) {
	parser := NewParser(src, ip.Tokenizer)
	var out []Atom
	for {
		form, directive, err := parser.Next()
		if err != nil {
			return out, WrapErrorWithName(err, name, src)
		}
		if form == nil {
			return out, nil
		}
		if !directive {
			ip.Space.Add(form)
			continue
		}
		results, err := ip.Eval(form)
		if err != nil {
			return out, errors.Wrapf(err, "while evaluating !%s", form)
		}
		out = append(out, results...)
	}
}
