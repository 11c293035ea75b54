// space.go
//
// GroundingSpace: the mutable, queryable atom store. Atoms are indexed by
// head symbol; query enumerates candidates in insertion order, renames
// stored variables apart from the query, and narrows each unifier down to
// the query's own variables. A space is itself a grounded value: matching
// against a space runs the other atom as a query (CustomMatch).
//
// A space is owned by one evaluation context at a time. It does no locking;
// sharing across goroutines needs external synchronization.

package metta

import (
	"strings"

	"github.com/google/uuid"
)

// CommaSymbol glues sub-queries into one conjunctive query.
const CommaSymbol = ","

// SpaceEventKind tags observer notifications.
type SpaceEventKind int

const (
	SpaceEventAdd SpaceEventKind = iota
	SpaceEventRemove
	SpaceEventReplace
)

// SpaceEvent describes one mutation. Replaced is set for replace events.
type SpaceEvent struct {
	Kind     SpaceEventKind
	Atom     Atom
	Replaced Atom
}

// SpaceObserver receives mutation notifications from a space it registered
// with. Observers must not mutate the space from inside Notify.
type SpaceObserver interface {
	Notify(event SpaceEvent)
}

// GroundingSpace is the in-memory space implementation.
type GroundingSpace struct {
	name      string
	atoms     []Atom // tombstoned with nil on removal
	live      int
	index     map[string][]int // head symbol -> positions; "" holds the rest
	observers []SpaceObserver
}

// NewSpace creates an empty space with a UUID-derived debug name.
func NewSpace() *GroundingSpace {
	return NewNamedSpace("space-" + uuid.NewString()[:8])
}

// NewNamedSpace creates an empty space with the given debug name.
func NewNamedSpace(name string) *GroundingSpace {
	return &GroundingSpace{
		name:  name,
		index: map[string][]int{},
	}
}

// SpaceFromAtoms builds a space preloaded with the given atoms.
func SpaceFromAtoms(atoms ...Atom) *GroundingSpace {
	s := NewSpace()
	for _, a := range atoms {
		s.Add(a)
	}
	return s
}

func (s *GroundingSpace) Name() string        { return s.name }
func (s *GroundingSpace) SetName(name string) { s.name = name }

// RegisterObserver subscribes an observer to this space's mutation events.
func (s *GroundingSpace) RegisterObserver(o SpaceObserver) {
	s.observers = append(s.observers, o)
}

func (s *GroundingSpace) notify(ev SpaceEvent) {
	for _, o := range s.observers {
		o.Notify(ev)
	}
}

func indexKey(a Atom) string {
	if head, ok := ExprHeadSymbol(a); ok {
		return head
	}
	return ""
}

// Add stores an atom. Duplicates are kept; each occurrence matches
// separately.
func (s *GroundingSpace) Add(a Atom) {
	pos := len(s.atoms)
	s.atoms = append(s.atoms, a)
	s.live++
	key := indexKey(a)
	s.index[key] = append(s.index[key], pos)
	s.notify(SpaceEvent{Kind: SpaceEventAdd, Atom: a})
}

// Remove deletes at most one occurrence matching a by structural equality.
// Returns true iff something was removed.
func (s *GroundingSpace) Remove(a Atom) bool {
	key := indexKey(a)
	positions := s.index[key]
	for i, pos := range positions {
		if s.atoms[pos] != nil && AtomsEqual(s.atoms[pos], a) {
			s.atoms[pos] = nil
			s.live--
			s.index[key] = append(positions[:i:i], positions[i+1:]...)
			s.notify(SpaceEvent{Kind: SpaceEventRemove, Atom: a})
			return true
		}
	}
	return false
}

// Replace swaps one occurrence of from for to. When from is absent nothing
// is added and false is returned.
func (s *GroundingSpace) Replace(from, to Atom) bool {
	key := indexKey(from)
	positions := s.index[key]
	for i, pos := range positions {
		if s.atoms[pos] != nil && AtomsEqual(s.atoms[pos], from) {
			s.atoms[pos] = nil
			s.index[key] = append(positions[:i:i], positions[i+1:]...)
			npos := len(s.atoms)
			s.atoms = append(s.atoms, to)
			nkey := indexKey(to)
			s.index[nkey] = append(s.index[nkey], npos)
			s.notify(SpaceEvent{Kind: SpaceEventReplace, Atom: to, Replaced: from})
			return true
		}
	}
	return false
}

// AtomCount returns the number of stored atoms.
func (s *GroundingSpace) AtomCount() int { return s.live }

// Atoms returns a snapshot of the stored atoms in insertion order.
func (s *GroundingSpace) Atoms() []Atom {
	out := make([]Atom, 0, s.live)
	for _, a := range s.atoms {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// candidates picks the stored atoms worth unifying with the pattern: for a
// pattern headed by a symbol that is the matching head bucket plus every
// non-indexable atom; any other pattern shape scans the whole space.
func (s *GroundingSpace) candidates(pattern Atom) []Atom {
	head, ok := ExprHeadSymbol(pattern)
	if !ok {
		return s.Atoms()
	}
	merged := append(append([]int{}, s.index[head]...), s.index[""]...)
	out := make([]Atom, 0, len(merged))
	for _, pos := range merged {
		if s.atoms[pos] != nil {
			out = append(out, s.atoms[pos])
		}
	}
	return out
}

// Query matches the pattern against the stored atoms, one Bindings per
// match. A pattern of shape (, q1 q2 ...) is a conjunction: sub-query
// results fold left to right with earlier bindings substituted into later
// sub-queries. Result order is stable within a call only.
func (s *GroundingSpace) Query(pattern Atom) BindingsSet {
	if head, ok := ExprHeadSymbol(pattern); ok && head == CommaSymbol {
		return s.queryConjunction(pattern.(ExpressionAtom).Children()[1:])
	}
	return s.singleQuery(pattern)
}

func (s *GroundingSpace) queryConjunction(queries []Atom) BindingsSet {
	acc := SingleBindingsSet()
	for _, q := range queries {
		var next BindingsSet
		for _, prev := range acc {
			applied, err := prev.Apply(q)
			if err != nil {
				continue
			}
			for _, found := range s.Query(applied) {
				if merged, ok := prev.Merge(found); ok {
					next = append(next, merged)
				}
			}
		}
		if len(next) == 0 {
			return EmptyBindingsSet()
		}
		acc = next
	}
	return acc
}

func (s *GroundingSpace) singleQuery(pattern Atom) BindingsSet {
	queryVars := map[string]struct{}{}
	CollectVariables(pattern, queryVars)

	var result BindingsSet
	for _, stored := range s.candidates(pattern) {
		renamed := renameVariables(stored, map[string]VariableAtom{})
		for _, bnd := range matchAtoms(pattern, renamed, NewBindings()) {
			if narrowed, ok := bnd.Narrow(queryVars); ok {
				result = append(result, narrowed)
			}
		}
	}
	return result
}

// Subst runs the query and instantiates the template once per match.
func (s *GroundingSpace) Subst(pattern, template Atom) []Atom {
	var out []Atom
	for _, bnd := range s.Query(pattern) {
		applied, err := bnd.Apply(template)
		if err != nil {
			continue
		}
		out = append(out, applied)
	}
	return out
}

// --- Space as a grounded value ----------------------------------------------

func (s *GroundingSpace) TypeName() string { return "Space" }

// Equal compares spaces by identity: a space aliased under two names is the
// same store.
func (s *GroundingSpace) Equal(other GroundedValue) bool {
	o, ok := other.(*GroundingSpace)
	return ok && o == s
}

func (s *GroundingSpace) String() string {
	var b strings.Builder
	b.WriteString("GroundingSpace-")
	b.WriteString(s.name)
	return b.String()
}

// Match runs the other atom as a query against this space.
func (s *GroundingSpace) Match(other Atom) BindingsSet {
	return s.Query(other)
}
