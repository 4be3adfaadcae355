// Package checker implements the Type Checker (spec.md §4.6, C6): scoped
// name resolution, nominal/subtype inference against internal/types,
// desugaring passes, and the box-marker/inline-analyzer sub-pass triggers.
//
// The scope-table shape (nested Symbol maps keyed by name, pushed/popped
// per block) is grounded on
// _examples/funvibe-funxy/internal/symbols/symbol_table_core.go; name
// resolution inside a speculative parse/overload attempt uses
// internal/pset (C10) per spec.md's explicit direction, rather than the
// teacher's plain map-based scope (funxy never needs to roll back a scope
// binding, since it has no generic-call/subscript-range parse ambiguity).
package checker

import (
	"github.com/jade-lang/jadec/internal/pset"
	"github.com/jade-lang/jadec/internal/types"
)

// Symbol is one name bound in a scope: a variable, function, or type.
type Symbol struct {
	Name     string
	DeclName string // the declaration's own name, for re-lookup after resolution
	IsType   bool
	IsConst  bool

	// Ty is the resolved type of a variable/parameter/type binding. Nil
	// until C6's inference pass resolves it.
	Ty *types.Type
	// Overloads holds every Func-kind signature registered under this
	// name (spec.md §4.6's overload set); a plain variable binding never
	// populates this, and a function binding never populates Ty.
	Overloads []*types.Type
}

// Scope is one lexical scope layer. Bindings are recorded in both a plain
// map (for ordinary non-speculative resolution) and, while a speculative
// attempt is in progress, mirrored into a pset.Set so it can be rolled back
// without disturbing bindings made before the speculative attempt began.
type Scope struct {
	parent   *Scope
	bindings map[string]Symbol
	// speculative is non-nil while this scope participates in a
	// speculative resolution attempt (e.g. disambiguating `a<b,c>(d)`);
	// names added during the attempt live here until Commit/Reset.
	speculative *pset.Set[string]
	pending     map[string]Symbol // names added only within the open speculation
}

// NewScope returns a fresh scope nested under parent (nil for the package
// root scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, bindings: make(map[string]Symbol)}
}

// Define binds name in this scope, as a speculative addition if a
// speculative attempt is open.
func (s *Scope) Define(sym Symbol) {
	if s.speculative != nil {
		s.speculative.Insert(sym.Name)
		s.pending[sym.Name] = sym
		return
	}
	s.bindings[sym.Name] = sym
}

// AddOverload merges sig into name's overload set in this scope, creating
// the binding if this is the first declaration seen under that name
// (spec.md §4.6: multiple FuncDecls sharing a name form one overload set
// rather than shadowing each other).
func (s *Scope) AddOverload(name string, sig *types.Type) {
	sym, ok := s.bindings[name]
	if !ok {
		sym = Symbol{Name: name, DeclName: name}
	}
	sym.Overloads = append(sym.Overloads, sig)
	s.bindings[name] = sym
}

// Lookup resolves name against this scope and its ancestors, innermost
// first, honouring speculative additions and removals.
func (s *Scope) Lookup(name string) (Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.speculative != nil {
			if cur.speculative.Contains(name) {
				if sym, ok := cur.pending[name]; ok {
					return sym, true
				}
			}
		}
		if sym, ok := cur.bindings[name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// BeginSpeculation opens a speculative resolution attempt on this scope:
// names defined under the attempt are visible to Lookup but vanish on
// ResetSpeculation. Nothing in the checker calls it.
func (s *Scope) BeginSpeculation() {
	if s.speculative == nil {
		s.speculative = pset.New[string]()
		s.pending = make(map[string]Symbol)
	}
	s.speculative.Checkpoint()
}

// CommitSpeculation folds the current speculative layer's additions into
// permanent bindings.
func (s *Scope) CommitSpeculation() {
	s.speculative.Commit()
	for k, v := range s.pending {
		if s.speculative.Contains(k) {
			s.bindings[k] = v
		}
	}
	s.pending = make(map[string]Symbol)
}

// ResetSpeculation discards the current speculative layer entirely.
func (s *Scope) ResetSpeculation() {
	s.speculative.Reset()
	s.pending = make(map[string]Symbol)
}
