// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/jscheck/jsast"

// ScopeKind classifies the kind of scope.
type ScopeKind int

const (
	ScopeProgram  ScopeKind = iota // file level
	ScopeFunction                  // function body and parameters
	ScopeBlock                     // block, loop head, switch body or named class
	ScopeCatch                     // catch clause parameter and body
	ScopeWith                      // with statement body
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeProgram:
		return "program"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeCatch:
		return "catch"
	case ScopeWith:
		return "with"
	default:
		return "unknown"
	}
}

// Scope represents a lexical scope in the source. Scopes are immutable once
// Build returns.
type Scope struct {
	ID       int
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	Table    *SymbolTable
	Node     jsast.NodeID // the node that introduced this scope
	Depth    int

	// Arrow is set on the function scope of an arrow function, which has no
	// `this` or `arguments` of its own.
	Arrow bool

	decls []*Declaration
	uses  []*Use
}

// NewScope creates a new scope of the given kind with the given parent.
func NewScope(kind ScopeKind, parent *Scope, node jsast.NodeID) *Scope {
	s := &Scope{
		Kind:   kind,
		Parent: parent,
		Table:  NewSymbolTable(),
		Node:   node,
	}
	if parent != nil {
		s.Depth = parent.Depth + 1
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Lookup resolves a name by walking the parent chain. It returns the scope
// that declares the name and its symbol, or nil if the name is free.
func (s *Scope) Lookup(name string) (*Scope, *Symbol) {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym := scope.Table.Symbol(name); sym != nil {
			return scope, sym
		}
	}
	return nil, nil
}

// LookupLocal resolves a name only in this scope (not parents).
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.Table.Symbol(name)
}

// IsDeclarationContainer reports whether var declarations stop here.
func (s *Scope) IsDeclarationContainer() bool {
	return s.Kind == ScopeFunction || s.Kind == ScopeProgram
}

// Unit returns the nearest function or program scope enclosing s,
// including s itself.
func (s *Scope) Unit() *Scope {
	scope := s
	for !scope.IsDeclarationContainer() {
		scope = scope.Parent
	}
	return scope
}

// Encloses reports whether s is other or one of its ancestors.
func (s *Scope) Encloses(other *Scope) bool {
	for scope := other; scope != nil; scope = scope.Parent {
		if scope.Depth < s.Depth {
			return false
		}
		if scope == s {
			return true
		}
	}
	return false
}

// Declarations returns the declarations defined in this scope in source
// order.
func (s *Scope) Declarations() []*Declaration {
	return s.decls
}

// Uses returns the uses occurring directly in this scope in source order.
func (s *Scope) Uses() []*Use {
	return s.uses
}
