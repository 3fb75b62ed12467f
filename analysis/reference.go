// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/jscheck/jsast"

// Use records one occurrence of a name outside a declaration.
type Use struct {
	Name string
	Node jsast.NodeID

	// Scope is the scope the use occurs in. Defining is the scope the name
	// resolves to, nil when the name is free. Symbol is nil for free names
	// and for implicit bindings such as `this` and `arguments`.
	Scope    *Scope
	Defining *Scope
	Symbol   *Symbol

	// Block is the innermost block or case clause containing the use within
	// its function, or NoNode.
	Block jsast.NodeID

	Read     bool
	Assigned bool

	// ForInKey marks the key receiver of a for-in or for-of loop.
	ForInKey bool

	// TypeofOperand marks the operand of typeof.
	TypeofOperand bool
}

// Free reports whether the use resolves to no declaration.
func (u *Use) Free() bool {
	return u.Defining == nil
}

// Implicit reports whether the use is `this` or `arguments` bound by a
// function rather than a declaration.
func (u *Use) Implicit() bool {
	return u.Defining != nil && u.Symbol == nil
}
