// Copyright © 2024 The ELPS authors

package analysis

// Listener receives scope events from Build. Events for a scope are
// bracketed by EnterScope and ExitScope, and a scope exits only after all of
// its descendants have exited. Within a scope, declarations fire first, then
// nested scopes, then the scope's own uses.
type Listener interface {
	EnterScope(s *Scope)
	ExitScope(s *Scope)
	Declared(d *Declaration)
	// Read and Assigned both fire for compound assignment and
	// increment/decrement.
	Read(u *Use)
	Assigned(u *Use)
}

// MaskListener is implemented by listeners that want shadowing events.
type MaskListener interface {
	// Masked fires when d, declared in inner, hides a declaration of the
	// same name in the enclosing scope outer.
	Masked(d *Declaration, inner, outer *Scope)
	// Duplicate fires for every declaration of a name after the first in
	// the same scope.
	Duplicate(d *Declaration, s *Scope)
}

// SplitInitListener is implemented by listeners that want split
// initialization events.
type SplitInitListener interface {
	// SplitInitialization fires when an initialized var declaration is
	// hoisted past a catch clause whose parameter has the same name, so the
	// initializer assigns the catch parameter instead of the hoisted
	// variable.
	SplitInitialization(d *Declaration, catch *Scope)
}

// NopListener implements Listener with no-ops. Embed it to implement only
// some events.
type NopListener struct{}

func (NopListener) EnterScope(*Scope)     {}
func (NopListener) ExitScope(*Scope)      {}
func (NopListener) Declared(*Declaration) {}
func (NopListener) Read(*Use)             {}
func (NopListener) Assigned(*Use)         {}
