// Copyright © 2024 The ELPS authors

// Package analysis builds the scope tree of a JavaScript program.
//
// Build walks a jsast.Tree, creates a scope for the program, every function,
// catch clause and with statement (plus blocks when block scoping is on),
// hoists declarations into their defining scopes and resolves every use.
// Callers observe the result through a Listener; Analyze collects the events
// into a Result for lint analyzers.
package analysis

import (
	"github.com/luthersystems/jscheck/jsast"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jscheck.analysis")

// Mask records a declaration hiding one in an enclosing scope.
type Mask struct {
	Decl  *Declaration
	Inner *Scope
	Outer *Scope
}

// Duplicate records a repeated declaration of a name in one scope.
type Duplicate struct {
	Decl  *Declaration
	Scope *Scope
}

// SplitInit records a var initializer that assigns a catch parameter.
type SplitInit struct {
	Decl  *Declaration
	Catch *Scope
}

// Result holds the output of scope analysis.
type Result struct {
	*ScopeTree

	// Parents maps each node to its parent.
	Parents []jsast.NodeID

	Masks      []Mask
	Duplicates []Duplicate
	SplitInits []SplitInit

	// Free lists uses that resolve to no declaration, in event order.
	Free []*Use
}

// Analyze builds the scope tree for t and collects shadowing events. A nil
// cfg uses DefaultConfig.
func Analyze(t *jsast.Tree, cfg *Config) *Result {
	c := &collector{}
	st := Build(t, cfg, c)
	log.Debugf("%s: %d scopes, %d declarations, %d uses", t.File, len(st.Scopes), len(st.Declarations), len(st.Uses))
	return &Result{
		ScopeTree:  st,
		Parents:    jsast.Parents(t),
		Masks:      c.masks,
		Duplicates: c.dups,
		SplitInits: c.splits,
		Free:       c.free,
	}
}

// ScopeAt returns the scope node id occurs in, or nil.
func (r *Result) ScopeAt(id jsast.NodeID) *Scope {
	return r.ScopeOf.Value(id)
}

// IsAncestor reports whether anc is id or encloses it.
func (r *Result) IsAncestor(anc, id jsast.NodeID) bool {
	for n := id; n.Valid(); n = r.Parents[n] {
		if n == anc {
			return true
		}
	}
	return false
}

type collector struct {
	NopListener
	masks  []Mask
	dups   []Duplicate
	splits []SplitInit
	free   []*Use
}

func (c *collector) Read(u *Use) {
	if u.Free() {
		c.free = append(c.free, u)
	}
}

func (c *collector) Assigned(u *Use) {
	if u.Free() && !u.Read {
		c.free = append(c.free, u)
	}
}

func (c *collector) Masked(d *Declaration, inner, outer *Scope) {
	c.masks = append(c.masks, Mask{Decl: d, Inner: inner, Outer: outer})
}

func (c *collector) Duplicate(d *Declaration, s *Scope) {
	c.dups = append(c.dups, Duplicate{Decl: d, Scope: s})
}

func (c *collector) SplitInitialization(d *Declaration, catch *Scope) {
	c.splits = append(c.splits, SplitInit{Decl: d, Catch: catch})
}
