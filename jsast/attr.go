// Copyright © 2024 The ELPS authors

package jsast

// Attr is a dense per-node attribute table. It is how passes attach results
// (scopes, live sets, markers) to nodes without touching the nodes.
type Attr[T any] struct {
	vals []T
	set  []bool
}

// NewAttr returns an empty attribute table sized for t.
func NewAttr[T any](t *Tree) *Attr[T] {
	return &Attr[T]{
		vals: make([]T, len(t.Nodes)),
		set:  make([]bool, len(t.Nodes)),
	}
}

// Set stores v for id.
func (a *Attr[T]) Set(id NodeID, v T) {
	a.vals[id] = v
	a.set[id] = true
}

// Get returns the value stored for id and whether one is present.
func (a *Attr[T]) Get(id NodeID) (T, bool) {
	if a == nil || !id.Valid() || int(id) >= len(a.set) || !a.set[id] {
		var zero T
		return zero, false
	}
	return a.vals[id], true
}

// Value returns the value stored for id or the zero value.
func (a *Attr[T]) Value(id NodeID) T {
	v, _ := a.Get(id)
	return v
}

// Has reports whether a value is present for id.
func (a *Attr[T]) Has(id NodeID) bool {
	_, ok := a.Get(id)
	return ok
}

// Delete removes the value stored for id.
func (a *Attr[T]) Delete(id NodeID) {
	var zero T
	a.vals[id] = zero
	a.set[id] = false
}
