// Copyright © 2024 The ELPS authors

package flow

import (
	"strings"

	"github.com/luthersystems/jscheck/analysis"
)

// Var identifies a variable by name and defining scope.
type Var struct {
	Name  string
	Scope *analysis.Scope
}

func (v Var) String() string {
	if v.Scope == nil {
		return v.Name
	}
	return v.Name + "@" + v.Scope.Kind.String()
}

func scopeID(s *analysis.Scope) int {
	if s == nil {
		return -1
	}
	return s.ID
}

func compareVars(a, b Var) int {
	ai, bi := scopeID(a.Scope), scopeID(b.Scope)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	}
	return strings.Compare(a.Name, b.Name)
}

// LiveSet is an immutable set of variables definitely assigned at a point
// in the program. Operations return the receiver or the argument itself,
// not a copy, whenever the result is equal to it.
type LiveSet struct {
	vars []Var // sorted by (scope ID, name)
}

var empty = &LiveSet{}

// Empty returns the shared empty set.
func Empty() *LiveSet {
	return empty
}

// NewLiveSet returns a set holding vars.
func NewLiveSet(vars ...Var) *LiveSet {
	s := empty
	for _, v := range vars {
		s = s.With(v)
	}
	return s
}

func (s *LiveSet) search(v Var) (int, bool) {
	lo, hi := 0, len(s.vars)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if compareVars(s.vars[mid], v) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(s.vars) && compareVars(s.vars[lo], v) == 0
}

// Len returns the number of variables in s.
func (s *LiveSet) Len() int {
	return len(s.vars)
}

// Contains reports whether v is in s.
func (s *LiveSet) Contains(v Var) bool {
	_, ok := s.search(v)
	return ok
}

// Vars returns the variables of s in order.
func (s *LiveSet) Vars() []Var {
	return append([]Var(nil), s.vars...)
}

// With returns s plus v.
func (s *LiveSet) With(v Var) *LiveSet {
	i, ok := s.search(v)
	if ok {
		return s
	}
	vars := make([]Var, 0, len(s.vars)+1)
	vars = append(vars, s.vars[:i]...)
	vars = append(vars, v)
	vars = append(vars, s.vars[i:]...)
	return &LiveSet{vars: vars}
}

// SubsetOf reports whether every variable of s is in o.
func (s *LiveSet) SubsetOf(o *LiveSet) bool {
	if s == o || len(s.vars) == 0 {
		return true
	}
	if len(s.vars) > len(o.vars) {
		return false
	}
	j := 0
	for _, v := range s.vars {
		for j < len(o.vars) && compareVars(o.vars[j], v) < 0 {
			j++
		}
		if j == len(o.vars) || compareVars(o.vars[j], v) != 0 {
			return false
		}
		j++
	}
	return true
}

// Equal reports whether s and o hold the same variables.
func (s *LiveSet) Equal(o *LiveSet) bool {
	return s == o || (len(s.vars) == len(o.vars) && s.SubsetOf(o))
}

// Union returns the variables in either set.
func (s *LiveSet) Union(o *LiveSet) *LiveSet {
	if o.SubsetOf(s) {
		return s
	}
	if s.SubsetOf(o) {
		return o
	}
	vars := make([]Var, 0, len(s.vars)+len(o.vars))
	i, j := 0, 0
	for i < len(s.vars) && j < len(o.vars) {
		switch c := compareVars(s.vars[i], o.vars[j]); {
		case c < 0:
			vars = append(vars, s.vars[i])
			i++
		case c > 0:
			vars = append(vars, o.vars[j])
			j++
		default:
			vars = append(vars, s.vars[i])
			i++
			j++
		}
	}
	vars = append(vars, s.vars[i:]...)
	vars = append(vars, o.vars[j:]...)
	return &LiveSet{vars: vars}
}

// Intersection returns the variables in both sets.
func (s *LiveSet) Intersection(o *LiveSet) *LiveSet {
	if s.SubsetOf(o) {
		return s
	}
	if o.SubsetOf(s) {
		return o
	}
	var vars []Var
	i, j := 0, 0
	for i < len(s.vars) && j < len(o.vars) {
		switch c := compareVars(s.vars[i], o.vars[j]); {
		case c < 0:
			i++
		case c > 0:
			j++
		default:
			vars = append(vars, s.vars[i])
			i++
			j++
		}
	}
	if len(vars) == 0 {
		return empty
	}
	return &LiveSet{vars: vars}
}

// Filter returns the variables of s for which keep returns true.
func (s *LiveSet) Filter(keep func(Var) bool) *LiveSet {
	for i, v := range s.vars {
		if keep(v) {
			continue
		}
		vars := append([]Var(nil), s.vars[:i]...)
		for _, w := range s.vars[i+1:] {
			if keep(w) {
				vars = append(vars, w)
			}
		}
		if len(vars) == 0 {
			return empty
		}
		return &LiveSet{vars: vars}
	}
	return s
}

func (s *LiveSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s.vars {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}

// meet intersects two path states where nil means the path is not taken.
func meet(a, b *LiveSet) *LiveSet {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return a.Intersection(b)
}
