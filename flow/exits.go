// Copyright © 2024 The ELPS authors

package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luthersystems/jscheck/jsast"
)

// ExitKind is an abrupt way of leaving a construct.
type ExitKind uint8

const (
	ExitReturn ExitKind = iota
	ExitThrow
	ExitBreak
	ExitContinue
)

func (k ExitKind) String() string {
	switch k {
	case ExitReturn:
		return "return"
	case ExitThrow:
		return "throw"
	case ExitBreak:
		return "break"
	case ExitContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// ExitKey names an exit channel. Label is empty for return, throw and
// unlabeled break and continue.
type ExitKey struct {
	Kind  ExitKind
	Label string
}

func (k ExitKey) String() string {
	if k.Label == "" {
		return k.Kind.String()
	}
	return k.Kind.String() + " " + k.Label
}

func (k ExitKey) less(o ExitKey) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	return k.Label < o.Label
}

// Source is a statement that takes an exit.
type Source struct {
	Node jsast.NodeID
	Pos  int
}

// ExitMode describes one exit channel.
type ExitMode struct {
	// Live is the set live on every path taking the exit.
	Live *LiveSet
	// Always is set when every path through the construct takes the exit.
	Always bool
	// Sources are ordered by position.
	Sources []Source
}

type exitEntry struct {
	key  ExitKey
	mode *ExitMode
}

// ExitModes is an immutable map from exit channel to ExitMode plus a flag
// recording whether some path falls through. Like LiveSet, operations return
// an operand itself when the result equals it.
type ExitModes struct {
	entries   []exitEntry // sorted by key
	completes bool
}

var (
	completes = &ExitModes{completes: true}
	never     = &ExitModes{}
)

// Completes returns the shared value for constructs that always fall
// through.
func Completes() *ExitModes {
	return completes
}

// NewExit returns the modes of a statement that always takes key.
func NewExit(key ExitKey, live *LiveSet, src Source) *ExitModes {
	return &ExitModes{entries: []exitEntry{{key: key, mode: &ExitMode{Live: live, Always: true, Sources: []Source{src}}}}}
}

func (e *ExitModes) unreachable() bool {
	return len(e.entries) == 0 && !e.completes
}

// setCompletes returns e with the fall-through flag set to c.
func (e *ExitModes) setCompletes(c bool) *ExitModes {
	return e.build(nil, e.entries, c)
}

// CanComplete reports whether some path falls through.
func (e *ExitModes) CanComplete() bool {
	return e.completes
}

// Len returns the number of exit channels.
func (e *ExitModes) Len() int {
	return len(e.entries)
}

// Keys returns the exit channels in order.
func (e *ExitModes) Keys() []ExitKey {
	keys := make([]ExitKey, len(e.entries))
	for i, ent := range e.entries {
		keys[i] = ent.key
	}
	return keys
}

// Get returns the mode for key.
func (e *ExitModes) Get(key ExitKey) (*ExitMode, bool) {
	for _, ent := range e.entries {
		if ent.key == key {
			return ent.mode, true
		}
	}
	return nil, false
}

func (e *ExitModes) hasOther(key ExitKey) bool {
	for _, ent := range e.entries {
		if ent.key != key {
			return true
		}
	}
	return false
}

// merge builds the entries present in either e or o, combining modes
// present in both with combine and passing single-sided modes to only.
func merge(e, o *ExitModes, combine func(k ExitKey, a, b *ExitMode) *ExitMode, only func(k ExitKey, m *ExitMode, left bool) *ExitMode) []exitEntry {
	entries := make([]exitEntry, 0, len(e.entries)+len(o.entries))
	i, j := 0, 0
	for i < len(e.entries) || j < len(o.entries) {
		switch {
		case j == len(o.entries) || (i < len(e.entries) && e.entries[i].key.less(o.entries[j].key)):
			k := e.entries[i].key
			entries = append(entries, exitEntry{k, only(k, e.entries[i].mode, true)})
			i++
		case i == len(e.entries) || o.entries[j].key.less(e.entries[i].key):
			k := o.entries[j].key
			entries = append(entries, exitEntry{k, only(k, o.entries[j].mode, false)})
			j++
		default:
			k := e.entries[i].key
			entries = append(entries, exitEntry{k, combine(k, e.entries[i].mode, o.entries[j].mode)})
			i++
			j++
		}
	}
	return entries
}

func combineModes(a, b *ExitMode, always bool) *ExitMode {
	live := a.Live.Intersection(b.Live)
	srcs := mergeSources(a.Sources, b.Sources)
	if live == a.Live && always == a.Always && len(srcs) == len(a.Sources) {
		return a
	}
	if live == b.Live && always == b.Always && len(srcs) == len(b.Sources) {
		return b
	}
	return &ExitMode{Live: live, Always: always, Sources: srcs}
}

func mergeSources(a, b []Source) []Source {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	out := make([]Source, 0, len(a)+len(b))
	out = append(out, a...)
	for _, s := range b {
		dup := false
		for _, t := range a {
			if s == t {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	if len(out) == len(a) {
		return a
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos < out[j].Pos
		}
		return out[i].Node < out[j].Node
	})
	return out
}

func withAlways(m *ExitMode, always bool) *ExitMode {
	if m.Always == always {
		return m
	}
	return &ExitMode{Live: m.Live, Always: always, Sources: m.Sources}
}

func (e *ExitModes) same(entries []exitEntry, completes bool) bool {
	if completes != e.completes || len(entries) != len(e.entries) {
		return false
	}
	for i := range entries {
		if entries[i] != e.entries[i] {
			return false
		}
	}
	return true
}

func (e *ExitModes) build(o *ExitModes, entries []exitEntry, completes bool) *ExitModes {
	switch {
	case e.same(entries, completes):
		return e
	case o != nil && o.same(entries, completes):
		return o
	case len(entries) == 0 && completes:
		return Completes()
	case len(entries) == 0:
		return never
	}
	return &ExitModes{entries: entries, completes: completes}
}

// Seq composes e followed by o, where o runs only when e falls through.
// A channel is always taken if e always takes it, or if o always takes it
// and e has no other channel.
func (e *ExitModes) Seq(o *ExitModes) *ExitModes {
	if e == completes {
		return o
	}
	if o == completes {
		return e
	}
	entries := merge(e, o,
		func(k ExitKey, a, b *ExitMode) *ExitMode {
			return combineModes(a, b, a.Always || (b.Always && !e.hasOther(k)))
		},
		func(k ExitKey, m *ExitMode, left bool) *ExitMode {
			if left {
				return m
			}
			return withAlways(m, m.Always && len(e.entries) == 0)
		})
	return e.build(o, entries, e.completes && o.completes)
}

// Join combines alternatives: a channel is present if either side has it
// and always only if both always take it. The result completes if either
// side does.
func (e *ExitModes) Join(o *ExitModes) *ExitModes {
	switch {
	case e == o, o.unreachable():
		return e
	case e.unreachable():
		return o
	}
	entries := merge(e, o,
		func(_ ExitKey, a, b *ExitMode) *ExitMode {
			return combineModes(a, b, a.Always && b.Always)
		},
		func(_ ExitKey, m *ExitMode, _ bool) *ExitMode {
			return withAlways(m, false)
		})
	return e.build(o, entries, e.completes || o.completes)
}

// Downgrade joins e with Completes.
func (e *ExitModes) Downgrade() *ExitModes {
	return e.Join(completes)
}

// Without returns e minus the channel key.
func (e *ExitModes) Without(key ExitKey) *ExitModes {
	return e.Filter(func(k ExitKey) bool { return k != key })
}

// Filter keeps the channels for which keep returns true.
func (e *ExitModes) Filter(keep func(ExitKey) bool) *ExitModes {
	var entries []exitEntry
	for _, ent := range e.entries {
		if keep(ent.key) {
			entries = append(entries, ent)
		}
	}
	return e.build(nil, entries, e.completes)
}

// Consume removes the channel key and makes e complete, since control
// resumes after the construct that consumes it. It returns the removed mode
// or nil.
func (e *ExitModes) Consume(key ExitKey) (*ExitModes, *ExitMode) {
	m, ok := e.Get(key)
	if !ok {
		return e, nil
	}
	rest := e.Without(key)
	return rest.build(nil, rest.entries, true), m
}

// FilterLive applies keep to every channel's live set.
func (e *ExitModes) FilterLive(keep func(Var) bool) *ExitModes {
	var entries []exitEntry
	for i, ent := range e.entries {
		live := ent.mode.Live.Filter(keep)
		if live == ent.mode.Live {
			continue
		}
		if entries == nil {
			entries = append([]exitEntry(nil), e.entries...)
		}
		entries[i].mode = &ExitMode{Live: live, Always: ent.mode.Always, Sources: ent.mode.Sources}
	}
	if entries == nil {
		return e
	}
	return &ExitModes{entries: entries, completes: e.completes}
}

// Trump combines the pending exits of a protected region with the exits of
// its finally block. A finally block that cannot complete overrides every
// pending exit. Otherwise pending exits resume after it, carrying what the
// finally block assigned.
func Trump(pending, fin *ExitModes, finOut *LiveSet) *ExitModes {
	if !fin.completes {
		return fin
	}
	var entries []exitEntry
	for i, ent := range pending.entries {
		live := ent.mode.Live.Union(finOut)
		if live == ent.mode.Live {
			continue
		}
		if entries == nil {
			entries = append([]exitEntry(nil), pending.entries...)
		}
		entries[i].mode = &ExitMode{Live: live, Always: ent.mode.Always, Sources: ent.mode.Sources}
	}
	resumed := pending
	if entries != nil {
		resumed = &ExitModes{entries: entries, completes: pending.completes}
	}
	return fin.Seq(resumed)
}

func (e *ExitModes) String() string {
	var parts []string
	if e.completes {
		parts = append(parts, "completes")
	}
	for _, ent := range e.entries {
		s := fmt.Sprintf("%s %s", ent.key, ent.mode.Live)
		if ent.mode.Always {
			s += " always"
		}
		parts = append(parts, s)
	}
	return "[" + strings.Join(parts, "; ") + "]"
}
