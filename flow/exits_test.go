// Copyright © 2024 The ELPS authors

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyReturn = ExitKey{Kind: ExitReturn}
	keyThrow  = ExitKey{Kind: ExitThrow}
	keyBreak  = ExitKey{Kind: ExitBreak}
)

func exit(key ExitKey, pos int) *ExitModes {
	return NewExit(key, Empty(), Source{Node: 0, Pos: pos})
}

func TestExitModes_JoinDuality(t *testing.T) {
	a, b := exit(keyReturn, 1), exit(keyReturn, 2)
	j := a.Join(b)
	assert.False(t, j.CanComplete())
	m, ok := j.Get(keyReturn)
	require.True(t, ok)
	assert.True(t, m.Always)
	assert.Equal(t, []Source{{0, 1}, {0, 2}}, m.Sources)

	j = a.Join(Completes())
	assert.True(t, j.CanComplete())
	m, _ = j.Get(keyReturn)
	assert.False(t, m.Always)

	j = exit(keyReturn, 1).Join(exit(keyThrow, 2))
	assert.False(t, j.CanComplete())
	assert.Equal(t, []ExitKey{keyReturn, keyThrow}, j.Keys())
	for _, k := range j.Keys() {
		m, _ := j.Get(k)
		assert.False(t, m.Always, k.String())
	}
}

func TestExitModes_Identity(t *testing.T) {
	a := exit(keyReturn, 1)
	assert.Same(t, a, a.Join(a))
	assert.Same(t, a, Completes().Seq(a))
	assert.Same(t, a, a.Seq(Completes()))
	assert.Same(t, a, a.Without(keyThrow))
	assert.Same(t, a, a.FilterLive(func(Var) bool { return true }))
	d := a.Downgrade()
	assert.Same(t, d, d.Downgrade())
	assert.Same(t, Completes(), Completes().Downgrade())
}

func TestExitModes_Seq(t *testing.T) {
	maybe := exit(keyReturn, 1).Downgrade()
	s := maybe.Seq(exit(keyReturn, 5))
	m, _ := s.Get(keyReturn)
	assert.True(t, m.Always)
	assert.False(t, s.CanComplete())
	assert.Len(t, m.Sources, 2)

	s = exit(keyThrow, 1).Downgrade().Seq(exit(keyReturn, 5))
	m, _ = s.Get(keyReturn)
	assert.False(t, m.Always)
	m, _ = s.Get(keyThrow)
	assert.False(t, m.Always)
}

func TestExitModes_Consume(t *testing.T) {
	e, m := exit(keyBreak, 3).Consume(keyBreak)
	require.NotNil(t, m)
	assert.True(t, m.Always)
	assert.Same(t, Completes(), e)

	e2, m := e.Consume(keyBreak)
	assert.Nil(t, m)
	assert.Same(t, e, e2)
}

func TestTrump(t *testing.T) {
	scopes := testScopes()
	x := Var{"x", scopes[0]}
	pending := exit(keyReturn, 1)
	fin := exit(keyReturn, 9)
	assert.Same(t, fin, Trump(pending, fin, Empty()))

	r := Trump(pending, Completes(), NewLiveSet(x))
	m, ok := r.Get(keyReturn)
	require.True(t, ok)
	assert.True(t, m.Always)
	assert.True(t, m.Live.Contains(x))
	assert.Equal(t, []Source{{0, 1}}, m.Sources)
	assert.False(t, r.CanComplete())
}
