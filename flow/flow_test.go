// Copyright © 2024 The ELPS authors

package flow

import (
	"testing"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, source string) *Result {
	t.Helper()
	tree, err := parser.Parse("test.js", []byte(source))
	require.NoError(t, err)
	return Analyze(analysis.Analyze(tree, nil))
}

// nthRef returns the nth identifier reference named name in source order.
func nthRef(t *testing.T, r *Result, name string, nth int) jsast.NodeID {
	t.Helper()
	tree := r.Scopes.Source
	found := jsast.NoNode
	jsast.Inspect(tree, tree.Root, func(id jsast.NodeID) bool {
		n := tree.Node(id)
		if found.Valid() {
			return false
		}
		if n.Kind == jsast.KindRef && n.Name == name {
			if nth == 0 {
				found = id
				return false
			}
			nth--
		}
		return true
	})
	require.True(t, found.Valid(), "no reference %q", name)
	return found
}

// callStmt returns the expression statement calling the function name.
func callStmt(t *testing.T, r *Result, name string) jsast.NodeID {
	t.Helper()
	tree := r.Scopes.Source
	parents := r.Scopes.Parents
	ref := nthRef(t, r, name, 0)
	for id := ref; id.Valid(); id = parents[id] {
		if tree.Kind(id) == jsast.KindExprStmt {
			return id
		}
	}
	require.FailNow(t, "no statement", name)
	return jsast.NoNode
}

// liveAt reports whether the variable name, in the scope its use at ref
// resolves to, is live on entry to ref.
func liveAt(t *testing.T, r *Result, ref jsast.NodeID) bool {
	t.Helper()
	live, ok := r.LiveAt(ref)
	require.True(t, ok, "reference is unreachable")
	u := r.Scopes.UseAt.Value(ref)
	require.NotNil(t, u)
	scope := u.Defining
	if scope == nil {
		scope = r.Scopes.Root
	}
	return live.Contains(Var{Name: u.Name, Scope: scope})
}

func TestAnalyze_StraightLine(t *testing.T) {
	r := analyze(t, "var a = 1; var b; use(a, b);")
	assert.True(t, liveAt(t, r, nthRef(t, r, "a", 1)))
	assert.False(t, liveAt(t, r, nthRef(t, r, "b", 1)))
	assert.True(t, r.ProgramExits.CanComplete())
	assert.Equal(t, 0, r.ProgramExits.Len())
}

func TestAnalyze_LetWithoutInitializerIsLive(t *testing.T) {
	r := analyze(t, "let a; var b; use(a, b);")
	assert.True(t, liveAt(t, r, nthRef(t, r, "a", 1)))
	assert.False(t, liveAt(t, r, nthRef(t, r, "b", 1)))
}

func TestAnalyze_Branches(t *testing.T) {
	tests := []struct {
		name string
		src  string
		live bool
	}{
		{"both branches", "var x; if (c) { x = 1; } else { x = 2; } use(x);", true},
		{"one branch", "var x; if (c) { x = 1; } use(x);", false},
		{"ternary", "var x; c ? (x = 1) : (x = 2); use(x);", true},
		{"ternary one side", "var x; c ? (x = 1) : 0; use(x);", false},
		{"else returns", "var x; if (c) { x = 1; } else { return; } use(x);", true},
		{"and left", "var x; (x = f()) && g(); use(x);", true},
		{"and right", "var x; c && (x = 1); use(x);", false},
		{"coalesce right", "var x; c ?? (x = 1); use(x);", false},
		{"global assignment", "X = 1; use(X);", true},
		{"compound", "var x = 0; x += 1; use(x);", true},
		{"destructuring", "var {x} = o; use(x);", true},
		{"array destructuring assignment", "var x; [x] = o; use(x);", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := analyze(t, tc.src)
			u := callStmt(t, r, "use")
			name := "x"
			if tc.name == "global assignment" {
				name = "X"
			}
			ref := jsast.NoNode
			jsast.Inspect(r.Scopes.Source, u, func(id jsast.NodeID) bool {
				if n := r.Scopes.Source.Node(id); n.Kind == jsast.KindRef && n.Name == name {
					ref = id
				}
				return true
			})
			require.True(t, ref.Valid())
			assert.Equal(t, tc.live, liveAt(t, r, ref))
		})
	}
}

func TestAnalyze_ConditionSplitting(t *testing.T) {
	r := analyze(t, "var x; if (c && (x = 1)) { use(x); } else { other(x); }")
	assert.True(t, liveAt(t, r, nthRef(t, r, "x", 2)))
	assert.False(t, liveAt(t, r, nthRef(t, r, "x", 3)))

	r = analyze(t, "var x; if (c || (x = 1)) { use(x); } else { other(x); }")
	assert.False(t, liveAt(t, r, nthRef(t, r, "x", 2)))
	assert.True(t, liveAt(t, r, nthRef(t, r, "x", 3)))

	r = analyze(t, "var x; if (!(c && (x = 1))) { use(x); } else { other(x); }")
	assert.False(t, liveAt(t, r, nthRef(t, r, "x", 2)))
	assert.True(t, liveAt(t, r, nthRef(t, r, "x", 3)))
}

func TestAnalyze_Loops(t *testing.T) {
	tests := []struct {
		name string
		src  string
		live bool
	}{
		{"while", "var x; while (c) { x = 1; } use(x);", false},
		{"while condition", "var x; while ((x = f()) > 0) { g(); } use(x);", true},
		{"do while", "var x; do { x = 1; } while (c); use(x);", true},
		{"for ever with break", "var x; for (;;) { x = 1; break; } use(x);", true},
		{"for with test", "var x; for (var i = 0; i < n; i++) { x = 1; } use(x);", false},
		{"for init", "var x; for (x = 0; x < n; x++) {} use(x);", true},
		{"for in", "var x; for (var k in o) { x = k; } use(x);", false},
		{"for in key after loop", "var x; for (var k in o) { x = k; } use(k);", true},
		{"for in assigned key after loop", "var k; for (k in o) {} use(k);", true},
		{"labeled break", "var x; outer: for (;;) { for (;;) { x = 1; break outer; } } use(x);", true},
		{"switch all cases", "var x; switch (k) { case 1: x = 1; break; default: x = 2; } use(x);", true},
		{"switch no default", "var x; switch (k) { case 1: x = 1; break; } use(x);", false},
		{"switch fall through", "var x; switch (k) { case 1: case 2: x = 1; break; default: x = 3; } use(x);", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := analyze(t, tc.src)
			stmt := callStmt(t, r, "use")
			arg := r.Scopes.Source.Child(r.Scopes.Source.Child(stmt, 0), 1)
			assert.Equal(t, tc.live, liveAt(t, r, arg))
		})
	}
}

func TestAnalyze_ForInKeyLiveInBody(t *testing.T) {
	r := analyze(t, "for (var k in o) { use(k); }")
	assert.True(t, liveAt(t, r, nthRef(t, r, "k", 1)))
}

func TestAnalyze_InfiniteLoopEndsProgram(t *testing.T) {
	r := analyze(t, "for (;;) { f(); } after();")
	_, ok := r.LiveAt(callStmt(t, r, "after"))
	assert.False(t, ok)
	assert.False(t, r.ProgramExits.CanComplete())
}

func TestAnalyze_CatchIsolation(t *testing.T) {
	r := analyze(t, "var a; try { throw new Error(a = 1); } catch (e) { use(a, e); }")
	assert.False(t, liveAt(t, r, nthRef(t, r, "a", 2)))
	assert.True(t, liveAt(t, r, nthRef(t, r, "e", 1)))

	r = analyze(t, "var a; try { a = 1; } catch (e) { use(a); }")
	assert.False(t, liveAt(t, r, nthRef(t, r, "a", 2)))
}

func TestAnalyze_TryCatchRemovesThrow(t *testing.T) {
	r := analyze(t, "try { throw 1; } catch (e) { }")
	_, ok := r.ProgramExits.Get(ExitKey{Kind: ExitThrow})
	assert.False(t, ok)
	assert.True(t, r.ProgramExits.CanComplete())

	r = analyze(t, "throw 1;")
	m, ok := r.ProgramExits.Get(ExitKey{Kind: ExitThrow})
	require.True(t, ok)
	assert.True(t, m.Always)
}

func TestAnalyze_FinallyOverride(t *testing.T) {
	r := analyze(t, "function f() { try { return 1; } finally { return 2; } }")
	fn := r.Scopes.Declarations[0].Site
	ex := r.FunctionExits[fn]
	require.NotNil(t, ex)
	assert.False(t, ex.CanComplete())
	m, ok := ex.Get(ExitKey{Kind: ExitReturn})
	require.True(t, ok)
	assert.True(t, m.Always)
	require.Len(t, m.Sources, 1)
	tree := r.Scopes.Source
	assert.Equal(t, "return 2", tree.Text(m.Sources[0].Node))
}

func TestAnalyze_FinallyAddsAssignments(t *testing.T) {
	r := analyze(t, "var x; try { f(); } finally { x = 1; } use(x);")
	assert.True(t, liveAt(t, r, nthRef(t, r, "x", 2)))
}

func TestAnalyze_DeadCodeAfterAlwaysExit(t *testing.T) {
	r := analyze(t, "function g(a) { if (a) { return 1; } else { return 2; } unreachable(); }")
	_, ok := r.LiveAt(callStmt(t, r, "unreachable"))
	assert.False(t, ok)
	assert.False(t, r.IsUnanalyzable(callStmt(t, r, "unreachable")))
}

func TestAnalyze_HoistedFunctionInDeadCode(t *testing.T) {
	r := analyze(t, "h(); throw 1; function h() { var q = 1; use(q); }")
	assert.True(t, liveAt(t, r, nthRef(t, r, "q", 1)))
	assert.True(t, liveAt(t, r, nthRef(t, r, "h", 0)))
}

func TestAnalyze_FunctionEntry(t *testing.T) {
	r := analyze(t, "var a = 1; var b; var f = function g(p) { use(a, b, p, g, arguments); };")
	assert.True(t, liveAt(t, r, nthRef(t, r, "a", 1)))
	assert.False(t, liveAt(t, r, nthRef(t, r, "b", 1)))
	assert.True(t, liveAt(t, r, nthRef(t, r, "p", 1)))
	assert.True(t, liveAt(t, r, nthRef(t, r, "g", 1)))
}

func TestAnalyze_BlockScopedFiltered(t *testing.T) {
	r := analyze(t, "{ let z = 1; } var y = 2;")
	for _, v := range r.ProgramOut.Vars() {
		assert.NotEqual(t, "z", v.Name)
	}
	assert.Equal(t, 1, r.ProgramOut.Len())
}

func TestAnalyze_WithIsUnanalyzable(t *testing.T) {
	r := analyze(t, "var o = {}; with (o) { a(); } b();")
	stmt := callStmt(t, r, "a")
	assert.True(t, r.IsUnanalyzable(stmt))
	_, ok := r.LiveAt(stmt)
	assert.False(t, ok)
	_, ok = r.LiveAt(callStmt(t, r, "b"))
	assert.True(t, ok)
}

func TestAnalyze_EvalIsUnanalyzable(t *testing.T) {
	r := analyze(t, "function f() { eval('y = 2'); var y = 1; use(y); } function g() { var z = 1; use(z); }")
	assert.True(t, r.IsUnanalyzable(nthRef(t, r, "y", 1)))
	assert.False(t, r.IsUnanalyzable(nthRef(t, r, "z", 1)))
}

func TestAnalyze_TopLevelReturn(t *testing.T) {
	r := analyze(t, "if (a) return; b();")
	m, ok := r.ProgramExits.Get(ExitKey{Kind: ExitReturn})
	require.True(t, ok)
	assert.False(t, m.Always)
	assert.True(t, r.ProgramExits.CanComplete())
}

func TestAnalyze_ProgramOut(t *testing.T) {
	r := analyze(t, "var A = 1; var B; if (c) { B = 1; }")
	vars := r.ProgramOut.Vars()
	require.Len(t, vars, 1)
	assert.Equal(t, "A", vars[0].Name)
	assert.Same(t, r.Scopes.Root, vars[0].Scope)
}
