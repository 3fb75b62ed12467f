// Copyright © 2024 The ELPS authors

package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk_PreOrder(t *testing.T) {
	b := NewBuilder("t.js", nil)
	x := b.Expr(b.Call("f", b.Ref("a")))
	prog := b.Program(b.Var("v", NoNode), x)
	tree := b.Finish(prog)

	var kinds []Kind
	var depths []int
	Walk(tree, tree.Root, func(id, parent NodeID, depth int) bool {
		kinds = append(kinds, tree.Kind(id))
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []Kind{
		KindProgram, KindVarDecl, KindDecl, KindRef,
		KindExprStmt, KindOp, KindRef, KindRef,
	}, kinds)
	assert.Equal(t, []int{0, 1, 2, 3, 1, 2, 3, 3}, depths)
}

func TestWalk_SkipChildren(t *testing.T) {
	b := NewBuilder("t.js", nil)
	fn := b.Function(0, "f", []string{"x"}, b.Block(b.Expr(b.Ref("y"))))
	tree := b.Finish(b.Program(b.Expr(fn)))

	count := 0
	Inspect(tree, tree.Root, func(id NodeID) bool {
		count++
		return tree.Kind(id) != KindFunction
	})
	assert.Equal(t, 3, count)
}

func TestParents(t *testing.T) {
	b := NewBuilder("t.js", nil)
	ref := b.Ref("a")
	stmt := b.Expr(ref)
	tree := b.Finish(b.Program(stmt))

	parents := Parents(tree)
	assert.Equal(t, NoNode, parents[tree.Root])
	assert.Equal(t, stmt, parents[ref])
	assert.Equal(t, tree.Root, parents[stmt])
}

func TestAttr(t *testing.T) {
	b := NewBuilder("t.js", nil)
	a := b.Ref("a")
	tree := b.Finish(b.Program(b.Expr(a)))

	attr := NewAttr[string](tree)
	_, ok := attr.Get(a)
	assert.False(t, ok)
	attr.Set(a, "x")
	assert.Equal(t, "x", attr.Value(a))
	assert.True(t, attr.Has(a))
	assert.False(t, attr.Has(NoNode))
	attr.Delete(a)
	assert.False(t, attr.Has(a))

	var nilAttr *Attr[int]
	assert.False(t, nilAttr.Has(a))
}

func TestEachBinding_Pattern(t *testing.T) {
	b := NewBuilder("t.js", nil)
	// [a, {k: b = f()}, ...c]
	inner := b.Add(Node{Kind: KindPattern, Flags: FlagObjectPattern, Children: []NodeID{
		b.Add(Node{Kind: KindProperty, Children: []NodeID{
			b.Str("k"),
			b.Op(OpDefault, b.Ref("b"), b.Call("f")),
		}}),
	}})
	pat := b.Add(Node{Kind: KindPattern, Flags: FlagArrayPattern, Children: []NodeID{
		b.Ref("a"), NoNode, inner, b.Op(OpSpread, b.Ref("c")),
	}})
	tree := b.Finish(b.Program(b.Stmt(KindVarDecl, b.Decl(pat, b.Ref("arr")))))

	assert.Equal(t, []string{"a", "b", "c"}, BoundNames(tree, pat))
}

func TestLineIndex(t *testing.T) {
	idx := NewLineIndex([]byte("ab\ncd\r\nef\rg"))
	tests := []struct {
		off, line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{7, 3, 1},
		{10, 4, 1},
		{100, 4, 2},
	}
	for _, tc := range tests {
		line, col := idx.Position(tc.off)
		assert.Equal(t, tc.line, line, "offset %d", tc.off)
		assert.Equal(t, tc.col, col, "offset %d", tc.off)
	}
	assert.Equal(t, 4, idx.LineCount())
	assert.Equal(t, 3, idx.LineStart(2))
}

func TestComments(t *testing.T) {
	src := []byte("var s = \"// no\"; // yes\n/* block */ x = '/*';")
	literals := []Span{{Pos: 8, End: 15}, {Pos: 40, End: 44}}
	got := Comments(src, literals)
	require.Len(t, got, 2)
	assert.Equal(t, "// yes", string(src[got[0].Pos:got[0].End]))
	assert.Equal(t, "/* block */", string(src[got[1].Pos:got[1].End]))
}

func TestComments_Unterminated(t *testing.T) {
	src := []byte("x /* open")
	got := Comments(src, nil)
	require.Len(t, got, 1)
	assert.Equal(t, Span{Pos: 2, End: len(src)}, got[0])
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ForIn", KindForIn.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
	assert.Equal(t, "&&", OpAnd.String())
	assert.True(t, KindWith.IsStatement())
	assert.False(t, KindRef.IsStatement())
}
