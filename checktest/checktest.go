// Copyright © 2024 The ELPS authors

// Package checktest provides helpers shared by the analysis, lint and
// server tests.
package checktest

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/flow"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/parser"
)

// Filename is the name given to sources parsed by the helpers.
const Filename = "test.js"

// Parse parses src and fails the test on a syntax error.
func Parse(t testing.TB, src string) *jsast.Tree {
	t.Helper()
	tree, err := parser.Parse(Filename, []byte(src))
	require.NoError(t, err, "parsing %q", src)
	return tree
}

// Analyze parses src and builds its scope tree. A nil cfg uses
// analysis.DefaultConfig.
func Analyze(t testing.TB, src string, cfg *analysis.Config) *analysis.Result {
	t.Helper()
	return analysis.Analyze(Parse(t, src), cfg)
}

// Flow parses src and runs scope and flow analysis.
func Flow(t testing.TB, src string, cfg *analysis.Config) *flow.Result {
	t.Helper()
	return flow.Analyze(Analyze(t, src, cfg))
}

// Offset returns the byte offset of the nth occurrence of text in src.
func Offset(t testing.TB, src, text string, nth int) int {
	t.Helper()
	off := 0
	for {
		i := strings.Index(src[off:], text)
		require.GreaterOrEqual(t, i, 0, "%q not found in source", text)
		if nth == 0 {
			return off + i
		}
		nth--
		off += i + len(text)
	}
}

// Ref returns the nth identifier reference named name in source order.
func Ref(t testing.TB, tree *jsast.Tree, name string, nth int) jsast.NodeID {
	t.Helper()
	found := jsast.NoNode
	jsast.Inspect(tree, tree.Root, func(id jsast.NodeID) bool {
		if found.Valid() {
			return false
		}
		n := tree.Node(id)
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

// BenchmarkAnalyze returns a benchmark that parses and analyzes the file at
// path once per iteration.
func BenchmarkAnalyze(path string, cfg *analysis.Config) func(*testing.B) {
	return func(b *testing.B) {
		buf, err := os.ReadFile(path) //#nosec G304
		if err != nil {
			b.Fatalf("Unable to read source file %v: %v", path, err)
		}
		b.SetBytes(int64(len(buf)))
		for i := 0; i < b.N; i++ {
			tree, err := parser.Parse(path, buf)
			if err != nil {
				b.Fatalf("Parse failure: %v", err)
			}
			flow.Analyze(analysis.Analyze(tree, cfg))
		}
	}
}
