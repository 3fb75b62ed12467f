// Copyright © 2024 The ELPS authors

package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGlobals(t *testing.T) {
	src := "var a = 1;\nfunction f() { b = 2; var c; }\nvar g = function h() {};\nclass K {}\n"
	r := parseAndAnalyze(t, src, nil)
	globals := FileGlobals(r)

	var names []string
	for _, g := range globals {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"a", "f", "b", "g", "K"}, names)

	b := globals[2]
	assert.True(t, b.Implicit)
	assert.Equal(t, DeclVar, b.Kind)
	assert.Equal(t, 2, b.Line)
	assert.Equal(t, 16, b.Col)
	assert.Equal(t, "test.js", b.File)

	assert.Equal(t, DeclFunction, globals[1].Kind)
	assert.Equal(t, DeclClass, globals[4].Kind)
	assert.False(t, globals[0].Implicit)
}

func TestScanWorkspace(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) string {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	lib := write("lib.js", "var Lib = {};\n")
	util := write("src/util.mjs", "Lib.util = 1;\nfunction helper() {}\n")
	write("node_modules/dep/index.js", "var Dep = 1;\n")
	write(".cache/x.js", "var Hidden = 1;\n")
	write("broken.js", "var = ;\n")
	write("notes.txt", "var Text = 1;\n")

	w, err := ScanWorkspace(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())

	found := w.Lookup("Lib")
	require.Len(t, found, 1)
	assert.Equal(t, lib, found[0].File)
	assert.Equal(t, 1, found[0].Line)
	assert.Equal(t, 5, found[0].Col)

	found = w.Lookup("helper")
	require.Len(t, found, 1)
	assert.Equal(t, util, found[0].File)
	assert.Empty(t, w.Lookup("Dep"))
	assert.Empty(t, w.Lookup("Hidden"))
	assert.Empty(t, w.Lookup("Text"))
}

func TestWorkspace_UpdateRemove(t *testing.T) {
	w := NewWorkspace()
	w.Update("b.js", parseAndAnalyze(t, "var X = 1;\n", nil))
	w.Update("a.js", parseAndAnalyze(t, "X = 2;\n", nil))

	found := w.Lookup("X")
	require.Len(t, found, 2)
	assert.Equal(t, "a.js", found[0].File)
	assert.True(t, found[0].Implicit)
	assert.Equal(t, "b.js", found[1].File)

	w.Update("b.js", parseAndAnalyze(t, "var Y = 1;\n", nil))
	assert.Len(t, w.Lookup("X"), 1)
	w.Remove("a.js")
	assert.Empty(t, w.Lookup("X"))
	assert.Equal(t, 1, w.Len())
}

func TestWorkspace_Select(t *testing.T) {
	w := NewWorkspace()
	w.Update("b.js", parseAndAnalyze(t, "var Beta = 1;\nfunction alpha() {}\n", nil))
	w.Update("a.js", parseAndAnalyze(t, "var Gamma, Alphabet;\n", nil))

	found := w.Select(func(g Global) bool { return g.Name != "Beta" })
	require.Len(t, found, 3)
	assert.Equal(t, "Gamma", found[0].Name)
	assert.Equal(t, "Alphabet", found[1].Name)
	assert.Equal(t, "alpha", found[2].Name)
	assert.Equal(t, DeclFunction, found[2].Kind)

	assert.Empty(t, w.Select(func(Global) bool { return false }))
}

func TestShouldSkipDir(t *testing.T) {
	assert.True(t, shouldSkipDir(".git"))
	assert.True(t, shouldSkipDir("node_modules"))
	assert.False(t, shouldSkipDir("."))
	assert.False(t, shouldSkipDir("src"))
}
