// Copyright © 2024 The ELPS authors

package analysis

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/parser"
)

// Global is a name a file defines for other files: a program-scope
// declaration or an assignment to an undeclared name.
type Global struct {
	Name string
	File string
	Span jsast.Span

	// Line and Col are the 1-based position of Span.Pos. Col counts bytes.
	Line int
	Col  int

	// Kind is the declaration kind. Implicit globals, created by assigning
	// an undeclared name, report DeclVar.
	Kind     DeclKind
	Implicit bool
}

// FileGlobals returns the globals defined by the analyzed file in source
// order.
func FileGlobals(r *Result) []Global {
	t := r.Source
	lines := t.Lines()
	var globals []Global
	add := func(name string, id jsast.NodeID, kind DeclKind, implicit bool) {
		span := t.Span(id)
		line, col := lines.Position(span.Pos)
		globals = append(globals, Global{
			Name:     name,
			File:     t.File,
			Span:     span,
			Line:     line,
			Col:      col,
			Kind:     kind,
			Implicit: implicit,
		})
	}
	for _, d := range r.Root.Declarations() {
		if d.Kind.IsSelfName() {
			continue
		}
		add(d.Name, d.Node, d.Kind, false)
	}
	for _, u := range r.Free {
		if u.Assigned {
			add(u.Name, u.Node, DeclVar, true)
		}
	}
	sort.SliceStable(globals, func(i, j int) bool { return globals[i].Span.Pos < globals[j].Span.Pos })
	return globals
}

// Workspace indexes the globals defined by a set of files. It is safe for
// concurrent use.
type Workspace struct {
	mu    sync.RWMutex
	files map[string][]Global
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{files: make(map[string][]Global)}
}

// ScanWorkspace walks a directory tree, parsing every JavaScript file and
// indexing the globals it defines. Hidden directories and node_modules are
// skipped.
//
// Files that fail to parse or cannot be read are silently skipped.
func ScanWorkspace(root string, cfg *Config) (*Workspace, error) {
	w := NewWorkspace()
	if err := w.Scan(root, cfg); err != nil {
		return nil, err
	}
	return w, nil
}

// Scan indexes every JavaScript file under root, replacing the entries of
// files already indexed.
func (w *Workspace) Scan(root string, cfg *Config) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			if path != root && shouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".js", ".mjs", ".cjs":
		default:
			return nil
		}
		src, readErr := os.ReadFile(path) //nolint:gosec // indexes files under the workspace root
		if readErr != nil {
			return nil
		}
		tree, parseErr := parser.Parse(path, src)
		if parseErr != nil {
			log.Debugf("workspace: skipping %s: %v", path, parseErr)
			return nil
		}
		w.Update(path, Analyze(tree, cfg))
		return nil
	})
	if err != nil {
		return err
	}
	log.Debugf("workspace: indexed %d files under %s", w.Len(), root)
	return nil
}

// shouldSkipDir returns true for directories that should not be walked.
// It skips hidden directories (e.g. .git, .vscode) and node_modules,
// but not "." or ".." which represent the current/parent directory.
func shouldSkipDir(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	if len(name) > 0 && name[0] == '.' {
		return true
	}
	return name == "node_modules"
}

// Update replaces the globals indexed for file with those of r.
func (w *Workspace) Update(file string, r *Result) {
	globals := FileGlobals(r)
	for i := range globals {
		globals[i].File = file
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[file] = globals
}

// Remove drops file from the index.
func (w *Workspace) Remove(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, file)
}

// Len returns the number of indexed files.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.files)
}

// Lookup returns every global named name, ordered by file and position.
func (w *Workspace) Lookup(name string) []Global {
	return w.Select(func(g Global) bool { return g.Name == name })
}

// Select returns the globals for which match returns true, ordered by file
// and position.
func (w *Workspace) Select(match func(Global) bool) []Global {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var found []Global
	for _, globals := range w.files {
		for _, g := range globals {
			if match(g) {
				found = append(found, g)
			}
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].File != found[j].File {
			return found[i].File < found[j].File
		}
		return found[i].Span.Pos < found[j].Span.Pos
	})
	return found
}
