// Copyright © 2024 The ELPS authors

package lsp

import (
	"os"
	"sort"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// target is the identifier under the cursor and the symbol it names. sym
// is nil for a global with no declaration in the document.
type target struct {
	node jsast.NodeID
	name string
	sym  *analysis.Symbol
}

// targetAt resolves the identifier at pos. The caller must hold doc.mu.
func (s *Server) targetAt(doc *Document, pos protocol.Position) (target, bool) {
	s.ensureAnalysis(doc)
	if doc.scopes == nil {
		return target{}, false
	}
	id := refAt(doc.tree, doc.lines.offset(pos))
	if !id.Valid() {
		return target{}, false
	}
	tg := target{node: id, name: doc.tree.Node(id).Name}
	if d, ok := doc.scopes.DeclAt.Get(id); ok {
		tg.sym = d.Scope.LookupLocal(d.Name)
	} else if u, ok := doc.scopes.UseAt.Get(id); ok {
		tg.sym = u.Symbol
	}
	return tg, true
}

// occurrences returns every identifier node naming the same variable as
// tg, in source order.
func occurrences(doc *Document, tg target, includeDecls bool) []jsast.NodeID {
	seen := make(map[jsast.NodeID]bool)
	var ids []jsast.NodeID
	add := func(id jsast.NodeID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if tg.sym != nil && includeDecls {
		for _, d := range tg.sym.Decls {
			add(d.Node)
		}
	}
	for _, u := range doc.scopes.Uses {
		switch {
		case tg.sym != nil && u.Symbol == tg.sym:
		case tg.sym == nil && u.Symbol == nil && u.Name == tg.name:
		default:
			continue
		}
		if _, isDecl := doc.scopes.DeclAt.Get(u.Node); isDecl && !includeDecls {
			continue
		}
		add(u.Node)
	}
	sort.Slice(ids, func(i, j int) bool { return doc.tree.Node(ids[i]).Pos < doc.tree.Node(ids[j]).Pos })
	return ids
}

// textDocumentDefinition handles the textDocument/definition request. A
// name with no declaration in the document resolves to the files in the
// workspace that define it.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureWorkspaceIndex()
	doc.mu.Lock()
	tg, ok := s.targetAt(doc, params.Position)
	if !ok {
		doc.mu.Unlock()
		return nil, nil
	}
	var locs []protocol.Location
	if tg.sym != nil {
		for _, d := range tg.sym.Decls {
			locs = append(locs, protocol.Location{
				URI:   params.TextDocument.URI,
				Range: doc.lines.rangeOf(doc.tree.Span(d.Node)),
			})
		}
	}
	doc.mu.Unlock()

	if tg.sym == nil {
		for _, g := range s.workspace.Lookup(tg.name) {
			locs = append(locs, s.globalLocation(g))
		}
	}
	switch len(locs) {
	case 0:
		return nil, nil
	case 1:
		return locs[0], nil
	}
	return locs, nil
}

// globalLocation returns the location of a workspace global. Open
// documents are preferred over the file on disk. No document lock may be
// held by the caller.
func (s *Server) globalLocation(g analysis.Global) protocol.Location {
	uri := pathToURI(g.File)
	if doc := s.docs.Get(uri); doc != nil {
		doc.mu.Lock()
		defer doc.mu.Unlock()
		return protocol.Location{URI: uri, Range: doc.lines.rangeOf(g.Span)}
	}
	if src, err := os.ReadFile(g.File); err == nil { //nolint:gosec // file is part of the indexed workspace
		return protocol.Location{URI: uri, Range: newLineMapper(src).rangeOf(g.Span)}
	}
	start := protocol.Position{Line: safeUint(g.Line - 1), Character: safeUint(g.Col - 1)}
	end := start
	end.Character += safeUint(g.Span.End - g.Span.Pos)
	return protocol.Location{URI: uri, Range: protocol.Range{Start: start, End: end}}
}
