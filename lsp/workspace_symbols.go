// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// workspaceSymbol handles the workspace/symbol request. It returns the
// globals defined across the workspace whose names contain the query,
// ignoring case. An empty query returns every global.
func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.ensureWorkspaceIndex()

	query := strings.ToLower(params.Query)
	globals := s.workspace.Select(func(g analysis.Global) bool {
		return matchesQuery(g.Name, query)
	})
	results := make([]protocol.SymbolInformation, 0, len(globals))
	for _, g := range globals {
		si := protocol.SymbolInformation{
			Name:     g.Name,
			Kind:     mapDeclKind(g.Kind),
			Location: s.globalLocation(g),
		}
		if s.rootPath != "" {
			if rel, ok := strings.CutPrefix(g.File, strings.TrimSuffix(s.rootPath, "/")+"/"); ok {
				si.ContainerName = &rel
			}
		}
		results = append(results, si)
	}
	return results, nil
}

// matchesQuery performs case-insensitive substring matching. An empty query
// matches everything.
func matchesQuery(name, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), lowerQuery)
}
