// Copyright © 2024 The ELPS authors

package lsp

import (
	"github.com/luthersystems/jscheck/analysis"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol
// request. Declarations nest under the function or class that owns their
// scope.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()

	s.ensureAnalysis(doc)
	if doc.scopes == nil {
		return nil, nil
	}
	return scopeSymbols(doc, doc.scopes.Root), nil
}

func scopeSymbols(doc *Document, scope *analysis.Scope) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}
	for _, d := range scope.Declarations() {
		if d.Kind.IsSelfName() {
			continue
		}
		sym := protocol.DocumentSymbol{
			Name:           d.Name,
			Detail:         strPtr(d.Kind.String()),
			Kind:           mapDeclKind(d.Kind),
			Range:          doc.lines.rangeOf(doc.tree.Span(d.Site)),
			SelectionRange: doc.lines.rangeOf(doc.tree.Span(d.Node)),
		}
		if d.Kind == analysis.DeclFunction || d.Kind == analysis.DeclClass {
			if inner, ok := doc.scopes.Created.Get(d.Site); ok {
				sym.Children = scopeSymbols(doc, inner)
			}
		}
		symbols = append(symbols, sym)
	}
	// Declarations in nested blocks belong to the enclosing entry.
	for _, child := range scope.Children {
		if child.IsDeclarationContainer() {
			continue
		}
		symbols = append(symbols, scopeSymbols(doc, child)...)
	}
	return symbols
}

// mapDeclKind converts a declaration kind to an LSP SymbolKind.
func mapDeclKind(kind analysis.DeclKind) protocol.SymbolKind {
	switch kind {
	case analysis.DeclFunction, analysis.DeclFunctionName:
		return protocol.SymbolKindFunction
	case analysis.DeclClass, analysis.DeclClassName:
		return protocol.SymbolKindClass
	case analysis.DeclConst:
		return protocol.SymbolKindConstant
	default:
		return protocol.SymbolKindVariable
	}
}
