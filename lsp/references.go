// Copyright © 2024 The ELPS authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentReferences handles the textDocument/references request.
// Globals without a declaration match every free use of the same name.
func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()

	tg, ok := s.targetAt(doc, params.Position)
	if !ok {
		return nil, nil
	}
	var locs []protocol.Location
	for _, id := range occurrences(doc, tg, params.Context.IncludeDeclaration) {
		locs = append(locs, protocol.Location{
			URI:   params.TextDocument.URI,
			Range: doc.lines.rangeOf(doc.tree.Span(id)),
		})
	}
	return locs, nil
}
