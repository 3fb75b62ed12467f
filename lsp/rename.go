// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentPrepareRename validates that the identifier under the cursor
// is renameable and returns its range.
func (s *Server) textDocumentPrepareRename(_ *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil // no document
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()

	tg, ok := s.targetAt(doc, params.Position)
	// Globals are shared with other files and are not renamed.
	// prepareRename returns null, not an error, for names that cannot be renamed.
	if !ok || tg.sym == nil {
		return nil, nil
	}
	return &protocol.RangeWithPlaceholder{
		Range:       doc.lines.rangeOf(doc.tree.Span(tg.node)),
		Placeholder: tg.name,
	}, nil
}

// textDocumentRename handles the textDocument/rename request.
func (s *Server) textDocumentRename(_ *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, fmt.Errorf("document not found")
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()

	tg, ok := s.targetAt(doc, params.Position)
	if !ok {
		return nil, fmt.Errorf("no identifier at position")
	}
	if tg.sym == nil {
		return nil, fmt.Errorf("cannot rename global %s", tg.name)
	}
	if !isIdentifier(params.NewName) {
		return nil, fmt.Errorf("%q is not a valid identifier", params.NewName)
	}

	uri := params.TextDocument.URI
	var edits []protocol.TextEdit
	for _, id := range occurrences(doc, tg, true) {
		edits = append(edits, protocol.TextEdit{
			Range:   doc.lines.rangeOf(doc.tree.Span(id)),
			NewText: params.NewName,
		})
	}
	return &protocol.WorkspaceEdit{Changes: map[protocol.DocumentUri][]protocol.TextEdit{uri: edits}}, nil
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
