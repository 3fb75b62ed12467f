// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/lint"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentCodeAction handles the textDocument/codeAction request. Every
// jscheck diagnostic except a parse error can be suppressed with a nolint
// comment on its line.
func (s *Server) textDocumentCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	if len(params.Context.Only) > 0 && !slicesContains(params.Context.Only, protocol.CodeActionKindQuickFix) {
		return nil, nil
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	s.ensureAnalysis(doc)
	if doc.tree == nil {
		return nil, nil
	}

	var actions []protocol.CodeAction
	for _, diag := range params.Context.Diagnostics {
		if diag.Source == nil || *diag.Source != diagnosticSource || diag.Code == nil {
			continue
		}
		analyzer, ok := diag.Code.Value.(string)
		if !ok || analyzer == "" || analyzer == lint.KindParseError {
			continue
		}
		edit := nolintEdit(doc, int(diag.Range.Start.Line), analyzer)
		kind := protocol.CodeActionKindQuickFix
		actions = append(actions, protocol.CodeAction{
			Title:       fmt.Sprintf("Suppress with // nolint:%s", analyzer),
			Kind:        &kind,
			Diagnostics: []protocol.Diagnostic{diag},
			Edit: &protocol.WorkspaceEdit{
				Changes: map[string][]protocol.TextEdit{params.TextDocument.URI: {edit}},
			},
		})
	}
	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// nolintEdit returns the edit adding analyzer to the nolint directive of
// line (0-based). An existing directive is extended. Otherwise a line
// comment is appended, or a block comment is inserted before a comment
// already ending the line. The caller must hold doc.mu.
func nolintEdit(doc *Document, line int, analyzer string) protocol.TextEdit {
	src := doc.tree.Source
	var existing []jsast.Span
	for _, c := range jsast.Comments(src, jsast.LiteralSpans(doc.tree)) {
		if l, _ := doc.tree.Lines().Position(c.Pos); l == line+1 {
			existing = append(existing, c)
		}
	}
	for _, c := range existing {
		text := string(src[c.Pos:c.End])
		body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(text, "//"), "/*"), "*/"))
		if !strings.HasPrefix(body, "nolint:") {
			continue
		}
		// Extend the list before a closing "*/" or trailing blanks.
		trimmed := strings.TrimSuffix(text, "*/")
		end := c.Pos + len(strings.TrimRight(trimmed, " \t\r"))
		return insertAt(doc, end, ","+analyzer)
	}
	for _, c := range existing {
		if strings.HasPrefix(string(src[c.Pos:c.End]), "//") {
			return insertAt(doc, c.Pos, "/* nolint:"+analyzer+" */ ")
		}
	}
	end := doc.lines.offset(protocol.Position{Line: safeUint(line), Character: protocol.UInteger(len(src))})
	for end > 0 && end <= len(src) && (src[end-1] == '\r' || src[end-1] == ' ' || src[end-1] == '\t') {
		end--
	}
	return insertAt(doc, end, " // nolint:"+analyzer)
}

func insertAt(doc *Document, offset int, text string) protocol.TextEdit {
	p := doc.lines.position(offset)
	return protocol.TextEdit{Range: protocol.Range{Start: p, End: p}, NewText: text}
}

func slicesContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
