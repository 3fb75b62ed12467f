// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/lint"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentHover handles the textDocument/hover request.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureWorkspaceIndex()
	doc.mu.Lock()
	defer doc.mu.Unlock()

	tg, ok := s.targetAt(doc, params.Position)
	if !ok {
		return nil, nil
	}
	var content string
	if tg.sym != nil {
		content = buildHoverContent(doc, tg.sym)
	} else {
		content = globalHoverContent(tg.name, s.envFor(doc.URI), s.definedIn(doc, tg.name))
	}
	r := doc.lines.rangeOf(doc.tree.Span(tg.node))
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: content,
		},
		Range: &r,
	}, nil
}

// buildHoverContent builds Markdown hover text for a declared symbol.
func buildHoverContent(doc *Document, sym *analysis.Symbol) string {
	var sb strings.Builder
	first := sym.First()
	fmt.Fprintf(&sb, "**%s** `%s`", first.Kind, sym.Name)
	fmt.Fprintf(&sb, "\n\n%s scope", sym.Scope.Kind)
	for _, d := range sym.Decls {
		line, col := doc.tree.Lines().Position(doc.tree.Span(d.Node).Pos)
		fmt.Fprintf(&sb, "\n\n*Declared at %d:%d*", line, col)
	}
	return sb.String()
}

// globalHoverContent describes a name with no declaration in the document.
// definedIn lists the workspace positions that define it.
func globalHoverContent(name string, env lint.Env, definedIn []string) string {
	origin := "undeclared"
	switch {
	case contains(env.Provides, name):
		origin = "provided by this file"
	case contains(env.Requires, name):
		origin = "required from another file"
	case contains(env.Builtins, name):
		origin = "builtin"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**global** `%s`\n\n%s", name, origin)
	for _, pos := range definedIn {
		fmt.Fprintf(&sb, "\n\n*Defined in %s*", pos)
	}
	return sb.String()
}

// definedIn returns "file:line:col" for each workspace global named name
// outside doc. Files under the workspace root are shown relative to it.
func (s *Server) definedIn(doc *Document, name string) []string {
	self := uriToPath(doc.URI)
	var out []string
	for _, g := range s.workspace.Lookup(name) {
		if g.File == self {
			continue
		}
		file := g.File
		if s.rootPath != "" {
			if rel, err := filepath.Rel(s.rootPath, file); err == nil && !strings.HasPrefix(rel, "..") {
				file = rel
			}
		}
		out = append(out, fmt.Sprintf("%s:%d:%d", file, g.Line, g.Col))
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
