// Copyright © 2024 The ELPS authors

package lsp

import (
	"sort"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/lint"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentCompletion handles the textDocument/completion request. It
// offers the names visible at the cursor, innermost scope first, then the
// names the document's environment declares.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	env := s.envFor(doc.URI)

	doc.mu.Lock()
	defer doc.mu.Unlock()
	s.ensureAnalysis(doc)

	offset := doc.lines.offset(params.Position)
	prefix, member := wordBefore(doc.Content, offset)
	if member {
		// Property names are not tracked.
		return []protocol.CompletionItem{}, nil
	}

	c := newCompletions(prefix)
	if doc.scopes != nil {
		for scope := scopeAtOffset(doc, offset); scope != nil; scope = scope.Parent {
			for _, d := range scope.Declarations() {
				c.add(d.Name, completionKind(d.Kind), d.Kind.String())
			}
		}
	}
	c.addEnv(env)
	return c.items, nil
}

type completions struct {
	prefix string
	seen   map[string]bool
	items  []protocol.CompletionItem
}

func newCompletions(prefix string) *completions {
	return &completions{prefix: prefix, seen: make(map[string]bool), items: []protocol.CompletionItem{}}
}

func (c *completions) add(name string, kind protocol.CompletionItemKind, detail string) {
	if c.seen[name] || len(name) < len(c.prefix) || name[:len(c.prefix)] != c.prefix {
		return
	}
	c.seen[name] = true
	c.items = append(c.items, protocol.CompletionItem{
		Label:  name,
		Kind:   &kind,
		Detail: strPtr(detail),
	})
}

// addEnv adds the environment's names in sorted order after the scope
// chain.
func (c *completions) addEnv(env lint.Env) {
	groups := []struct {
		names  []string
		detail string
	}{
		{env.Provides, "provided"},
		{env.Requires, "required"},
		{env.Overrides, "override"},
		{env.Builtins, "builtin"},
	}
	for _, g := range groups {
		names := append([]string(nil), g.names...)
		sort.Strings(names)
		for _, name := range names {
			c.add(name, protocol.CompletionItemKindVariable, g.detail)
		}
	}
}

// scopeAtOffset returns the innermost scope whose introducing node spans
// offset. The caller must hold doc.mu.
func scopeAtOffset(doc *Document, offset int) *analysis.Scope {
	best := doc.scopes.Root
	for _, scope := range doc.scopes.Scopes {
		if !scope.Node.Valid() || scope.Depth <= best.Depth {
			continue
		}
		span := doc.tree.Span(scope.Node)
		if span.Pos <= offset && offset <= span.End && best.Encloses(scope) {
			best = scope
		}
	}
	return best
}

// wordBefore returns the identifier characters ending at offset and
// whether they follow a '.'.
func wordBefore(content string, offset int) (string, bool) {
	if offset > len(content) {
		offset = len(content)
	}
	start := offset
	for start > 0 && isIdentChar(content[start-1]) {
		start--
	}
	return content[start:offset], start > 0 && content[start-1] == '.'
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func completionKind(kind analysis.DeclKind) protocol.CompletionItemKind {
	switch kind {
	case analysis.DeclFunction, analysis.DeclFunctionName:
		return protocol.CompletionItemKindFunction
	case analysis.DeclClass, analysis.DeclClassName:
		return protocol.CompletionItemKindClass
	case analysis.DeclConst:
		return protocol.CompletionItemKindConstant
	default:
		return protocol.CompletionItemKindVariable
	}
}
