// Copyright © 2024 The ELPS authors

package lsp

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/luthersystems/jscheck/lint"
	"github.com/luthersystems/jscheck/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	testURI = "file:///work/test.js"
	testSrc = "var x = 1;\nfunction f(a) {\n  return a + x;\n}\n"
)

func testServer(opts ...Option) *Server {
	return New(append([]Option{WithDebounce(10 * time.Millisecond)}, opts...)...)
}

// openDoc opens a document in the test server and returns it.
func openDoc(s *Server, uri, content string) *Document {
	return s.docs.Open(uri, 1, content)
}

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// published collects publishDiagnostics notifications, which may arrive
// from debounce timers.
type published struct {
	mu     sync.Mutex
	params []*protocol.PublishDiagnosticsParams
}

func (p *published) last() *protocol.PublishDiagnosticsParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.params) == 0 {
		return nil
	}
	return p.params[len(p.params)-1]
}

func (p *published) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.params)
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *published) {
	p := &published{}
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				p.mu.Lock()
				p.params = append(p.params, params.(*protocol.PublishDiagnosticsParams))
				p.mu.Unlock()
			}
		},
	}
	return ctx, p
}

func didOpen(t *testing.T, s *Server, ctx *glsp.Context, content string) {
	t.Helper()
	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, LanguageID: "javascript", Version: 1, Text: content},
	})
	require.NoError(t, err)
}

func codes(diags []protocol.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Code.Value.(string))
	}
	return out
}

func pos(line, char protocol.UInteger) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func docPosition(p protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     p,
	}
}

func TestLineMapper(t *testing.T) {
	m := newLineMapper([]byte("x😀y\n€b\r\nc"))
	assert.Equal(t, pos(0, 0), m.position(0))
	assert.Equal(t, pos(0, 3), m.position(5))
	assert.Equal(t, pos(1, 1), m.position(10))
	assert.Equal(t, pos(2, 0), m.position(13))
	assert.Equal(t, pos(2, 1), m.position(99))

	assert.Equal(t, 5, m.offset(pos(0, 3)))
	assert.Equal(t, 10, m.offset(pos(1, 1)))
	assert.Equal(t, 6, m.offset(pos(0, 99)))
	assert.Equal(t, 14, m.offset(pos(7, 0)))
}

func TestURIConversion(t *testing.T) {
	assert.Equal(t, "/work/a.js", uriToPath("file:///work/a.js"))
	assert.Equal(t, "untitled:1", uriToPath("untitled:1"))
	assert.Equal(t, "file:///work/a.js", pathToURI("/work/a.js"))
}

func TestInitialize(t *testing.T) {
	s := testServer()
	root := "file:///work"
	res, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	init, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, serverName, init.ServerInfo.Name)
	assert.NotNil(t, init.Capabilities.HoverProvider)
	assert.NotNil(t, init.Capabilities.RenameProvider)
	assert.Equal(t, "/work", s.rootPath)
}

func TestDidOpen_PublishesDiagnostics(t *testing.T) {
	s := testServer()
	ctx, pub := capturingContext()
	didOpen(t, s, ctx, "x = 1;\n")

	p := pub.last()
	require.NotNil(t, p)
	assert.Equal(t, testURI, p.URI)
	require.Equal(t, []string{"invalid-assignment"}, codes(p.Diagnostics))
	d := p.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, protocol.Range{Start: pos(0, 0), End: pos(0, 1)}, d.Range)
	assert.Equal(t, "jscheck", *d.Source)
}

func TestDidOpen_ParseError(t *testing.T) {
	s := testServer()
	ctx, pub := capturingContext()
	didOpen(t, s, ctx, "var = ;\n")

	p := pub.last()
	require.NotNil(t, p)
	require.Equal(t, []string{lint.KindParseError}, codes(p.Diagnostics))
	assert.Equal(t, protocol.DiagnosticSeverityError, *p.Diagnostics[0].Severity)
}

func TestDidOpen_RelatedInformation(t *testing.T) {
	s := testServer()
	ctx, pub := capturingContext()
	didOpen(t, s, ctx, "function f(x) {\n  var x;\n}\n")

	p := pub.last()
	require.NotNil(t, p)
	var found bool
	for _, d := range p.Diagnostics {
		if d.Code == nil || d.Code.Value != "redefinition" {
			continue
		}
		found = true
		assert.Equal(t, pos(1, 6), d.Range.Start)
		require.Len(t, d.RelatedInformation, 1)
		rel := d.RelatedInformation[0]
		assert.Equal(t, testURI, rel.Location.URI)
		assert.Equal(t, protocol.Range{Start: pos(0, 11), End: pos(0, 12)}, rel.Location.Range)
		assert.Equal(t, "previous declaration", rel.Message)
	}
	assert.True(t, found, "codes: %v", codes(p.Diagnostics))
}

func TestDiagnostics_Env(t *testing.T) {
	m, err := manifest.Parse([]byte("files:\n  /work/test.js:\n    provides: [x]\n"))
	require.NoError(t, err)
	s := testServer(WithManifest(m), WithEnv(lint.Env{Builtins: []string{"console"}}))
	ctx, pub := capturingContext()
	didOpen(t, s, ctx, "x = 1;\nconsole.log(x);\n")

	p := pub.last()
	require.NotNil(t, p)
	assert.Empty(t, p.Diagnostics)
}

func TestDidChange_Debounced(t *testing.T) {
	s := testServer()
	ctx, pub := capturingContext()
	didOpen(t, s, ctx, "var a = 1;\n")
	require.Equal(t, 1, pub.count())
	assert.Empty(t, pub.last().Diagnostics)

	for i, text := range []string{"var a = 1;\ny", "var a = 1;\nyy = 2;\n"} {
		err := s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
				Version:                protocol.Integer(i + 2),
			},
			ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		p := pub.last()
		return pub.count() >= 2 && assert.ObjectsAreEqual([]string{"invalid-assignment"}, codes(p.Diagnostics))
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), s.docs.Get(testURI).Version)
}

func TestDidSaveAndClose(t *testing.T) {
	s := testServer()
	ctx, pub := capturingContext()
	didOpen(t, s, ctx, "y;\n")

	err := s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pub.count())
	assert.Contains(t, codes(pub.last().Diagnostics), "undeclared-global")

	err = s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Empty(t, pub.last().Diagnostics)
	assert.Nil(t, s.docs.Get(testURI))
}

func TestDefinition(t *testing.T) {
	s := testServer()
	openDoc(s, testURI, testSrc)

	res, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{TextDocumentPositionParams: docPosition(pos(2, 13))})
	require.NoError(t, err)
	loc, ok := res.(protocol.Location)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, testURI, loc.URI)
	assert.Equal(t, protocol.Range{Start: pos(0, 4), End: pos(0, 5)}, loc.Range)

	res, err = s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{TextDocumentPositionParams: docPosition(pos(1, 0))})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestDefinition_Workspace(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.js")
	require.NoError(t, os.WriteFile(lib, []byte("// lib\nvar Lib = {};\n"), 0o600))
	s := testServer()
	root := pathToURI(dir)
	_, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)

	appURI := pathToURI(filepath.Join(dir, "app.js"))
	openDoc(s, appURI, "Lib.start();\n")
	at := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: appURI},
		Position:     pos(0, 1),
	}

	res, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{TextDocumentPositionParams: at})
	require.NoError(t, err)
	loc, ok := res.(protocol.Location)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, pathToURI(lib), loc.URI)
	assert.Equal(t, protocol.Range{Start: pos(1, 4), End: pos(1, 7)}, loc.Range)

	h, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{TextDocumentPositionParams: at})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Contains(t, h.Contents.(protocol.MarkupContent).Value, "*Defined in lib.js:2:5*")

	// An open document shadows the file on disk.
	openDoc(s, pathToURI(lib), "var Other;\n\n\nvar Lib = {};\n")
	doc := s.docs.Get(pathToURI(lib))
	doc.mu.Lock()
	s.ensureAnalysis(doc)
	s.workspace.Update(lib, doc.scopes)
	doc.mu.Unlock()
	res, err = s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{TextDocumentPositionParams: at})
	require.NoError(t, err)
	loc, ok = res.(protocol.Location)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, pos(3, 4), loc.Range.Start)

	// Closing reindexes the saved file.
	require.NoError(t, s.textDocumentDidClose(mockContext(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(lib)},
	}))
	found := s.workspace.Lookup("Lib")
	require.Len(t, found, 1)
	assert.Equal(t, 2, found[0].Line)
}

func TestReferences(t *testing.T) {
	s := testServer()
	openDoc(s, testURI, testSrc)

	params := &protocol.ReferenceParams{TextDocumentPositionParams: docPosition(pos(0, 4))}
	params.Context.IncludeDeclaration = true
	locs, err := s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, pos(0, 4), locs[0].Range.Start)
	assert.Equal(t, pos(2, 13), locs[1].Range.Start)

	params.Context.IncludeDeclaration = false
	locs, err = s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, pos(2, 13), locs[0].Range.Start)
}

func TestReferences_Global(t *testing.T) {
	s := testServer()
	openDoc(s, testURI, "g();\nfunction h() { g(); }\n")

	params := &protocol.ReferenceParams{TextDocumentPositionParams: docPosition(pos(0, 0))}
	locs, err := s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, pos(1, 15), locs[1].Range.Start)
}

func TestHover(t *testing.T) {
	s := testServer(WithEnv(lint.Env{Builtins: []string{"Math"}}))
	openDoc(s, testURI, testSrc+"Math.max(q);\n")

	h, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{TextDocumentPositionParams: docPosition(pos(2, 9))})
	require.NoError(t, err)
	require.NotNil(t, h)
	content := h.Contents.(protocol.MarkupContent).Value
	assert.Contains(t, content, "**parameter** `a`")
	assert.Contains(t, content, "function scope")
	assert.Contains(t, content, "Declared at 2:12")

	h, err = s.textDocumentHover(mockContext(), &protocol.HoverParams{TextDocumentPositionParams: docPosition(pos(4, 1))})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Contains(t, h.Contents.(protocol.MarkupContent).Value, "builtin")

	h, err = s.textDocumentHover(mockContext(), &protocol.HoverParams{TextDocumentPositionParams: docPosition(pos(4, 9))})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Contains(t, h.Contents.(protocol.MarkupContent).Value, "undeclared")

	h, err = s.textDocumentHover(mockContext(), &protocol.HoverParams{TextDocumentPositionParams: docPosition(pos(3, 0))})
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestDocumentSymbol(t *testing.T) {
	s := testServer()
	openDoc(s, testURI, testSrc)

	res, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	syms, ok := res.([]protocol.DocumentSymbol)
	require.True(t, ok)
	require.Len(t, syms, 2)
	assert.Equal(t, "x", syms[0].Name)
	assert.Equal(t, protocol.SymbolKindVariable, syms[0].Kind)
	assert.Equal(t, "f", syms[1].Name)
	assert.Equal(t, protocol.SymbolKindFunction, syms[1].Kind)
	require.Len(t, syms[1].Children, 1)
	assert.Equal(t, "a", syms[1].Children[0].Name)
	assert.Equal(t, pos(1, 0), syms[1].Range.Start)
	assert.Equal(t, pos(1, 9), syms[1].SelectionRange.Start)
}

func TestRename(t *testing.T) {
	s := testServer()
	openDoc(s, testURI, testSrc+"z;\n")

	prep, err := s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{TextDocumentPositionParams: docPosition(pos(2, 13))})
	require.NoError(t, err)
	require.NotNil(t, prep)
	assert.Equal(t, "x", prep.(*protocol.RangeWithPlaceholder).Placeholder)

	edit, err := s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: docPosition(pos(2, 13)),
		NewName:                    "count",
	})
	require.NoError(t, err)
	edits := edit.Changes[testURI]
	require.Len(t, edits, 2)
	for _, e := range edits {
		assert.Equal(t, "count", e.NewText)
	}

	_, err = s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: docPosition(pos(2, 13)),
		NewName:                    "1x",
	})
	assert.Error(t, err)

	// Globals are not renameable.
	prep, err = s.textDocumentPrepareRename(mockContext(), &protocol.PrepareRenameParams{TextDocumentPositionParams: docPosition(pos(4, 0))})
	require.NoError(t, err)
	assert.Nil(t, prep)
	_, err = s.textDocumentRename(mockContext(), &protocol.RenameParams{
		TextDocumentPositionParams: docPosition(pos(4, 0)),
		NewName:                    "w",
	})
	assert.Error(t, err)
}

func TestShutdownExit(t *testing.T) {
	s := testServer()
	code := -1
	s.exitFn = func(c int) { code = c }
	require.NoError(t, s.shutdown(mockContext()))
	require.NoError(t, s.exit(mockContext()))
	assert.Equal(t, 0, code)
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, isIdentifier("_a$1"))
	assert.True(t, isIdentifier("é"))
	assert.False(t, isIdentifier(""))
	assert.False(t, isIdentifier("1a"))
	assert.False(t, isIdentifier("a-b"))
}
