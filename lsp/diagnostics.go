// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"os"
	"time"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/lint"
	"github.com/luthersystems/jscheck/parser"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const defaultDebounce = 300 * time.Millisecond

// diagnosticSource is the source name of every published diagnostic.
const diagnosticSource = "jscheck"

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		content,
	)

	// Debounce: delay analysis to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(s.debounceDelay, func() {
		defer func() { _ = recover() }() // don't crash the server on analysis panic
		if d := s.docs.Get(doc.URI); d != nil {
			s.analyzeAndPublish(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.cancelDebounce(params.TextDocument.URI)
	if doc := s.docs.Get(params.TextDocument.URI); doc != nil {
		s.analyzeAndPublish(doc)
	}
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(params.TextDocument.URI)
	s.reindexFromDisk(uriToPath(params.TextDocument.URI))
	return nil
}

// reindexFromDisk replaces the workspace entry of a closed document with
// the saved file, or drops it when the file cannot be read or parsed.
func (s *Server) reindexFromDisk(path string) {
	src, err := os.ReadFile(path) //nolint:gosec // path names a document the client opened
	if err != nil {
		s.workspace.Remove(path)
		return
	}
	tree, err := parser.Parse(path, src)
	if err != nil {
		s.workspace.Remove(path)
		return
	}
	s.workspace.Update(path, analysis.Analyze(tree, s.linter.Config))
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// analyzeAndPublish lints a document and publishes the resulting
// diagnostics to the client.
func (s *Server) analyzeAndPublish(doc *Document) {
	diags := s.lintDocument(doc)
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: diags,
	})
}

// lintDocument runs the linter on the current content of doc.
func (s *Server) lintDocument(doc *Document) []protocol.Diagnostic {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	ctx := context.Background()
	env := s.envFor(doc.URI)
	var (
		lintDiags []lint.Diagnostic
		err       error
	)
	if doc.tree != nil {
		lintDiags, err = s.linter.LintTree(ctx, doc.tree, env)
	} else {
		lintDiags, err = s.linter.Lint(ctx, uriToPath(doc.URI), []byte(doc.Content), env)
	}
	if err != nil {
		log.Errorf("%s: %v", doc.URI, err)
		return []protocol.Diagnostic{}
	}
	if doc.tree != nil {
		s.ensureAnalysis(doc)
		s.workspace.Update(uriToPath(doc.URI), doc.scopes)
	}
	diags := make([]protocol.Diagnostic, 0, len(lintDiags))
	for _, d := range lintDiags {
		diags = append(diags, convertLintDiagnostic(doc.URI, doc.lines, d))
	}
	return diags
}

// convertLintDiagnostic converts a lint.Diagnostic found in the document at
// uri to an LSP Diagnostic.
func convertLintDiagnostic(uri string, lines *lineMapper, d lint.Diagnostic) protocol.Diagnostic {
	start := lines.position(d.Pos.Offset)
	end := lines.position(d.EndPos.Offset)
	if d.EndPos.Offset < d.Pos.Offset {
		end = start
	}
	sev := mapLintSeverity(d.Severity)
	diag := protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &sev,
		Source:   strPtr(diagnosticSource),
		Code:     &protocol.IntegerOrString{Value: d.Analyzer},
		Message:  d.Message,
	}
	for _, n := range d.Notes {
		diag.Message += "\n" + n
	}
	for _, rel := range d.Related {
		diag.RelatedInformation = append(diag.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{
				URI:   uri,
				Range: protocol.Range{Start: lines.position(rel.Pos.Offset), End: lines.position(rel.EndPos.Offset)},
			},
			Message: rel.Message,
		})
	}
	return diag
}

// mapLintSeverity converts a lint.Severity to a protocol.DiagnosticSeverity.
func mapLintSeverity(sev lint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case lint.SeverityFatal, lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case lint.SeverityLint:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func strPtr(s string) *string {
	return &s
}
