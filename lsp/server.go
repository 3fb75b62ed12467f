// Copyright © 2024 The ELPS authors

// Package lsp implements a Language Server Protocol server for JavaScript
// checked by jscheck. It publishes diagnostics, offers nolint quick fixes
// and answers hover, completion, definition, references, symbol and rename
// requests from the scope analysis and the workspace index.
package lsp

import (
	"os"
	"sync"
	"time"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/lint"
	"github.com/luthersystems/jscheck/manifest"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const serverName = "jscheck-lsp"

var log = commonlog.GetLogger("jscheck.lsp")

// Server is the jscheck language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	docs     *DocumentStore
	rootURI  string
	rootPath string

	// Linter instance shared across diagnostics runs.
	linter *lint.Linter

	// env applies to every document; manifest adds per-file entries.
	env      lint.Env
	manifest *manifest.Manifest

	// workspace indexes the globals defined by files under the root. It
	// is built on first use and updated as documents are analyzed.
	workspace *analysis.Workspace
	indexOnce sync.Once

	// Debouncer for didChange notifications.
	debounceMu    sync.Mutex
	debounce      map[string]*time.Timer
	debounceDelay time.Duration

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithLinter replaces the default linter.
func WithLinter(l *lint.Linter) Option {
	return func(s *Server) { s.linter = l }
}

// WithEnv sets the environment shared by every document.
func WithEnv(env lint.Env) Option {
	return func(s *Server) { s.env = env }
}

// WithManifest supplies per-file provides, requires and overrides.
func WithManifest(m *manifest.Manifest) Option {
	return func(s *Server) { s.manifest = m }
}

// WithDebounce sets how long the server waits after an edit before
// re-analyzing the document.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounceDelay = d }
}

// New creates a new language server.
func New(opts ...Option) *Server {
	s := &Server{
		docs:          NewDocumentStore(),
		workspace:     analysis.NewWorkspace(),
		linter:        lint.New(),
		debounce:      make(map[string]*time.Timer),
		debounceDelay: defaultDebounce,
		exitFn:        os.Exit,
	}
	for _, o := range opts {
		o(s)
	}

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentRename:         s.textDocumentRename,
		TextDocumentPrepareRename:  s.textDocumentPrepareRename,
		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentCodeAction:     s.textDocumentCodeAction,

		WorkspaceSymbol: s.workspaceSymbol,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = uriToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = pathToURI(s.rootPath)
	}
	log.Infof("initialize: root %q", s.rootPath)

	capabilities := s.handler.CreateServerCapabilities()

	// Override text document sync to full.
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}

	// Enable prepare rename.
	capabilities.RenameProvider = &protocol.RenameOptions{
		PrepareProvider: boolPtr(true),
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	// Cancel any pending debounce timers.
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()

	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// envFor returns the environment of the document at uri.
func (s *Server) envFor(uri string) lint.Env {
	if s.manifest == nil {
		return s.env
	}
	return s.env.Merge(s.manifest.EnvFor(uriToPath(uri)))
}

// ensureWorkspaceIndex builds the workspace index once. Open documents
// then replace the entries read from disk. It must not be called with a
// document lock held.
func (s *Server) ensureWorkspaceIndex() {
	s.indexOnce.Do(func() {
		if s.rootPath != "" {
			if err := s.workspace.Scan(s.rootPath, s.linter.Config); err != nil {
				log.Warningf("workspace scan: %v", err)
			}
		}
		for _, doc := range s.docs.All() {
			doc.mu.Lock()
			s.ensureAnalysis(doc)
			if doc.scopes != nil {
				s.workspace.Update(uriToPath(doc.URI), doc.scopes)
			}
			doc.mu.Unlock()
		}
	})
}

// ensureAnalysis ensures the document has a current scope analysis. The
// caller must hold doc.mu.
func (s *Server) ensureAnalysis(doc *Document) {
	if doc.scopes != nil {
		return
	}
	doc.analyze(s.linter.Config)
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
