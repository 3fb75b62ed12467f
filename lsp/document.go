// Copyright © 2024 The ELPS authors

package lsp

import (
	"sync"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/luthersystems/jscheck/parser"
)

// Document represents an open text document tracked by the LSP server.
// Fields below mu are guarded by it; analysis of one document is
// serialized behind the same lock.
type Document struct {
	mu       sync.Mutex
	URI      string
	Version  int32
	Content  string
	tree     *jsast.Tree
	scopes   *analysis.Result
	lines    *lineMapper
	parseErr error
}

// parse parses the document content and caches the tree. A document with a
// syntax error keeps no tree.
func (d *Document) parse() {
	src := []byte(d.Content)
	d.lines = newLineMapper(src)
	d.scopes = nil
	d.tree, d.parseErr = parser.Parse(uriToPath(d.URI), src)
	if d.parseErr != nil {
		log.Debugf("%s: %v", d.URI, d.parseErr)
	}
}

// analyze runs scope analysis on the cached tree.
func (d *Document) analyze(cfg *analysis.Config) {
	if d.tree == nil {
		return
	}
	d.scopes = analysis.Analyze(d.tree, cfg)
}

// DocumentStore manages open documents with thread-safe access.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open adds a document to the store and parses it.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
	doc.parse()
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Change updates a document's content (full sync) and re-parses it.
func (s *DocumentStore) Change(uri string, version int32, content string) *Document {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri}
		s.docs[uri] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.Version = version
	doc.Content = content
	doc.parse()
	doc.mu.Unlock()
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// All returns the open documents.
func (s *DocumentStore) All() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs
}
