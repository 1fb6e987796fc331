package lsp

import (
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.lsp.dev/uri"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

var ErrDocumentNotOpen = errors.New("document not open")

// DocumentManager holds the current snapshot of every open host document.
type DocumentManager struct {
	fs afero.Fs

	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*document.Snapshot
}

func NewDocumentManager(fs afero.Fs) *DocumentManager {
	return &DocumentManager{
		fs:   fs,
		docs: make(map[protocol.DocumentURI]*document.Snapshot),
	}
}

func (m *DocumentManager) Open(item protocol.TextDocumentItem) *document.Snapshot {
	doc := document.NewSnapshot(string(item.URI), item.Version, item.Text)
	m.mu.Lock()
	m.docs[item.URI] = doc
	m.mu.Unlock()
	return doc
}

// Change applies edits in order and stores the result under the new
// version.
func (m *DocumentManager) Change(id protocol.VersionedTextDocumentIdentifier, changes []protocol.TextDocumentContentChangeEvent) (*document.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.docs[id.URI]
	if !ok {
		return nil, errors.Errorf("changing %s: %w", id.URI, ErrDocumentNotOpen)
	}
	doc := document.NewSnapshot(string(id.URI), id.Version, document.ApplyChanges(prev.Text(), changes))
	m.docs[id.URI] = doc
	return doc, nil
}

// Replace swaps the text of an open document, keeping its version.
func (m *DocumentManager) Replace(u protocol.DocumentURI, text string) (*document.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.docs[u]
	if !ok {
		return nil, errors.Errorf("replacing %s: %w", u, ErrDocumentNotOpen)
	}
	doc := document.NewSnapshot(string(u), prev.Version(), text)
	m.docs[u] = doc
	return doc, nil
}

func (m *DocumentManager) Close(u protocol.DocumentURI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, u)
}

// Get returns the open snapshot of u. A local file that is not open is read
// from disk as an unversioned snapshot.
func (m *DocumentManager) Get(u protocol.DocumentURI) (*document.Snapshot, bool) {
	m.mu.RLock()
	doc, ok := m.docs[u]
	m.mu.RUnlock()
	if ok {
		return doc, true
	}

	if m.fs == nil || !strings.HasPrefix(string(u), "file:") {
		return nil, false
	}
	content, err := afero.ReadFile(m.fs, uri.URI(u).Filename())
	if err != nil {
		return nil, false
	}
	return document.NewSnapshot(string(u), document.Unversioned, string(content)), true
}
