package vdoc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/uri"
	"go.uber.org/multierr"

	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
)

var ErrUnknownHandle = errors.New("unknown virtual document")

// Keying selects how content-scheme entries are keyed.
type Keying string

const (
	// KeyByRequest gives every resolution its own entry, dropped after the
	// first read.
	KeyByRequest Keying = "request"
	// KeyByDocument shares one entry per host document and language. The
	// last write wins.
	KeyByDocument Keying = "document"
)

// Tooling is the language tooling a materialized document is announced to.
type Tooling interface {
	DidOpen(ctx context.Context, lang *embedded.Language, params *protocol.DidOpenTextDocumentParams) error
	DidChange(ctx context.Context, lang *embedded.Language, params *protocol.DidChangeTextDocumentParams) error
	DidClose(ctx context.Context, lang *embedded.Language, params *protocol.DidCloseTextDocumentParams) error
	Hover(ctx context.Context, lang *embedded.Language, params *protocol.HoverParams) (*protocol.Hover, error)
}

// Handle addresses materialized virtual content.
type Handle struct {
	URI      protocol.DocumentURI
	Language *embedded.Language
	Strategy embedded.Strategy
	HostURI  string
	Version  int32

	cleanup func(ctx context.Context) error
}

// Cleanup releases per-request resources. Tempfile handles outlive requests
// and are released by Registry.Close.
func (h *Handle) Cleanup(ctx context.Context) error {
	if h == nil || h.cleanup == nil {
		return nil
	}
	return h.cleanup(ctx)
}

type tempFile struct {
	handle  *Handle
	path    string
	content string
}

// Registry owns every materialized virtual document: the in-memory content
// entries and the one tempfile per language extension.
type Registry struct {
	fs      afero.Fs
	tempDir string
	tooling Tooling
	keying  Keying
	newID   func() string

	mu      sync.Mutex
	content map[string]string
	files   map[string]*tempFile
	created map[string]bool

	loadMu sync.Mutex
	loaded map[string]bool
}

type Option func(*Registry)

func WithTempDir(dir string) Option {
	return func(r *Registry) { r.tempDir = dir }
}

func WithKeying(k Keying) Option {
	return func(r *Registry) { r.keying = k }
}

func WithRequestIDs(next func() string) Option {
	return func(r *Registry) { r.newID = next }
}

func NewRegistry(fs afero.Fs, tooling Tooling, opts ...Option) *Registry {
	r := &Registry{
		fs:      fs,
		tempDir: filepath.Join(os.TempDir(), "embedls"),
		tooling: tooling,
		keying:  KeyByRequest,
		newID:   uuid.NewString,
		content: make(map[string]string),
		files:   make(map[string]*tempFile),
		created: make(map[string]bool),
		loaded:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TempPath is where the tempfile of a language lives.
func (r *Registry) TempPath(lang *embedded.Language) string {
	return filepath.Join(r.tempDir, "tmp", lang.Extension, "intellisense."+lang.Extension)
}

// Resolve materializes vdoc with its language's strategy and returns the
// handle to address it with.
func (r *Registry) Resolve(ctx context.Context, vdoc *VirtualDocument, hostURI string) (*Handle, error) {
	switch vdoc.Language.Strategy {
	case embedded.StrategyContent:
		return r.resolveContent(ctx, vdoc, hostURI), nil
	case embedded.StrategyTempFile:
		return r.resolveTempFile(ctx, vdoc, hostURI)
	}
	return nil, errors.Errorf("language %q has unknown strategy %q", vdoc.Language.ID(), vdoc.Language.Strategy)
}

func (r *Registry) resolveContent(ctx context.Context, vdoc *VirtualDocument, hostURI string) *Handle {
	lang := vdoc.Language
	ref := ContentRef{Language: lang.ID(), HostURI: hostURI, Extension: lang.Extension}
	if r.keying == KeyByRequest {
		ref.RequestID = r.newID()
	}

	r.mu.Lock()
	r.content[ref.key()] = vdoc.Content
	r.mu.Unlock()

	h := &Handle{
		URI:      protocol.DocumentURI(ContentURI(lang, hostURI, ref.RequestID)),
		Language: lang,
		Strategy: embedded.StrategyContent,
		HostURI:  hostURI,
		Version:  1,
	}
	h.cleanup = func(ctx context.Context) error {
		if ref.RequestID != "" {
			r.mu.Lock()
			delete(r.content, ref.key())
			r.mu.Unlock()
		}
		return r.tooling.DidClose(ctx, lang, &protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
		})
	}

	zerolog.Ctx(ctx).Debug().Str("handle", string(h.URI)).Msg("stored virtual content")
	return h
}

func (r *Registry) resolveTempFile(ctx context.Context, vdoc *VirtualDocument, hostURI string) (*Handle, error) {
	lang := vdoc.Language
	ext := lang.Extension

	r.mu.Lock()
	current := r.files[ext]
	switch {
	case current != nil && current.content == vdoc.Content:
		defer r.mu.Unlock()
		current.handle.HostURI = hostURI
		return current.handle, nil

	case current != nil && lang.ReuseHandle:
		defer r.mu.Unlock()
		if err := afero.WriteFile(r.fs, current.path, []byte(vdoc.Content), 0o644); err != nil {
			return nil, errors.Errorf("updating %s: %w", current.path, err)
		}
		// content is recorded only after the tooling accepted it
		current.handle.Version++
		err := r.tooling.DidChange(ctx, lang, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				Version:                current.handle.Version,
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: current.handle.URI},
			},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: vdoc.Content}},
		})
		if err != nil {
			return nil, errors.Errorf("syncing %s: %w", current.path, err)
		}
		current.content = vdoc.Content
		current.handle.HostURI = hostURI
		return current.handle, nil

	case current != nil:
		delete(r.files, ext)
		if err := r.closeTempFile(ctx, current); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("path", current.path).Msg("replacing virtual file")
		}
	}

	created, err := r.openTempFile(ctx, vdoc, hostURI)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.files[ext] = created
	first := !r.created[lang.ID()]
	r.created[lang.ID()] = true
	r.mu.Unlock()

	if first {
		r.EnsureToolingLoaded(ctx, lang, created.handle)
	}
	return created.handle, nil
}

func (r *Registry) openTempFile(ctx context.Context, vdoc *VirtualDocument, hostURI string) (*tempFile, error) {
	lang := vdoc.Language
	path := r.TempPath(lang)
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(r.fs, path, []byte(vdoc.Content), 0o644); err != nil {
		return nil, errors.Errorf("writing %s: %w", path, err)
	}

	h := &Handle{
		URI:      protocol.DocumentURI(uri.File(path)),
		Language: lang,
		Strategy: embedded.StrategyTempFile,
		HostURI:  hostURI,
		Version:  1,
	}
	err := r.tooling.DidOpen(ctx, lang, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        h.URI,
			LanguageID: lang.ID(),
			Version:    h.Version,
			Text:       vdoc.Content,
		},
	})
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("handle", string(h.URI)).Msg("created virtual file")
	return &tempFile{handle: h, path: path, content: vdoc.Content}, nil
}

func (r *Registry) closeTempFile(ctx context.Context, f *tempFile) error {
	err := r.tooling.DidClose(ctx, f.handle.Language, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: f.handle.URI},
	})
	if rmErr := r.fs.Remove(f.path); rmErr != nil {
		err = multierr.Append(err, rmErr)
	}
	return err
}

// EnsureToolingLoaded sends one throwaway hover to the language's tooling so
// that lazily started tooling activates. It does so at most once per
// language and reports whether this call sent the probe.
func (r *Registry) EnsureToolingLoaded(ctx context.Context, lang *embedded.Language, h *Handle) bool {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.loaded[lang.ID()] {
		return false
	}
	r.loaded[lang.ID()] = true

	if _, err := r.tooling.Hover(ctx, lang, protocol.NewHoverParams(string(h.URI), protocol.Position{})); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("language", lang.ID()).Msg("tooling probe failed")
	}
	return true
}

// ToolingLoaded reports whether the probe was sent for lang.
func (r *Registry) ToolingLoaded(lang *embedded.Language) bool {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.loaded[lang.ID()]
}

// ReadContent returns the text behind a content-scheme URI. Per-request
// entries are dropped once read.
func (r *Registry) ReadContent(raw string) (string, error) {
	ref, err := ParseContentURI(raw)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", raw, ErrUnknownHandle)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.content[ref.key()]
	if !ok {
		return "", errors.Errorf("reading %s: %w", raw, ErrUnknownHandle)
	}
	if ref.RequestID != "" {
		delete(r.content, ref.key())
	}
	return text, nil
}

// IsVirtual reports whether documentURI addresses a virtual document of this
// registry, live or not.
func (r *Registry) IsVirtual(documentURI string) bool {
	if strings.HasPrefix(documentURI, ContentScheme+":") {
		return true
	}
	if !strings.HasPrefix(documentURI, "file:") {
		return false
	}
	path := uri.URI(documentURI).Filename()
	root := filepath.Join(r.tempDir, "tmp")
	return filepath.Dir(filepath.Dir(path)) == root && strings.HasPrefix(filepath.Base(path), "intellisense.")
}

// Close closes and removes every tempfile.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	files := r.files
	r.files = make(map[string]*tempFile)
	r.content = make(map[string]string)
	r.mu.Unlock()

	var err error
	for _, f := range files {
		err = multierr.Append(err, r.closeTempFile(ctx, f))
	}
	if err != nil {
		return errors.Errorf("closing virtual documents: %w", err)
	}
	return nil
}
