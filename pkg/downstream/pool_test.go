package downstream_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/downstream"
	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/vdoc"
)

// fakeServer is an in-process language server that records what it is told.
type fakeServer struct {
	mu       sync.Mutex
	opened   map[protocol.DocumentURI]string
	closed   []protocol.DocumentURI
	changes  int
	hovers   []protocol.Position
	shutdown bool
	exited   bool
}

func (f *fakeServer) handlers() handler.Map {
	return handler.Map{
		"initialize": handler.New(func(ctx context.Context, p *protocol.ParamInitialize) (*protocol.InitializeResult, error) {
			return &protocol.InitializeResult{Capabilities: protocol.ServerCapabilities{
				SemanticTokensProvider: &protocol.SemanticTokensOptions{
					Legend: protocol.SemanticTokensLegend{TokenTypes: []string{"variable", "function"}},
					Full:   true,
				},
			}}, nil
		}),
		"initialized": handler.New(func(ctx context.Context, p *protocol.InitializedParams) error { return nil }),
		"textDocument/didOpen": handler.New(func(ctx context.Context, p *protocol.DidOpenTextDocumentParams) error {
			f.mu.Lock()
			f.opened[p.TextDocument.URI] = p.TextDocument.Text
			f.mu.Unlock()
			return jrpc2.ServerFromContext(ctx).Notify(ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
				URI:         p.TextDocument.URI,
				Diagnostics: []protocol.Diagnostic{{Message: "unused import"}},
			})
		}),
		"textDocument/didChange": handler.New(func(ctx context.Context, p *protocol.DidChangeTextDocumentParams) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.changes++
			f.opened[p.TextDocument.URI] = p.ContentChanges[len(p.ContentChanges)-1].Text
			return nil
		}),
		"textDocument/didClose": handler.New(func(ctx context.Context, p *protocol.DidCloseTextDocumentParams) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.opened, p.TextDocument.URI)
			f.closed = append(f.closed, p.TextDocument.URI)
			return nil
		}),
		"textDocument/hover": handler.New(func(ctx context.Context, p *protocol.HoverParams) (*protocol.Hover, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.hovers = append(f.hovers, p.Position)
			text, ok := f.opened[p.TextDocument.URI]
			if !ok {
				return nil, errors.New("document not open")
			}
			return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.PlainText, Value: text}}, nil
		}),
		"textDocument/semanticTokens/full": handler.New(func(ctx context.Context, p *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
			return &protocol.SemanticTokens{Data: []uint32{2, 0, 3, 1, 0}}, nil
		}),
		"shutdown": handler.New(func(ctx context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.shutdown = true
			return nil
		}),
		"exit": handler.New(func(ctx context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.exited = true
			return nil
		}),
	}
}

func (f *fakeServer) snapshot() (map[protocol.DocumentURI]string, []protocol.DocumentURI) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opened := make(map[protocol.DocumentURI]string, len(f.opened))
	for k, v := range f.opened {
		opened[k] = v
	}
	return opened, append([]protocol.DocumentURI(nil), f.closed...)
}

// hostRecorder stands in for the editor.
type hostRecorder struct {
	mu          sync.Mutex
	diagnostics []*protocol.PublishDiagnosticsParams
}

var _ protocol.Client = (*hostRecorder)(nil)

func (h *hostRecorder) Event(context.Context, *any) error                             { return nil }
func (h *hostRecorder) LogMessage(context.Context, *protocol.LogMessageParams) error { return nil }
func (h *hostRecorder) PublishDiagnostics(_ context.Context, p *protocol.PublishDiagnosticsParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.diagnostics = append(h.diagnostics, p)
	return nil
}
func (h *hostRecorder) Progress(context.Context, *protocol.ProgressParams) error { return nil }
func (h *hostRecorder) RegisterCapability(context.Context, *protocol.RegistrationParams) error {
	return nil
}
func (h *hostRecorder) WorkDoneProgressCreate(context.Context, *protocol.WorkDoneProgressCreateParams) error {
	return nil
}
func (h *hostRecorder) Configuration(context.Context, *protocol.ParamConfiguration) ([]protocol.LSPAny, error) {
	return nil, nil
}
func (h *hostRecorder) SemanticTokensRefresh(context.Context) error { return nil }

func (h *hostRecorder) published() []*protocol.PublishDiagnosticsParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*protocol.PublishDiagnosticsParams(nil), h.diagnostics...)
}

type fixture struct {
	pool     *downstream.Pool
	registry *vdoc.Registry
	server   *fakeServer
	host     *hostRecorder
	dials    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		server: &fakeServer{opened: map[protocol.DocumentURI]string{}},
		host:   &hostRecorder{},
	}

	dial := func(ctx context.Context, lang *embedded.Language, callbacks protocol.Client) (*protocol.Connection, error) {
		f.dials++
		cch, sch := channel.Direct()
		srv := jrpc2.NewServer(f.server.handlers(), &jrpc2.ServerOptions{AllowPush: true, Concurrency: 1}).Start(sch)
		t.Cleanup(srv.Stop)
		return protocol.Connect(ctx, cch, callbacks, nil), nil
	}

	f.pool = downstream.NewPool(downstream.WithHost(f.host), downstream.WithDialer(dial), downstream.WithRootURI("file:///work"))
	f.registry = vdoc.NewRegistry(afero.NewMemMapFs(), f.pool.Tooling(), vdoc.WithTempDir("/tmp/embedls"))
	f.pool.UseContent(f.registry)
	return f
}

func withServer(lang *embedded.Language) *embedded.Language {
	c := lang.Clone()
	c.Server = &embedded.ServerCommand{Command: "fake-ls"}
	return c
}

func python(t *testing.T) *embedded.Language {
	lang, ok := embedded.DefaultRegistry().ByID("python")
	require.True(t, ok)
	return withServer(lang)
}

func TestTempFileLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lang := python(t)

	h, err := f.registry.Resolve(ctx, &vdoc.VirtualDocument{Language: lang, Content: "# type: ignore\n# flake8: noqa\n\nimport os"}, "file:///work/a.qmd")
	require.NoError(t, err)
	assert.True(t, f.registry.ToolingLoaded(lang))

	hover, err := f.pool.Hover(ctx, h, protocol.Position{Line: 3, Character: 7})
	require.NoError(t, err)
	assert.Contains(t, hover.Contents.Value, "import os")

	f.server.mu.Lock()
	assert.Equal(t, []protocol.Position{{}, {Line: 3, Character: 7}}, f.server.hovers, "probe then request")
	f.server.mu.Unlock()

	// the server pushed diagnostics for the tempfile: kept for pulls, emptied for the editor
	require.Eventually(t, func() bool { return len(f.host.published()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.host.published()[0].Diagnostics)
	assert.NotNil(t, f.host.published()[0].Diagnostics)

	diags, err := f.pool.Diagnostics(ctx, h)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "unused import", diags[0].Message)

	st, legend, err := f.pool.SemanticTokensFull(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 0, 3, 1, 0}, st.Data)
	require.NotNil(t, legend)
	assert.Equal(t, []string{"variable", "function"}, legend.TokenTypes)

	require.NoError(t, f.pool.Close(ctx))
	f.server.mu.Lock()
	assert.True(t, f.server.shutdown)
	f.server.mu.Unlock()
	assert.Equal(t, 1, f.dials)
}

func TestContentDocumentsOpenLazily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	html, ok := embedded.DefaultRegistry().ByID("html")
	require.True(t, ok)
	lang := withServer(html)

	h, err := f.registry.Resolve(ctx, &vdoc.VirtualDocument{Language: lang, Content: "\n<b>bold</b>"}, "file:///work/a.qmd")
	require.NoError(t, err)

	opened, _ := f.server.snapshot()
	assert.Empty(t, opened, "content documents are not opened on resolve")

	hover, err := f.pool.Hover(ctx, h, protocol.Position{Line: 1, Character: 1})
	require.NoError(t, err)
	assert.Equal(t, "\n<b>bold</b>", hover.Contents.Value)

	require.NoError(t, h.Cleanup(ctx))
	require.Eventually(t, func() bool {
		_, closed := f.server.snapshot()
		return len(closed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	opened, closed := f.server.snapshot()
	assert.NotContains(t, opened, h.URI)
	assert.Equal(t, []protocol.DocumentURI{h.URI}, closed)

	_, err = f.registry.ReadContent(string(h.URI))
	assert.ErrorIs(t, err, vdoc.ErrUnknownHandle)
}

func TestLanguageWithoutServer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mermaid, ok := embedded.DefaultRegistry().ByID("mermaid")
	require.True(t, ok)
	require.Nil(t, mermaid.Server)

	_, err := f.pool.Client(ctx, mermaid)
	assert.ErrorIs(t, err, downstream.ErrNoServer)

	lua, ok := embedded.DefaultRegistry().ByID("lua")
	require.True(t, ok)
	bare := lua.Clone()
	bare.Server = nil

	// materializing still works, the request gets no answer
	h, err := f.registry.Resolve(ctx, &vdoc.VirtualDocument{Language: bare, Content: "print(1)"}, "file:///work/a.qmd")
	require.NoError(t, err)
	_, err = f.pool.Hover(ctx, h, protocol.Position{})
	assert.ErrorIs(t, err, downstream.ErrNoServer)
	assert.Zero(t, f.dials)
}

func TestFailedStartIsNotRetried(t *testing.T) {
	ctx := context.Background()
	dials := 0
	pool := downstream.NewPool(downstream.WithDialer(func(ctx context.Context, lang *embedded.Language, callbacks protocol.Client) (*protocol.Connection, error) {
		dials++
		return nil, errors.New("executable not found")
	}))
	lang := python(t)

	_, err := pool.Client(ctx, lang)
	require.Error(t, err)
	_, err = pool.Client(ctx, lang)
	require.Error(t, err)
	assert.Equal(t, 1, dials)

	// the tooling side swallows the failure so materialization succeeds
	require.NoError(t, pool.Tooling().DidOpen(ctx, lang, &protocol.DidOpenTextDocumentParams{}))
}

func TestFormattingOptionsFromEditorConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".editorconfig"), []byte("root = true\n\n[*.py]\nindent_style = space\nindent_size = 4\ntrim_trailing_whitespace = true\n\n[*.r]\nindent_style = tab\n"), 0o644))

	host := "file://" + filepath.ToSlash(filepath.Join(dir, "analysis.qmd"))
	lang := python(t)

	opts := downstream.FormattingOptions(&vdoc.Handle{Language: lang, HostURI: host}, protocol.FormattingOptions{TabSize: 2})
	assert.Equal(t, protocol.FormattingOptions{TabSize: 4, InsertSpaces: true, TrimTrailingWhitespace: true}, opts)

	r, ok := embedded.DefaultRegistry().ByID("r")
	require.True(t, ok)
	opts = downstream.FormattingOptions(&vdoc.Handle{Language: r, HostURI: host}, protocol.FormattingOptions{TabSize: 2, InsertSpaces: true})
	assert.Equal(t, protocol.FormattingOptions{TabSize: 2}, opts)

	opts = downstream.FormattingOptions(&vdoc.Handle{Language: lang, HostURI: "untitled:Untitled-1"}, protocol.FormattingOptions{TabSize: 8})
	assert.Equal(t, protocol.FormattingOptions{TabSize: 8}, opts)
}
