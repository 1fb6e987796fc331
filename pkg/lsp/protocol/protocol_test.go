package protocol_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/embedls/pkg/lsp/protocol"
)

type recordingClient struct {
	mu          sync.Mutex
	diagnostics []*protocol.PublishDiagnosticsParams
	logs        []string
	got         chan struct{}
}

var _ protocol.Client = (*recordingClient)(nil)

func newRecordingClient() *recordingClient {
	return &recordingClient{got: make(chan struct{}, 16)}
}

func (c *recordingClient) Event(context.Context, *any) error { return nil }
func (c *recordingClient) LogMessage(_ context.Context, p *protocol.LogMessageParams) error {
	c.mu.Lock()
	c.logs = append(c.logs, p.Message)
	c.mu.Unlock()
	c.got <- struct{}{}
	return nil
}
func (c *recordingClient) PublishDiagnostics(_ context.Context, p *protocol.PublishDiagnosticsParams) error {
	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, p)
	c.mu.Unlock()
	c.got <- struct{}{}
	return nil
}
func (c *recordingClient) Progress(context.Context, *protocol.ProgressParams) error { return nil }
func (c *recordingClient) RegisterCapability(context.Context, *protocol.RegistrationParams) error {
	return nil
}
func (c *recordingClient) WorkDoneProgressCreate(context.Context, *protocol.WorkDoneProgressCreateParams) error {
	return nil
}
func (c *recordingClient) Configuration(_ context.Context, p *protocol.ParamConfiguration) ([]protocol.LSPAny, error) {
	return []protocol.LSPAny{map[string]any{"lint": true}}, nil
}
func (c *recordingClient) SemanticTokensRefresh(context.Context) error { return nil }

func (c *recordingClient) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a server message")
	}
}

func TestConnectionRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cch, sch := channel.Direct()

	var configuration []protocol.LSPAny
	srv := jrpc2.NewServer(handler.Map{
		"initialize": handler.New(func(ctx context.Context, p *protocol.ParamInitialize) (*protocol.InitializeResult, error) {
			return &protocol.InitializeResult{
				Capabilities: protocol.ServerCapabilities{
					SemanticTokensProvider: &protocol.SemanticTokensOptions{
						Legend: protocol.SemanticTokensLegend{TokenTypes: []string{"variable"}},
						Full:   true,
					},
				},
			}, nil
		}),
		"textDocument/didOpen": handler.New(func(ctx context.Context, p *protocol.DidOpenTextDocumentParams) error {
			return jrpc2.ServerFromContext(ctx).Notify(ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
				URI:         p.TextDocument.URI,
				Diagnostics: []protocol.Diagnostic{{Message: "unused import"}},
			})
		}),
		"textDocument/hover": handler.New(func(ctx context.Context, p *protocol.HoverParams) (*protocol.Hover, error) {
			rsp, err := jrpc2.ServerFromContext(ctx).Callback(ctx, "workspace/configuration", &protocol.ParamConfiguration{})
			if err != nil {
				return nil, err
			}
			if err := rsp.UnmarshalResult(&configuration); err != nil {
				return nil, err
			}
			return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: "x: int"}}, nil
		}),
		"textDocument/definition": handler.New(func(ctx context.Context, p *protocol.DefinitionParams) (json.RawMessage, error) {
			return json.RawMessage(`{"uri":"file:///a.py","range":{"start":{"line":1,"character":0},"end":{"line":1,"character":1}}}`), nil
		}),
	}, &jrpc2.ServerOptions{AllowPush: true, Concurrency: 1}).Start(sch)
	defer srv.Stop()

	callbacks := newRecordingClient()
	conn := protocol.Connect(ctx, cch, callbacks, nil)
	defer conn.Close()

	res, err := conn.Initialize(ctx, &protocol.ParamInitialize{RootURI: "file:///work"})
	require.NoError(t, err)
	require.NotNil(t, res.Capabilities.SemanticTokensProvider)
	assert.Equal(t, []string{"variable"}, res.Capabilities.SemanticTokensProvider.Legend.TokenTypes)

	require.NoError(t, conn.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: "file:///tmp/intellisense.py", LanguageID: "python", Version: 1, Text: "import os"},
	}))
	callbacks.wait(t)
	callbacks.mu.Lock()
	require.Len(t, callbacks.diagnostics, 1)
	assert.Equal(t, protocol.DocumentURI("file:///tmp/intellisense.py"), callbacks.diagnostics[0].URI)
	callbacks.mu.Unlock()

	hover, err := conn.Hover(ctx, protocol.NewHoverParams("file:///tmp/intellisense.py", protocol.Position{}))
	require.NoError(t, err)
	assert.Equal(t, "x: int", hover.Contents.Value)
	assert.Equal(t, []protocol.LSPAny{map[string]any{"lint": true}}, configuration)

	locs, err := conn.Definition(ctx, &protocol.DefinitionParams{})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.DocumentURI("file:///a.py"), locs[0].URI)
}

func TestMarkupContentForms(t *testing.T) {
	tests := []struct {
		name string
		json string
		want protocol.MarkupContent
	}{
		{name: "markup", json: `{"kind":"plaintext","value":"x"}`, want: protocol.MarkupContent{Kind: protocol.PlainText, Value: "x"}},
		{name: "string", json: `"x"`, want: protocol.MarkupContent{Kind: protocol.Markdown, Value: "x"}},
		{name: "marked", json: `{"language":"python","value":"x = 1"}`, want: protocol.MarkupContent{Kind: protocol.Markdown, Value: "```python\nx = 1\n```"}},
		{name: "list", json: `["a", {"language":"r","value":"b"}]`, want: protocol.MarkupContent{Kind: protocol.Markdown, Value: "a\n\n```r\nb\n```"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got protocol.MarkupContent
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLocations(t *testing.T) {
	rng := `{"start":{"line":2,"character":0},"end":{"line":2,"character":3}}`
	tests := []struct {
		name string
		json string
		want int
	}{
		{name: "null", json: `null`, want: 0},
		{name: "single", json: `{"uri":"file:///a","range":` + rng + `}`, want: 1},
		{name: "list", json: `[{"uri":"file:///a","range":` + rng + `},{"uri":"file:///b","range":` + rng + `}]`, want: 2},
		{name: "links", json: `[{"targetUri":"file:///c","targetRange":` + rng + `,"targetSelectionRange":` + rng + `}]`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locs, err := protocol.DecodeLocations(json.RawMessage(tt.json))
			require.NoError(t, err)
			assert.Len(t, locs, tt.want)
			for _, loc := range locs {
				assert.NotEmpty(t, loc.URI)
				assert.Equal(t, uint32(2), loc.Range.Start.Line)
			}
		})
	}
}

func TestDecodeCompletion(t *testing.T) {
	list, err := protocol.DecodeCompletion(json.RawMessage(`[{"label":"print"}]`))
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.False(t, list.IsIncomplete)

	list, err = protocol.DecodeCompletion(json.RawMessage(`{"isIncomplete":true,"items":[{"label":"a"},{"label":"b"}]}`))
	require.NoError(t, err)
	assert.True(t, list.IsIncomplete)
	assert.Len(t, list.Items, 2)

	list, err = protocol.DecodeCompletion(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, list)
}
