// Package downstream runs one language server per embedded language and
// executes capability requests against virtual documents.
package downstream

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/diagnostic"
	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/semtok"
)

// Client is an initialized connection to the language server of one
// embedded language.
type Client struct {
	lang   *embedded.Language
	conn   *protocol.Connection
	caps   protocol.ServerCapabilities
	legend *semtok.Legend

	mu        sync.Mutex
	opened    map[protocol.DocumentURI]bool
	published map[protocol.DocumentURI][]protocol.Diagnostic
}

func (c *Client) Language() *embedded.Language { return c.lang }

// Legend is the semantic token legend the server announced, or nil.
func (c *Client) Legend() *semtok.Legend { return c.legend }

func (c *Client) Capabilities() protocol.ServerCapabilities { return c.caps }

func (c *Client) initialize(ctx context.Context, rootURI protocol.DocumentURI) error {
	res, err := c.conn.Initialize(ctx, &protocol.ParamInitialize{
		ProcessID:  0,
		ClientInfo: &protocol.ClientInfo{Name: "embedls"},
		RootURI:    rootURI,
		Capabilities: protocol.ClientCapabilities{
			TextDocument: protocol.TextDocumentClientCapabilities{
				Hover: &protocol.HoverClientCapabilities{ContentFormat: []protocol.MarkupKind{protocol.Markdown, protocol.PlainText}},
				SemanticTokens: &protocol.SemanticTokensClientCapabilities{
					Requests:       protocol.SemanticTokensClientRequests{Range: true, Full: true},
					TokenTypes:     semtok.Universal.TokenTypes,
					TokenModifiers: semtok.Universal.TokenModifiers,
					Formats:        []string{"relative"},
				},
				PublishDiagnostics: &protocol.PublishDiagnosticsClientCapability{},
			},
		},
	})
	if err != nil {
		return errors.Errorf("initializing %s server: %w", c.lang.ID(), err)
	}
	if res != nil {
		c.caps = res.Capabilities
		if p := res.Capabilities.SemanticTokensProvider; p != nil {
			c.legend = semtok.LegendFromProtocol(p.Legend)
		}
	}
	if err := c.conn.Initialized(ctx, &protocol.InitializedParams{}); err != nil {
		return errors.Errorf("notifying %s server: %w", c.lang.ID(), err)
	}
	return nil
}

func (c *Client) isOpen(uri protocol.DocumentURI) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened[uri]
}

func (c *Client) didOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	c.mu.Lock()
	c.opened[params.TextDocument.URI] = true
	c.mu.Unlock()
	return c.conn.DidOpen(ctx, params)
}

func (c *Client) didClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	c.mu.Lock()
	open := c.opened[params.TextDocument.URI]
	delete(c.opened, params.TextDocument.URI)
	delete(c.published, params.TextDocument.URI)
	c.mu.Unlock()
	if !open {
		return nil
	}
	return c.conn.DidClose(ctx, params)
}

// lastPublished returns the diagnostics the server last pushed for uri.
func (c *Client) lastPublished(uri protocol.DocumentURI) []protocol.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Diagnostic(nil), c.published[uri]...)
}

func (c *Client) shutdown(ctx context.Context) error {
	err := c.conn.Shutdown(ctx)
	if err == nil {
		err = c.conn.Exit(ctx)
	}
	if cerr := c.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Errorf("shutting down %s server: %w", c.lang.ID(), err)
	}
	return nil
}

// callbacks receives what a language server sends back. Diagnostics about
// virtual documents are remembered for pull requests and emptied before they
// reach the editor.
type callbacks struct {
	client    *Client
	host      protocol.Client
	isVirtual diagnostic.VirtualPredicate
}

var _ protocol.Client = (*callbacks)(nil)

func (cb *callbacks) Event(ctx context.Context, _ *any) error { return nil }

func (cb *callbacks) LogMessage(ctx context.Context, params *protocol.LogMessageParams) error {
	zerolog.Ctx(ctx).Debug().Str("downstream", cb.client.lang.ID()).Msg(params.Message)
	return nil
}

func (cb *callbacks) PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	cb.client.mu.Lock()
	cb.client.published[params.URI] = params.Diagnostics
	cb.client.mu.Unlock()

	if cb.host == nil {
		return nil
	}
	return cb.host.PublishDiagnostics(ctx, diagnostic.Filter(params, cb.isVirtual))
}

func (cb *callbacks) Progress(ctx context.Context, _ *protocol.ProgressParams) error { return nil }

func (cb *callbacks) RegisterCapability(ctx context.Context, _ *protocol.RegistrationParams) error {
	return nil
}

func (cb *callbacks) WorkDoneProgressCreate(ctx context.Context, _ *protocol.WorkDoneProgressCreateParams) error {
	return nil
}

func (cb *callbacks) Configuration(ctx context.Context, params *protocol.ParamConfiguration) ([]protocol.LSPAny, error) {
	return make([]protocol.LSPAny, len(params.Items)), nil
}

func (cb *callbacks) SemanticTokensRefresh(ctx context.Context) error { return nil }
