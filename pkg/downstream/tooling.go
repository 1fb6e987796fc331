package downstream

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/vdoc"
)

// tooling keeps language servers in sync with the virtual document
// registry. A language without a working server is silently skipped so that
// materializing its virtual documents still succeeds.
type tooling struct {
	pool *Pool
}

var _ vdoc.Tooling = (*tooling)(nil)

// Tooling adapts p to the virtual document registry.
func (p *Pool) Tooling() vdoc.Tooling {
	return &tooling{pool: p}
}

func (t *tooling) client(ctx context.Context, lang *embedded.Language) (*Client, bool) {
	c, err := t.pool.Client(ctx, lang)
	if err != nil {
		if !errors.Is(err, ErrNoServer) {
			zerolog.Ctx(ctx).Debug().Err(err).Str("language", lang.ID()).Msg("language server unavailable")
		}
		return nil, false
	}
	return c, true
}

func (t *tooling) DidOpen(ctx context.Context, lang *embedded.Language, params *protocol.DidOpenTextDocumentParams) error {
	c, ok := t.client(ctx, lang)
	if !ok {
		return nil
	}
	return c.didOpen(ctx, params)
}

func (t *tooling) DidChange(ctx context.Context, lang *embedded.Language, params *protocol.DidChangeTextDocumentParams) error {
	c, ok := t.pool.existing(lang)
	if !ok || !c.isOpen(params.TextDocument.URI) {
		return nil
	}
	return c.conn.DidChange(ctx, params)
}

func (t *tooling) DidClose(ctx context.Context, lang *embedded.Language, params *protocol.DidCloseTextDocumentParams) error {
	c, ok := t.pool.existing(lang)
	if !ok {
		return nil
	}
	return c.didClose(ctx, params)
}

func (t *tooling) Hover(ctx context.Context, lang *embedded.Language, params *protocol.HoverParams) (*protocol.Hover, error) {
	c, ok := t.client(ctx, lang)
	if !ok {
		return nil, ErrNoServer
	}
	return c.conn.Hover(ctx, params)
}
