package downstream

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/semtok"
	"github.com/walteh/embedls/pkg/vdoc"
)

// prepare returns the client for h, opening in-memory virtual documents on
// the server the first time they are addressed.
func (p *Pool) prepare(ctx context.Context, h *vdoc.Handle) (*Client, error) {
	c, err := p.Client(ctx, h.Language)
	if err != nil {
		return nil, err
	}
	if h.Strategy != embedded.StrategyContent || c.isOpen(h.URI) {
		return c, nil
	}

	src := p.contentSource()
	if src == nil {
		return nil, errors.Errorf("opening %s: no content source", h.URI)
	}
	text, err := src.ReadContent(string(h.URI))
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", h.URI, err)
	}
	err = c.didOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        h.URI,
			LanguageID: h.Language.ID(),
			Version:    h.Version,
			Text:       text,
		},
	})
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", h.URI, err)
	}
	return c, nil
}

func position(h *vdoc.Handle, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.NewPositionParams(h.URI, pos)
}

func (p *Pool) Hover(ctx context.Context, h *vdoc.Handle, pos protocol.Position) (*protocol.Hover, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	return c.conn.Hover(ctx, &protocol.HoverParams{TextDocumentPositionParams: position(h, pos)})
}

func (p *Pool) Completion(ctx context.Context, h *vdoc.Handle, pos protocol.Position, cc *protocol.CompletionContext) (*protocol.CompletionList, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	return c.conn.Completion(ctx, &protocol.CompletionParams{TextDocumentPositionParams: position(h, pos), Context: cc})
}

func (p *Pool) SignatureHelp(ctx context.Context, h *vdoc.Handle, pos protocol.Position, sc *protocol.SignatureHelpContext) (*protocol.SignatureHelp, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	return c.conn.SignatureHelp(ctx, &protocol.SignatureHelpParams{TextDocumentPositionParams: position(h, pos), Context: sc})
}

func (p *Pool) Definition(ctx context.Context, h *vdoc.Handle, pos protocol.Position) ([]protocol.Location, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	return c.conn.Definition(ctx, &protocol.DefinitionParams{TextDocumentPositionParams: position(h, pos)})
}

func (p *Pool) Formatting(ctx context.Context, h *vdoc.Handle, opts protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	return c.conn.Formatting(ctx, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
		Options:      FormattingOptions(h, opts),
	})
}

func (p *Pool) RangeFormatting(ctx context.Context, h *vdoc.Handle, rng protocol.Range, opts protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	return c.conn.RangeFormatting(ctx, &protocol.DocumentRangeFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
		Range:        rng,
		Options:      FormattingOptions(h, opts),
	})
}

// SemanticTokensFull returns no tokens when the server has no semantic
// token provider.
func (p *Pool) SemanticTokensFull(ctx context.Context, h *vdoc.Handle) (*protocol.SemanticTokens, *semtok.Legend, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, nil, err
	}
	if c.caps.SemanticTokensProvider == nil {
		return nil, nil, nil
	}
	st, err := c.conn.SemanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
	})
	return st, c.legend, err
}

func (p *Pool) SemanticTokensRange(ctx context.Context, h *vdoc.Handle, rng protocol.Range) (*protocol.SemanticTokens, *semtok.Legend, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, nil, err
	}
	if c.caps.SemanticTokensProvider == nil {
		return nil, nil, nil
	}
	if !c.caps.SemanticTokensProvider.Range {
		st, err := c.conn.SemanticTokensFull(ctx, &protocol.SemanticTokensParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
		})
		return st, c.legend, err
	}
	st, err := c.conn.SemanticTokensRange(ctx, &protocol.SemanticTokensRangeParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
		Range:        rng,
	})
	return st, c.legend, err
}

// Diagnostics pulls diagnostics when the server supports it and otherwise
// returns the last batch it pushed for the handle.
func (p *Pool) Diagnostics(ctx context.Context, h *vdoc.Handle) ([]protocol.Diagnostic, error) {
	c, err := p.prepare(ctx, h)
	if err != nil {
		return nil, err
	}
	if c.caps.DiagnosticProvider == nil {
		return c.lastPublished(h.URI), nil
	}
	report, err := c.conn.Diagnostic(ctx, &protocol.DocumentDiagnosticParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: h.URI},
		Identifier:   c.caps.DiagnosticProvider.Identifier,
	})
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, nil
	}
	return report.Items, nil
}
