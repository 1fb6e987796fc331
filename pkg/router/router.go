// Package router decides, per request, whether the cursor sits in an
// embedded language block and, if so, answers the request through that
// language's virtual document.
package router

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/embedls/pkg/blockindex"
	"github.com/walteh/embedls/pkg/document"
	"github.com/walteh/embedls/pkg/embedded"
	"github.com/walteh/embedls/pkg/locator"
	"github.com/walteh/embedls/pkg/lsp/protocol"
	"github.com/walteh/embedls/pkg/position"
	"github.com/walteh/embedls/pkg/semtok"
	"github.com/walteh/embedls/pkg/vdoc"
)

// Executor runs a capability against a materialized virtual document. All
// positions are in virtual space.
type Executor interface {
	Hover(ctx context.Context, h *vdoc.Handle, pos protocol.Position) (*protocol.Hover, error)
	Completion(ctx context.Context, h *vdoc.Handle, pos protocol.Position, cc *protocol.CompletionContext) (*protocol.CompletionList, error)
	SignatureHelp(ctx context.Context, h *vdoc.Handle, pos protocol.Position, sc *protocol.SignatureHelpContext) (*protocol.SignatureHelp, error)
	Definition(ctx context.Context, h *vdoc.Handle, pos protocol.Position) ([]protocol.Location, error)
	Formatting(ctx context.Context, h *vdoc.Handle, opts protocol.FormattingOptions) ([]protocol.TextEdit, error)
	RangeFormatting(ctx context.Context, h *vdoc.Handle, rng protocol.Range, opts protocol.FormattingOptions) ([]protocol.TextEdit, error)
	SemanticTokensFull(ctx context.Context, h *vdoc.Handle) (*protocol.SemanticTokens, *semtok.Legend, error)
	SemanticTokensRange(ctx context.Context, h *vdoc.Handle, rng protocol.Range) (*protocol.SemanticTokens, *semtok.Legend, error)
	Diagnostics(ctx context.Context, h *vdoc.Handle) ([]protocol.Diagnostic, error)
}

// Resolver materializes a virtual document. *vdoc.Registry is the
// production implementation.
type Resolver interface {
	Resolve(ctx context.Context, vd *vdoc.VirtualDocument, hostURI string) (*vdoc.Handle, error)
}

// Next is the host-level handler a request falls through to when no
// embedded language block is involved.
type Next[T any] func(ctx context.Context) (T, error)

func (n Next[T]) call(ctx context.Context) (T, error) {
	if n == nil {
		var zero T
		return zero, nil
	}
	return n(ctx)
}

type Router struct {
	index     *blockindex.Index
	languages *embedded.Registry
	resolver  Resolver
	exec      Executor
}

func New(index *blockindex.Index, languages *embedded.Registry, resolver Resolver, exec Executor) *Router {
	return &Router{
		index:     index,
		languages: languages,
		resolver:  resolver,
		exec:      exec,
	}
}

// target is a resolved embedded request: the block under the cursor and the
// materialized virtual document of its language.
type target struct {
	lang   *embedded.Language
	block  blockindex.Block
	blocks []blockindex.Block
	vdoc   *vdoc.VirtualDocument
	handle *vdoc.Handle
	mapper position.Mapper
}

func (t *target) cleanup(ctx context.Context) {
	if err := t.handle.Cleanup(ctx); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("handle", string(t.handle.URI)).Msg("releasing virtual document")
	}
}

func (t *target) langBlocks() []blockindex.Block {
	return locator.BlocksOf(t.blocks, t.lang)
}

// interior reports whether a host line lies strictly inside one of the
// blocks of the target's language.
func (t *target) interior(line uint32) bool {
	for _, b := range t.langBlocks() {
		if int(line) > b.Span.Start && int(line) < b.Span.End-1 {
			return true
		}
	}
	return false
}

func (r *Router) blocks(ctx context.Context, doc document.Document) ([]blockindex.Block, error) {
	return r.index.Parse(ctx, doc)
}

// LanguageAt returns the embedded language whose block interior contains
// line.
func (r *Router) LanguageAt(blocks []blockindex.Block, line int) (*embedded.Language, blockindex.Block, bool) {
	b, ok := locator.BlockAt(blocks, line, false)
	if !ok {
		return nil, blockindex.Block{}, false
	}
	id, ok := locator.LanguageIDOf(b)
	if !ok {
		return nil, blockindex.Block{}, false
	}
	lang, ok := r.languages.ByID(id)
	if !ok {
		return nil, blockindex.Block{}, false
	}
	return lang, b, true
}

// ResolveVirtualDocument builds the virtual document of the language under
// pos. It reports false when pos is not inside a known language block.
func (r *Router) ResolveVirtualDocument(ctx context.Context, doc document.Document, pos protocol.Position) (*vdoc.VirtualDocument, bool, error) {
	blocks, err := r.blocks(ctx, doc)
	if err != nil {
		return nil, false, err
	}
	lang, _, ok := r.LanguageAt(blocks, int(pos.Line))
	if !ok {
		return nil, false, nil
	}
	return vdoc.Build(doc, blocks, lang), true, nil
}

// ResolveHandle materializes vd for hostURI.
func (r *Router) ResolveHandle(ctx context.Context, vd *vdoc.VirtualDocument, hostURI string) (*vdoc.Handle, error) {
	return r.resolver.Resolve(ctx, vd, hostURI)
}

func (r *Router) materialize(ctx context.Context, doc document.Document, blocks []blockindex.Block, lang *embedded.Language) (*target, error) {
	vd := vdoc.Build(doc, blocks, lang)
	h, err := r.resolver.Resolve(ctx, vd, doc.URI())
	if err != nil {
		return nil, err
	}
	return &target{
		lang:   lang,
		blocks: blocks,
		vdoc:   vd,
		handle: h,
		mapper: vd.Mapper(),
	}, nil
}

// at resolves the target for a host line. It reports false when no
// embedded language is involved. A true result with a nil target means the
// virtual document could not be materialized and the request gets an empty
// answer.
func (r *Router) at(ctx context.Context, doc document.Document, line uint32, capability string) (*target, bool, error) {
	blocks, err := r.blocks(ctx, doc)
	if err != nil {
		return nil, false, err
	}
	lang, block, ok := r.LanguageAt(blocks, int(line))
	if !ok {
		return nil, false, nil
	}
	t, err := r.materialize(ctx, doc, blocks, lang)
	if err != nil {
		providerFailure(ctx, capability, lang, err)
		return nil, true, nil
	}
	t.block = block
	return t, true, nil
}

func providerFailure(ctx context.Context, capability string, lang *embedded.Language, err error) {
	zerolog.Ctx(ctx).Debug().
		Err(err).
		Str("capability", capability).
		Str("language", lang.ID()).
		Msg("embedded request failed")
}
